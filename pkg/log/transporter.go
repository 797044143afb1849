package log

// Transporter is a log output destination.
type Transporter interface {
	Name() string

	// Write delivers one entry.
	Write(entry Entry) error

	// Close releases resources. Write must not be called afterwards.
	Close() error
}
