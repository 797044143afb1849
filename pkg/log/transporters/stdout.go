// Package transporters holds the log output destinations.
package transporters

import (
	"io"
	"os"
	"sync"

	"replykit/pkg/json"
	"replykit/pkg/log"
)

// Stdout writes one JSON object per line.
type Stdout struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewStdout writes to os.Stdout.
func NewStdout() *Stdout {
	return &Stdout{writer: os.Stdout}
}

// NewStdoutWithWriter writes to w.
func NewStdoutWithWriter(w io.Writer) *Stdout {
	return &Stdout{writer: w}
}

func (s *Stdout) Name() string { return "stdout" }

// Write encodes the entry as line-delimited JSON.
func (s *Stdout) Write(entry log.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.writer.Write(data)
	return err
}

func (s *Stdout) Close() error { return nil }
