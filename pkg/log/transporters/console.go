package transporters

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"replykit/pkg/log"
)

// Console writes human-readable lines, for local development:
//
//	15:04:05.000 INFO  [cache] entry saved key=abc size=1200
type Console struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewConsole writes to os.Stderr.
func NewConsole() *Console {
	return &Console{writer: os.Stderr}
}

// NewConsoleWithWriter writes to w.
func NewConsoleWithWriter(w io.Writer) *Console {
	return &Console{writer: w}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Write(entry log.Entry) error {
	var b strings.Builder
	b.WriteString(entry.Timestamp.Format("15:04:05.000"))
	fmt.Fprintf(&b, " %-5s ", entry.Level)
	if entry.Logger != "" {
		b.WriteString("[" + entry.Logger + "] ")
	}
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Fields[k])
	}
	if entry.RequestID != "" {
		b.WriteString(" request_id=" + entry.RequestID)
	}
	b.WriteByte('\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.writer, b.String())
	return err
}

func (c *Console) Close() error { return nil }

