package logging

import (
	"bytes"
	"io"
	"sync"
)

// PrefixWriter wraps an io.Writer and adds a prefix to each line.
// Each prefixed line reaches the underlying writer in a single Write call.
type PrefixWriter struct {
	mu      sync.Mutex
	prefix  []byte
	writer  io.Writer
	pending bytes.Buffer
}

// NewPrefixWriter creates a new PrefixWriter.
func NewPrefixWriter(prefix string, w io.Writer) *PrefixWriter {
	return &PrefixWriter{
		prefix: []byte(prefix),
		writer: w,
	}
}

// Write implements io.Writer. Complete lines are written immediately, an
// incomplete trailing line is held until its newline arrives or Flush.
func (pw *PrefixWriter) Write(p []byte) (int, error) {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	n := len(p)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			pw.pending.Write(p)
			break
		}
		pw.pending.Write(p[:i+1])
		if err := pw.emit(); err != nil {
			return 0, err
		}
		p = p[i+1:]
	}
	return n, nil
}

// Flush writes a held incomplete line, if any
func (pw *PrefixWriter) Flush() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.pending.Len() == 0 {
		return nil
	}
	return pw.emit()
}

func (pw *PrefixWriter) emit() error {
	line := make([]byte, 0, len(pw.prefix)+pw.pending.Len())
	line = append(line, pw.prefix...)
	line = append(line, pw.pending.Bytes()...)
	pw.pending.Reset()
	_, err := pw.writer.Write(line)
	return err
}
