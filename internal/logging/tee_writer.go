package logging

import (
	"io"

	"go.uber.org/multierr"
)

// TeeWriter writes every message to all of its writers. A failing writer
// does not stop the others; the failures are combined into one error.
type TeeWriter struct {
	writers []io.Writer
}

func NewTeeWriter(writers ...io.Writer) *TeeWriter {
	return &TeeWriter{writers: writers}
}

// Write returns the total number of bytes written across all writers.
func (t *TeeWriter) Write(p []byte) (int, error) {
	var (
		total int
		err   error
	)
	for _, w := range t.writers {
		n, wErr := w.Write(p)
		total += n
		err = multierr.Append(err, wErr)
	}
	return total, err
}
