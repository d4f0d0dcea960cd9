package output

import (
	"bufio"
	"errors"
	"fmt"
	"os"
)

// JSONLWriter writes one compact page record per line.
type JSONLWriter struct {
	path string
	f    *os.File
	w    *bufio.Writer
}

var _ Sink = (*JSONLWriter)(nil)

func NewJSONLWriter(path string) *JSONLWriter {
	return &JSONLWriter{path: path}
}

func (j *JSONLWriter) Begin() error {
	f, err := os.Create(j.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", j.path, err)
	}
	j.f = f
	j.w = bufio.NewWriter(f)
	return nil
}

func (j *JSONLWriter) WritePage(rec PageRecord) error {
	if j.w == nil {
		return errors.New("jsonl writer not started")
	}
	b, err := marshalRecord(rec, "")
	if err != nil {
		return fmt.Errorf("encode page %d: %w", rec.PageNumber, err)
	}
	if _, err := j.w.Write(b); err != nil {
		return err
	}
	return j.w.WriteByte('\n')
}

func (j *JSONLWriter) Close() error {
	if j.f == nil {
		return nil
	}
	err := j.w.Flush()
	err = errors.Join(err, j.f.Close())
	j.f, j.w = nil, nil
	return err
}

// Abort keeps the complete lines written so far.
func (j *JSONLWriter) Abort() error {
	return j.Close()
}
