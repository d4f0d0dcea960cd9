package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const (
	jsonHeader    = "{\n  \"pages\": [\n"
	jsonSeparator = ",\n"
	jsonFooter    = "\n  ]\n}\n"
	recordIndent  = "    "
)

// JSONWriter streams {"pages": [...]} to a file, one record per WritePage.
type JSONWriter struct {
	path  string
	f     *os.File
	w     *bufio.Writer
	count int
}

var _ Sink = (*JSONWriter)(nil)

func NewJSONWriter(path string) *JSONWriter {
	return &JSONWriter{path: path}
}

func (j *JSONWriter) Path() string { return j.path }

func (j *JSONWriter) Begin() error {
	if j.f != nil {
		return errors.New("json writer already started")
	}
	f, err := os.Create(j.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", j.path, err)
	}
	j.f = f
	j.w = bufio.NewWriter(f)
	_, err = j.w.WriteString(jsonHeader)
	return err
}

func (j *JSONWriter) WritePage(rec PageRecord) error {
	if j.w == nil {
		return errors.New("json writer not started")
	}
	b, err := marshalRecord(rec, recordIndent)
	if err != nil {
		return fmt.Errorf("encode page %d: %w", rec.PageNumber, err)
	}
	if j.count > 0 {
		if _, err := j.w.WriteString(jsonSeparator); err != nil {
			return err
		}
	}
	if _, err := j.w.Write(b); err != nil {
		return err
	}
	j.count++
	// push each record to disk so an aborted run keeps what was written
	return j.w.Flush()
}

func (j *JSONWriter) Close() error {
	if j.f == nil {
		return nil
	}
	_, err := j.w.WriteString(jsonFooter)
	if err == nil {
		err = j.w.Flush()
	}
	return errors.Join(err, j.release())
}

// Abort closes the file without the closing brackets.
func (j *JSONWriter) Abort() error {
	if j.f == nil {
		return nil
	}
	err := j.w.Flush()
	return errors.Join(err, j.release())
}

func (j *JSONWriter) release() error {
	err := j.f.Close()
	j.f, j.w = nil, nil
	return err
}

// marshalRecord encodes rec without HTML escaping; indent == "" yields a
// single line.
func marshalRecord(rec PageRecord, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return unescapeLineSeparators(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// unescapeLineSeparators writes U+2028 and U+2029 verbatim. encoding/json
// escapes them even with HTML escaping off. Escaped backslashes are copied
// as pairs so a literal `\\u2028` in the text is left alone.
func unescapeLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] == '\\' && i+1 < len(b) && b[i+1] == '\\' {
			out = append(out, b[i], b[i+1])
			i++
			continue
		}
		if b[i] == '\\' && bytes.HasPrefix(b[i:], []byte(`\u2028`)) {
			out = append(out, "\u2028"...)
			i += 5
			continue
		}
		if b[i] == '\\' && bytes.HasPrefix(b[i:], []byte(`\u2029`)) {
			out = append(out, "\u2029"...)
			i += 5
			continue
		}
		out = append(out, b[i])
	}
	return out
}
