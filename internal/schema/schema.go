// Package schema checks written output documents against the embedded JSON Schema.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed output.schema.json
var outputSchema []byte

const schemaURL = "output.schema.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func load() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(outputSchema)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile(schemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}

// Validate reads an output document from r and checks it against the schema.
// Pages must also be numbered 1..n in order. It returns the page count.
func Validate(r io.Reader) (int, error) {
	s, err := load()
	if err != nil {
		return 0, err
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Errorf("unmarshal data: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return 0, fmt.Errorf("unmarshal data: trailing content after document")
	}
	if err := s.Validate(v); err != nil {
		return 0, fmt.Errorf("json does not match schema: %w", err)
	}

	pages := v.(map[string]any)["pages"].([]any)
	for i, p := range pages {
		n := p.(map[string]any)["page_number"].(json.Number).String()
		if n != strconv.Itoa(i+1) {
			return 0, fmt.Errorf("pages[%d]: page_number %s, want %d", i, n, i+1)
		}
	}
	return len(pages), nil
}

// ValidateFile is Validate on the file at path.
func ValidateFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return Validate(f)
}
