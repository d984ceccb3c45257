// Package jsonfmt renders JSON documents in a canonical, human-readable form:
// object keys sorted at every depth, four-space indentation, numbers preserved
// exactly as written and no HTML escaping. The same input always yields the
// same bytes.
package jsonfmt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Indent is the indentation unit used by Format
const Indent = "    "

// Decode parses a JSON document, keeping numbers as json.Number so they are
// re-encoded verbatim. Trailing data after the document is an error.
func Decode(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid JSON: unexpected data after document")
	}
	return v, nil
}

// Format returns the canonical indented rendering of a JSON document
func Format(data []byte) ([]byte, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return encode(v, Indent)
}

// Compact returns the canonical single-line rendering of a JSON document
func Compact(data []byte) ([]byte, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return encode(v, "")
}

// Valid reports whether data is exactly one JSON document
func Valid(data []byte) bool {
	_, err := Decode(data)
	return err == nil
}

func encode(v interface{}, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	// encoding/json writes map keys in sorted order
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
