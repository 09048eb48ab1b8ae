// Package jsonutil holds the byte-stable JSON encoding shared by every
// hashed artifact writer. Re-encoding an unchanged value must reproduce the
// file byte for byte, or ledger verification would flag phantom mutations.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"os"
)

// MarshalStable renders v with two-space indentation, literal (non-HTML-
// escaped) strings and a trailing newline.
func MarshalStable(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteStableFile persists v at path in the stable encoding.
func WriteStableFile(path string, v any) error {
	data, err := MarshalStable(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
