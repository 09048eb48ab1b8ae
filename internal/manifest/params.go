package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Params is the manifest's stage-parameter mapping. JSON object key order is
// insertion order and survives load/persist cycles, so independent stages can
// each rewrite their own key without reshuffling the document. Values are kept
// as raw JSON.
type Params struct {
	keys   []string
	values map[string]json.RawMessage
}

func NewParams() *Params {
	return &Params{values: make(map[string]json.RawMessage)}
}

// Set marshals value and stores it under key. A new key is appended; an
// existing key keeps its position and gets the new value.
func (p *Params) Set(key string, value any) error {
	raw, err := marshalCompact(value)
	if err != nil {
		return fmt.Errorf("encode parameters[%s]: %w", key, err)
	}
	p.SetRaw(key, raw)
	return nil
}

func (p *Params) SetRaw(key string, raw json.RawMessage) {
	if p.values == nil {
		p.values = make(map[string]json.RawMessage)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = raw
}

func (p *Params) Get(key string) (json.RawMessage, bool) {
	if p == nil || p.values == nil {
		return nil, false
	}
	raw, ok := p.values[key]
	return raw, ok
}

func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

func (p *Params) MarshalJSON() ([]byte, error) {
	if p == nil || len(p.keys) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(p.values[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Params) UnmarshalJSON(data []byte) error {
	p.keys = nil
	p.values = make(map[string]json.RawMessage)
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("parameters: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("parameters: expected string key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("parameters[%s]: %w", key, err)
		}
		p.SetRaw(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// marshalCompact encodes without HTML escaping, matching how the manifest
// itself is persisted.
func marshalCompact(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
