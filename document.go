package pulseagent

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is an insertion-ordered mapping from field name to a JSON-like value.
//
// A Document is built fresh for every report and is not safe for concurrent
// mutation. Once handed to the senders it must be treated as read-only: the
// same instance is passed to every registered [Sender].
//
// Setting an existing key overwrites the value in place and keeps the
// original position, so the wire order always reflects first insertion.
type Document struct {
	keys   []string
	values map[string]any
}

// NewDocument returns an empty [Document].
func NewDocument() *Document {
	return &Document{values: make(map[string]any)}
}

// Set adds or overwrites a field.
func (d *Document) Set(key string, value any) {
	if d.values == nil {
		d.values = make(map[string]any)
	}
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value stored under key and whether it was present.
func (d *Document) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// String returns the value under key rendered as a string, or "" if the
// field is absent or nil.
func (d *Document) String(key string) string {
	v, ok := d.values[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Has reports whether key is present (a nil value counts as present).
func (d *Document) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Delete removes key. Deleting an absent key is a no-op.
func (d *Document) Delete(key string) {
	if _, ok := d.values[key]; !ok {
		return
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the field names in insertion order.
// The returned slice is a copy.
func (d *Document) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Len returns the number of fields.
func (d *Document) Len() int {
	return len(d.keys)
}

// Clone returns a shallow copy of the document. Nested values are shared.
func (d *Document) Clone() *Document {
	cp := &Document{
		keys:   append([]string(nil), d.keys...),
		values: make(map[string]any, len(d.values)),
	}
	for k, v := range d.values {
		cp.values[k] = v
	}
	return cp
}

// MarshalJSON encodes the document as a JSON object in insertion order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving the order of top-level
// fields. Nested objects decode to map[string]any.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("document must be a JSON object")
	}

	d.keys = nil
	d.values = make(map[string]any)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		d.Set(key, val)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
