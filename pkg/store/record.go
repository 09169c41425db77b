package store

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
)

// Record is one node of the record tree. Values are JSON-compatible: strings,
// numbers, booleans, nested records, slices and the ServerTimestamp sentinel.
type Record map[string]any

// Has reports whether field is present, even when its value is null.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// String returns the field as a string, or "" when absent or not a string.
func (r Record) String(field string) string {
	if s, ok := r[field].(string); ok {
		return s
	}
	return ""
}

// Number returns the field as float64 for any numeric encoding adapters produce.
func (r Record) Number(field string) (float64, bool) {
	return toNumber(r[field])
}

// Int64 returns the numeric field truncated to int64, or 0.
func (r Record) Int64(field string) int64 {
	n, ok := r.Number(field)
	if !ok {
		return 0
	}
	return int64(n)
}

// Bool returns the field's boolean value and whether it held a boolean.
func (r Record) Bool(field string) (value bool, ok bool) {
	value, ok = r[field].(bool)
	return value, ok
}

// Child returns the nested record stored under field.
func (r Record) Child(field string) (Record, bool) {
	return asRecord(r[field])
}

// Strings returns a string slice stored under field, skipping non-string items.
func (r Record) Strings(field string) []string {
	switch v := r[field].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Children lists the record-valued children ordered by key.
func (r Record) Children() []Entry {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		if child, ok := asRecord(r[k]); ok {
			out = append(out, Entry{Key: k, Record: child})
		}
	}
	return out
}

// SetPath writes value under the nested field path, creating intermediate
// records and replacing scalars in the way. A nil value removes the leaf.
func (r Record) SetPath(parts []string, value any) {
	if len(parts) == 0 {
		return
	}
	current := r
	for _, part := range parts[:len(parts)-1] {
		next, ok := current.Child(part)
		if !ok {
			next = Record{}
			current[part] = next
		}
		current = next
	}
	leaf := parts[len(parts)-1]
	if value == nil {
		delete(current, leaf)
		return
	}
	current[leaf] = value
}

// Clone deep-copies the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out, _ := cloneValue(r).(Record)
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		out := make(Record, len(t))
		for k, child := range t {
			out[k] = cloneValue(child)
		}
		return out
	case map[string]any:
		out := make(Record, len(t))
		for k, child := range t {
			out[k] = cloneValue(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = cloneValue(child)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

func asRecord(v any) (Record, bool) {
	switch t := v.(type) {
	case Record:
		return t, true
	case map[string]any:
		return Record(t), true
	}
	return nil, false
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Decode unmarshals a JSON document into a Record, keeping integers exact.
func Decode(raw []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return normalizeNumbers(rec).(Record), nil
}

// Encode marshals a Record to JSON.
func Encode(rec Record) ([]byte, error) {
	return json.Marshal(rec)
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case Record:
		for k, child := range t {
			t[k] = normalizeNumbers(child)
		}
		return t
	case map[string]any:
		out := make(Record, len(t))
		for k, child := range t {
			out[k] = normalizeNumbers(child)
		}
		return out
	case []any:
		for i, child := range t {
			t[i] = normalizeNumbers(child)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}
