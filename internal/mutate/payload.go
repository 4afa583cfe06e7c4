package mutate

import (
	"bytes"
	"encoding/json"

	"github.com/roach88/reqtrack/internal/fault"
)

// Payload is a decoded operation payload: a JSON object whose members are
// kept raw so presence ("key in payload") is distinguishable from a zero
// value.
type Payload struct {
	fields map[string]json.RawMessage
	// prefix qualifies field names in messages for nested payloads.
	prefix string
}

// ParsePayload decodes a JSON object. Anything else is a ParseError.
func ParsePayload(data []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Payload{fields: map[string]json.RawMessage{}}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Payload{}, fault.New(fault.ParseError, "Invalid JSON payload: %v", err)
	}
	if fields == nil {
		return Payload{}, fault.New(fault.ParseError, "Invalid JSON payload: expected an object")
	}
	return Payload{fields: fields}, nil
}

// Has reports whether key is present (a JSON null counts as present).
func (p Payload) Has(key string) bool {
	_, ok := p.fields[key]
	return ok
}

// Require returns a MissingField fault for the first absent key.
func (p Payload) Require(keys ...string) error {
	for _, k := range keys {
		if !p.Has(k) {
			return fault.Missing(p.prefix + k)
		}
	}
	return nil
}

// Object returns the nested object at key.
func (p Payload) Object(key string) (Payload, error) {
	raw, ok := p.fields[key]
	if !ok {
		return Payload{}, fault.Missing(p.prefix + key)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Payload{}, fault.New(fault.InvalidFormat, "Field '%s' must be an object", p.prefix+key)
	}
	return Payload{fields: fields, prefix: p.prefix + key + "."}, nil
}

// reader pulls typed fields out of a Payload, remembering the first
// failure so call sites can read several fields and check once.
type reader struct {
	p   Payload
	err error
}

func (p Payload) reader() *reader { return &reader{p: p} }

// Err returns the first decoding error.
func (r *reader) Err() error { return r.err }

func (r *reader) decode(key, kind string, v any) bool {
	if r.err != nil {
		return false
	}
	raw, ok := r.p.fields[key]
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		r.err = fault.New(fault.InvalidFormat, "Field '%s' must be %s", r.p.prefix+key, kind).
			With("field", r.p.prefix+key)
		return false
	}
	return true
}

func (r *reader) isNull(key string) bool {
	raw, ok := r.p.fields[key]
	return ok && bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// String returns the string at key, or def when absent or null.
func (r *reader) String(key, def string) string {
	if r.isNull(key) {
		return def
	}
	var s string
	if r.decode(key, "a string", &s) {
		return s
	}
	return def
}

// OptString returns nil when key is absent or null.
func (r *reader) OptString(key string) *string {
	if r.isNull(key) {
		return nil
	}
	var s string
	if r.decode(key, "a string", &s) {
		return &s
	}
	return nil
}

// Strings returns the string list at key, or an empty list.
func (r *reader) Strings(key string) []string {
	if r.isNull(key) {
		return []string{}
	}
	var out []string
	if r.decode(key, "an array of strings", &out) && out != nil {
		return out
	}
	return []string{}
}

// Bool returns the boolean at key. A non-boolean value is an error
// (including null), so "approved": "yes" is rejected rather than coerced.
func (r *reader) Bool(key string, def bool) bool {
	var b bool
	if r.decode(key, "a boolean", &b) {
		if r.isNull(key) {
			r.err = fault.New(fault.InvalidFormat, "Field '%s' must be a boolean", r.p.prefix+key).
				With("field", r.p.prefix+key)
			return def
		}
		return b
	}
	return def
}

// OptInt returns nil when key is absent or null.
func (r *reader) OptInt(key string) *int {
	if r.isNull(key) {
		return nil
	}
	var n int
	if r.decode(key, "an integer", &n) {
		return &n
	}
	return nil
}

// Into decodes key into v, reporting kind on failure.
func (r *reader) Into(key, kind string, v any) bool {
	if r.isNull(key) {
		return false
	}
	return r.decode(key, kind, v)
}
