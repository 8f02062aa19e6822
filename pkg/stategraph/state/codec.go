package state

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the set fields as a JSON object. Absent fields are
// omitted entirely, preserving the set/absent distinction across a
// round trip through Schema.Decode.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.values))
	for name, v := range r.values {
		out[name] = encodeValue(v)
	}
	return json.Marshal(out)
}

// encodeValue converts a stored value into a json.Marshal-friendly form.
func encodeValue(v any) any {
	switch val := v.(type) {
	case Record:
		nested := make(map[string]any, len(val.values))
		for name, nv := range val.values {
			nested[name] = encodeValue(nv)
		}
		return nested
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = encodeValue(e)
		}
		return out
	default:
		return v
	}
}

// Decode parses a JSON object produced by Record.MarshalJSON into a
// record bound to this schema. Decoding is schema-directed: integer
// fields come back as int64, not float64, so a record survives a
// checkpoint round trip with full type fidelity. Unknown keys and
// mistyped values are errors, never silently dropped.
func (s *Schema) Decode(data []byte) (Record, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}

	r := s.NewRecord()
	for name, msg := range raw {
		f, ok := s.Field(name)
		if !ok {
			return Record{}, fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
		v, err := decodeValue(f, msg)
		if err != nil {
			return Record{}, err
		}
		r.values[name] = v
	}
	return r, nil
}

// decodeValue parses one JSON value according to its field declaration.
func decodeValue(f Field, msg json.RawMessage) (any, error) {
	switch f.Kind {
	case KindString, KindEnum:
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		return checkValue(f, s)
	case KindInt:
		var n int64
		if err := json.Unmarshal(msg, &n); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		return n, nil
	case KindFloat:
		var n float64
		if err := json.Unmarshal(msg, &n); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		return n, nil
	case KindBool:
		var b bool
		if err := json.Unmarshal(msg, &b); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		return b, nil
	case KindRecord:
		nested, err := f.Nested.Decode(msg)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		return nested, nil
	case KindList:
		var elems []json.RawMessage
		if err := json.Unmarshal(msg, &elems); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		out := make([]any, len(elems))
		for i, e := range elems {
			v, err := decodeValue(*f.Elem, e)
			if err != nil {
				return nil, fmt.Errorf("field %s[%d]: %w", f.Name, i, err)
			}
			out[i] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("field %s: unsupported kind %s", f.Name, f.Kind)
	}
}
