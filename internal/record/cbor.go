package record

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"mediawire/internal/schema"
)

// cborSerializer encodes field maps as canonical CBOR (RFC 8949 core
// deterministic profile). Sorted map keys make the output deterministic for
// a given schema and field map, which the protocol's byte-exact re-encode
// guarantee depends on.
type cborSerializer struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewSerializer returns the canonical CBOR serializer.
func NewSerializer() Serializer {
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("record: cbor encode mode: %v", err))
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSignedOrFail,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("record: cbor decode mode: %v", err))
	}
	return &cborSerializer{enc: enc, dec: dec}
}

func (c *cborSerializer) Encode(s *schema.Schema, fields FieldMap) ([]byte, error) {
	wire, err := recordToWire(s.Name, "", s.Fields, fields)
	if err != nil {
		return nil, err
	}
	return c.enc.Marshal(wire)
}

func (c *cborSerializer) Decode(s *schema.Schema, data []byte) (FieldMap, error) {
	var raw any
	if err := c.dec.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("record: schema %s: %w", s.Name, err)
	}
	return recordFromWire(s.Name, "", s.Fields, raw)
}

func recordToWire(schemaName, path string, fields []schema.Field, value any) (map[string]any, error) {
	fm, err := asFieldMap(value)
	if err != nil {
		return nil, conformance(schemaName, path, "%v", err)
	}
	wire := make(map[string]any, len(fields))
	for _, f := range fields {
		at := joinPath(path, f.Name)
		v, ok := fm[f.Name]
		if !ok {
			return nil, conformance(schemaName, at, "field missing from field map")
		}
		w, err := valueToWire(schemaName, at, f.Type, v)
		if err != nil {
			return nil, err
		}
		wire[f.Name] = w
	}
	if len(fm) != len(fields) {
		for name := range fm {
			if !hasField(fields, name) {
				return nil, conformance(schemaName, joinPath(path, name), "field not in schema")
			}
		}
	}
	return wire, nil
}

func valueToWire(schemaName, at string, t schema.Type, v any) (any, error) {
	switch t.Kind {
	case schema.Long:
		n, ok := asInt64(v)
		if !ok {
			return nil, conformance(schemaName, at, "expected long, got %T", v)
		}
		return n, nil
	case schema.Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, conformance(schemaName, at, "expected boolean, got %T", v)
		}
		return b, nil
	case schema.Bytes:
		if v == nil {
			return []byte{}, nil
		}
		b, ok := v.([]byte)
		if !ok {
			return nil, conformance(schemaName, at, "expected bytes, got %T", v)
		}
		// A nil slice must encode as an empty byte string, not CBOR null,
		// or the decoder rejects what the encoder produced.
		if b == nil {
			return []byte{}, nil
		}
		return b, nil
	case schema.String:
		s, ok := v.(string)
		if !ok {
			return nil, conformance(schemaName, at, "expected string, got %T", v)
		}
		return s, nil
	case schema.Enum:
		tag, ok := asInt64(v)
		if !ok {
			return nil, conformance(schemaName, at, "expected enum tag, got %T", v)
		}
		if tag < 0 || tag >= int64(len(t.Symbols)) {
			return nil, conformance(schemaName, at, "enum tag %d out of range (%d symbols)", tag, len(t.Symbols))
		}
		return tag, nil
	case schema.Optional:
		if v == nil {
			return nil, nil
		}
		return valueToWire(schemaName, at, *t.Of, v)
	case schema.Array:
		items, err := asSlice(v)
		if err != nil {
			return nil, conformance(schemaName, at, "%v", err)
		}
		wire := make([]any, len(items))
		for i, item := range items {
			w, err := valueToWire(schemaName, fmt.Sprintf("%s[%d]", at, i), *t.Items, item)
			if err != nil {
				return nil, err
			}
			wire[i] = w
		}
		return wire, nil
	case schema.Map:
		entries, err := asStringKeyed(v)
		if err != nil {
			return nil, conformance(schemaName, at, "%v", err)
		}
		wire := make(map[string]any, len(entries))
		for k, val := range entries {
			w, err := valueToWire(schemaName, at+"."+k, *t.Values, val)
			if err != nil {
				return nil, err
			}
			wire[k] = w
		}
		return wire, nil
	case schema.Record:
		return recordToWire(schemaName, at, t.Fields, v)
	default:
		return nil, conformance(schemaName, at, "unsupported schema kind %q", t.Kind)
	}
}

func recordFromWire(schemaName, path string, fields []schema.Field, raw any) (FieldMap, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, conformance(schemaName, path, "expected record, got %T", raw)
	}
	out := make(FieldMap, len(fields))
	for _, f := range fields {
		at := joinPath(path, f.Name)
		v, ok := m[f.Name]
		if !ok {
			return nil, conformance(schemaName, at, "field missing from body")
		}
		decoded, err := valueFromWire(schemaName, at, f.Type, v)
		if err != nil {
			return nil, err
		}
		out[f.Name] = decoded
	}
	if len(m) != len(fields) {
		for name := range m {
			if !hasField(fields, name) {
				return nil, conformance(schemaName, joinPath(path, name), "field not in schema")
			}
		}
	}
	return out, nil
}

func valueFromWire(schemaName, at string, t schema.Type, v any) (any, error) {
	switch t.Kind {
	case schema.Long:
		n, ok := v.(int64)
		if !ok {
			return nil, conformance(schemaName, at, "expected long, got %T", v)
		}
		return n, nil
	case schema.Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, conformance(schemaName, at, "expected boolean, got %T", v)
		}
		return b, nil
	case schema.Bytes:
		b, ok := v.([]byte)
		if !ok {
			return nil, conformance(schemaName, at, "expected bytes, got %T", v)
		}
		return b, nil
	case schema.String:
		s, ok := v.(string)
		if !ok {
			return nil, conformance(schemaName, at, "expected string, got %T", v)
		}
		return s, nil
	case schema.Enum:
		tag, ok := v.(int64)
		if !ok {
			return nil, conformance(schemaName, at, "expected enum tag, got %T", v)
		}
		if tag < 0 || tag >= int64(len(t.Symbols)) {
			return nil, conformance(schemaName, at, "enum tag %d out of range (%d symbols)", tag, len(t.Symbols))
		}
		return tag, nil
	case schema.Optional:
		if v == nil {
			return nil, nil
		}
		return valueFromWire(schemaName, at, *t.Of, v)
	case schema.Array:
		items, ok := v.([]any)
		if !ok {
			return nil, conformance(schemaName, at, "expected array, got %T", v)
		}
		out := make([]any, len(items))
		for i, item := range items {
			decoded, err := valueFromWire(schemaName, fmt.Sprintf("%s[%d]", at, i), *t.Items, item)
			if err != nil {
				return nil, err
			}
			out[i] = decoded
		}
		return out, nil
	case schema.Map:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, conformance(schemaName, at, "expected map, got %T", v)
		}
		if t.Values.Kind == schema.String {
			out := make(map[string]string, len(m))
			for k, val := range m {
				s, ok := val.(string)
				if !ok {
					return nil, conformance(schemaName, at+"."+k, "expected string, got %T", val)
				}
				out[k] = s
			}
			return out, nil
		}
		out := make(map[string]any, len(m))
		for k, val := range m {
			decoded, err := valueFromWire(schemaName, at+"."+k, *t.Values, val)
			if err != nil {
				return nil, err
			}
			out[k] = decoded
		}
		return out, nil
	case schema.Record:
		return recordFromWire(schemaName, at, t.Fields, v)
	default:
		return nil, conformance(schemaName, at, "unsupported schema kind %q", t.Kind)
	}
}

func asFieldMap(v any) (map[string]any, error) {
	switch m := v.(type) {
	case FieldMap:
		return m, nil
	case map[string]any:
		return m, nil
	default:
		return nil, fmt.Errorf("expected record field map, got %T", v)
	}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func asSlice(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", v)
	}
	return items, nil
}

func asStringKeyed(v any) (map[string]any, error) {
	switch m := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return m, nil
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string-keyed map, got %T", v)
	}
}

func hasField(fields []schema.Field, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
