package protocol

import (
	"fmt"

	"mediawire/internal/media"
	"mediawire/internal/record"
)

// FieldMismatchError reports a decoded field map whose contents do not match
// what the message variant expects. This signals schema/version skew and is
// surfaced rather than defaulted.
type FieldMismatchError struct {
	Discriminator string
	Field         string
	Reason        string
}

func (e *FieldMismatchError) Error() string {
	return fmt.Sprintf("protocol: %s field %s: %s", e.Discriminator, e.Field, e.Reason)
}

// fieldReader pulls typed values out of a decoded field map.
type fieldReader struct {
	discriminator string
	fields        record.FieldMap
}

func (r fieldReader) mismatch(field, format string, args ...any) error {
	return &FieldMismatchError{
		Discriminator: r.discriminator,
		Field:         field,
		Reason:        fmt.Sprintf(format, args...),
	}
}

func (r fieldReader) long(name string) (int64, error) {
	v, ok := r.fields[name]
	if !ok {
		return 0, r.mismatch(name, "missing")
	}
	n, ok := v.(int64)
	if !ok {
		return 0, r.mismatch(name, "expected long, got %T", v)
	}
	return n, nil
}

func (r fieldReader) boolean(name string) (bool, error) {
	v, ok := r.fields[name]
	if !ok {
		return false, r.mismatch(name, "missing")
	}
	b, ok := v.(bool)
	if !ok {
		return false, r.mismatch(name, "expected boolean, got %T", v)
	}
	return b, nil
}

func (r fieldReader) str(name string) (string, error) {
	v, ok := r.fields[name]
	if !ok {
		return "", r.mismatch(name, "missing")
	}
	s, ok := v.(string)
	if !ok {
		return "", r.mismatch(name, "expected string, got %T", v)
	}
	return s, nil
}

func (r fieldReader) bytes(name string) ([]byte, error) {
	v, ok := r.fields[name]
	if !ok {
		return nil, r.mismatch(name, "missing")
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, r.mismatch(name, "expected bytes, got %T", v)
	}
	return b, nil
}

// fixed16 reads a 16-byte identifier (stream or track name).
func (r fieldReader) fixed16(name string) ([16]byte, error) {
	var out [16]byte
	b, err := r.bytes(name)
	if err != nil {
		return out, err
	}
	if len(b) != len(out) {
		return out, r.mismatch(name, "expected %d bytes, got %d", len(out), len(b))
	}
	copy(out[:], b)
	return out, nil
}

func (r fieldReader) optionalLong(name string) (*int64, error) {
	v, ok := r.fields[name]
	if !ok {
		return nil, r.mismatch(name, "missing")
	}
	if v == nil {
		return nil, nil
	}
	n, ok := v.(int64)
	if !ok {
		return nil, r.mismatch(name, "expected optional long, got %T", v)
	}
	return &n, nil
}

func (r fieldReader) stringMap(name string) (map[string]string, error) {
	v, ok := r.fields[name]
	if !ok {
		return nil, r.mismatch(name, "missing")
	}
	m, ok := v.(map[string]string)
	if !ok {
		return nil, r.mismatch(name, "expected string map, got %T", v)
	}
	return m, nil
}

func (r fieldReader) array(name string) ([]any, error) {
	v, ok := r.fields[name]
	if !ok {
		return nil, r.mismatch(name, "missing")
	}
	items, ok := v.([]any)
	if !ok {
		return nil, r.mismatch(name, "expected array, got %T", v)
	}
	return items, nil
}

func (r fieldReader) trackType(name string) (media.TrackType, error) {
	tag, err := r.long(name)
	if err != nil {
		return media.TrackTypeVideo, err
	}
	t, err := media.TrackTypeFromTag(tag)
	if err != nil {
		return media.TrackTypeVideo, r.mismatch(name, "%v", err)
	}
	return t, nil
}

// sub builds a reader over a nested record's field map.
func (r fieldReader) sub(name string, v any) (fieldReader, error) {
	fm, ok := v.(record.FieldMap)
	if !ok {
		return fieldReader{}, r.mismatch(name, "expected record, got %T", v)
	}
	return fieldReader{discriminator: r.discriminator, fields: fm}, nil
}
