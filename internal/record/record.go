// Package record is the generic record layer: it turns a schema-conformant
// field map into bytes and back. The codec core depends only on the
// Serializer interface, not on the serialization technology behind it.
package record

import (
	"fmt"

	"mediawire/internal/schema"
)

// FieldMap is the structured form of one message body. Keys are schema field
// names. Optional fields are always present, with a nil value marking
// absence.
type FieldMap map[string]any

// Serializer encodes a field map against a schema and decodes bytes back to
// a field map. Encode must be deterministic: the same schema and the same
// logical field map always produce byte-identical output.
type Serializer interface {
	Encode(s *schema.Schema, fields FieldMap) ([]byte, error)
	Decode(s *schema.Schema, data []byte) (FieldMap, error)
}

// ConformanceError reports a field map that does not match its schema:
// a missing or extra field, or a value of the wrong shape.
type ConformanceError struct {
	Schema string
	Field  string
	Reason string
}

func (e *ConformanceError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("record: schema %s: %s", e.Schema, e.Reason)
	}
	return fmt.Sprintf("record: schema %s field %s: %s", e.Schema, e.Field, e.Reason)
}

func conformance(schemaName, field, format string, args ...any) error {
	return &ConformanceError{Schema: schemaName, Field: field, Reason: fmt.Sprintf(format, args...)}
}
