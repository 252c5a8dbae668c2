package record

import (
	"bytes"
	"errors"
	"testing"

	"mediawire/internal/schema"
)

const testSchemaDoc = `{
  "name": "TestRecord",
  "type": "record",
  "fields": [
    {"name": "seq", "type": "long"},
    {"name": "ok", "type": "boolean"},
    {"name": "data", "type": "bytes"},
    {"name": "label", "type": "string"},
    {"name": "kind", "type": "enum", "symbols": ["A", "B"]},
    {"name": "ttl", "type": "optional", "of": {"type": "long"}},
    {"name": "attributes", "type": "map", "values": {"type": "string"}},
    {"name": "parts", "type": "array", "items": {
      "type": "record", "name": "Part", "fields": [
        {"name": "data", "type": "bytes"},
        {"name": "attributes", "type": "map", "values": {"type": "string"}}
      ]
    }}
  ]
}`

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Parse([]byte(testSchemaDoc))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func validFields() FieldMap {
	return FieldMap{
		"seq":        int64(7),
		"ok":         true,
		"data":       []byte{1, 2, 3},
		"label":      "x",
		"kind":       int64(1),
		"ttl":        nil,
		"attributes": map[string]string{"key1": "value1", "key2": "value2"},
		"parts": []any{
			FieldMap{"data": []byte{9}, "attributes": map[string]string{}},
			FieldMap{"data": []byte{}, "attributes": map[string]string{"a": "b"}},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := testSchema(t)
	ser := NewSerializer()

	encoded, err := ser.Encode(s, validFields())
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := ser.Decode(s, encoded)
	if err != nil {
		t.Fatal(err)
	}
	reencoded, err := ser.Encode(s, decoded)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(encoded, reencoded) {
		t.Fatalf("re-encode not byte-identical:\n%x\n%x", encoded, reencoded)
	}
	if decoded["seq"].(int64) != 7 {
		t.Fatalf("seq = %v", decoded["seq"])
	}
	attrs := decoded["attributes"].(map[string]string)
	if attrs["key1"] != "value1" || attrs["key2"] != "value2" {
		t.Fatalf("attributes = %v", attrs)
	}
}

func TestEncodeDeterministicAcrossMapInsertionOrder(t *testing.T) {
	s := testSchema(t)
	ser := NewSerializer()

	a := validFields()
	a["attributes"] = map[string]string{"key1": "value1", "key2": "value2"}
	b := validFields()
	m := map[string]string{}
	m["key2"] = "value2"
	m["key1"] = "value1"
	b["attributes"] = m

	ea, err := ser.Encode(s, a)
	if err != nil {
		t.Fatal(err)
	}
	eb, err := ser.Encode(s, b)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ea, eb) {
		t.Fatal("encoding depends on map insertion order")
	}
}

func TestEncodeNilBytesAsEmpty(t *testing.T) {
	s := testSchema(t)
	ser := NewSerializer()

	withNil := validFields()
	withNil["data"] = []byte(nil)
	withEmpty := validFields()
	withEmpty["data"] = []byte{}

	en, err := ser.Encode(s, withNil)
	if err != nil {
		t.Fatal(err)
	}
	ee, err := ser.Encode(s, withEmpty)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(en, ee) {
		t.Fatalf("nil and empty bytes encode differently:\n%x\n%x", en, ee)
	}
	decoded, err := ser.Decode(s, en)
	if err != nil {
		t.Fatal(err)
	}
	data, ok := decoded["data"].([]byte)
	if !ok || len(data) != 0 {
		t.Fatalf("data = %#v", decoded["data"])
	}
}

func TestEncodePresentOptional(t *testing.T) {
	s := testSchema(t)
	ser := NewSerializer()
	fields := validFields()
	fields["ttl"] = int64(10)

	encoded, err := ser.Encode(s, fields)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := ser.Decode(s, encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded["ttl"].(int64) != 10 {
		t.Fatalf("ttl = %v", decoded["ttl"])
	}
}

func TestEncodeRejectsMissingField(t *testing.T) {
	s := testSchema(t)
	fields := validFields()
	delete(fields, "label")
	assertConformance(t, s, fields)
}

func TestEncodeRejectsExtraField(t *testing.T) {
	s := testSchema(t)
	fields := validFields()
	fields["bogus"] = int64(1)
	assertConformance(t, s, fields)
}

func TestEncodeRejectsWrongShape(t *testing.T) {
	s := testSchema(t)
	fields := validFields()
	fields["data"] = "not bytes"
	assertConformance(t, s, fields)
}

func TestEncodeRejectsEnumOutOfRange(t *testing.T) {
	s := testSchema(t)
	fields := validFields()
	fields["kind"] = int64(5)
	assertConformance(t, s, fields)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	s := testSchema(t)
	ser := NewSerializer()
	if _, err := ser.Decode(s, []byte{0xff, 0x00, 0x13}); err == nil {
		t.Fatal("expected decode error")
	}
}

func assertConformance(t *testing.T, s *schema.Schema, fields FieldMap) {
	t.Helper()
	_, err := NewSerializer().Encode(s, fields)
	if err == nil {
		t.Fatal("expected conformance error")
	}
	var ce *ConformanceError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConformanceError, got %T: %v", err, err)
	}
}
