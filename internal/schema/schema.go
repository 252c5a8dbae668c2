// Package schema models the protocol's message schemas: named records with
// typed fields, loaded once from JSON documents and held immutable by a
// Registry for the codec's lifetime.
package schema

import (
	"encoding/json"
	"fmt"
)

// Kind enumerates the field types the record layer can serialize.
type Kind string

const (
	Long     Kind = "long"
	Boolean  Kind = "boolean"
	Bytes    Kind = "bytes"
	String   Kind = "string"
	Enum     Kind = "enum"
	Optional Kind = "optional"
	Array    Kind = "array"
	Map      Kind = "map"
	Record   Kind = "record"
)

// Type describes one field type. Only the members relevant to Kind are set:
// Symbols for enums, Of for optionals, Items for arrays, Values for maps,
// Name/Fields for nested records.
type Type struct {
	Kind    Kind
	Symbols []string
	Of      *Type
	Items   *Type
	Values  *Type
	Name    string
	Fields  []Field
}

// Field is a named, typed member of a record.
type Field struct {
	Name string
	Type Type
}

// Schema is a named record: the shape of one message kind.
type Schema struct {
	Name   string
	Fields []Field
}

// doc mirrors the JSON layout of schema documents. Type-specific keys sit
// alongside "name" and "type" the way Avro writes them.
type doc struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
	Of      *doc     `json:"of"`
	Items   *doc     `json:"items"`
	Values  *doc     `json:"values"`
	Fields  []doc    `json:"fields"`
}

// Parse reads one schema document.
func Parse(data []byte) (*Schema, error) {
	var d doc
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse schema document: %w", err)
	}
	if d.Name == "" {
		return nil, fmt.Errorf("schema document has no name")
	}
	if d.Type != "" && Kind(d.Type) != Record {
		return nil, fmt.Errorf("schema %s: top level must be a record, got %q", d.Name, d.Type)
	}
	fields, err := parseFields(d.Name, d.Fields)
	if err != nil {
		return nil, err
	}
	return &Schema{Name: d.Name, Fields: fields}, nil
}

func parseFields(owner string, docs []doc) ([]Field, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("schema %s: record has no fields", owner)
	}
	fields := make([]Field, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for _, fd := range docs {
		if fd.Name == "" {
			return nil, fmt.Errorf("schema %s: field without a name", owner)
		}
		if seen[fd.Name] {
			return nil, fmt.Errorf("schema %s: duplicate field %q", owner, fd.Name)
		}
		seen[fd.Name] = true
		typ, err := parseType(owner+"."+fd.Name, fd)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Name: fd.Name, Type: typ})
	}
	return fields, nil
}

func parseType(at string, d doc) (Type, error) {
	switch Kind(d.Type) {
	case Long, Boolean, Bytes, String:
		return Type{Kind: Kind(d.Type)}, nil
	case Enum:
		if len(d.Symbols) == 0 {
			return Type{}, fmt.Errorf("%s: enum without symbols", at)
		}
		return Type{Kind: Enum, Symbols: d.Symbols}, nil
	case Optional:
		if d.Of == nil {
			return Type{}, fmt.Errorf("%s: optional without inner type", at)
		}
		inner, err := parseType(at, *d.Of)
		if err != nil {
			return Type{}, err
		}
		if inner.Kind == Optional {
			return Type{}, fmt.Errorf("%s: optional of optional is not supported", at)
		}
		return Type{Kind: Optional, Of: &inner}, nil
	case Array:
		if d.Items == nil {
			return Type{}, fmt.Errorf("%s: array without items", at)
		}
		items, err := parseType(at, *d.Items)
		if err != nil {
			return Type{}, err
		}
		return Type{Kind: Array, Items: &items}, nil
	case Map:
		if d.Values == nil {
			return Type{}, fmt.Errorf("%s: map without values", at)
		}
		values, err := parseType(at, *d.Values)
		if err != nil {
			return Type{}, err
		}
		return Type{Kind: Map, Values: &values}, nil
	case Record:
		fields, err := parseFields(at, d.Fields)
		if err != nil {
			return Type{}, err
		}
		return Type{Kind: Record, Name: d.Name, Fields: fields}, nil
	default:
		return Type{}, fmt.Errorf("%s: unknown type %q", at, d.Type)
	}
}
