package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrUnknownDiscriminator is returned when no schema is registered for a
// message discriminator.
var ErrUnknownDiscriminator = errors.New("unknown message discriminator")

// schemaFiles is the fixed discriminator -> document table. Adding a message
// kind means adding a row here, the document itself, and a protocol variant.
var schemaFiles = map[string]string{
	"NotifyMessage":                   "notify_message.json",
	"UnitElementMessage":              "unit_element_message.json",
	"StreamTracksRequest":             "stream_tracks_request.json",
	"StreamTracksResponse":            "stream_tracks_response.json",
	"StreamTrackUnitElementsRequest":  "stream_track_unit_elements_request.json",
	"StreamTrackUnitElementsResponse": "stream_track_unit_elements_response.json",
	"StreamTrackUnitsRequest":         "stream_track_units_request.json",
	"StreamTrackUnitsResponse":        "stream_track_units_response.json",
	"PingRequestResponse":             "ping_request_response.json",
	"ServicesFFProbeRequest":          "services_ffprobe_request.json",
	"ServicesFFProbeResponse":         "services_ffprobe_response.json",
}

// Discriminators lists every registered message discriminator, sorted.
func Discriminators() []string {
	out := make([]string, 0, len(schemaFiles))
	for name := range schemaFiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Registry holds one parsed schema per message kind. It is built once and
// never mutated, so concurrent readers need no synchronization.
type Registry struct {
	schemas map[string]*Schema
}

// Load reads and parses every schema in the fixed table from dir. Any
// missing or malformed document fails the whole load; there is no partial
// registry.
func Load(dir string) (*Registry, error) {
	schemas := make(map[string]*Schema, len(schemaFiles))
	for _, discriminator := range Discriminators() {
		path := filepath.Join(dir, schemaFiles[discriminator])
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load schema for %s: %w", discriminator, err)
		}
		s, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("load schema for %s: %w", discriminator, err)
		}
		if s.Name != discriminator {
			return nil, fmt.Errorf("load schema for %s: document declares name %q", discriminator, s.Name)
		}
		schemas[discriminator] = s
	}
	return &Registry{schemas: schemas}, nil
}

// Get resolves a discriminator to its schema.
func (r *Registry) Get(discriminator string) (*Schema, error) {
	s, ok := r.schemas[discriminator]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDiscriminator, discriminator)
	}
	return s, nil
}
