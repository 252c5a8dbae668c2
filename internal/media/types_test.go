package media

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestPackStreamName(t *testing.T) {
	id := uuid.MustParse("fa807469-fbb3-4f63-b1a9-f63fbbf90f41")
	packed := PackStreamName(id)
	if !bytes.Equal(packed[:], id[:]) {
		t.Fatalf("packed bytes differ from uuid bytes: %x vs %x", packed, id[:])
	}
	if packed.UUID() != id {
		t.Fatalf("uuid did not survive packing: %s", packed.UUID())
	}
}

func TestPackTrackNameBoundary(t *testing.T) {
	exact := strings.Repeat("a", TrackNameMaxLength)
	packed, err := PackTrackName(exact)
	if err != nil {
		t.Fatalf("16-byte name must pack: %v", err)
	}
	if packed.String() != exact {
		t.Fatalf("got %q", packed.String())
	}

	if _, err := PackTrackName(strings.Repeat("a", TrackNameMaxLength+1)); !errors.Is(err, ErrInvalidNameLength) {
		t.Fatalf("expected ErrInvalidNameLength, got %v", err)
	}
}

func TestPackTrackNamePadding(t *testing.T) {
	packed, err := PackTrackName("test")
	if err != nil {
		t.Fatal(err)
	}
	if packed.String() != "test" {
		t.Fatalf("padding not stripped: %q", packed.String())
	}
	for _, b := range packed[4:] {
		if b != 0 {
			t.Fatalf("expected zero padding, got %x", packed)
		}
	}
}

func TestPackEmptyTrackName(t *testing.T) {
	packed, err := PackTrackName("")
	if err != nil {
		t.Fatal(err)
	}
	if packed != EmptyTrackName() {
		t.Fatalf("empty name must pack to the placeholder, got %x", packed)
	}
	if packed.String() != "" {
		t.Fatalf("got %q", packed.String())
	}
}

func TestTrackTypeTags(t *testing.T) {
	for _, tt := range []TrackType{TrackTypeVideo, TrackTypeMeta, TrackTypeNotImplemented} {
		got, err := TrackTypeFromTag(int64(tt))
		if err != nil {
			t.Fatalf("tag %d: %v", tt, err)
		}
		if got != tt {
			t.Fatalf("tag %d decoded to %v", tt, got)
		}
	}
	if _, err := TrackTypeFromTag(42); err == nil {
		t.Fatal("expected error for unknown tag")
	}
	var zero TrackType
	if zero != TrackTypeVideo {
		t.Fatal("zero value must be Video")
	}
}
