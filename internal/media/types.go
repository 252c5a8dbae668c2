package media

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

const (
	// StreamNameLength is the byte width of a packed stream identifier.
	StreamNameLength = 16
	// TrackNameMaxLength is the byte width of a packed track name.
	TrackNameMaxLength = 16
)

// StreamName addresses a logical recording. It carries the 16 raw bytes of
// the stream's UUID.
type StreamName [StreamNameLength]byte

// TrackName addresses a channel within a stream. Shorter names are
// zero-padded on the right; trailing zero bytes are padding, not data.
type TrackName [TrackNameMaxLength]byte

// ElementType discriminates element kinds. Opaque to the codec.
type ElementType int16

// TrackType identifies what a track carries. The zero value is Video.
type TrackType int

const (
	TrackTypeVideo TrackType = iota
	TrackTypeMeta
	TrackTypeNotImplemented
)

var trackTypeNames = [...]string{"Video", "Meta", "NotImplemented"}

func (t TrackType) String() string {
	if t < 0 || int(t) >= len(trackTypeNames) {
		return fmt.Sprintf("TrackType(%d)", int(t))
	}
	return trackTypeNames[int(t)]
}

// Valid reports whether t is one of the known track types.
func (t TrackType) Valid() bool {
	return t >= TrackTypeVideo && t <= TrackTypeNotImplemented
}

// TrackTypeFromTag maps a wire tag back to a TrackType.
func TrackTypeFromTag(tag int64) (TrackType, error) {
	t := TrackType(tag)
	if !t.Valid() {
		return TrackTypeVideo, fmt.Errorf("unknown track type tag %d", tag)
	}
	return t, nil
}

// Payload is one element's opaque data plus its string attributes.
type Payload struct {
	Data       []byte
	Attributes map[string]string
}

// TrackInfo pairs a track's name with its type, as returned when listing
// the tracks of a stream.
type TrackInfo struct {
	Type TrackType
	Name TrackName
}

// PackStreamName copies the UUID's raw bytes into a StreamName.
func PackStreamName(id uuid.UUID) StreamName {
	return StreamName(id)
}

// UUID recovers the stream's UUID from its packed form.
func (s StreamName) UUID() uuid.UUID {
	return uuid.UUID(s)
}

func (s StreamName) String() string {
	return s.UUID().String()
}

// PackTrackName packs a human-readable track name into its fixed wire form,
// left-aligned and zero-padded. Names longer than TrackNameMaxLength bytes
// are rejected.
func PackTrackName(name string) (TrackName, error) {
	var packed TrackName
	if len(name) > TrackNameMaxLength {
		return packed, fmt.Errorf("%w: %q is %d bytes, limit is %d",
			ErrInvalidNameLength, name, len(name), TrackNameMaxLength)
	}
	copy(packed[:], name)
	return packed, nil
}

// EmptyTrackName returns the all-zero placeholder name.
func EmptyTrackName() TrackName {
	return TrackName{}
}

// String strips the zero padding and returns the original track name.
func (t TrackName) String() string {
	return string(bytes.TrimRight(t[:], "\x00"))
}
