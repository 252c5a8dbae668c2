package transport

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"mediawire/internal/media"
	"mediawire/internal/protocol"
)

func mustTrack(t *testing.T, name string) media.TrackName {
	t.Helper()
	tn, err := media.PackTrackName(name)
	if err != nil {
		t.Fatal(err)
	}
	return tn
}

func TestStoreTracksKeepRegistrationOrder(t *testing.T) {
	store := NewMemoryStore()
	stream := media.PackStreamName(uuid.New())
	store.AddTrack(stream, media.TrackInfo{Type: media.TrackTypeMeta, Name: mustTrack(t, "test")})
	store.AddTrack(stream, media.TrackInfo{Type: media.TrackTypeVideo, Name: mustTrack(t, "test2")})

	resp, err := store.Handle(context.Background(), protocol.StreamTracksRequest{Seq: 1, ReplyTo: "r", Stream: stream})
	if err != nil {
		t.Fatal(err)
	}
	tracks := resp.(protocol.StreamTracksResponse)
	if len(tracks.Tracks) != 2 {
		t.Fatalf("got %d tracks", len(tracks.Tracks))
	}
	if tracks.Tracks[0].Name.String() != "test" || tracks.Tracks[1].Name.String() != "test2" {
		t.Fatalf("bad order: %+v", tracks.Tracks)
	}
}

func TestStoreReRegisterReplacesType(t *testing.T) {
	store := NewMemoryStore()
	stream := media.PackStreamName(uuid.New())
	name := mustTrack(t, "test")
	store.AddTrack(stream, media.TrackInfo{Type: media.TrackTypeMeta, Name: name})
	store.AddTrack(stream, media.TrackInfo{Type: media.TrackTypeVideo, Name: name})

	resp, err := store.Handle(context.Background(), protocol.StreamTracksRequest{Seq: 1, ReplyTo: "r", Stream: stream})
	if err != nil {
		t.Fatal(err)
	}
	tracks := resp.(protocol.StreamTracksResponse)
	if len(tracks.Tracks) != 1 || tracks.Tracks[0].Type != media.TrackTypeVideo {
		t.Fatalf("bad tracks: %+v", tracks.Tracks)
	}
}

func TestStoreUnknownStreamEmptyResponses(t *testing.T) {
	store := NewMemoryStore()
	stream := media.PackStreamName(uuid.New())
	track := mustTrack(t, "video")

	resp, err := store.Handle(context.Background(), protocol.StreamTracksRequest{Seq: 1, ReplyTo: "r", Stream: stream})
	if err != nil {
		t.Fatal(err)
	}
	if tracks := resp.(protocol.StreamTracksResponse); len(tracks.Tracks) != 0 {
		t.Fatalf("expected no tracks, got %+v", tracks.Tracks)
	}

	resp, err = store.Handle(context.Background(), protocol.StreamTrackUnitElementsRequest{
		Seq: 2, ReplyTo: "r", Stream: stream, TrackType: media.TrackTypeVideo, Track: track, FromUnit: 0, ToUnit: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if elems := resp.(protocol.StreamTrackUnitElementsResponse); len(elems.Payloads) != 0 {
		t.Fatalf("expected no payloads, got %+v", elems.Payloads)
	}
}

func TestStoreUnitElementsRange(t *testing.T) {
	store := NewMemoryStore()
	stream := media.PackStreamName(uuid.New())
	track := mustTrack(t, "video")
	for unit := int64(0); unit < 3; unit++ {
		store.PutElement(stream, track, unit, media.Payload{Data: []byte{byte(unit)}, Attributes: map[string]string{}})
	}

	resp, err := store.Handle(context.Background(), protocol.StreamTrackUnitElementsRequest{
		Seq: 1, ReplyTo: "r", Stream: stream, TrackType: media.TrackTypeVideo, Track: track, FromUnit: 1, ToUnit: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	elems := resp.(protocol.StreamTrackUnitElementsResponse)
	if len(elems.Payloads) != 2 || elems.Payloads[0].Data[0] != 1 || elems.Payloads[1].Data[0] != 2 {
		t.Fatalf("bad payloads: %+v", elems.Payloads)
	}
	if elems.Unit != 1 {
		t.Fatalf("unit = %d", elems.Unit)
	}
}

func TestStoreUnitsByteRangeClipped(t *testing.T) {
	store := NewMemoryStore()
	stream := media.PackStreamName(uuid.New())
	track := mustTrack(t, "video")
	store.PutUnitData(stream, track, []byte("abcdef"))

	resp, err := store.Handle(context.Background(), protocol.StreamTrackUnitsRequest{
		Seq: 1, ReplyTo: "r", Stream: stream, TrackType: media.TrackTypeVideo, Track: track, FromByte: 2, ToByte: 100,
	})
	if err != nil {
		t.Fatal(err)
	}
	units := resp.(protocol.StreamTrackUnitsResponse)
	if string(units.Data) != "cdef" {
		t.Fatalf("data = %q", units.Data)
	}

	resp, err = store.Handle(context.Background(), protocol.StreamTrackUnitsRequest{
		Seq: 2, ReplyTo: "r", Stream: stream, TrackType: media.TrackTypeVideo, Track: track, FromByte: 4, ToByte: 4,
	})
	if err != nil {
		t.Fatal(err)
	}
	if units := resp.(protocol.StreamTrackUnitsResponse); len(units.Data) != 0 {
		t.Fatalf("expected empty range, got %q", units.Data)
	}
}

func TestStoreNotificationsNeedNoReply(t *testing.T) {
	store := NewMemoryStore()
	stream := media.PackStreamName(uuid.New())
	resp, err := store.Handle(context.Background(), protocol.NotifyMessage{
		Seq: 1, Stream: stream, TrackType: media.TrackTypeVideo, Track: mustTrack(t, "video"), ElementOffset: 0, SavedMS: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp != nil {
		t.Fatalf("expected no reply, got %+v", resp)
	}
}

func TestStorePingEchoesSeq(t *testing.T) {
	store := NewMemoryStore()
	resp, err := store.Handle(context.Background(), protocol.PingRequestResponse{Seq: 42, ReplyTo: "r"})
	if err != nil {
		t.Fatal(err)
	}
	pong := resp.(protocol.PingRequestResponse)
	if pong.Seq != 42 || !pong.IsResponse {
		t.Fatalf("bad pong: %+v", pong)
	}
}
