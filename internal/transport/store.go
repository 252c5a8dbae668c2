package transport

import (
	"context"
	"sync"

	"mediawire/internal/media"
	"mediawire/internal/protocol"
)

// MemoryStore is a Handler backed by process memory. It registers tracks,
// accumulates unit elements and raw track bytes, and answers the read
// requests of the protocol. Notifications are absorbed without a reply.
type MemoryStore struct {
	mu     sync.RWMutex
	tracks map[media.StreamName][]media.TrackInfo
	units  map[trackKey]map[int64][]media.Payload
	data   map[trackKey][]byte
}

type trackKey struct {
	stream media.StreamName
	track  media.TrackName
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tracks: make(map[media.StreamName][]media.TrackInfo),
		units:  make(map[trackKey]map[int64][]media.Payload),
		data:   make(map[trackKey][]byte),
	}
}

// AddTrack registers a track under a stream. Re-registering the same track
// name replaces its type and keeps its position.
func (s *MemoryStore) AddTrack(stream media.StreamName, info media.TrackInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.tracks[stream] {
		if existing.Name == info.Name {
			s.tracks[stream][i] = info
			return
		}
	}
	s.tracks[stream] = append(s.tracks[stream], info)
}

// PutElement appends one payload to a unit of a track.
func (s *MemoryStore) PutElement(stream media.StreamName, track media.TrackName, unit int64, p media.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := trackKey{stream: stream, track: track}
	if s.units[key] == nil {
		s.units[key] = make(map[int64][]media.Payload)
	}
	s.units[key][unit] = append(s.units[key][unit], p)
}

// PutUnitData appends raw bytes to a track's data blob.
func (s *MemoryStore) PutUnitData(stream media.StreamName, track media.TrackName, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := trackKey{stream: stream, track: track}
	s.data[key] = append(s.data[key], data...)
}

func (s *MemoryStore) Handle(_ context.Context, msg protocol.Message) (protocol.Message, error) {
	switch m := msg.(type) {
	case protocol.PingRequestResponse:
		if m.IsResponse {
			return nil, nil
		}
		return protocol.PingRequestResponse{Seq: m.Seq, ReplyTo: m.ReplyTo, IsResponse: true}, nil

	case protocol.StreamTracksRequest:
		s.mu.RLock()
		tracks := append([]media.TrackInfo(nil), s.tracks[m.Stream]...)
		s.mu.RUnlock()
		return protocol.StreamTracksResponse{Seq: m.Seq, Stream: m.Stream, Tracks: tracks}, nil

	case protocol.StreamTrackUnitElementsRequest:
		s.mu.RLock()
		var payloads []media.Payload
		if units := s.units[trackKey{stream: m.Stream, track: m.Track}]; units != nil {
			for unit := m.FromUnit; unit < m.ToUnit; unit++ {
				payloads = append(payloads, units[unit]...)
			}
		}
		s.mu.RUnlock()
		return protocol.StreamTrackUnitElementsResponse{
			Seq:       m.Seq,
			Stream:    m.Stream,
			TrackType: m.TrackType,
			Track:     m.Track,
			Unit:      m.FromUnit,
			Payloads:  payloads,
		}, nil

	case protocol.StreamTrackUnitsRequest:
		s.mu.RLock()
		blob := s.data[trackKey{stream: m.Stream, track: m.Track}]
		data := sliceRange(blob, m.FromByte, m.ToByte)
		s.mu.RUnlock()
		return protocol.StreamTrackUnitsResponse{
			Seq:       m.Seq,
			Stream:    m.Stream,
			TrackType: m.TrackType,
			Track:     m.Track,
			FromByte:  m.FromByte,
			ToByte:    m.ToByte,
			Data:      data,
		}, nil

	case protocol.ServicesFFProbeRequest:
		// Probe analysis is out of scope for the in-memory store. Accept
		// the request and report no streams.
		return protocol.ServicesFFProbeResponse{
			Seq:     m.Seq,
			Status:  protocol.FFProbeAccepted,
			Code:    0,
			Streams: nil,
		}, nil

	case protocol.UnitElementMessage:
		s.PutElement(m.Stream, m.Track, m.Unit, media.Payload{Data: m.Data, Attributes: m.Attributes})
		s.PutUnitData(m.Stream, m.Track, m.Data)
		return nil, nil

	case protocol.NotifyMessage:
		return nil, nil

	default:
		// Responses arriving at the store side carry no work.
		return nil, nil
	}
}

func sliceRange(blob []byte, from, to int64) []byte {
	n := int64(len(blob))
	if from < 0 {
		from = 0
	}
	if to > n {
		to = n
	}
	if from >= to {
		return nil
	}
	return append([]byte(nil), blob[from:to]...)
}
