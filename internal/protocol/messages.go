// Package protocol implements the wire protocol for the media-streaming
// control/data plane: a closed family of request, response, and notification
// messages with schema-driven bodies and a self-identifying envelope.
//
// Messages are plain immutable values. Outbound they are produced by the
// Codec's builders; inbound they come from Decode + FromFields. Dump is the
// exact inverse of building: re-encoding a decoded message reproduces the
// original bytes.
package protocol

import (
	"mediawire/internal/media"
	"mediawire/internal/record"
)

// Message discriminators. The set must stay in sync with the schema
// registry's fixed table; TestDiscriminatorTotality enforces that.
const (
	KindNotifyMessage                   = "NotifyMessage"
	KindUnitElementMessage              = "UnitElementMessage"
	KindStreamTracksRequest             = "StreamTracksRequest"
	KindStreamTracksResponse            = "StreamTracksResponse"
	KindStreamTrackUnitElementsRequest  = "StreamTrackUnitElementsRequest"
	KindStreamTrackUnitElementsResponse = "StreamTrackUnitElementsResponse"
	KindStreamTrackUnitsRequest         = "StreamTrackUnitsRequest"
	KindStreamTrackUnitsResponse        = "StreamTrackUnitsResponse"
	KindPingRequestResponse             = "PingRequestResponse"
	KindServicesFFProbeRequest          = "ServicesFFProbeRequest"
	KindServicesFFProbeResponse         = "ServicesFFProbeResponse"
)

// FFProbeStatus is the probe service's admission verdict.
type FFProbeStatus int

const (
	FFProbeAccepted FFProbeStatus = iota
	FFProbeRejected
)

var ffprobeStatusNames = [...]string{"Accepted", "Rejected"}

func (s FFProbeStatus) String() string {
	if s < 0 || int(s) >= len(ffprobeStatusNames) {
		return "FFProbeStatus(?)"
	}
	return ffprobeStatusNames[int(s)]
}

// Message is the closed union over all protocol message kinds. Only the
// variants in this package implement it.
type Message interface {
	Kind() string
	fieldMap() record.FieldMap
}

// NotifyMessage announces that an element was saved to a track.
type NotifyMessage struct {
	Seq           int64
	Stream        media.StreamName
	TrackType     media.TrackType
	Track         media.TrackName
	ElementOffset int64
	SavedMS       int64
	TTLMS         *int64
}

func (NotifyMessage) Kind() string { return KindNotifyMessage }

func (m NotifyMessage) fieldMap() record.FieldMap {
	return record.FieldMap{
		"seq":            m.Seq,
		"stream_name":    m.Stream[:],
		"track_type":     int64(m.TrackType),
		"track_name":     m.Track[:],
		"element_offset": m.ElementOffset,
		"saved_ms":       m.SavedMS,
		"ttl_ms":         optLong(m.TTLMS),
	}
}

// UnitElementMessage carries one element of payload for a unit.
type UnitElementMessage struct {
	Seq        int64
	Stream     media.StreamName
	TrackType  media.TrackType
	Track      media.TrackName
	Unit       int64
	Element    int64
	Data       []byte
	Attributes map[string]string
	Last       bool
}

func (UnitElementMessage) Kind() string { return KindUnitElementMessage }

func (m UnitElementMessage) fieldMap() record.FieldMap {
	return record.FieldMap{
		"seq":         m.Seq,
		"stream_name": m.Stream[:],
		"track_type":  int64(m.TrackType),
		"track_name":  m.Track[:],
		"unit":        m.Unit,
		"element":     m.Element,
		"data":        m.Data,
		"attributes":  m.Attributes,
		"last":        m.Last,
	}
}

// StreamTracksRequest asks the store which tracks a stream has.
type StreamTracksRequest struct {
	Seq     int64
	ReplyTo string
	Stream  media.StreamName
}

func (StreamTracksRequest) Kind() string { return KindStreamTracksRequest }

func (m StreamTracksRequest) fieldMap() record.FieldMap {
	return record.FieldMap{
		"seq":         m.Seq,
		"reply_to":    m.ReplyTo,
		"stream_name": m.Stream[:],
	}
}

// StreamTracksResponse lists a stream's tracks in store order.
type StreamTracksResponse struct {
	Seq    int64
	Stream media.StreamName
	Tracks []media.TrackInfo
}

func (StreamTracksResponse) Kind() string { return KindStreamTracksResponse }

func (m StreamTracksResponse) fieldMap() record.FieldMap {
	tracks := make([]any, len(m.Tracks))
	for i, ti := range m.Tracks {
		ti := ti
		tracks[i] = record.FieldMap{
			"track_name": ti.Name[:],
			"track_type": int64(ti.Type),
		}
	}
	return record.FieldMap{
		"seq":         m.Seq,
		"stream_name": m.Stream[:],
		"tracks":      tracks,
	}
}

// StreamTrackUnitElementsRequest asks for the elements of units
// [FromUnit, ToUnit).
type StreamTrackUnitElementsRequest struct {
	Seq       int64
	ReplyTo   string
	Stream    media.StreamName
	TrackType media.TrackType
	Track     media.TrackName
	FromUnit  int64
	ToUnit    int64
}

func (StreamTrackUnitElementsRequest) Kind() string { return KindStreamTrackUnitElementsRequest }

func (m StreamTrackUnitElementsRequest) fieldMap() record.FieldMap {
	return record.FieldMap{
		"seq":         m.Seq,
		"reply_to":    m.ReplyTo,
		"stream_name": m.Stream[:],
		"track_type":  int64(m.TrackType),
		"track_name":  m.Track[:],
		"from_unit":   m.FromUnit,
		"to_unit":     m.ToUnit,
	}
}

// StreamTrackUnitElementsResponse returns a unit's element payloads.
type StreamTrackUnitElementsResponse struct {
	Seq       int64
	Stream    media.StreamName
	TrackType media.TrackType
	Track     media.TrackName
	Unit      int64
	Payloads  []media.Payload
}

func (StreamTrackUnitElementsResponse) Kind() string { return KindStreamTrackUnitElementsResponse }

func (m StreamTrackUnitElementsResponse) fieldMap() record.FieldMap {
	payloads := make([]any, len(m.Payloads))
	for i, p := range m.Payloads {
		payloads[i] = record.FieldMap{
			"data":       p.Data,
			"attributes": p.Attributes,
		}
	}
	return record.FieldMap{
		"seq":         m.Seq,
		"stream_name": m.Stream[:],
		"track_type":  int64(m.TrackType),
		"track_name":  m.Track[:],
		"unit":        m.Unit,
		"payloads":    payloads,
	}
}

// StreamTrackUnitsRequest asks for raw track data in the byte range
// [FromByte, ToByte).
type StreamTrackUnitsRequest struct {
	Seq       int64
	ReplyTo   string
	Stream    media.StreamName
	TrackType media.TrackType
	Track     media.TrackName
	FromByte  int64
	ToByte    int64
}

func (StreamTrackUnitsRequest) Kind() string { return KindStreamTrackUnitsRequest }

func (m StreamTrackUnitsRequest) fieldMap() record.FieldMap {
	return record.FieldMap{
		"seq":         m.Seq,
		"reply_to":    m.ReplyTo,
		"stream_name": m.Stream[:],
		"track_type":  int64(m.TrackType),
		"track_name":  m.Track[:],
		"from_byte":   m.FromByte,
		"to_byte":     m.ToByte,
	}
}

// StreamTrackUnitsResponse returns the raw concatenated data of a byte
// range.
type StreamTrackUnitsResponse struct {
	Seq       int64
	Stream    media.StreamName
	TrackType media.TrackType
	Track     media.TrackName
	FromByte  int64
	ToByte    int64
	Data      []byte
}

func (StreamTrackUnitsResponse) Kind() string { return KindStreamTrackUnitsResponse }

func (m StreamTrackUnitsResponse) fieldMap() record.FieldMap {
	return record.FieldMap{
		"seq":         m.Seq,
		"stream_name": m.Stream[:],
		"track_type":  int64(m.TrackType),
		"track_name":  m.Track[:],
		"from_byte":   m.FromByte,
		"to_byte":     m.ToByte,
		"data":        m.Data,
	}
}

// PingRequestResponse is a liveness probe. One shape serves both directions:
// IsResponse false on the way out, true on the way back.
type PingRequestResponse struct {
	Seq        int64
	ReplyTo    string
	IsResponse bool
}

func (PingRequestResponse) Kind() string { return KindPingRequestResponse }

func (m PingRequestResponse) fieldMap() record.FieldMap {
	return record.FieldMap{
		"seq":         m.Seq,
		"reply_to":    m.ReplyTo,
		"is_response": m.IsResponse,
	}
}

// ServicesFFProbeRequest asks the probe service to analyze a media source.
type ServicesFFProbeRequest struct {
	Seq        int64
	ReplyTo    string
	MediaURI   string
	Attributes map[string]string
}

func (ServicesFFProbeRequest) Kind() string { return KindServicesFFProbeRequest }

func (m ServicesFFProbeRequest) fieldMap() record.FieldMap {
	return record.FieldMap{
		"seq":        m.Seq,
		"reply_to":   m.ReplyTo,
		"media_uri":  m.MediaURI,
		"attributes": m.Attributes,
	}
}

// ServicesFFProbeResponse reports the probe verdict plus one attribute map
// per probed stream. Code is an opaque schema-typed integer.
type ServicesFFProbeResponse struct {
	Seq     int64
	Status  FFProbeStatus
	Code    int64
	Streams []map[string]string
}

func (ServicesFFProbeResponse) Kind() string { return KindServicesFFProbeResponse }

func (m ServicesFFProbeResponse) fieldMap() record.FieldMap {
	streams := make([]any, len(m.Streams))
	for i, s := range m.Streams {
		streams[i] = s
	}
	return record.FieldMap{
		"seq":     m.Seq,
		"status":  int64(m.Status),
		"code":    m.Code,
		"streams": streams,
	}
}

func optLong(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
