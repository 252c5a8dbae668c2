package protocol

import (
	"fmt"

	"mediawire/internal/media"
	"mediawire/internal/record"
	"mediawire/internal/schema"
)

// Codec binds the schema registry to a record serializer. It is immutable
// after construction and safe for concurrent use from any number of
// goroutines.
type Codec struct {
	registry   *schema.Registry
	serializer record.Serializer
}

// NewCodec builds a codec over the registry with the default (canonical
// CBOR) record serializer.
func NewCodec(registry *schema.Registry) *Codec {
	return NewCodecWithSerializer(registry, record.NewSerializer())
}

// NewCodecWithSerializer builds a codec over an explicit record serializer.
func NewCodecWithSerializer(registry *schema.Registry, serializer record.Serializer) *Codec {
	return &Codec{registry: registry, serializer: serializer}
}

func (c *Codec) encode(discriminator string, fields record.FieldMap) ([]byte, error) {
	s, err := c.registry.Get(discriminator)
	if err != nil {
		return nil, err
	}
	body, err := c.serializer.Encode(s, fields)
	if err != nil {
		return nil, err
	}
	return packEnvelope(discriminator, body)
}

// Dump re-encodes a message. Composed with Decode and FromFields it is the
// identity on the byte buffer.
func (c *Codec) Dump(m Message) ([]byte, error) {
	return c.encode(m.Kind(), m.fieldMap())
}

// Decode extracts the discriminator from an envelope and parses the body
// against the registered schema. Unregistered discriminators surface
// schema.ErrUnknownDiscriminator; bytes that do not parse surface a
// malformed-body error.
func (c *Codec) Decode(buf []byte) (string, record.FieldMap, error) {
	discriminator, body, err := unpackEnvelope(buf)
	if err != nil {
		return "", nil, err
	}
	s, err := c.registry.Get(discriminator)
	if err != nil {
		return "", nil, err
	}
	fields, err := c.serializer.Decode(s, body)
	if err != nil {
		return "", nil, fmt.Errorf("malformed %s body: %w", discriminator, err)
	}
	return discriminator, fields, nil
}

// DecodeMessage is Decode followed by FromFields.
func (c *Codec) DecodeMessage(buf []byte) (Message, error) {
	discriminator, fields, err := c.Decode(buf)
	if err != nil {
		return nil, err
	}
	return c.FromFields(discriminator, fields)
}

// FromFields maps a decoded (discriminator, field map) pair to its typed
// variant. The mapping is total over registered discriminators; a field map
// that does not carry a variant's expected fields is an error, never a
// defaulted value.
func (c *Codec) FromFields(discriminator string, fields record.FieldMap) (Message, error) {
	r := fieldReader{discriminator: discriminator, fields: fields}
	switch discriminator {
	case KindNotifyMessage:
		return notifyFrom(r)
	case KindUnitElementMessage:
		return unitElementFrom(r)
	case KindStreamTracksRequest:
		return streamTracksRequestFrom(r)
	case KindStreamTracksResponse:
		return streamTracksResponseFrom(r)
	case KindStreamTrackUnitElementsRequest:
		return unitElementsRequestFrom(r)
	case KindStreamTrackUnitElementsResponse:
		return unitElementsResponseFrom(r)
	case KindStreamTrackUnitsRequest:
		return unitsRequestFrom(r)
	case KindStreamTrackUnitsResponse:
		return unitsResponseFrom(r)
	case KindPingRequestResponse:
		return pingFrom(r)
	case KindServicesFFProbeRequest:
		return ffprobeRequestFrom(r)
	case KindServicesFFProbeResponse:
		return ffprobeResponseFrom(r)
	default:
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownDiscriminator, discriminator)
	}
}

// BuildNotifyMessage encodes a saved-element notification. ttlMS nil means
// no time-to-live.
func (c *Codec) BuildNotifyMessage(seq int64, stream media.StreamName, trackType media.TrackType, track media.TrackName, elementOffset, savedMS int64, ttlMS *int64) ([]byte, error) {
	return c.Dump(NotifyMessage{
		Seq:           seq,
		Stream:        stream,
		TrackType:     trackType,
		Track:         track,
		ElementOffset: elementOffset,
		SavedMS:       savedMS,
		TTLMS:         ttlMS,
	})
}

func (c *Codec) BuildUnitElementMessage(seq int64, stream media.StreamName, trackType media.TrackType, track media.TrackName, unit, element int64, data []byte, attributes map[string]string, last bool) ([]byte, error) {
	return c.Dump(UnitElementMessage{
		Seq:        seq,
		Stream:     stream,
		TrackType:  trackType,
		Track:      track,
		Unit:       unit,
		Element:    element,
		Data:       data,
		Attributes: attributes,
		Last:       last,
	})
}

func (c *Codec) BuildStreamTracksRequest(seq int64, replyTo string, stream media.StreamName) ([]byte, error) {
	return c.Dump(StreamTracksRequest{Seq: seq, ReplyTo: replyTo, Stream: stream})
}

func (c *Codec) BuildStreamTracksResponse(seq int64, stream media.StreamName, tracks []media.TrackInfo) ([]byte, error) {
	return c.Dump(StreamTracksResponse{Seq: seq, Stream: stream, Tracks: tracks})
}

func (c *Codec) BuildStreamTrackUnitElementsRequest(seq int64, replyTo string, stream media.StreamName, trackType media.TrackType, track media.TrackName, fromUnit, toUnit int64) ([]byte, error) {
	return c.Dump(StreamTrackUnitElementsRequest{
		Seq:       seq,
		ReplyTo:   replyTo,
		Stream:    stream,
		TrackType: trackType,
		Track:     track,
		FromUnit:  fromUnit,
		ToUnit:    toUnit,
	})
}

func (c *Codec) BuildStreamTrackUnitElementsResponse(seq int64, stream media.StreamName, trackType media.TrackType, track media.TrackName, unit int64, payloads []media.Payload) ([]byte, error) {
	return c.Dump(StreamTrackUnitElementsResponse{
		Seq:       seq,
		Stream:    stream,
		TrackType: trackType,
		Track:     track,
		Unit:      unit,
		Payloads:  payloads,
	})
}

func (c *Codec) BuildStreamTrackUnitsRequest(seq int64, replyTo string, stream media.StreamName, trackType media.TrackType, track media.TrackName, fromByte, toByte int64) ([]byte, error) {
	return c.Dump(StreamTrackUnitsRequest{
		Seq:       seq,
		ReplyTo:   replyTo,
		Stream:    stream,
		TrackType: trackType,
		Track:     track,
		FromByte:  fromByte,
		ToByte:    toByte,
	})
}

func (c *Codec) BuildStreamTrackUnitsResponse(seq int64, stream media.StreamName, trackType media.TrackType, track media.TrackName, fromByte, toByte int64, data []byte) ([]byte, error) {
	return c.Dump(StreamTrackUnitsResponse{
		Seq:       seq,
		Stream:    stream,
		TrackType: trackType,
		Track:     track,
		FromByte:  fromByte,
		ToByte:    toByte,
		Data:      data,
	})
}

func (c *Codec) BuildPingRequestResponse(seq int64, replyTo string, isResponse bool) ([]byte, error) {
	return c.Dump(PingRequestResponse{Seq: seq, ReplyTo: replyTo, IsResponse: isResponse})
}

func (c *Codec) BuildServicesFFProbeRequest(seq int64, replyTo, mediaURI string, attributes map[string]string) ([]byte, error) {
	return c.Dump(ServicesFFProbeRequest{Seq: seq, ReplyTo: replyTo, MediaURI: mediaURI, Attributes: attributes})
}

func (c *Codec) BuildServicesFFProbeResponse(seq int64, status FFProbeStatus, code int64, streams []map[string]string) ([]byte, error) {
	return c.Dump(ServicesFFProbeResponse{Seq: seq, Status: status, Code: code, Streams: streams})
}

func notifyFrom(r fieldReader) (Message, error) {
	seq, err := r.long("seq")
	if err != nil {
		return nil, err
	}
	stream, err := r.fixed16("stream_name")
	if err != nil {
		return nil, err
	}
	trackType, err := r.trackType("track_type")
	if err != nil {
		return nil, err
	}
	track, err := r.fixed16("track_name")
	if err != nil {
		return nil, err
	}
	offset, err := r.long("element_offset")
	if err != nil {
		return nil, err
	}
	savedMS, err := r.long("saved_ms")
	if err != nil {
		return nil, err
	}
	ttl, err := r.optionalLong("ttl_ms")
	if err != nil {
		return nil, err
	}
	return NotifyMessage{
		Seq:           seq,
		Stream:        stream,
		TrackType:     trackType,
		Track:         track,
		ElementOffset: offset,
		SavedMS:       savedMS,
		TTLMS:         ttl,
	}, nil
}

func unitElementFrom(r fieldReader) (Message, error) {
	seq, err := r.long("seq")
	if err != nil {
		return nil, err
	}
	stream, err := r.fixed16("stream_name")
	if err != nil {
		return nil, err
	}
	trackType, err := r.trackType("track_type")
	if err != nil {
		return nil, err
	}
	track, err := r.fixed16("track_name")
	if err != nil {
		return nil, err
	}
	unit, err := r.long("unit")
	if err != nil {
		return nil, err
	}
	element, err := r.long("element")
	if err != nil {
		return nil, err
	}
	data, err := r.bytes("data")
	if err != nil {
		return nil, err
	}
	attributes, err := r.stringMap("attributes")
	if err != nil {
		return nil, err
	}
	last, err := r.boolean("last")
	if err != nil {
		return nil, err
	}
	return UnitElementMessage{
		Seq:        seq,
		Stream:     stream,
		TrackType:  trackType,
		Track:      track,
		Unit:       unit,
		Element:    element,
		Data:       data,
		Attributes: attributes,
		Last:       last,
	}, nil
}

func streamTracksRequestFrom(r fieldReader) (Message, error) {
	seq, err := r.long("seq")
	if err != nil {
		return nil, err
	}
	replyTo, err := r.str("reply_to")
	if err != nil {
		return nil, err
	}
	stream, err := r.fixed16("stream_name")
	if err != nil {
		return nil, err
	}
	return StreamTracksRequest{Seq: seq, ReplyTo: replyTo, Stream: stream}, nil
}

func streamTracksResponseFrom(r fieldReader) (Message, error) {
	seq, err := r.long("seq")
	if err != nil {
		return nil, err
	}
	stream, err := r.fixed16("stream_name")
	if err != nil {
		return nil, err
	}
	items, err := r.array("tracks")
	if err != nil {
		return nil, err
	}
	tracks := make([]media.TrackInfo, 0, len(items))
	for _, item := range items {
		tr, err := r.sub("tracks", item)
		if err != nil {
			return nil, err
		}
		name, err := tr.fixed16("track_name")
		if err != nil {
			return nil, err
		}
		trackType, err := tr.trackType("track_type")
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, media.TrackInfo{Type: trackType, Name: name})
	}
	return StreamTracksResponse{Seq: seq, Stream: stream, Tracks: tracks}, nil
}

func unitElementsRequestFrom(r fieldReader) (Message, error) {
	seq, err := r.long("seq")
	if err != nil {
		return nil, err
	}
	replyTo, err := r.str("reply_to")
	if err != nil {
		return nil, err
	}
	stream, err := r.fixed16("stream_name")
	if err != nil {
		return nil, err
	}
	trackType, err := r.trackType("track_type")
	if err != nil {
		return nil, err
	}
	track, err := r.fixed16("track_name")
	if err != nil {
		return nil, err
	}
	fromUnit, err := r.long("from_unit")
	if err != nil {
		return nil, err
	}
	toUnit, err := r.long("to_unit")
	if err != nil {
		return nil, err
	}
	return StreamTrackUnitElementsRequest{
		Seq:       seq,
		ReplyTo:   replyTo,
		Stream:    stream,
		TrackType: trackType,
		Track:     track,
		FromUnit:  fromUnit,
		ToUnit:    toUnit,
	}, nil
}

func unitElementsResponseFrom(r fieldReader) (Message, error) {
	seq, err := r.long("seq")
	if err != nil {
		return nil, err
	}
	stream, err := r.fixed16("stream_name")
	if err != nil {
		return nil, err
	}
	trackType, err := r.trackType("track_type")
	if err != nil {
		return nil, err
	}
	track, err := r.fixed16("track_name")
	if err != nil {
		return nil, err
	}
	unit, err := r.long("unit")
	if err != nil {
		return nil, err
	}
	items, err := r.array("payloads")
	if err != nil {
		return nil, err
	}
	payloads := make([]media.Payload, 0, len(items))
	for _, item := range items {
		pr, err := r.sub("payloads", item)
		if err != nil {
			return nil, err
		}
		data, err := pr.bytes("data")
		if err != nil {
			return nil, err
		}
		attributes, err := pr.stringMap("attributes")
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, media.Payload{Data: data, Attributes: attributes})
	}
	return StreamTrackUnitElementsResponse{
		Seq:       seq,
		Stream:    stream,
		TrackType: trackType,
		Track:     track,
		Unit:      unit,
		Payloads:  payloads,
	}, nil
}

func unitsRequestFrom(r fieldReader) (Message, error) {
	seq, err := r.long("seq")
	if err != nil {
		return nil, err
	}
	replyTo, err := r.str("reply_to")
	if err != nil {
		return nil, err
	}
	stream, err := r.fixed16("stream_name")
	if err != nil {
		return nil, err
	}
	trackType, err := r.trackType("track_type")
	if err != nil {
		return nil, err
	}
	track, err := r.fixed16("track_name")
	if err != nil {
		return nil, err
	}
	fromByte, err := r.long("from_byte")
	if err != nil {
		return nil, err
	}
	toByte, err := r.long("to_byte")
	if err != nil {
		return nil, err
	}
	return StreamTrackUnitsRequest{
		Seq:       seq,
		ReplyTo:   replyTo,
		Stream:    stream,
		TrackType: trackType,
		Track:     track,
		FromByte:  fromByte,
		ToByte:    toByte,
	}, nil
}

func unitsResponseFrom(r fieldReader) (Message, error) {
	seq, err := r.long("seq")
	if err != nil {
		return nil, err
	}
	stream, err := r.fixed16("stream_name")
	if err != nil {
		return nil, err
	}
	trackType, err := r.trackType("track_type")
	if err != nil {
		return nil, err
	}
	track, err := r.fixed16("track_name")
	if err != nil {
		return nil, err
	}
	fromByte, err := r.long("from_byte")
	if err != nil {
		return nil, err
	}
	toByte, err := r.long("to_byte")
	if err != nil {
		return nil, err
	}
	data, err := r.bytes("data")
	if err != nil {
		return nil, err
	}
	return StreamTrackUnitsResponse{
		Seq:       seq,
		Stream:    stream,
		TrackType: trackType,
		Track:     track,
		FromByte:  fromByte,
		ToByte:    toByte,
		Data:      data,
	}, nil
}

func pingFrom(r fieldReader) (Message, error) {
	seq, err := r.long("seq")
	if err != nil {
		return nil, err
	}
	replyTo, err := r.str("reply_to")
	if err != nil {
		return nil, err
	}
	isResponse, err := r.boolean("is_response")
	if err != nil {
		return nil, err
	}
	return PingRequestResponse{Seq: seq, ReplyTo: replyTo, IsResponse: isResponse}, nil
}

func ffprobeRequestFrom(r fieldReader) (Message, error) {
	seq, err := r.long("seq")
	if err != nil {
		return nil, err
	}
	replyTo, err := r.str("reply_to")
	if err != nil {
		return nil, err
	}
	mediaURI, err := r.str("media_uri")
	if err != nil {
		return nil, err
	}
	attributes, err := r.stringMap("attributes")
	if err != nil {
		return nil, err
	}
	return ServicesFFProbeRequest{Seq: seq, ReplyTo: replyTo, MediaURI: mediaURI, Attributes: attributes}, nil
}

func ffprobeResponseFrom(r fieldReader) (Message, error) {
	seq, err := r.long("seq")
	if err != nil {
		return nil, err
	}
	statusTag, err := r.long("status")
	if err != nil {
		return nil, err
	}
	if statusTag < 0 || int(statusTag) >= len(ffprobeStatusNames) {
		return nil, r.mismatch("status", "unknown status tag %d", statusTag)
	}
	code, err := r.long("code")
	if err != nil {
		return nil, err
	}
	items, err := r.array("streams")
	if err != nil {
		return nil, err
	}
	streams := make([]map[string]string, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]string)
		if !ok {
			return nil, r.mismatch("streams", "item %d: expected string map, got %T", i, item)
		}
		streams = append(streams, m)
	}
	return ServicesFFProbeResponse{Seq: seq, Status: FFProbeStatus(statusTag), Code: code, Streams: streams}, nil
}
