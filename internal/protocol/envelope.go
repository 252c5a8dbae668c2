package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Envelope layout. Every encoded message is self-identifying: the
// discriminator travels in front of the record body, so a decoder never
// needs out-of-band knowledge of which schema applies.
//
//	0..1  magic 'M''W' (0x4d57), big-endian
//	2     envelope version
//	3     discriminator length n
//	4..   discriminator (ASCII)
//	..    record body
const (
	envelopeMagic   = uint16(0x4d57)
	envelopeVersion = byte(1)
	envelopeHeader  = 4
)

// ErrMalformedEnvelope is returned when a buffer does not carry a valid
// message envelope.
var ErrMalformedEnvelope = errors.New("malformed message envelope")

func packEnvelope(discriminator string, body []byte) ([]byte, error) {
	if discriminator == "" || len(discriminator) > 255 {
		return nil, fmt.Errorf("pack envelope: bad discriminator length %d", len(discriminator))
	}
	buf := make([]byte, envelopeHeader+len(discriminator)+len(body))
	binary.BigEndian.PutUint16(buf[0:2], envelopeMagic)
	buf[2] = envelopeVersion
	buf[3] = byte(len(discriminator))
	copy(buf[envelopeHeader:], discriminator)
	copy(buf[envelopeHeader+len(discriminator):], body)
	return buf, nil
}

func unpackEnvelope(buf []byte) (string, []byte, error) {
	if len(buf) < envelopeHeader {
		return "", nil, fmt.Errorf("%w: short buffer (%d bytes)", ErrMalformedEnvelope, len(buf))
	}
	if binary.BigEndian.Uint16(buf[0:2]) != envelopeMagic {
		return "", nil, fmt.Errorf("%w: bad magic", ErrMalformedEnvelope)
	}
	if buf[2] != envelopeVersion {
		return "", nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedEnvelope, buf[2])
	}
	n := int(buf[3])
	if n == 0 || len(buf) < envelopeHeader+n {
		return "", nil, fmt.Errorf("%w: truncated discriminator", ErrMalformedEnvelope)
	}
	discriminator := string(buf[envelopeHeader : envelopeHeader+n])
	return discriminator, buf[envelopeHeader+n:], nil
}
