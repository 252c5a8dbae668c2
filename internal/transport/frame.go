// Package transport moves encoded protocol messages over stream sockets:
// length-prefixed frames, a dispatching server, and a small request client.
// Concurrency, ordering, and retry policy live here, above the codec.
package transport

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize caps one framed message. A codec envelope is never larger
// than its record body plus a few header bytes, so anything past this is a
// corrupt or hostile length prefix.
const MaxFrameSize = 8 << 20

// frameHeaderSize is the big-endian length prefix in front of each envelope.
const frameHeaderSize = 4

var (
	// ErrFrameTooLarge marks a payload or length prefix over MaxFrameSize.
	ErrFrameTooLarge = errors.New("frame exceeds size limit")
	// ErrEmptyFrame marks a zero-length frame, which no envelope produces.
	ErrEmptyFrame = errors.New("empty frame")
)

// WriteFrame writes one length-prefixed message envelope.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("write frame: %w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	var header [frameHeaderSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed message envelope.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	sz := binary.BigEndian.Uint32(header[:])
	if sz == 0 {
		return nil, fmt.Errorf("read frame: %w", ErrEmptyFrame)
	}
	if sz > MaxFrameSize {
		return nil, fmt.Errorf("read frame: %w: %d bytes", ErrFrameTooLarge, sz)
	}
	payload := make([]byte, int(sz))
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
