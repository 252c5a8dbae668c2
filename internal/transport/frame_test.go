package transport

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	in := []byte("hello")
	var b bytes.Buffer
	if err := WriteFrame(&b, in); err != nil {
		t.Fatal(err)
	}
	out, err := ReadFrame(bufio.NewReader(&b))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != string(in) {
		t.Fatalf("got %q", out)
	}
}

func TestFrameRejectsOversized(t *testing.T) {
	tooBig := make([]byte, MaxFrameSize+1)
	var b bytes.Buffer
	if err := WriteFrame(&b, tooBig); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("err = %v", err)
	}

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], MaxFrameSize+1)
	if _, err := ReadFrame(bufio.NewReader(bytes.NewReader(prefix[:]))); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("err = %v", err)
	}
}

func TestReadFrameRejectsEmpty(t *testing.T) {
	b := bytes.NewReader([]byte{0, 0, 0, 0})
	if _, err := ReadFrame(bufio.NewReader(b)); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("err = %v", err)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	b := bytes.NewReader([]byte{0, 0, 0, 5, 'a', 'b'})
	if _, err := ReadFrame(bufio.NewReader(b)); err == nil {
		t.Fatal("expected error")
	}
}
