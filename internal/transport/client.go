package transport

import (
	"bufio"
	"context"
	"net"

	"mediawire/internal/protocol"
)

// DialAndRequest opens a connection, sends a single message, and waits for
// one framed response. It is intended for tooling and tests, not for
// high-volume clients, which should keep a connection open and correlate
// responses by seq.
func DialAndRequest(ctx context.Context, network, address string, codec *protocol.Codec, msg protocol.Message) (protocol.Message, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, err
		}
	}

	buf, err := codec.Dump(msg)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(conn)
	if err := WriteFrame(w, buf); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}

	payload, err := ReadFrame(bufio.NewReader(conn))
	if err != nil {
		return nil, err
	}
	return codec.DecodeMessage(payload)
}

// Send delivers a one-way message and returns without waiting for a reply.
func Send(ctx context.Context, network, address string, codec *protocol.Codec, msg protocol.Message) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return err
	}
	defer conn.Close()

	buf, err := codec.Dump(msg)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(conn)
	if err := WriteFrame(w, buf); err != nil {
		return err
	}
	return w.Flush()
}
