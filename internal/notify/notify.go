// Package notify publishes save announcements to external brokers. The
// store emits a NotifyMessage once an element lands; this package encodes
// it with the wire codec and fans it out to the configured publishers so
// downstream consumers learn about new data without polling.
package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"mediawire/internal/protocol"
)

// Publisher delivers one encoded announcement. The routing key is the
// stream name in canonical UUID form.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
	Close() error
}

// Notifier encodes announcements and fans them out to all publishers.
type Notifier struct {
	codec      *protocol.Codec
	publishers []Publisher
	log        zerolog.Logger
}

func NewNotifier(codec *protocol.Codec, log zerolog.Logger, publishers ...Publisher) *Notifier {
	return &Notifier{codec: codec, publishers: publishers, log: log}
}

// Announce encodes the message and delivers it to every publisher. Failures
// are joined; a failing broker does not stop delivery to the others.
func (n *Notifier) Announce(ctx context.Context, msg protocol.NotifyMessage) error {
	if len(n.publishers) == 0 {
		return nil
	}
	payload, err := n.codec.Dump(msg)
	if err != nil {
		return err
	}
	key := msg.Stream.String()
	var errs []error
	for _, p := range n.publishers {
		if err := p.Publish(ctx, key, payload); err != nil {
			n.log.Error().Err(err).Str("stream", key).Msg("publish announcement failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *Notifier) Close() error {
	var errs []error
	for _, p := range n.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
