package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

type KafkaConfig struct {
	Enabled  bool
	Brokers  []string
	Topic    string
	ClientID string
	TLS      KafkaTLSConfig
}

type KafkaTLSConfig struct {
	Enabled            bool
	InsecureSkipVerify bool
}

func (c *KafkaConfig) withDefaults() {
	if c.Topic == "" {
		c.Topic = "mediawire.notify"
	}
	if c.ClientID == "" {
		c.ClientID = "mediawire"
	}
}

func (c KafkaConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brokers) == 0 {
		return errors.New("kafka.brokers is required")
	}
	if c.Topic == "" {
		return errors.New("kafka.topic is required")
	}
	return nil
}

// KafkaPublisher produces announcements to a single topic, keyed by stream
// so consumers see per-stream ordering.
type KafkaPublisher struct {
	cfg     KafkaConfig
	client  *kgo.Client
	produce func(context.Context, *kgo.Record) error
}

func NewKafkaPublisher(cfg KafkaConfig, opts ...kgo.Opt) (*KafkaPublisher, error) {
	cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kopts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ClientID(cfg.ClientID),
	}
	if cfg.TLS.Enabled {
		kopts = append(kopts, kgo.DialTLSConfig(&tls.Config{InsecureSkipVerify: cfg.TLS.InsecureSkipVerify}))
	}
	kopts = append(kopts, opts...)

	cl, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, fmt.Errorf("new kafka client: %w", err)
	}
	p := &KafkaPublisher{cfg: cfg, client: cl}
	p.produce = func(ctx context.Context, rec *kgo.Record) error {
		return cl.ProduceSync(ctx, rec).FirstErr()
	}
	return p, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, payload []byte) error {
	rec := &kgo.Record{Topic: p.cfg.Topic, Key: []byte(key), Value: payload}
	if err := p.produce(ctx, rec); err != nil {
		return fmt.Errorf("produce announcement: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}
