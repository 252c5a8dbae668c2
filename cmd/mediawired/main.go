package main

import (
	"context"
	"crypto/tls"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"mediawire/internal/config"
	"mediawire/internal/notify"
	"mediawire/internal/protocol"
	"mediawire/internal/schema"
	"mediawire/internal/transport"
)

func main() {
	cfgPath := flag.String("config", "mediawire.yaml", "path to config file")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		log = log.Level(level)
	}

	registry, err := schema.Load(cfg.Schemas.Dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Schemas.Dir).Msg("load schemas")
	}
	codec := protocol.NewCodec(registry)

	var publishers []notify.Publisher
	if cfg.Notify.Kafka.Enabled {
		pub, err := notify.NewKafkaPublisher(notify.KafkaConfig{
			Enabled:  true,
			Brokers:  cfg.Notify.Kafka.Brokers,
			Topic:    cfg.Notify.Kafka.Topic,
			ClientID: cfg.Notify.Kafka.ClientID,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("kafka publisher")
		}
		publishers = append(publishers, pub)
	}
	if cfg.Notify.AMQP.Enabled {
		pub, err := notify.NewAMQPPublisher(notify.AMQPConfig{
			Enabled:    true,
			URL:        cfg.Notify.AMQP.URL,
			Exchange:   cfg.Notify.AMQP.Exchange,
			RoutingKey: cfg.Notify.AMQP.RoutingKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("amqp publisher")
		}
		if err := pub.Open(); err != nil {
			log.Fatal().Err(err).Msg("amqp connect")
		}
		publishers = append(publishers, pub)
	}
	notifier := notify.NewNotifier(codec, log, publishers...)
	defer notifier.Close()

	store := transport.NewMemoryStore()
	handler := announcingHandler{store: store, notifier: notifier, log: log}

	var tlsConfig *tls.Config
	if cfg.Server.TLSCertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		if err != nil {
			log.Fatal().Err(err).Msg("load server cert/key")
		}
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12, Certificates: []tls.Certificate{cert}}
	}

	srv := transport.NewServer(transport.Config{
		Network:        cfg.Server.Network,
		Address:        cfg.Server.Address,
		UnixSocketPath: cfg.Server.UnixSocketPath,
		MaxInflight:    cfg.Server.MaxInflight,
		QueueLimit:     cfg.Server.QueueLimit,
		Workers:        cfg.Server.Workers,
		TLSConfig:      tlsConfig,
	}, codec, handler, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
	log.Info().Msg("shutdown complete")
}

// announcingHandler stores inbound elements and announces each saved
// element to the configured brokers.
type announcingHandler struct {
	store    *transport.MemoryStore
	notifier *notify.Notifier
	log      zerolog.Logger
}

func (h announcingHandler) Handle(ctx context.Context, msg protocol.Message) (protocol.Message, error) {
	resp, err := h.store.Handle(ctx, msg)
	if err != nil {
		return nil, err
	}
	if elem, ok := msg.(protocol.UnitElementMessage); ok {
		announce := protocol.NotifyMessage{
			Seq:           elem.Seq,
			Stream:        elem.Stream,
			TrackType:     elem.TrackType,
			Track:         elem.Track,
			ElementOffset: elem.Element,
			SavedMS:       time.Now().UnixMilli(),
		}
		if err := h.notifier.Announce(ctx, announce); err != nil {
			h.log.Warn().Err(err).Msg("announce saved element")
		}
	}
	return resp, nil
}
