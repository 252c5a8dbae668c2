package notify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rabbitmq/amqp091-go"
)

type AMQPConfig struct {
	Enabled    bool
	URL        string
	Exchange   string
	RoutingKey string
	TLS        AMQPTLSConfig
	Auth       AMQPAuthConfig
}

type AMQPTLSConfig struct {
	Enabled            bool
	InsecureSkipVerify bool
	ServerName         string
	CAFile             string
	CertFile           string
	KeyFile            string
}

type AMQPAuthConfig struct {
	Username string
	Password string
}

func (c *AMQPConfig) withDefaults() {
	if c.Exchange == "" {
		c.Exchange = "mediawire.notify"
	}
}

func (c AMQPConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("amqp.url is required")
	}
	if c.Exchange == "" {
		return errors.New("amqp.exchange is required")
	}
	return nil
}

// AMQPPublisher publishes announcements to a topic exchange. The routing
// key defaults to the stream name, so bindings can filter per stream.
type AMQPPublisher struct {
	cfg  AMQPConfig
	mu   sync.Mutex
	conn *amqp091.Connection
	ch   *amqp091.Channel
}

func NewAMQPPublisher(cfg AMQPConfig) (*AMQPPublisher, error) {
	cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &AMQPPublisher{cfg: cfg}, nil
}

// Open dials the broker and declares the exchange. It must be called once
// before Publish.
func (p *AMQPPublisher) Open() error {
	dialCfg := amqp091.Config{}
	if p.cfg.Auth.Username != "" {
		dialCfg.SASL = []amqp091.Authentication{&amqp091.PlainAuth{Username: p.cfg.Auth.Username, Password: p.cfg.Auth.Password}}
	}
	if tlsCfg, err := p.buildTLSConfig(); err != nil {
		return err
	} else if tlsCfg != nil {
		dialCfg.TLSClientConfig = tlsCfg
	}
	conn, err := amqp091.DialConfig(p.cfg.URL, dialCfg)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	p.mu.Lock()
	p.conn, p.ch = conn, ch
	p.mu.Unlock()
	return nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, key string, payload []byte) error {
	p.mu.Lock()
	ch := p.ch
	p.mu.Unlock()
	if ch == nil {
		return errors.New("amqp publisher not opened")
	}
	routingKey := p.cfg.RoutingKey
	if routingKey == "" {
		routingKey = key
	}
	err := ch.PublishWithContext(ctx, p.cfg.Exchange, routingKey, false, false, amqp091.Publishing{
		ContentType: "application/octet-stream",
		Body:        payload,
	})
	if err != nil {
		return fmt.Errorf("publish announcement: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			errs = append(errs, err)
		}
		p.ch = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, err)
		}
		p.conn = nil
	}
	return errors.Join(errs...)
}

func (p *AMQPPublisher) buildTLSConfig() (*tls.Config, error) {
	if !p.cfg.TLS.Enabled {
		return nil, nil
	}
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: p.cfg.TLS.InsecureSkipVerify, ServerName: p.cfg.TLS.ServerName}
	if p.cfg.TLS.CAFile != "" {
		pemBytes, err := os.ReadFile(p.cfg.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read amqp ca_file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemBytes) {
			return nil, fmt.Errorf("parse amqp ca_file")
		}
		tlsCfg.RootCAs = pool
	}
	if p.cfg.TLS.CertFile != "" || p.cfg.TLS.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(p.cfg.TLS.CertFile, p.cfg.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load amqp cert/key: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}
