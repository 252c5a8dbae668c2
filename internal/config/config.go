package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Schemas SchemasConfig `mapstructure:"schemas"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Network        string `mapstructure:"network"`
	Address        string `mapstructure:"address"`
	UnixSocketPath string `mapstructure:"unix_socket_path"`
	MaxInflight    int    `mapstructure:"max_inflight"`
	QueueLimit     int    `mapstructure:"queue_limit"`
	Workers        int    `mapstructure:"workers"`
	TLSCertFile    string `mapstructure:"tls_cert_file"`
	TLSKeyFile     string `mapstructure:"tls_key_file"`
}

type SchemasConfig struct {
	Dir string `mapstructure:"dir"`
}

type NotifyConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
	AMQP  AMQPConfig  `mapstructure:"amqp"`
}

type KafkaConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

type AMQPConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	Exchange   string `mapstructure:"exchange"`
	RoutingKey string `mapstructure:"routing_key"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("mediawire")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.network", "tcp")
	v.SetDefault("server.address", "127.0.0.1:9670")
	v.SetDefault("server.max_inflight", 64)
	v.SetDefault("server.queue_limit", 4096)
	v.SetDefault("server.workers", 8)
	v.SetDefault("schemas.dir", "schemas/protocol")
	v.SetDefault("notify.kafka.topic", "mediawire.notify")
	v.SetDefault("notify.kafka.client_id", "mediawire")
	v.SetDefault("notify.amqp.exchange", "mediawire.notify")
	v.SetDefault("log.level", "info")
}

func (c Config) Validate() error {
	switch c.Server.Network {
	case "tcp", "tcp4", "tcp6":
		if c.Server.Address == "" {
			return fmt.Errorf("server.address is required")
		}
	case "unix":
		if c.Server.UnixSocketPath == "" {
			return fmt.Errorf("server.unix_socket_path is required")
		}
	default:
		return fmt.Errorf("unsupported server.network %q", c.Server.Network)
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return fmt.Errorf("server.tls_cert_file and server.tls_key_file must be set together")
	}
	if c.Schemas.Dir == "" {
		return fmt.Errorf("schemas.dir is required")
	}
	if c.Notify.Kafka.Enabled && len(c.Notify.Kafka.Brokers) == 0 {
		return fmt.Errorf("notify.kafka.brokers is required")
	}
	if c.Notify.AMQP.Enabled && c.Notify.AMQP.URL == "" {
		return fmt.Errorf("notify.amqp.url is required")
	}
	return nil
}
