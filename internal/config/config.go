package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "KDS_"

type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Backend  BackendConfig  `yaml:"backend"`
	Pull     PullConfig     `yaml:"pull"`
	Push     PushConfig     `yaml:"push"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	NATS     NATSConfig     `yaml:"nats"`
}

type ServiceConfig struct {
	Name     string `yaml:"name" validate:"required"`
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	HTTPPort int    `yaml:"http_port" validate:"gt=0,lt=65536"`
}

type BackendConfig struct {
	BaseURL      string        `yaml:"base_url" validate:"required,url"`
	RestaurantID int           `yaml:"restaurant_id" validate:"gt=0"`
	Token        string        `yaml:"token"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
}

type PullConfig struct {
	Source       string        `yaml:"source" validate:"oneof=http postgres"`
	Interval     time.Duration `yaml:"interval" validate:"gt=0"`
	MaxStaleness time.Duration `yaml:"max_staleness" validate:"gtefield=Interval"`
}

type PushConfig struct {
	Transport      string        `yaml:"transport" validate:"oneof=none websocket amqp nats"`
	URL            string        `yaml:"url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" validate:"gt=0"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMQConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	User                  string `yaml:"user"`
	Password              string `yaml:"password"`
	EventsExchange        string `yaml:"events_exchange"`
	NotificationsExchange string `yaml:"notifications_exchange"`
	PublishNotifications  bool   `yaml:"publish_notifications"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:     "kds",
			LogLevel: "info",
			HTTPPort: 3000,
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:3000/api/v1",
			Timeout: 10 * time.Second,
		},
		Pull: PullConfig{
			Source:       "http",
			Interval:     3 * time.Second,
			MaxStaleness: 30 * time.Second,
		},
		Push: PushConfig{
			Transport:      "websocket",
			ReconnectDelay: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Host: "localhost",
			Port: 5432,
		},
		RabbitMQ: RabbitMQConfig{
			Host:                  "localhost",
			Port:                  5672,
			User:                  "guest",
			Password:              "guest",
			EventsExchange:        "kds_events",
			NotificationsExchange: "kds_notifications",
		},
		NATS: NATSConfig{
			URL:     "nats://localhost:4222",
			Subject: "kds.events",
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies .env and KDS_* overrides.
// A missing file is not an error; the service can run from the environment alone.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse yaml: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Pull.Source == "postgres" && (c.Database.Host == "" || c.Database.Database == "") {
		return errors.New("invalid config: database.host and database.database are required for the postgres pull source")
	}

	switch c.Push.Transport {
	case "websocket":
		if c.Push.URL == "" {
			return errors.New("invalid config: push.url is required for the websocket transport")
		}
	case "amqp":
		if c.RabbitMQ.Host == "" || c.RabbitMQ.EventsExchange == "" {
			return errors.New("invalid config: rabbitmq.host and rabbitmq.events_exchange are required for the amqp transport")
		}
	case "nats":
		if c.NATS.URL == "" || c.NATS.Subject == "" {
			return errors.New("invalid config: nats.url and nats.subject are required for the nats transport")
		}
	}

	return nil
}

// UsesRabbitMQ reports whether a broker connection is needed at all.
func (c *Config) UsesRabbitMQ() bool {
	return c.Push.Transport == "amqp" || c.RabbitMQ.PublishNotifications
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		if v, ok := lookup(envPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
			}
			*dst = n
		}
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		if v, ok := lookup(envPrefix + key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
			}
			*dst = d
		}
		return nil
	}
	flag := func(key string, dst *bool) error {
		if v, ok := lookup(envPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
			}
			*dst = b
		}
		return nil
	}

	str("LOG_LEVEL", &cfg.Service.LogLevel)
	str("BACKEND_BASE_URL", &cfg.Backend.BaseURL)
	str("BACKEND_TOKEN", &cfg.Backend.Token)
	str("PULL_SOURCE", &cfg.Pull.Source)
	str("PUSH_TRANSPORT", &cfg.Push.Transport)
	str("PUSH_URL", &cfg.Push.URL)
	str("DATABASE_HOST", &cfg.Database.Host)
	str("DATABASE_USER", &cfg.Database.User)
	str("DATABASE_PASSWORD", &cfg.Database.Password)
	str("DATABASE_NAME", &cfg.Database.Database)
	str("RABBITMQ_HOST", &cfg.RabbitMQ.Host)
	str("RABBITMQ_USER", &cfg.RabbitMQ.User)
	str("RABBITMQ_PASSWORD", &cfg.RabbitMQ.Password)
	str("NATS_URL", &cfg.NATS.URL)

	for _, err := range []error{
		num("HTTP_PORT", &cfg.Service.HTTPPort),
		num("BACKEND_RESTAURANT_ID", &cfg.Backend.RestaurantID),
		num("DATABASE_PORT", &cfg.Database.Port),
		num("RABBITMQ_PORT", &cfg.RabbitMQ.Port),
		dur("BACKEND_TIMEOUT", &cfg.Backend.Timeout),
		dur("PULL_INTERVAL", &cfg.Pull.Interval),
		dur("PULL_MAX_STALENESS", &cfg.Pull.MaxStaleness),
		dur("PUSH_RECONNECT_DELAY", &cfg.Push.ReconnectDelay),
		flag("RABBITMQ_PUBLISH_NOTIFICATIONS", &cfg.RabbitMQ.PublishNotifications),
	} {
		if err != nil {
			return err
		}
	}

	return nil
}
