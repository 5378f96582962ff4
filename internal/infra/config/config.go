package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string `envconfig:"APP_ENV" default:"dev"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	Storage  string `envconfig:"STORAGE" default:"memory"`

	MongoURI string `envconfig:"MONGO_URI"`
	MongoDB  string `envconfig:"MONGO_DB" default:"hotel"`

	KafkaBrokers       []string        `envconfig:"KAFKA_BROKERS"`
	KafkaTopicPrefix   string          `envconfig:"KAFKA_TOPIC_PREFIX"`
	KafkaGroupID       string          `envconfig:"KAFKA_GROUP_ID" default:"hotelbook-ledger"`
	PaymentTopic       string          `envconfig:"PAYMENT_TOPIC" default:"payment.events.v1"`
	OutboxPollInterval time.Duration   `envconfig:"OUTBOX_POLL_INTERVAL" default:"500ms"`
	RetryBackoff       []time.Duration `envconfig:"RETRY_BACKOFF" default:"1s,5s,30s"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	RoomLockTTL   time.Duration `envconfig:"ROOM_LOCK_TTL" default:"10s"`
	RoomLockWait  time.Duration `envconfig:"ROOM_LOCK_WAIT" default:"5s"`

	JWTSecret string `envconfig:"JWT_SECRET"`
	AdminRole string `envconfig:"ADMIN_ROLE" default:"admin"`

	BookingInitialStatus string `envconfig:"BOOKING_INITIAL_STATUS" default:"pending"`
	PriceSource          string `envconfig:"PRICE_SOURCE" default:"room"`
	Currency             string `envconfig:"CURRENCY" default:"EUR"`

	RoomsFixtures string `envconfig:"ROOMS_FIXTURES"`
}

// Load reads an optional .env file, then the process environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// a missing file is fine; variables may come from the environment
		_ = godotenv.Load(f)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	c.BookingInitialStatus = strings.ToLower(strings.TrimSpace(c.BookingInitialStatus))
	c.PriceSource = strings.ToLower(strings.TrimSpace(c.PriceSource))
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	brokers := c.KafkaBrokers[:0]
	for _, b := range c.KafkaBrokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	c.KafkaBrokers = brokers
}

func (c Config) Validate() error {
	var errs []error
	switch c.Storage {
	case StorageMemory:
	case StorageMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when STORAGE=mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE must be memory or mongo, got %q", c.Storage))
	}
	if c.BookingInitialStatus != "pending" && c.BookingInitialStatus != "confirmed" {
		errs = append(errs, fmt.Errorf("BOOKING_INITIAL_STATUS must be pending or confirmed, got %q", c.BookingInitialStatus))
	}
	if c.PriceSource != "room" && c.PriceSource != "category" {
		errs = append(errs, fmt.Errorf("PRICE_SOURCE must be room or category, got %q", c.PriceSource))
	}
	if c.Currency != "" && len(c.Currency) != 3 {
		errs = append(errs, fmt.Errorf("CURRENCY must be a 3-letter code, got %q", c.Currency))
	}
	if c.JWTSecret == "" && !c.IsDev() {
		errs = append(errs, errors.New("JWT_SECRET is required outside dev"))
	}
	return errors.Join(errs...)
}

// IsDev reports local environments, where a missing JWT secret falls back to
// a development value.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "local", "test":
		return true
	}
	return false
}

func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
