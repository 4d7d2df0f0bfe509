// Package config loads application configuration from environment
// variables.  main loads .env first so local development needs no exports.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env  string `envconfig:"APP_ENV" default:"dev"`
	Port string `envconfig:"APP_PORT" default:"8080"`

	// Storage
	StoreBackend string `envconfig:"STORE_BACKEND" default:"memory"` // memory | badger | mysql
	StoreSeed    bool   `envconfig:"STORE_SEED" default:"false"`     // load the default fleet into an empty store
	BadgerDir    string `envconfig:"BADGER_DIR" default:"data/badger"`
	DBUser       string `envconfig:"DB_USER"`
	DBPass       string `envconfig:"DB_PASS"`
	DBHost       string `envconfig:"DB_HOST" default:"localhost"`
	DBPort       string `envconfig:"DB_PORT" default:"3306"`
	DBName       string `envconfig:"DB_NAME" default:"seatly"`

	// Auth: tokens are issued elsewhere and only verified here.
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Reservation core
	HoldBudget    time.Duration `envconfig:"HOLD_BUDGET" default:"5m"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"30s"`

	// RabbitMQ; an empty URL disables the payment consumer, the event
	// publisher and the audit log.
	RabbitURL           string `envconfig:"RABBITMQ_URL"`
	PaymentQueue        string `envconfig:"PAYMENT_QUEUE" default:"payment.completed"`
	ReservationExchange string `envconfig:"RESERVATION_EXCHANGE" default:"seatly.reservations"`
	AuditQueue          string `envconfig:"AUDIT_QUEUE" default:"seatly.reservations.audit"`
	AuditLogPath        string `envconfig:"AUDIT_LOG_PATH" default:"logs/reservations.log"`

	// Real-time seat updates
	FrontendURLs     []string `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`
	SubscriberBuffer int      `envconfig:"SUBSCRIBER_BUFFER" default:"16"`
	SeatRelayEnabled bool     `envconfig:"SEAT_RELAY_ENABLED" default:"true"`
}

// Load reads the configuration and exits the process when it is invalid.
func Load() Config {
	c, err := Parse()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return c
}

// Parse reads and validates the configuration.
func Parse() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks values envconfig cannot express.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	switch c.StoreBackend {
	case "memory", "badger":
	case "mysql":
		if c.DBUser == "" {
			return fmt.Errorf("DB_USER is required when STORE_BACKEND=mysql")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.HoldBudget <= 0 {
		return fmt.Errorf("HOLD_BUDGET must be positive, got %s", c.HoldBudget)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	if c.SubscriberBuffer < 1 {
		return fmt.Errorf("SUBSCRIBER_BUFFER must be at least 1, got %d", c.SubscriberBuffer)
	}
	return nil
}
