package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"

	NotifyBackendNotify   = "notify"
	NotifyBackendSendGrid = "sendgrid"
	NotifyBackendLog      = "log"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL  string `env:"DATABASE_URL"`
	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	CronSpecReminders string        `env:"CRON_SPEC_REMINDERS" envDefault:"*/5 * * * *"`
	RunTimeout        time.Duration `env:"RUN_TIMEOUT" envDefault:"4m"`

	Keycloak struct {
		URL          string `env:"URL"`
		Realm        string `env:"REALM"`
		ClientID     string `env:"CLIENT_ID"`
		ClientSecret string `env:"CLIENT_SECRET"`
	} `envPrefix:"KEYCLOAK_"`
	StaffDirectoryFile string `env:"STAFF_DIRECTORY_FILE"` // Used when Keycloak is not configured

	NotifyBackend  string `env:"NOTIFY_BACKEND" envDefault:"log"`
	NotifyAPIKey   string `env:"NOTIFY_API_KEY"`
	NotifyBaseURL  string `env:"NOTIFY_BASE_URL" envDefault:"https://api.notifications.service.gov.uk"`
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	SendGridFrom   string `env:"SENDGRID_FROM"`
	TemplatesFile  string `env:"TEMPLATES_FILE"`

	EmailLocationURL  string `env:"EMAIL_LOCATION_URL,notEmpty" envDefault:"http://localhost:3000"`
	RemovalLinkSecret string `env:"REMOVAL_LINK_SECRET"`

	MetricsPort int `env:"METRICS_PORT" envDefault:"9090"`

	KafkaBrokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaEventsTopic string   `env:"KAFKA_EVENTS_TOPIC" envDefault:"use-of-force-events"`

	TelegramToken       string `env:"TELEGRAM_TOKEN"`
	AlertTelegramChatID int64  `env:"ALERT_TELEGRAM_CHAT_ID"`
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Errors are ignored if the file doesn't exist. godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Environment = strings.ToLower(cfg.Environment)
	cfg.StoreBackend = strings.ToLower(cfg.StoreBackend)
	cfg.NotifyBackend = strings.ToLower(cfg.NotifyBackend)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that are only required for the selected backends.
func (c *AppConfig) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case StoreBackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is not set"))
		}
	case StoreBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	switch c.NotifyBackend {
	case NotifyBackendNotify:
		if c.NotifyAPIKey == "" {
			errs = append(errs, errors.New("NOTIFY_API_KEY is not set"))
		}
	case NotifyBackendSendGrid:
		if c.SendGridAPIKey == "" || c.SendGridFrom == "" {
			errs = append(errs, errors.New("SENDGRID_API_KEY and SENDGRID_FROM must both be set"))
		}
	case NotifyBackendLog:
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_BACKEND %q", c.NotifyBackend))
	}

	if c.IsProduction() && c.RemovalLinkSecret == "" {
		errs = append(errs, errors.New("REMOVAL_LINK_SECRET is not set"))
	}

	if c.TelegramToken != "" && c.AlertTelegramChatID == 0 {
		errs = append(errs, errors.New("ALERT_TELEGRAM_CHAT_ID is not set"))
	}

	return errors.Join(errs...)
}

// KeycloakEnabled reports whether staff identities are looked up in Keycloak.
func (c *AppConfig) KeycloakEnabled() bool {
	return c.Keycloak.URL != ""
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "staging"
}
