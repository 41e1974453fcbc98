package config

import (
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	Port       string `env:"PORT" envDefault:"8080"`
	DBUser     string `env:"DB_USER,required"`
	DBPassword string `env:"DB_PASSWORD,required"`
	DBHost     string `env:"DB_HOST,required"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName     string `env:"DB_NAME,required"`
	DBPort     string `env:"DB_PORT" envDefault:"3306"`

	// Pool sizing; the defaults fit one Cloud Run instance against a
	// small Cloud SQL tier.
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`

	// Cloud SQL unix socket; overrides DBHost when set.
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`

	// Relay push vendor credentials. Empty disables the relay path.
	RelayAppID  string `env:"RELAY_APP_ID"`
	RelayAPIKey string `env:"RELAY_API_KEY"`
	RelayAPIURL string `env:"RELAY_API_URL" envDefault:"https://onesignal.com/api/v1"`

	// Service account for native FCM sends. Empty disables the native path.
	FCMCredentialsFile string `env:"FCM_CREDENTIALS_FILE"`

	ModerationModel string        `env:"MODERATION_MODEL" envDefault:"gemini-2.5-flash"`
	NotifyTimeout   time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
