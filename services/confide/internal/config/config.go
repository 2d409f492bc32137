package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ConfideConfig holds the configuration of the confide service.
type ConfideConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Locale   string `env:"LOCALE"    envDefault:"en"`

	Mongo MongoConfig `envPrefix:"MONGO_"`
	Auth  AuthConfig
	Email EmailConfig `envPrefix:"EMAIL_"`
	Token TokenConfig `envPrefix:"TOKEN_"`
}

// MongoConfig holds the document store connection settings.
type MongoConfig struct {
	URI      string `env:"URI"      envDefault:"mongodb://localhost:27017"`
	Database string `env:"DATABASE" envDefault:"confide"`
}

// AuthConfig mirrors the auth.* settings consumed by the user directory.
type AuthConfig struct {
	// Model names the registered user factory. Empty means not configured.
	Model              string        `env:"AUTH_MODEL"          envDefault:"User"`
	Table              string        `env:"AUTH_TABLE"          envDefault:"users"`
	ReminderTable      string        `env:"AUTH_REMINDER_TABLE" envDefault:"password_reminders"`
	ReminderTTL        time.Duration `env:"REMINDER_TTL"        envDefault:"0s"`
	UniqueIndexes      bool          `env:"UNIQUE_INDEXES"      envDefault:"false"`
	SignupConfirm      bool          `env:"SIGNUP_CONFIRM"      envDefault:"true"`
	SignupEmail        bool          `env:"SIGNUP_EMAIL"        envDefault:"true"`
	LoginIdentityField []string      `env:"LOGIN_IDENTITY"      envDefault:"email,username" envSeparator:","`
}

// EmailConfig names the views used for outgoing emails.
type EmailConfig struct {
	AccountConfirmation string `env:"ACCOUNT_CONFIRMATION" envDefault:"account_confirmation.html"`
	ResetPassword       string `env:"RESET_PASSWORD"       envDefault:"password_reset.html"`
	AppURL              string `env:"APP_URL"              envDefault:"http://localhost:8080"`
}

// TokenConfig holds login token settings.
type TokenConfig struct {
	Issuer    string        `env:"ISSUER"     envDefault:"confide"`
	Secret    string        `env:"SECRET"`
	ExpiresIn time.Duration `env:"EXPIRES_IN" envDefault:"1h"`
}

// Load parses the configuration from environment variables and validates it.
func Load() (*ConfideConfig, error) {
	cfg, err := env.ParseAs[ConfideConfig]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *ConfideConfig) validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("missing MONGO_URI environment variable")
	}
	if c.Mongo.Database == "" {
		return fmt.Errorf("missing MONGO_DATABASE environment variable")
	}
	if c.Auth.Table == "" {
		return fmt.Errorf("missing AUTH_TABLE environment variable")
	}
	if c.Auth.ReminderTable == "" {
		return fmt.Errorf("missing AUTH_REMINDER_TABLE environment variable")
	}
	if c.Auth.ReminderTTL < 0 {
		return fmt.Errorf("REMINDER_TTL must not be negative")
	}
	if c.Token.Secret == "" {
		return fmt.Errorf("missing TOKEN_SECRET environment variable")
	}
	if len(c.Auth.LoginIdentityField) == 0 {
		return fmt.Errorf("LOGIN_IDENTITY must name at least one field")
	}

	return nil
}
