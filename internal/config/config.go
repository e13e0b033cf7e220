// Package config loads the server configuration from the environment.
//
// Values come from real environment variables; in development a .env file in
// the working directory is loaded first, so `cp .env.example .env` is all the
// setup a checkout needs. Variables already set in the environment win over
// the file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds every setting of the server.
type Config struct {
	Port    int    `env:"PORT" envDefault:"8080"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	DBPath  string `env:"DB_PATH" envDefault:"data/foodgram.db"`

	JWTSecret string        `env:"JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"720h"`

	PageSize int `env:"PAGE_SIZE" envDefault:"6"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	RateLimitDisabled bool          `env:"RATE_LIMIT_DISABLED"`

	Storage Storage
	GitHub  GitHub
}

// Storage selects and configures the image store.
type Storage struct {
	Driver    string `env:"STORAGE_DRIVER" envDefault:"local"`
	MediaRoot string `env:"MEDIA_ROOT" envDefault:"data/media"`
	// MediaURL is the public prefix of local files; empty means BASE_URL + "/media".
	MediaURL string `env:"MEDIA_URL"`

	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Bucket          string `env:"S3_BUCKET" envDefault:"foodgram"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3UseSSL          bool   `env:"S3_USE_SSL"`
	S3PublicURL       string `env:"S3_PUBLIC_URL"`
}

// GitHub holds the optional OAuth App credentials.
type GitHub struct {
	ClientID     string `env:"GITHUB_CLIENT_ID"`
	ClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	CallbackURL  string `env:"GITHUB_CALLBACK_URL"`
}

// Enabled reports whether GitHub login is configured.
func (g GitHub) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Load reads .env (when present) and the environment, fills derived defaults
// and validates the result.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("config: loading .env: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Storage.MediaURL == "" {
		cfg.Storage.MediaURL = cfg.BaseURL + "/media"
	}
	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = cfg.BaseURL + "/api/auth/github/callback"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field rules that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BASE_URL must be an absolute URL, got %q", c.BaseURL))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		errs = append(errs, fmt.Errorf("PAGE_SIZE must be between 1 and 100, got %d", c.PageSize))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if !c.RateLimitDisabled && (c.RateLimitRequests < 1 || c.RateLimitWindow <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive"))
	}

	switch c.Storage.Driver {
	case StorageLocal:
		if c.Storage.MediaRoot == "" {
			errs = append(errs, errors.New("MEDIA_ROOT is required for the local storage driver"))
		}
	case StorageS3:
		if c.Storage.S3Bucket == "" || c.Storage.S3Region == "" {
			errs = append(errs, errors.New("S3_BUCKET and S3_REGION are required for the s3 storage driver"))
		}
		if (c.Storage.S3AccessKeyID == "") != (c.Storage.S3SecretAccessKey == "") {
			errs = append(errs, errors.New("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be local or s3, got %q", c.Storage.Driver))
	}

	if (c.GitHub.ClientID == "") != (c.GitHub.ClientSecret == "") {
		errs = append(errs, errors.New("GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET must be set together"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
