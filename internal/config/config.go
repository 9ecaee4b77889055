package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	defaultPort                   = "8080"
	defaultFrontendURL            = "http://localhost:3000"
	defaultAccessTokenExpireHours = 24
	defaultStripeHTTPTimeout      = 30 * time.Second
)

var (
	ErrMissingDBConnection  = errors.New("no DB_CONNECTION_STRING Provided")
	ErrMissingJWTSecret     = errors.New("no JWT_SECRET Provided")
	ErrMissingStripeSecret  = errors.New("no STRIPE_SECRET_KEY Provided")
	ErrInvalidExpireHours   = errors.New("ACCESS_TOKEN_EXPIRE_HOURS must be a positive integer")
	ErrInvalidStripeTimeout = errors.New("STRIPE_HTTP_TIMEOUT must be a positive duration")
)

type Config struct {
	Port                 string
	DBConnectionString   string
	JWTSecret            string
	AccessTokenDuration  time.Duration
	StripeSecretKey      string
	StripePublishableKey string
	StripeHTTPTimeout    time.Duration
	FrontendURL          string
	LogLevel             string
	LogFormat            string
}

// Load reads the .env file when present and builds the configuration from
// the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file, continuing with system environment variables")
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds the configuration from an arbitrary lookup function.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Port:                 get("PORT", defaultPort),
		DBConnectionString:   get("DB_CONNECTION_STRING", get("DATABASE_URL", "")),
		JWTSecret:            get("JWT_SECRET", ""),
		StripeSecretKey:      get("STRIPE_SECRET_KEY", ""),
		StripePublishableKey: get("STRIPE_PUBLISHABLE_KEY", ""),
		FrontendURL:          get("FRONTEND_URL", defaultFrontendURL),
		LogLevel:             get("LOG_LEVEL", "info"),
		LogFormat:            get("LOG_FORMAT", "text"),
	}

	if cfg.DBConnectionString == "" {
		return nil, ErrMissingDBConnection
	}
	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	if cfg.StripeSecretKey == "" {
		return nil, ErrMissingStripeSecret
	}

	hours, err := strconv.Atoi(get("ACCESS_TOKEN_EXPIRE_HOURS", strconv.Itoa(defaultAccessTokenExpireHours)))
	if err != nil || hours <= 0 {
		return nil, ErrInvalidExpireHours
	}
	cfg.AccessTokenDuration = time.Duration(hours) * time.Hour

	cfg.StripeHTTPTimeout = defaultStripeHTTPTimeout
	if raw := get("STRIPE_HTTP_TIMEOUT", ""); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil || timeout <= 0 {
			return nil, ErrInvalidStripeTimeout
		}
		cfg.StripeHTTPTimeout = timeout
	}

	return cfg, nil
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the standard logrus logger.
func (c *Config) ConfigureLogging() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	log.SetLevel(level)

	switch c.LogFormat {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}
