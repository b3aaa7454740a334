package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"

	"github.com/mmeshcher/linkvault/internal/shortcode"
)

const (
	defaultServerAddress   = "localhost:8080"
	defaultBaseURL         = "http://localhost:8080"
	defaultSecretKey       = "dev-secret-key-change-in-production"
	defaultScrapeTimeout   = 5 * time.Second
	defaultMaxCodeAttempts = 10
	defaultStoreTimeout    = 5 * time.Second
	defaultRedirectRPS     = 20
	defaultRedirectBurst   = 40
)

type Config struct {
	ServerAddress   string        `env:"SERVER_ADDRESS"`
	BaseURL         string        `env:"BASE_URL"`
	DatabaseDSN     string        `env:"DATABASE_DSN"`
	SecretKey       string        `env:"SECRET_KEY"`
	ScrapeTimeout   time.Duration `env:"SCRAPE_TIMEOUT"`
	ShortCodeLength int           `env:"SHORT_CODE_LENGTH"`
	MaxCodeAttempts int           `env:"MAX_CODE_ATTEMPTS"`
	StoreTimeout    time.Duration `env:"STORE_TIMEOUT"`
	RedirectRPS     float64       `env:"REDIRECT_RPS"`
	RedirectBurst   int           `env:"REDIRECT_BURST"`
}

// ParseFlags reads the environment and the command line. A non-empty
// environment variable wins over its flag; defaults fill whatever is left.
func ParseFlags() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	envCfg := *cfg

	flag.StringVar(&cfg.ServerAddress, "a", defaultServerAddress, "Address of the server")
	flag.StringVar(&cfg.BaseURL, "b", defaultBaseURL, "Base URL for short links")
	flag.StringVar(&cfg.DatabaseDSN, "d", "", "PostgreSQL connection string")
	flag.StringVar(&cfg.SecretKey, "s", defaultSecretKey, "Key used to sign identity cookies")
	flag.DurationVar(&cfg.ScrapeTimeout, "t", defaultScrapeTimeout, "Timeout for fetching page titles")

	flag.Parse()

	if envCfg.ServerAddress != "" {
		cfg.ServerAddress = envCfg.ServerAddress
	}
	if envCfg.BaseURL != "" {
		cfg.BaseURL = envCfg.BaseURL
	}
	if envCfg.DatabaseDSN != "" {
		cfg.DatabaseDSN = envCfg.DatabaseDSN
	}
	if envCfg.SecretKey != "" {
		cfg.SecretKey = envCfg.SecretKey
	}
	if envCfg.ScrapeTimeout != 0 {
		cfg.ScrapeTimeout = envCfg.ScrapeTimeout
	}

	cfg.applyDefaultValues()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}
	if c.ShortCodeLength < shortcode.MinLength || c.ShortCodeLength > shortcode.MaxLength {
		return fmt.Errorf("short code length must be between %d and %d, got %d",
			shortcode.MinLength, shortcode.MaxLength, c.ShortCodeLength)
	}
	if c.MaxCodeAttempts < 1 {
		return fmt.Errorf("max code attempts must be positive, got %d", c.MaxCodeAttempts)
	}
	if c.ScrapeTimeout < 0 || c.StoreTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	if c.RedirectRPS < 0 || c.RedirectBurst < 0 {
		return fmt.Errorf("redirect rate limit cannot be negative")
	}
	return nil
}

func (c *Config) applyDefaultValues() {
	if c.ServerAddress == "" {
		c.ServerAddress = defaultServerAddress
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.SecretKey == "" {
		c.SecretKey = defaultSecretKey
	}
	if c.ScrapeTimeout == 0 {
		c.ScrapeTimeout = defaultScrapeTimeout
	}
	if c.ShortCodeLength == 0 {
		c.ShortCodeLength = shortcode.DefaultLength
	}
	if c.MaxCodeAttempts == 0 {
		c.MaxCodeAttempts = defaultMaxCodeAttempts
	}
	if c.StoreTimeout == 0 {
		c.StoreTimeout = defaultStoreTimeout
	}
	if c.RedirectRPS == 0 {
		c.RedirectRPS = defaultRedirectRPS
	}
	if c.RedirectBurst == 0 {
		c.RedirectBurst = defaultRedirectBurst
	}
}
