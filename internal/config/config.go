// Package config loads portal settings from defaults, an optional YAML file
// and FITRIT_* environment variables, in that order of precedence.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is the complete portal configuration.
type Config struct {
	Addr string `yaml:"addr"`
	// Env is "development" or "production".
	Env string `yaml:"env"`

	Storage  StorageConfig  `yaml:"storage"`
	ClubFlow ClubFlowConfig `yaml:"clubflow"`
	Session  SessionConfig  `yaml:"session"`
	Security SecurityConfig `yaml:"security"`
	Google   GoogleConfig   `yaml:"google"`
	Email    EmailConfig    `yaml:"email"`
	OTLP     OTLPConfig     `yaml:"otlp"`
}

type StorageConfig struct {
	// Backend is "sqlite" or "redis".
	Backend  string `yaml:"backend"`
	DBPath   string `yaml:"db_path"`
	RedisURL string `yaml:"redis_url"`
}

type ClubFlowConfig struct {
	// BaseURL of the ClubFlow API. Empty runs the in-process stand-in.
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	HydrationTimeout  time.Duration `yaml:"hydration_timeout"`
	SuspenseThreshold time.Duration `yaml:"suspense_threshold"`
	IdleTTL           time.Duration `yaml:"idle_ttl"`
}

type SecurityConfig struct {
	// CSRFKey is 32 bytes hex-encoded. Generated per process in development.
	CSRFKey        string   `yaml:"csrf_key"`
	TrustedOrigins []string `yaml:"trusted_origins"`
	LoginRateLimit int      `yaml:"login_rate_limit"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RedirectURL != ""
}

type EmailConfig struct {
	ResendKey   string `yaml:"resend_key"`
	From        string `yaml:"from"`
	StudioInbox string `yaml:"studio_inbox"`
}

type OTLPConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// Default returns the development configuration.
func Default() Config {
	return Config{
		Addr: ":8080",
		Env:  "development",
		Storage: StorageConfig{
			Backend: BackendSQLite,
			DBPath:  "fitrit.db",
		},
		ClubFlow: ClubFlowConfig{Timeout: 10 * time.Second},
		Session: SessionConfig{
			HydrationTimeout:  3 * time.Second,
			SuspenseThreshold: 150 * time.Millisecond,
			IdleTTL:           30 * time.Minute,
		},
		Security: SecurityConfig{LoginRateLimit: 10},
		Email: EmailConfig{
			From:        "FitRit <hello@fitrit.example>",
			StudioInbox: "studio@fitrit.example",
		},
	}
}

// IsProduction reports whether the portal runs in production mode.
func (c Config) IsProduction() bool { return c.Env == "production" }

// Load builds the configuration. The YAML file named by FITRIT_CONFIG, if any,
// overrides defaults; environment variables override both.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()
	if path := getenv("FITRIT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(c *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("FITRIT_ADDR", &c.Addr)
	str("FITRIT_ENV", &c.Env)
	str("FITRIT_STORAGE", &c.Storage.Backend)
	str("FITRIT_DB_PATH", &c.Storage.DBPath)
	str("FITRIT_REDIS_URL", &c.Storage.RedisURL)
	str("FITRIT_CLUBFLOW_URL", &c.ClubFlow.BaseURL)
	str("FITRIT_CSRF_KEY", &c.Security.CSRFKey)
	str("FITRIT_GOOGLE_CLIENT_ID", &c.Google.ClientID)
	str("FITRIT_GOOGLE_CLIENT_SECRET", &c.Google.ClientSecret)
	str("FITRIT_GOOGLE_REDIRECT_URL", &c.Google.RedirectURL)
	str("FITRIT_RESEND_KEY", &c.Email.ResendKey)
	str("FITRIT_RESEND_FROM", &c.Email.From)
	str("FITRIT_STUDIO_INBOX", &c.Email.StudioInbox)
	str("FITRIT_OTLP_ENDPOINT", &c.OTLP.Endpoint)

	if v := getenv("FITRIT_TRUSTED_ORIGINS"); v != "" {
		c.Security.TrustedOrigins = strings.Split(v, ",")
	}
	if v := getenv("FITRIT_OTLP_INSECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FITRIT_OTLP_INSECURE: %w", err)
		}
		c.OTLP.Insecure = b
	}
	if v := getenv("FITRIT_LOGIN_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FITRIT_LOGIN_RATE_LIMIT: %w", err)
		}
		c.Security.LoginRateLimit = n
	}

	for key, dst := range map[string]*time.Duration{
		"FITRIT_CLUBFLOW_TIMEOUT":   &c.ClubFlow.Timeout,
		"FITRIT_HYDRATION_TIMEOUT":  &c.Session.HydrationTimeout,
		"FITRIT_SUSPENSE_THRESHOLD": &c.Session.SuspenseThreshold,
		"FITRIT_VIEWER_IDLE_TTL":    &c.Session.IdleTTL,
	} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the configuration for contradictions.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.Env != "development" && c.Env != "production" {
		errs = append(errs, fmt.Errorf("env must be development or production, got %q", c.Env))
	}
	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.DBPath == "" {
			errs = append(errs, errors.New("storage.db_path is required for sqlite"))
		}
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			errs = append(errs, errors.New("storage.redis_url is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be sqlite or redis, got %q", c.Storage.Backend))
	}
	if c.ClubFlow.BaseURL != "" {
		u, err := url.Parse(c.ClubFlow.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("clubflow.base_url must be an absolute http(s) URL"))
		}
	} else if c.IsProduction() {
		errs = append(errs, errors.New("clubflow.base_url is required in production"))
	}
	if c.Session.HydrationTimeout <= 0 {
		errs = append(errs, errors.New("session.hydration_timeout must be positive"))
	}
	if c.Session.SuspenseThreshold < 0 {
		errs = append(errs, errors.New("session.suspense_threshold cannot be negative"))
	}
	if c.Security.CSRFKey != "" {
		if key, err := hex.DecodeString(c.Security.CSRFKey); err != nil || len(key) != 32 {
			errs = append(errs, errors.New("security.csrf_key must be 32 bytes hex-encoded"))
		}
	} else if c.IsProduction() {
		errs = append(errs, errors.New("security.csrf_key is required in production"))
	}
	if c.Security.LoginRateLimit <= 0 {
		errs = append(errs, errors.New("security.login_rate_limit must be positive"))
	}
	return errors.Join(errs...)
}
