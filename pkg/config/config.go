package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full primeslot configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Auth       AuthConfig       `yaml:"auth"`
	Meetings   MeetingsConfig   `yaml:"meetings"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Addr                 string        `yaml:"addr"`
	RequestTimeout       time.Duration `yaml:"requestTimeout"`
	CORSOrigin           string        `yaml:"corsOrigin"`
	ExposeInternalErrors bool          `yaml:"exposeInternalErrors"`
	LoginRatePerSecond   float64       `yaml:"loginRatePerSecond"`
	LoginBurst           int           `yaml:"loginBurst"`
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool `yaml:"trustProxyHeaders"`
}

type StorageConfig struct {
	DataDir     string        `yaml:"dataDir"`
	OpenTimeout time.Duration `yaml:"openTimeout"`
}

type AuthConfig struct {
	JWTSecret      string        `yaml:"jwtSecret"`
	MemberCookie   string        `yaml:"memberCookie"`
	AdminCookie    string        `yaml:"adminCookie"`
	SessionTTL     time.Duration `yaml:"sessionTTL"`
	MemberTokenTTL time.Duration `yaml:"memberTokenTTL"`
	// Disabled resolves every request to TestIdentity. Tests only.
	Disabled     bool   `yaml:"disabled"`
	TestIdentity string `yaml:"testIdentity"`
}

type MeetingsConfig struct {
	RequireExistingMembership bool `yaml:"requireExistingMembership"`
	RejectOverlaps            bool `yaml:"rejectOverlaps"`
	DefaultDurationMin        int  `yaml:"defaultDurationMin"`
}

type ReconcilerConfig struct {
	// Interval of zero disables the background loop.
	Interval time.Duration `yaml:"interval"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:               ":8080",
			RequestTimeout:     15 * time.Second,
			CORSOrigin:         "*",
			LoginRatePerSecond: 1,
			LoginBurst:         5,
		},
		Storage: StorageConfig{
			DataDir:     "./data",
			OpenTimeout: 5 * time.Second,
		},
		Auth: AuthConfig{
			MemberCookie:   "session",
			AdminCookie:    "admin_session",
			SessionTTL:     5 * 24 * time.Hour,
			MemberTokenTTL: 30 * 24 * time.Hour,
			TestIdentity:   "test-admin",
		},
		Meetings: MeetingsConfig{
			RejectOverlaps:     true,
			DefaultDurationMin: 30,
		},
		Reconciler: ReconcilerConfig{
			Interval: 10 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, an
// optional .env file and PRIMESLOT_* environment variables, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with
func (c Config) Validate() error {
	if c.Storage.DataDir == "" {
		return errors.New("storage.dataDir is required")
	}
	if !c.Auth.Disabled && len(c.Auth.JWTSecret) < 16 {
		return errors.New("auth.jwtSecret must be at least 16 characters")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server.requestTimeout must be positive")
	}
	if c.Meetings.DefaultDurationMin <= 0 {
		return errors.New("meetings.defaultDurationMin must be positive")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("auth.sessionTTL must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var err error
	setString(&cfg.Server.Addr, "PRIMESLOT_ADDR")
	setString(&cfg.Server.CORSOrigin, "PRIMESLOT_CORS_ORIGIN")
	setString(&cfg.Storage.DataDir, "PRIMESLOT_DATA_DIR")
	setString(&cfg.Auth.JWTSecret, "PRIMESLOT_JWT_SECRET")
	setString(&cfg.Auth.TestIdentity, "PRIMESLOT_TEST_IDENTITY")
	setString(&cfg.Log.Level, "PRIMESLOT_LOG_LEVEL")

	for _, b := range []struct {
		dst *bool
		key string
	}{
		{&cfg.Server.ExposeInternalErrors, "PRIMESLOT_EXPOSE_INTERNAL_ERRORS"},
		{&cfg.Server.TrustProxyHeaders, "PRIMESLOT_TRUST_PROXY_HEADERS"},
		{&cfg.Auth.Disabled, "PRIMESLOT_DISABLE_AUTH"},
		{&cfg.Meetings.RequireExistingMembership, "PRIMESLOT_REQUIRE_EXISTING_MEMBERSHIP"},
		{&cfg.Meetings.RejectOverlaps, "PRIMESLOT_REJECT_OVERLAPS"},
		{&cfg.Log.JSON, "PRIMESLOT_LOG_JSON"},
	} {
		if err = setBool(b.dst, b.key); err != nil {
			return err
		}
	}

	for _, d := range []struct {
		dst *time.Duration
		key string
	}{
		{&cfg.Server.RequestTimeout, "PRIMESLOT_REQUEST_TIMEOUT"},
		{&cfg.Auth.SessionTTL, "PRIMESLOT_SESSION_TTL"},
		{&cfg.Reconciler.Interval, "PRIMESLOT_RECONCILE_INTERVAL"},
	} {
		if err = setDuration(d.dst, d.key); err != nil {
			return err
		}
	}

	if v, ok := os.LookupEnv("PRIMESLOT_DEFAULT_DURATION_MIN"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PRIMESLOT_DEFAULT_DURATION_MIN: %w", err)
		}
		cfg.Meetings.DefaultDurationMin = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
