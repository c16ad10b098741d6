package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g. COMPLYSCAN_SERVER_ADDR.
const EnvPrefix = "COMPLYSCAN"

// DefaultConsentText is what a subject agrees to when the gate requests consent.
const DefaultConsentText = "I agree to the automated GDPR analysis of my website"

// Config is the full runtime configuration shared by the server and the CLI.
type Config struct {
	Server   Server      `mapstructure:"server"`
	Remote   Remote      `mapstructure:"remote"`
	Workflow Workflow    `mapstructure:"workflow"`
	Consent  Consent     `mapstructure:"consent"`
	Session  Session     `mapstructure:"session"`
	Redis    RedisConfig `mapstructure:"redis"`
	Database Database    `mapstructure:"database"`
	Log      Log         `mapstructure:"log"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string `mapstructure:"addr"`
}

// Remote points at the consent/audit/auth collaborator.
type Remote struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Workflow struct {
	StepTimeout time.Duration `mapstructure:"step_timeout"`
}

type Consent struct {
	Text string `mapstructure:"text"`
}

// Session configures BFF session tokens.
type Session struct {
	SigningKey string        `mapstructure:"signing_key"`
	TTL        time.Duration `mapstructure:"ttl"`
	Lockout    Lockout       `mapstructure:"lockout"`
}

// Lockout throttles repeated failed sign-ins for one email.
type Lockout struct {
	Attempts int           `mapstructure:"attempts"`
	Window   time.Duration `mapstructure:"window"`
	Duration time.Duration `mapstructure:"duration"`
}

// RedisConfig holds Redis connection settings. An empty URL keeps sessions in memory.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Database holds the event trail connection. An empty URL keeps the trail in memory.
type Database struct {
	URL string `mapstructure:"url"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.addr":           ":8080",
		"remote.base_url":       "http://localhost:5000/api",
		"remote.timeout":        10 * time.Second,
		"workflow.step_timeout": 60 * time.Second,
		"consent.text":          DefaultConsentText,
		// Use a default for development - should be overridden in production
		"session.signing_key":      "dev-secret-key-change-in-production",
		"session.ttl":              12 * time.Hour,
		"session.lockout.attempts": 5,
		"session.lockout.window":   15 * time.Minute,
		"session.lockout.duration": 15 * time.Minute,
		"redis.url":                "",
		"redis.pool_size":          10,
		"redis.min_idle_conns":     2,
		"redis.dial_timeout":       5 * time.Second,
		"redis.read_timeout":       3 * time.Second,
		"redis.write_timeout":      3 * time.Second,
		"database.url":             "",
		"log.level":                "info",
		"log.format":               "text",
	}
}

// FromEnv builds a Config from defaults and environment variables so main stays lean.
func FromEnv() (Config, error) {
	return Load("")
}

// Load reads an optional YAML file, then applies COMPLYSCAN_* environment overrides.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read configuration: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the services cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Remote.BaseURL == "" {
		errs = append(errs, errors.New("remote.base_url is required"))
	}
	if c.Remote.Timeout <= 0 {
		errs = append(errs, errors.New("remote.timeout must be positive"))
	}
	if c.Workflow.StepTimeout <= 0 {
		errs = append(errs, errors.New("workflow.step_timeout must be positive"))
	}
	if c.Session.SigningKey == "" {
		errs = append(errs, errors.New("session.signing_key is required"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if c.Session.Lockout.Attempts > 0 && (c.Session.Lockout.Window <= 0 || c.Session.Lockout.Duration <= 0) {
		errs = append(errs, errors.New("session.lockout window and duration must be positive"))
	}
	return errors.Join(errs...)
}
