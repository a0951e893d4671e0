// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete server configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Import        ImportConfig        `mapstructure:"import"`
	AI            AIConfig            `mapstructure:"ai"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Profiling     ProfilingConfig     `mapstructure:"profiling"`
}

type ServerConfig struct {
	Host               string   `mapstructure:"host"`
	Port               int      `mapstructure:"port"`
	RateLimitPerSecond int      `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int      `mapstructure:"rate_limit_burst"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	// URL takes precedence over the individual fields when set.
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the pgx connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

type ImportConfig struct {
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	SweepSchedule  string        `mapstructure:"sweep_schedule"`
	// KeywordsPath overrides the embedded keyword table.
	KeywordsPath      string `mapstructure:"keywords_path"`
	PdftotextPath     string `mapstructure:"pdftotext_path"`
	ClassifierWorkers int    `mapstructure:"classifier_workers"`
}

type AIConfig struct {
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	Model           string        `mapstructure:"model"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether the AI classifier stage should run.
func (a AIConfig) Enabled() bool { return a.AnthropicAPIKey != "" }

type ObservabilityConfig struct {
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	LogLevel       string `mapstructure:"log_level"`
}

type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

var defaults = map[string]any{
	"server.host":                  "0.0.0.0",
	"server.port":                  8080,
	"server.rate_limit_per_second": 50,
	"server.rate_limit_burst":      100,
	"server.allowed_origins":       []string{"http://localhost:3000"},

	"database.url":      "",
	"database.host":     "localhost",
	"database.port":     5432,
	"database.user":     "postgres",
	"database.password": "postgres",
	"database.name":     "budget",
	"database.sslmode":  "disable",

	"auth.jwt_secret":        "",
	"auth.access_token_ttl":  time.Hour,
	"auth.refresh_token_ttl": 30 * 24 * time.Hour,

	"import.max_upload_bytes":   10 << 20,
	"import.session_ttl":        time.Hour,
	"import.sweep_schedule":     "@every 5m",
	"import.keywords_path":      "",
	"import.pdftotext_path":     "pdftotext",
	"import.classifier_workers": 8,

	"ai.anthropic_api_key": "",
	"ai.model":             "",
	"ai.timeout":           20 * time.Second,

	"observability.metrics_enabled": true,
	"observability.log_level":       "info",

	"profiling.enabled": false,
	"profiling.port":    6060,
}

// Load reads the configuration from environment variables named after the
// keys, for example AUTH_JWT_SECRET or DATABASE_URL.
func Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Conventional names used by hosting platforms and the CLI.
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("ai.anthropic_api_key", "AI_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Import.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("import.max_upload_bytes must be positive"))
	}
	if c.Import.SessionTTL <= 0 {
		errs = append(errs, errors.New("import.session_ttl must be positive"))
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("auth token lifetimes must be positive"))
	}
	return errors.Join(errs...)
}
