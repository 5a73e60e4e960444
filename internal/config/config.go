// Package config loads the server configuration from an optional .env file,
// an optional YAML file and environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Server modes.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

const defaultConfigPath = "config.yaml"

// Config is the root configuration document.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Contact   ContactConfig   `yaml:"contact"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port           string        `yaml:"port"`
	Mode           string        `yaml:"mode"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	// MaxUploadBytes caps multipart upload bodies.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	// TrustedProxies lists proxy IPs or CIDRs whose forwarding headers are
	// believed. Empty means the peer address is the client address.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// DatabaseConfig holds the content database DSN.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// StorageConfig configures Supabase Storage.
type StorageConfig struct {
	URL        string `yaml:"url"`
	ServiceKey string `yaml:"service_key"`
	Bucket     string `yaml:"bucket"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	APIKey      string        `yaml:"api_key"`
	ClientID    string        `yaml:"client_id"`
	APIHostname string        `yaml:"api_hostname"`
	Issuer      string        `yaml:"issuer"`
	AdminEmails []string      `yaml:"admin_emails"`
	JWKSTTL     time.Duration `yaml:"jwks_ttl"`
}

// RateLimitConfig configures the contact form limiter.
type RateLimitConfig struct {
	RedisURL string        `yaml:"redis_url"`
	Limit    int           `yaml:"limit"`
	Window   time.Duration `yaml:"window"`
}

// ContactConfig controls how long contact submissions are kept. Zero days
// keeps them forever.
type ContactConfig struct {
	RetentionDays int           `yaml:"retention_days"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// LogConfig configures logrus output.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           "4000",
			Mode:           ModeDevelopment,
			RequestTimeout: 15 * time.Second,
			MaxUploadBytes: 10 << 20,
		},
		Storage: StorageConfig{Bucket: "portfolio"},
		Auth: AuthConfig{
			APIHostname: "api.workos.com",
			JWKSTTL:     12 * time.Hour,
		},
		RateLimit: RateLimitConfig{Limit: 5, Window: 15 * time.Minute},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// ResolveConfigPath returns the YAML path to read.
func ResolveConfigPath(path string) string {
	if p := strings.TrimSpace(path); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv("CONFIG_PATH")); p != "" {
		return p
	}
	return defaultConfigPath
}

// Load reads .env (if present), the YAML file at path (if present) and then
// applies environment overrides.
func Load(path string) (Config, error) {
	if errEnv := godotenv.Load(); errEnv != nil && !errors.Is(errEnv, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", errEnv)
	}

	cfg := Default()
	path = ResolveConfigPath(path)
	data, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errYAML := yaml.Unmarshal(data, &cfg); errYAML != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, errYAML)
		}
	case errors.Is(errRead, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	if errEnv := applyEnv(&cfg, os.LookupEnv); errEnv != nil {
		return Config{}, errEnv
	}
	cfg.normalize()
	if errProxies := validateProxies(cfg.Server.TrustedProxies); errProxies != nil {
		return Config{}, errProxies
	}
	return cfg, nil
}

func validateProxies(proxies []string) error {
	for _, p := range proxies {
		if strings.Contains(p, "/") {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("config: trusted proxy %q: %w", p, err)
			}
			continue
		}
		if net.ParseIP(p) == nil {
			return fmt.Errorf("config: trusted proxy %q: invalid ip", p)
		}
	}
	return nil
}

// applyEnv overrides cfg with any variables lookup finds.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = SplitList(v)
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("PORT", &cfg.Server.Port)
	str("APP_ENV", &cfg.Server.Mode)
	list("CORS_ORIGINS", &cfg.Server.CORSOrigins)
	list("TRUSTED_PROXIES", &cfg.Server.TrustedProxies)
	str("DATABASE_URL", &cfg.Database.DSN)
	str("SUPABASE_URL", &cfg.Storage.URL)
	str("SUPABASE_SERVICE_ROLE_KEY", &cfg.Storage.ServiceKey)
	str("STORAGE_BUCKET", &cfg.Storage.Bucket)
	str("WORKOS_API_KEY", &cfg.Auth.APIKey)
	str("WORKOS_CLIENT_ID", &cfg.Auth.ClientID)
	str("WORKOS_API_HOSTNAME", &cfg.Auth.APIHostname)
	str("JWT_ISSUER", &cfg.Auth.Issuer)
	list("ADMIN_EMAILS", &cfg.Auth.AdminEmails)
	str("REDIS_URL", &cfg.RateLimit.RedisURL)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FILE", &cfg.Log.File)

	if v, ok := lookup("CONTACT_RETENTION_DAYS"); ok && strings.TrimSpace(v) != "" {
		days, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: CONTACT_RETENTION_DAYS: %w", err)
		}
		cfg.Contact.RetentionDays = days
	}
	if err := dur("REQUEST_TIMEOUT", &cfg.Server.RequestTimeout); err != nil {
		return err
	}
	return dur("JWKS_TTL", &cfg.Auth.JWKSTTL)
}

// parseDuration accepts Go durations and bare seconds.
func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func (c *Config) normalize() {
	c.Server.Mode = strings.ToLower(strings.TrimSpace(c.Server.Mode))
	if c.Server.Mode == "" {
		c.Server.Mode = ModeDevelopment
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 15 * time.Second
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = 10 << 20
	}
	if c.RateLimit.Limit <= 0 {
		c.RateLimit.Limit = 5
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = 15 * time.Minute
	}
	c.Storage.URL = strings.TrimRight(strings.TrimSpace(c.Storage.URL), "/")
}

// Production reports whether upstream error details must be hidden.
func (c Config) Production() bool {
	return c.Server.Mode == ModeProduction
}

// AuthBaseURL is the identity provider API root, used for JWKS and user lookups.
func (c Config) AuthBaseURL() string {
	host := strings.TrimRight(strings.TrimSpace(c.Auth.APIHostname), "/")
	if host == "" {
		return ""
	}
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "https://" + host
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
