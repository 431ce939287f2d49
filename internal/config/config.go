package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string
	LogMode  string // dev|prod

	DBDriver string
	DBDSN    string

	BlobBasePath string

	NotifyDriver string // memory|redis
	RedisAddr    string
	RedisChannel string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	AuthHMACSecret string
	AdminUser      string
	AdminPassHash  string // bcrypt

	TraceStdout bool

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

// CORSOrigins returns the allowed origins for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

// Load reads a .env file when present, then overlays CONFIG_FILE (YAML, flat
// KEY: value) under the process environment, which always wins.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: .env: %w", err)
	}
	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &src); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	cfg := src.config()
	return cfg, cfg.Validate()
}

// FromEnv builds the config from the process environment only.
func FromEnv() Config { return source{}.config() }

// source holds file values; lookups fall back to them when the env is unset.
type source map[string]string

func (s source) config() Config {
	mode := Mode(s.envOr("MODE", string(ModeOffline)))
	return Config{
		Mode:     mode,
		HTTPAddr: s.envOr("HTTP_ADDR", ":8080"),
		LogMode:  s.envOr("LOG_MODE", "dev"),

		DBDriver:     s.envOr("DB_DRIVER", "sqlite"),
		DBDSN:        s.envOr("DB_DSN", ""),
		BlobBasePath: s.envOr("BLOB_BASE_PATH", "./data"),

		NotifyDriver: s.envOr("NOTIFY_DRIVER", "memory"),
		RedisAddr:    s.envOr("REDIS_ADDR", "localhost:6379"),
		RedisChannel: s.envOr("REDIS_CHANNEL", "rubrics:changes"),

		GeminiAPIKey:  s.envOr("GEMINI_API_KEY", ""),
		GeminiModel:   s.envOr("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL: s.envOr("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),

		AuthHMACSecret: s.envOr("AUTH_HMAC_SECRET", "dev-secret-change-me"),
		AdminUser:      s.envOr("ADMIN_USER", "admin"),
		AdminPassHash:  s.envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),

		TraceStdout: s.envBool("TRACE_STDOUT", false),

		CORSOriginsOnline:  s.csvOr("CORS_ORIGINS_ONLINE", "https://rubrics.mindengage.ai"),
		CORSOriginsOffline: s.csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5173"),
	}
}

func (c Config) Validate() error {
	var errs []error
	switch c.Mode {
	case ModeOffline, ModeOnline:
	default:
		errs = append(errs, fmt.Errorf("MODE: unknown mode %q", c.Mode))
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unknown driver %q", c.DBDriver))
	}
	switch c.NotifyDriver {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR: required for the redis notifier"))
		}
	default:
		errs = append(errs, fmt.Errorf("NOTIFY_DRIVER: unknown driver %q", c.NotifyDriver))
	}
	if c.Mode == ModeOnline && c.AuthHMACSecret == "dev-secret-change-me" {
		errs = append(errs, errors.New("AUTH_HMAC_SECRET: must be set in online mode"))
	}
	return errors.Join(errs...)
}

func (s source) lookup(k string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return s[k]
}

func (s source) envOr(k, def string) string {
	v := s.lookup(k)
	if v == "" {
		return def
	}
	return v
}

func (s source) envBool(k string, def bool) bool {
	switch s.lookup(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func (s source) csvOr(k, def string) []string {
	v := s.envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
