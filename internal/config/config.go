// Package config handles server configuration from environment variables
// and command-line flags.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// Config holds the configuration for the isdb server.
type Config struct {
	DataDir     string // directory for table data files (default "data")
	CatalogPath string // path to the SQLite catalog file (default "<DataDir>/catalog.sqlite")
	ListenAddr  string // HTTP listen address (default ":8080")
	LogLevel    string // log level: debug, info, warn, error (default "info")

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins (default: ["*"])

	// AuthSecret is an HS256 shared secret for bearer-token auth.
	// Empty disables authentication.
	AuthSecret string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadFromEnv loads configuration from environment variables, applying
// defaults for anything unset.
func LoadFromEnv() *Config {
	cfg := &Config{
		DataDir:     os.Getenv("DATA_DIR"),
		CatalogPath: os.Getenv("CATALOG_PATH"),
		ListenAddr:  os.Getenv("LISTEN_ADDR"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		AuthSecret:  os.Getenv("AUTH_SECRET"),
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	cfg.applyDefaults()
	return cfg
}

// BindFlags registers command-line flags that override the loaded values.
// Flag precedence over environment comes from binding directly into the
// already-populated struct fields.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "directory for table data files")
	fs.StringVar(&c.CatalogPath, "catalog", c.CatalogPath, "path to the SQLite catalog file")
	fs.StringVar(&c.ListenAddr, "listen-addr", c.ListenAddr, "HTTP listen address")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
	fs.Float64Var(&c.RateLimitRPS, "rate-limit-rps", c.RateLimitRPS, "sustained requests per second per client")
	fs.IntVar(&c.RateLimitBurst, "rate-limit-burst", c.RateLimitBurst, "rate limit burst capacity per client")
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.CatalogPath == "" {
		c.CatalogPath = c.DataDir + "/catalog.sqlite"
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RateLimitRPS <= 0 {
		c.RateLimitRPS = 100
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 200
	}
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = []string{"*"}
	}
}
