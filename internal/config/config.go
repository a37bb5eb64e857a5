package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           int           `envconfig:"PORT" default:"8080"`
	JWTSecret      string        `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	AllowedOrigins string        `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	PublicBaseURL  string        `envconfig:"PUBLIC_BASE_URL"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"4h"`
	QRSize         int           `envconfig:"QR_SIZE" default:"256"`
	MaxSessions    int           `envconfig:"MAX_SESSIONS" default:"500"`
	SessionIdleTTL time.Duration `envconfig:"SESSION_IDLE_TTL" default:"2h"`
}

// Load reads an optional .env file from the working directory, then the
// environment. Variables already set win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Origins returns the allowed websocket origins.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// SlogLevel parses LogLevel, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
