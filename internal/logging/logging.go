// Package logging builds the zerolog logger used by the rpcschema command.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel   = "RPCSCHEMA_LOG_LEVEL"
	EnvLogConsole = "RPCSCHEMA_LOG_CONSOLE"
	EnvLogNoColor = "RPCSCHEMA_LOG_NOCOLOR"
)

// Config selects the level and the output shape of the logger.
type Config struct {
	Level   zerolog.Level
	Console bool // human readable output instead of JSON lines
	NoColor bool
}

// DefaultConfig logs info and above as console text.
func DefaultConfig() Config {
	return Config{Level: zerolog.InfoLevel, Console: true}
}

// ApplyEnv overrides cfg with the RPCSCHEMA_LOG_* environment variables.
// Unset or unparsable values are ignored.
func ApplyEnv(cfg *Config) {
	applyEnv(cfg, os.Getenv)
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if lvl, ok := ParseLevel(getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(getenv(EnvLogConsole)); ok {
		cfg.Console = v
	}
	if v, ok := parseBool(getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

// New returns a logger writing to out.
func New(out io.Writer, cfg Config) zerolog.Logger {
	w := out
	if cfg.Console {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: cfg.NoColor}
	}
	return zerolog.New(w).Level(cfg.Level).With().Timestamp().Str("app", "rpcschema").Logger()
}

// ParseLevel accepts the usual level names plus a few aliases for disabled.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
