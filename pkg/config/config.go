// Package config reads the command-line defaults of luppolo from the
// environment. Flags given on the command line override these values.
//
//	LUPPOLO_OPTIMIZE    optimize before threading (bool)
//	LUPPOLO_TRACE       log every executed instruction (bool)
//	LUPPOLO_ENTRY       entry function (default Main)
//	LUPPOLO_MAX_DEPTH   maximum call depth (default 10000)
//	LUPPOLO_CACHE_SIZE  compiled program cache capacity (default 256)
//	LUPPOLO_LOG_LEVEL   debug, info, warn or error (default info)
//	LUPPOLO_HISTORY     REPL history file (default ~/.luppolo_history)
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xyproto/env/v2"
)

// Defaults.
const (
	DefaultEntry     = "Main"
	DefaultMaxDepth  = 10000
	DefaultCacheSize = 256
	historyFile      = ".luppolo_history"
)

// Config holds the resolved settings.
type Config struct {
	Optimize  bool
	Trace     bool
	Entry     string
	MaxDepth  int
	CacheSize int
	LogLevel  slog.Level
	History   string
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		Optimize:  env.Bool("LUPPOLO_OPTIMIZE"),
		Trace:     env.Bool("LUPPOLO_TRACE"),
		Entry:     env.Str("LUPPOLO_ENTRY", DefaultEntry),
		MaxDepth:  env.Int("LUPPOLO_MAX_DEPTH", DefaultMaxDepth),
		CacheSize: env.Int("LUPPOLO_CACHE_SIZE", DefaultCacheSize),
		History:   env.Str("LUPPOLO_HISTORY", defaultHistory()),
	}

	level, err := ParseLevel(env.Str("LUPPOLO_LOG_LEVEL", "info"))
	if err != nil {
		return cfg, err
	}
	cfg.LogLevel = level

	if cfg.Entry == "" {
		return cfg, fmt.Errorf("config: LUPPOLO_ENTRY must not be empty")
	}
	if cfg.MaxDepth <= 0 {
		return cfg, fmt.Errorf("config: LUPPOLO_MAX_DEPTH must be positive, got %d", cfg.MaxDepth)
	}
	if cfg.CacheSize <= 0 {
		return cfg, fmt.Errorf("config: LUPPOLO_CACHE_SIZE must be positive, got %d", cfg.CacheSize)
	}
	return cfg, nil
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: invalid log level %q", s)
	}
	return level, nil
}

// Logger builds a text logger on w at the configured level. Tracing needs
// debug records, so it lowers the level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level := c.LogLevel
	if c.Trace && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func defaultHistory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFile)
}
