package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

func (c LogConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("config: log.level %q: %w", c.Level, err)
	}
	return lvl, nil
}

// NewLogger 依設定建立 slog.Logger
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	lvl, err := c.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(c.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("config: unknown log.format %q", c.Format)
	}
}
