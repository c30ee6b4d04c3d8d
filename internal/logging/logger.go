// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the process-wide slog logger from CLI settings.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseLevel maps debug, info, warn and error onto slog levels. An empty
// string means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q: use debug, info, warn, or error", s)
	}
}

// New returns a logger writing to w. Source locations are attached at debug
// level only.
func New(w io.Writer, level slog.Level, format Format) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}
	var h slog.Handler
	if format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// Setup parses level and format, installs the logger as slog's default and
// returns it.
func Setup(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	f := Format(strings.ToLower(format))
	if f != "" && f != FormatText && f != FormatJSON {
		return nil, fmt.Errorf("unknown log format %q: use text or json", format)
	}
	logger := New(w, lvl, f)
	slog.SetDefault(logger)
	return logger, nil
}
