// Package logging builds the process logger from config and command-line
// verbosity.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// LevelTrace sits below debug. It is what -vv selects.
const LevelTrace = slog.Level(-8)

// levelOff disables logging altogether.
const levelOff = slog.Level(1 << 10)

// Options describes logger construction parameters.
type Options struct {
	// Level is the configured level name: trace, debug, info, warn, error
	// or off.
	Level string
	// Format is text, json or auto.
	Format string
	// Verbosity shifts the level: each step up is one -v, each step down
	// one -q. Non-zero verbosity overrides Level.
	Verbosity int
	// Writer defaults to stderr.
	Writer io.Writer
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Verbosity != 0 {
		level = VerbosityLevel(opts.Verbosity)
	}
	if level >= levelOff {
		return slog.New(slog.DiscardHandler), nil
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelName,
	}

	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "auto", "":
		if isTerminal(w) {
			return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
		}
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "off":
		return levelOff, nil
	default:
		return 0, fmt.Errorf("log level: unsupported value %q", level)
	}
}

// VerbosityLevel maps the net count of -v (positive) and -q (negative)
// flags to a level: info at zero, then debug and trace above it, warn,
// error and off below.
func VerbosityLevel(v int) slog.Level {
	switch {
	case v >= 2:
		return LevelTrace
	case v == 1:
		return slog.LevelDebug
	case v == 0:
		return slog.LevelInfo
	case v == -1:
		return slog.LevelWarn
	case v == -2:
		return slog.LevelError
	default:
		return levelOff
	}
}

func replaceLevelName(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if level, ok := a.Value.Any().(slog.Level); ok && level <= LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
