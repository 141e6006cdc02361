package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

const EnvLogLevel = "DBSEED_LOG_LEVEL"

const timeFormat = "15:04:05.000"

// Options controls the process logger. An empty Level falls back to EnvLogLevel, then info.
type Options struct {
	Level   string
	NoColor bool
	// File, when set, receives a plain text copy of every record.
	File io.Writer
}

// ParseLevel maps a level name to a slog level. Unknown names report false.
func ParseLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug", "trace":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func resolveLevel(raw string) slog.Level {
	if strings.TrimSpace(raw) == "" {
		raw = os.Getenv(EnvLogLevel)
	}
	lvl, _ := ParseLevel(raw)
	return lvl
}

// New builds a tint logger on w. Colour is dropped when w is not a terminal.
func New(w io.Writer, opts Options) *slog.Logger {
	level := resolveLevel(opts.Level)

	noColor := opts.NoColor
	if f, ok := w.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		noColor = true
	}

	var handler slog.Handler = tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: timeFormat,
		NoColor:    noColor,
	})
	if opts.File != nil {
		handler = NewMultiHandler(handler, slog.NewTextHandler(opts.File, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(handler)
}

// Setup installs the logger from New as the slog default.
func Setup(w io.Writer, opts Options) *slog.Logger {
	logger := New(w, opts)
	slog.SetDefault(logger)
	return logger
}
