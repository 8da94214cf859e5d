// Package logger builds the process slog.Logger: tint text output for terminals and
// development, JSON in production.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// Options controls the handler.
type Options struct {
	Level string
	// JSON selects the JSON handler; otherwise tint is used.
	JSON   bool
	Writer io.Writer
}

// ParseLevel maps a level name to slog.Level; unknown names are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// New returns a logger for opts. It does not touch slog.Default.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	level := ParseLevel(opts.Level)

	if opts.JSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			AddSource:   level == slog.LevelDebug,
			ReplaceAttr: redact,
		}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    !isTerminal(w),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" && a.Value.Kind() == slog.KindAny {
				if err, ok := a.Value.Any().(error); ok {
					return tint.Err(err)
				}
			}
			return redact(groups, a)
		},
	}))
}

// ForEnv picks JSON for production and tint otherwise, and installs the result as slog.Default.
func ForEnv(env, level string) *slog.Logger {
	l := New(Options{Level: level, JSON: strings.EqualFold(env, "production")})
	slog.SetDefault(l)
	return l
}

var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"refresh_token": {},
	"access_token":  {},
	"authorization": {},
}

// redact blanks attribute values whose key names a credential.
func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}
