package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"portpulse/internal/buildinfo"
	"portpulse/internal/config"
)

const appName = "portpulse"

// New returns the process logger: colourised text in dev, JSON otherwise.
func New(cfg config.Config) *slog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

func NewWithWriter(cfg config.Config, w io.Writer) *slog.Logger {
	if cfg.IsDev() {
		h := tint.NewHandler(w, &tint.Options{
			Level:      cfg.SlogLevel(),
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})
	return slog.New(h).With(
		"app", appName,
		"version", buildinfo.Version,
		"env", cfg.AppEnv,
	)
}
