package infrastructure

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
	"weatherdash.app/internal/config"
	"weatherdash.app/internal/ports"
	"weatherdash.app/pkg/errors"
)

// NewLogger builds the application logger selected by LOG_BACKEND.
// The returned func flushes the backend on shutdown.
func NewLogger(cfg config.LoggingConfig, out io.Writer) (ports.Logger, func() error, error) {
	if out == nil {
		out = os.Stdout
	}

	switch strings.ToLower(cfg.Backend) {
	case "", "slog":
		level, err := slogLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
		return NewSlogLoggerAdapter(slog.New(handler)), func() error { return nil }, nil
	case "zap":
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, nil, errors.NewConfigurationError(fmt.Sprintf("invalid log level %q", cfg.Level), err)
		}
		zl := NewZapLoggerAdapter(level, out)
		flush := zl.Sync
		if out == os.Stdout || out == os.Stderr {
			// fsync on a pipe or terminal reports EINVAL
			flush = func() error {
				_ = zl.Sync()
				return nil
			}
		}
		return zl, flush, nil
	default:
		return nil, nil, errors.NewConfigurationError(fmt.Sprintf("unsupported log backend: %s", cfg.Backend), nil)
	}
}

func slogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, errors.NewConfigurationError(fmt.Sprintf("invalid log level %q", level), err)
	}
	return l, nil
}
