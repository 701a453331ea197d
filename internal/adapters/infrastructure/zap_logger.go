package infrastructure

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"weatherdash.app/internal/ports"
)

// ZapLoggerAdapter implements the Logger port using zap's JSON encoder
type ZapLoggerAdapter struct {
	logger *zap.Logger
}

// NewZapLoggerAdapter writes JSON entries at or above level to writers, or stdout when none are given
func NewZapLoggerAdapter(level zapcore.Level, writers ...io.Writer) *ZapLoggerAdapter {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)

	var syncers []zapcore.WriteSyncer
	if len(writers) == 0 {
		syncers = append(syncers, zapcore.AddSync(os.Stdout))
	}
	for _, w := range writers {
		syncers = append(syncers, zapcore.AddSync(w))
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(cfg),
		zapcore.NewMultiWriteSyncer(syncers...),
		level,
	)

	return &ZapLoggerAdapter{logger: zap.New(core)}
}

func (l *ZapLoggerAdapter) Debug(msg string, fields ...ports.Field) {
	l.logger.Debug(msg, zapFields(fields)...)
}

func (l *ZapLoggerAdapter) Info(msg string, fields ...ports.Field) {
	l.logger.Info(msg, zapFields(fields)...)
}

func (l *ZapLoggerAdapter) Warn(msg string, fields ...ports.Field) {
	l.logger.Warn(msg, zapFields(fields)...)
}

func (l *ZapLoggerAdapter) Error(msg string, fields ...ports.Field) {
	l.logger.Error(msg, zapFields(fields)...)
}

// Sync flushes buffered entries
func (l *ZapLoggerAdapter) Sync() error {
	return l.logger.Sync()
}

func zapFields(fields []ports.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.String(f.Key, err.Error()))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
