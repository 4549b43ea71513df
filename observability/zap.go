package observability

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log level names accepted by ParseLevel.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// ZapConfig configures NewZapLogger.
type ZapConfig struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Console receives human-readable output. Nil means stderr.
	Console io.Writer
	// File, when set, additionally receives JSON lines appended to this path.
	File string
}

// ZapLogger implements Logger on top of zap.
type ZapLogger struct {
	l     *zap.Logger
	close func() error
}

var consoleEncoderConfig = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "lvl",
	NameKey:        "name",
	CallerKey:      "caller",
	MessageKey:     "message",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalLevelEncoder,
	EncodeTime:     zapcore.RFC3339TimeEncoder,
	EncodeDuration: zapcore.StringDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", LevelInfo:
		return zapcore.InfoLevel, nil
	case LevelDebug:
		return zapcore.DebugLevel, nil
	case LevelWarn, "warning":
		return zapcore.WarnLevel, nil
	case LevelError:
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// NewZapLogger builds a console logger, tee'd to a JSON log file when
// cfg.File is set.
func NewZapLogger(cfg ZapConfig) (*ZapLogger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	level := zap.NewAtomicLevelAt(lvl)

	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig), zapcore.AddSync(console), level),
	}

	closeFn := func() error { return nil }
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(f), level))
		closeFn = f.Close
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	return &ZapLogger{l: l, close: closeFn}, nil
}

// NewZap wraps an existing zap logger.
func NewZap(l *zap.Logger) *ZapLogger {
	return &ZapLogger{l: l, close: func() error { return nil }}
}

func (z *ZapLogger) Debug(msg string, fields ...Field) { z.l.Debug(msg, toZap(fields)...) }
func (z *ZapLogger) Info(msg string, fields ...Field)  { z.l.Info(msg, toZap(fields)...) }
func (z *ZapLogger) Warn(msg string, fields ...Field)  { z.l.Warn(msg, toZap(fields)...) }
func (z *ZapLogger) Error(msg string, fields ...Field) { z.l.Error(msg, toZap(fields)...) }

func (z *ZapLogger) With(fields ...Field) Logger {
	return &ZapLogger{l: z.l.With(toZap(fields)...), close: z.close}
}

// Close flushes buffered entries and closes the log file, if any.
func (z *ZapLogger) Close() error {
	_ = z.l.Sync()
	return z.close()
}

func toZap(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.(type) {
		case stringField:
			out = append(out, zap.String(v.key, v.val))
		case intField:
			out = append(out, zap.Int(v.key, v.val))
		case int64Field:
			out = append(out, zap.Int64(v.key, v.val))
		case boolField:
			out = append(out, zap.Bool(v.key, v.val))
		case durationField:
			out = append(out, zap.Duration(v.key, v.val))
		case errorField:
			out = append(out, zap.NamedError(v.key, v.err))
		default:
			out = append(out, zap.Any(f.Key(), f.Value()))
		}
	}
	return out
}
