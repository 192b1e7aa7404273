package log

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

// Options controls how the global logger is built.
type Options struct {
	// Development switches to a human-readable console encoder.
	Development bool
	Level       Level
}

var (
	mu     sync.Mutex
	logger *zap.SugaredLogger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Configure replaces the global logger. It may be called more than once; the
// previous logger is flushed.
func Configure(opts Options) error {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	level.SetLevel(toZap(opts.Level))
	cfg.Level = level

	built, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return err
	}

	mu.Lock()
	prev := logger
	logger = built.Sugar()
	mu.Unlock()

	if prev != nil {
		_ = prev.Sync()
	}
	return nil
}

// Replace swaps the global logger for l and returns a function restoring
// the previous one.
func Replace(l *zap.Logger) (restore func()) {
	mu.Lock()
	prev := logger
	logger = l.WithOptions(zap.AddCallerSkip(2)).Sugar()
	mu.Unlock()

	return func() {
		mu.Lock()
		logger = prev
		mu.Unlock()
	}
}

// current returns the global logger, building a production logger on first
// use.
func current() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		cfg := zap.NewProductionConfig()
		cfg.Level = level
		built, err := cfg.Build(zap.AddCallerSkip(2))
		if err != nil {
			built = zap.NewNop()
		}
		logger = built.Sugar()
	}
	return logger
}

func SetLevel(l Level) {
	level.SetLevel(toZap(l))
}

// ParseLevel maps "debug", "info" and "error" (any case) to a Level.
// Unknown values map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(LevelDebug):
		return LevelDebug
	case string(LevelError):
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	logWithLevel(LevelDebug, msg, kv...)
}

func Info(msg string, kv ...any) {
	logWithLevel(LevelInfo, msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	logWithLevel(LevelError, msg, extended...)
}

// Sync flushes buffered entries. Call before exiting.
func Sync() {
	_ = current().Sync()
}

func logWithLevel(l Level, msg string, kv ...any) {
	// A trailing key without a value is dropped.
	if len(kv)%2 != 0 {
		kv = kv[:len(kv)-1]
	}

	s := current()
	switch l {
	case LevelDebug:
		s.Debugw(msg, kv...)
	case LevelError:
		s.Errorw(msg, kv...)
	default:
		s.Infow(msg, kv...)
	}
}

func toZap(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
