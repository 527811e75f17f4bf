package logger

import (
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "order-service"

var (
	log atomic.Pointer[zap.Logger]

	fallbackOnce sync.Once
	fallback     *zap.Logger
)

// Init initializes zap logger depending on the environment.
func Init(env string) {
	log.Store(build(env))
}

func build(env string) *zap.Logger {
	var cfg zap.Config

	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "json"
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.MessageKey = "message"
		cfg.EncoderConfig.LevelKey = "level"
		cfg.EncoderConfig.CallerKey = "caller"
		cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.OutputPaths = []string{"stdout"}
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := cfg.Build(
		zap.AddCaller(),
		zap.Fields(zap.String("service", serviceName)),
	)
	if err != nil {
		panic(err)
	}
	return l
}

// L returns the global logger. Before Init it returns a logger built once
// from APP_ENV.
func L() *zap.Logger {
	if l := log.Load(); l != nil {
		return l
	}
	fallbackOnce.Do(func() {
		fallback = build(os.Getenv("APP_ENV"))
	})
	return fallback
}

// Replace swaps the global logger and returns a func restoring the previous one.
func Replace(l *zap.Logger) func() {
	prev := log.Swap(l)
	return func() { log.Store(prev) }
}

// Sync flushes logs.
func Sync() {
	if l := log.Load(); l != nil {
		_ = l.Sync()
	}
}
