package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig enables a rotated log file alongside stdout.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New creates a zap logger tuned for the given environment.
func New(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// NewNamed creates a logger for env and tags every entry with the service name.
func NewNamed(env, service string) (*zap.Logger, error) {
	log, err := New(env)
	if err != nil {
		return nil, err
	}
	return log.Named(service).With(zap.String("service", service)), nil
}

// NewWithFile creates a named logger that also writes JSON entries to a rotated file.
// An empty path behaves exactly like NewNamed.
func NewWithFile(env, service string, file FileConfig) (*zap.Logger, error) {
	if file.Path == "" {
		return NewNamed(env, service)
	}

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	consoleEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	if env == "development" {
		level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	rotator := &lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    file.MaxSizeMB,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAgeDays,
		Compress:   true,
	}

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(rotator), level),
	)

	return zap.New(core, zap.AddCaller()).Named(service).With(zap.String("service", service)), nil
}
