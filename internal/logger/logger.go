package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chappie1998/jetson/internal/config"
)

func New(cfg config.LogConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Development,
		Encoding:          cfg.Encoding,
		DisableCaller:     cfg.DisableCaller,
		DisableStacktrace: cfg.DisableStacktrace,
		Sampling:          nil,
		EncoderConfig:     encoderConfig(cfg.Encoding),
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}

	if cfg.Sampling {
		zc.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
	}

	return zc.Build()
}

func encoderConfig(encoding string) zapcore.EncoderConfig {
	if encoding == "console" {
		return zap.NewDevelopmentEncoderConfig()
	}
	ec := zap.NewProductionEncoderConfig()
	// Operators read these timestamps next to event rows; keep them
	// human-comparable instead of epoch floats.
	ec.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	return ec
}
