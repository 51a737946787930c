package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide structured logger. Initialized in main; falls back
// to a no-op logger so library code and tests never nil-check it.
var Log = zap.NewNop()

// SetupLogger builds the shared zap logger and installs it as Log.
func SetupLogger(env string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(
		zap.Fields(
			zap.String("service", "lcc-bot"),
			zap.String("env", env),
		),
	)
	if err != nil {
		return nil, err
	}
	Log = l
	return l, nil
}
