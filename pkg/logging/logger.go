package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// IsDevelopment reports whether env selects the development logger.
func IsDevelopment(env string) bool {
	switch env {
	case "local", "dev", "development":
		return true
	}
	return false
}

// NewLogger builds the process logger for the given environment.
// Development environments get a console logger at DEBUG, everything else
// gets JSON at INFO.
func NewLogger(env string) (*zap.Logger, error) {
	if IsDevelopment(env) {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	}

	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
