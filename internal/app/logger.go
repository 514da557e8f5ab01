// Package app holds process-level wiring: the structured logger and
// the background sweeper that completes elapsed reservations.
package app

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger appropriate for the environment.
// Production gets JSON output; everything else gets a colored console
// encoder for readability during development.
func NewLogger(env string) *zap.Logger {
	var config zap.Config

	if env == "prod" || env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.OutputPaths = []string{"stdout"}

	logger, err := config.Build()
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}

	return logger
}
