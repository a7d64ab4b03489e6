package app

import (
	"os"

	"service-fulfillment/internal/config"
	"service-fulfillment/internal/logx"
)

var logOutput = os.Stdout

// NewLogger builds the service logger from the Log section of cfg.
func NewLogger(cfg *config.Config) (logx.Logger, error) {
	logger, err := logx.New(logOutput, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	return logger.With(logx.String("service", "service-fulfillment")), nil
}
