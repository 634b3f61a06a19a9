package bootstrap

import (
	"arb_engine/internal/core"
	"arb_engine/pkg/logging"
)

// InitLogger builds the zap logger from configuration and installs it as
// the package-level default
func InitLogger(cfg *Config) (core.ILogger, error) {
	logger, err := logging.NewZapLogger(cfg.System.LogLevel)
	if err != nil {
		return nil, err
	}

	logging.SetGlobalLogger(logger)
	return logger, nil
}
