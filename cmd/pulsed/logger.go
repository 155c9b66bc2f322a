package main

import (
	"fmt"

	"go.uber.org/zap"
)

// newZapLogger builds a production zap logger at the given level.
func newZapLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Sampling = nil

	return cfg.Build()
}
