package logger_test

import (
	"errors"

	"github.com/oskarlind/riskcube/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	log := logger.New(logger.Options{
		Level:  "info",
		Format: "console",
	})

	// Basic logging
	log.Debug("This won't appear (level is info)")
	log.Info("Application started")
	log.Warn("Low disk space")
	log.Error("Failed to connect")

	// Formatted logging
	log.Infof("Loaded %d trades", 42)
	log.Warnf("Sample %d of %d is slow", 3, 1000)
}

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	log := logger.New(logger.Options{
		Level:  "info",
		Format: "json",
	})

	// Add single field
	runLog := log.WithField("run_id", "8f14e45f")
	runLog.Info("Simulation started")

	// Add multiple fields
	tradeLog := log.WithFields(map[string]interface{}{
		"trade_id":    "SWAP-001",
		"netting_set": "NS-BANK-A",
		"npv":         72300.5,
	})
	tradeLog.Info("Trade valued")
}

// Example_withError demonstrates error logging
func Example_withError() {
	log := logger.New(logger.Options{
		Level:  "error",
		Format: "json",
	})

	// Log with error
	err := errors.New("database connection timeout")
	log.WithError(err).Error("Failed to persist run")

	// Combine error with fields
	log.WithError(err).
		WithFields(map[string]interface{}{
			"sample": 17,
			"date":   "2026-08-25",
		}).
		Error("Valuation failed")
}
