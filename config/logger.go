package config

import (
	"log"
	"os"

	"go.uber.org/zap"
)

var Log *zap.SugaredLogger

// InitLogger must run before any service is constructed. Production mode
// (APP_ENV=production) emits JSON; everything else gets the console encoder.
func InitLogger() {
	var (
		logger *zap.Logger
		err    error
	)
	if os.Getenv("APP_ENV") == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	Log = logger.Sugar()
}
