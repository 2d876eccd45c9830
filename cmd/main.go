package main

import (
	"log"

	"github.com/joho/godotenv"

	"ServicerFeed/internal/cli"
	"ServicerFeed/internal/logger"
)

func main() {
	// Load .env for local dev; ignored when absent.
	_ = godotenv.Load()

	svc := logger.NewLoggerService(logger.Config{MaxFileMB: 50, RetentionDays: 14})
	if err := svc.Start(); err != nil {
		log.Printf("file logging disabled: %v", err)
	} else {
		logger.SetGlobalLogger(svc)
		defer svc.Stop()
	}

	cli.Execute()
}
