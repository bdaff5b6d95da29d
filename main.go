package main

import (
	"log"
	"os"

	"github.com/avstrong/bookingdesk/internal/app"
	"github.com/avstrong/bookingdesk/internal/config"
	"github.com/avstrong/bookingdesk/internal/logger"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l := logger.New(logger.Conf{Out: os.Stdout, Level: cfg.Log.Level, JSON: cfg.Log.JSON})

	var exitCode int

	if err := app.Run(l, cfg); err != nil {
		l.LogErrorf("Failed to run app: %v", err.Error())

		exitCode = 1
	}

	os.Exit(exitCode)
}
