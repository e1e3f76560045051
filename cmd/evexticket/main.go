package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/essodond/Evexticket/docs"
	"github.com/essodond/Evexticket/internal/app"
	"github.com/essodond/Evexticket/internal/config"
)

// @title Evexticket API
// @version 1.0
// @description Intercity bus trip inventory and seat booking.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	application, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		logger.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}
