package main

import (
	"log/slog"
	"os"

	"go-stay-portal/internal/app"
	"go-stay-portal/internal/logger"
)

func main() {
	// Colored output until the configured logger takes over
	slog.SetDefault(slog.New(logger.NewPrettyHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	application, err := app.New()
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
