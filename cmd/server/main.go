package main

import (
	"log/slog"
	"os"

	"github.com/ehaomiao/slim/internal/app"
)

func main() {
	application, err := app.NewApplication(nil,
		app.WithTaxonomy(taxonomy),
		app.WithInitializer(registerHandlers),
		app.WithRoutes(registerRoutes),
	)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
