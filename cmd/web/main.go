package main

import (
	"context"
	"log/slog"
	"os"

	"rcnpulse/internal/app"
	apierrors "rcnpulse/internal/errors"
)

func main() {
	application, err := app.NewApplication(context.Background())
	if err != nil {
		msg := "Failed to initialize application"
		if apierrors.IsFatal(err) {
			msg = "Ledger unavailable, cannot start"
		}
		slog.Error(msg, slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
