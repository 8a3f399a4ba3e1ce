package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/andresuchdata/checkstock/internal/app"
	"github.com/andresuchdata/checkstock/internal/config"
	"github.com/andresuchdata/checkstock/internal/drive"
	"github.com/andresuchdata/checkstock/pkg/logger"
)

// Serves the Google Drive listing and ingest endpoints.
func main() {
	cfg := config.Load()
	logger.SetFormat(cfg.Log.Format)
	logger.SetLevel(cfg.Log.Level)

	ctx := context.Background()

	// Initialize Google Drive service
	driveService, err := drive.NewServiceFromFile(ctx, cfg.Drive.CredentialsFile)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
	}

	// Initialize ledger
	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	ingestService := drive.NewIngestService(driveService, application.Service)

	// Register routes
	r := mux.NewRouter()
	driveHandler := drive.NewHandler(driveService, ingestService, cfg.Drive.FolderID)
	driveHandler.RegisterRoutes(r)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Log.Info().Str("addr", addr).Msg("Drive server starting")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Log.Fatal().Err(err).Msg("Drive server stopped")
	}
}
