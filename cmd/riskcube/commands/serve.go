package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oskarlind/riskcube/internal/api"
	"github.com/oskarlind/riskcube/internal/api/handlers"
	"github.com/oskarlind/riskcube/internal/data/repos"
	"github.com/oskarlind/riskcube/pkg/config"
	"github.com/oskarlind/riskcube/pkg/database"
	"github.com/oskarlind/riskcube/pkg/logger"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the results API server",
	Long: `Serves stored simulation runs over HTTP. Requires a database with
persisted runs.

Endpoints:
  GET  /healthz
  GET  /api/v1/runs
  GET  /api/v1/runs/{id}
  GET  /api/v1/runs/{id}/xva
  GET  /api/v1/runs/{id}/exposure/{nettingSet}

Example:
  go run ./cmd/riskcube serve
  go run ./cmd/riskcube serve --port 8089`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "override the configured API port")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	if !cfg.Database.Enabled {
		return fmt.Errorf("the API server requires DATABASE_ENABLED=true")
	}
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	log.Info("Connected to database")

	repo := repos.NewXVARepository(db.Pool)
	runHandler := handlers.NewRunHandler(repo, log)
	router := api.NewRouter(runHandler, log)
	server := api.New(cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
