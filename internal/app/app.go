// Package app wires the application together: database pool, Genkit
// embedding provider, vector store, retrieval engine, and record adapters.
//
// Setup builds the full dependency graph from a bootstrap Config; Close
// releases everything in reverse order. Commands under cmd/ only ever talk
// to the App container, never to individual providers.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brandloom/brandloom/internal/adapters"
	"github.com/brandloom/brandloom/internal/config"
	"github.com/brandloom/brandloom/internal/engine"
)

// App is the application container.
type App struct {
	// Configuration
	Config *config.Config
	Logger *slog.Logger

	// Core services
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool
	Engine   *engine.Engine
	Adapter  *adapters.Adapter

	// Lifecycle management
	otelShutdown func(context.Context) error
	dbCleanup    func()
}

// Close gracefully shuts down all resources in reverse initialization
// order. Safe to call on a partially initialized App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.otelShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(shutdownCtx); err != nil && a.Logger != nil {
			a.Logger.Warn("shutting down tracer provider", "error", err)
		}
	}

	if a.dbCleanup != nil {
		a.dbCleanup()
		if a.Logger != nil {
			a.Logger.Info("database pool closed")
		}
	}

	return nil
}
