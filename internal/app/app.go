// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// the operational modes:
//
//   - Bot mode: Telegram bot that ingests group messages and serves
//     operator commands (/analyze, /status, /report, /cancel)
//   - Worker mode: Background sweeper that analyzes channels whose
//     unprocessed backlog crossed the configured threshold
//
// Each mode can be run independently or combined based on deployment needs.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lueurxax/lead-scout-bot/internal/bot"
	"github.com/lueurxax/lead-scout-bot/internal/config"
	"github.com/lueurxax/lead-scout-bot/internal/llm"
	"github.com/lueurxax/lead-scout-bot/internal/observability"
	"github.com/lueurxax/lead-scout-bot/internal/scout"
	"github.com/lueurxax/lead-scout-bot/internal/storage"
	"github.com/lueurxax/lead-scout-bot/internal/worker"
)

const errBotInit = "bot initialization failed: %w"

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg      *config.Config
	database *storage.DB
	logger   *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *storage.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunBot runs the bot mode.
func (a *App) RunBot(ctx context.Context) error {
	a.logger.Info().Msg("Starting bot mode")

	b, err := bot.New(a.cfg, a.database, a.newScout(), a.logger)
	if err != nil {
		return fmt.Errorf(errBotInit, err)
	}

	if err := b.Run(ctx); err != nil {
		return fmt.Errorf("bot run: %w", err)
	}

	return nil
}

// RunWorker runs the worker mode: a periodic sweep that picks up channels
// with enough unanalyzed messages and runs the scoring pipeline over them.
func (a *App) RunWorker(ctx context.Context) error {
	a.logger.Info().Msg("Starting worker mode")

	sc := a.newScout()

	return worker.Loop(ctx, worker.Config{
		Name:         "backlog-sweep",
		PollInterval: a.cfg.WorkerPollInterval,
		Process:      sc.SweepBacklog,
		Logger:       a.logger,
	})
}

func (a *App) newScout() *scout.Scout {
	llmClient := llm.New(a.cfg, a.logger)

	return scout.New(a.cfg, a.database, llmClient, a.logger)
}
