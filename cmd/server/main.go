package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/diplomacy/internal/ai"
	"github.com/playperu/diplomacy/internal/config"
	"github.com/playperu/diplomacy/internal/database"
	"github.com/playperu/diplomacy/internal/diplomacy"
	"github.com/playperu/diplomacy/internal/engine"
	"github.com/playperu/diplomacy/internal/events"
	"github.com/playperu/diplomacy/internal/llm"
	"github.com/playperu/diplomacy/internal/migrations"
	"github.com/playperu/diplomacy/internal/server"
	"github.com/playperu/diplomacy/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	if !database.IsMemory(cfg.DBPath) {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if _, err := migrations.Run(ctx, db, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	// --- Game engine ---
	client := llm.NewClient(cfg.AI.AnthropicKey, cfg.AI.AnthropicModel, logger)
	logger.Info("ai players ready", "civilizations", cfg.AI.Civilizations, "llm", client.Enabled())

	rng := diplomacy.GlobalRand{}
	st := store.NewSQLiteStore(db)
	eng := engine.New(st, events.NewBroker(), ai.NewPlayer(rng, cfg.AI.ProposalChance, client, logger), rng, logger, engine.Settings{
		NumberOfRounds:    cfg.Game.NumberOfRounds,
		ProposalsPerRound: cfg.Game.ProposalsPerRound,
		StartingMight:     cfg.Game.StartingMight,
		StartingEconomy:   cfg.Game.StartingEconomy,
		AICivilizations:   cfg.AI.Civilizations,
	})

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Engine:     eng,
		Store:      st,
		DB:         db,
		SessionTTL: cfg.SessionTTL,
		WebDir:     cfg.WebDir,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
