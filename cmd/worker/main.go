package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/stackcity/stackcity/internal/adapter/ai"
	"github.com/stackcity/stackcity/internal/adapter/store"
	"github.com/stackcity/stackcity/internal/adapter/vcs"
	"github.com/stackcity/stackcity/internal/service"
	"github.com/stackcity/stackcity/internal/worker"
	"github.com/stackcity/stackcity/pkg/config"

	_ "github.com/lib/pq"
)

func main() {
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	cfg := config.Load()

	slog.Info("starting analysis worker",
		"app", cfg.AppName,
		"poll_interval", cfg.PollInterval,
		"classifier_model", cfg.ClassifierModel,
	)

	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	if err := pgStore.Migrate(context.Background()); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	gitVCS := vcs.NewGitProvider(cfg.GitToken)
	classifier := ai.NewOpenAIClassifier(ai.ClassifierConfig{
		BaseURL: cfg.ClassifierBaseURL,
		APIKey:  cfg.ClassifierAPIKey,
		Model:   cfg.ClassifierModel,
		Timeout: cfg.ClassifierTimeout,
	})

	analyzer := service.NewAnalyzerService(pgStore, gitVCS, classifier, cfg.WorkDir, cfg.CloneTimeout)
	poller := worker.New(pgStore, analyzer, cfg.PollInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller.Run(ctx)
}
