package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xaenox/linkminder/internal/bot"
	"github.com/xaenox/linkminder/internal/classifier"
	"github.com/xaenox/linkminder/internal/reminder"
	"github.com/xaenox/linkminder/internal/storage"
	"github.com/xaenox/linkminder/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	switch cfg.Storage.Backend {
	case "memory":
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	case "postgres":
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Storage.Postgres.Host,
			Port:     cfg.Storage.Postgres.Port,
			User:     cfg.Storage.Postgres.User,
			Password: cfg.Storage.Postgres.Password,
			DBName:   cfg.Storage.Postgres.DBName,
			SSLMode:  cfg.Storage.Postgres.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	default:
		logger.Info("Using file storage", zap.String("data_dir", cfg.Storage.DataDir))
		store, err = storage.NewFileStorage(cfg.Storage.DataDir, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize classifier
	var clf classifier.Classifier
	if cfg.Classifier.UseGPT && cfg.OpenAI.APIKey != "" {
		clf = classifier.NewGPTClassifier(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.Model,
			cfg.OpenAI.MaxTokens,
			cfg.OpenAI.Temperature,
			cfg.Classifier.MaxTags,
			logger,
		)
	} else {
		logger.Info("Using keyword classifier")
		clf = classifier.NewKeywordClassifier(cfg.Classifier.MaxTags)
	}

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, store, clf, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// Initialize reminder scheduler; the bot is its message channel.
	scheduler := reminder.New(store, b, logger, reminder.Config{
		ImmediateInterval: cfg.Reminders.ImmediateInterval,
		ImmediateDelay:    cfg.Reminders.ImmediateDelay,
		OverdueInterval:   cfg.Reminders.OverdueInterval,
		MiddayAt:          cfg.Reminders.MiddayAt,
		EveningAt:         cfg.Reminders.EveningAt,
		SummaryAt:         cfg.Reminders.SummaryAt,
		SummaryWeekday:    time.Monday,
	})
	b.AttachScheduler(scheduler)

	scheduler.Start()
	defer scheduler.Stop()

	// Stop the scheduler cleanly on SIGINT/SIGTERM.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("Shutting down")
		scheduler.Stop()
		store.Close()
		os.Exit(0)
	}()

	// Start the bot
	if err := b.Start(); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}
