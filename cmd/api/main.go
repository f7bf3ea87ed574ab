package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/config"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/http/router"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/processor"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/storage"
)

func main() {
	// .env is for local dev; prod uses real env vars.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DBDSN == "" {
		log.Fatal("DB_DSN environment variable is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	var client processor.Client
	if cfg.ProcessorAPIKey != "" {
		client = processor.NewRESTClient(cfg.ProcessorAPIBase, cfg.ProcessorAPIKey)
	} else {
		logger.Warn("PROCESSOR_API_KEY unset, using in-memory mock processor")
		client = processor.NewMock()
	}

	store, err := storage.FromEnv(context.Background())
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	logger.Info("storage ready", "driver", store.Driver)

	r := router.New(router.Deps{
		Cfg:       &cfg,
		DB:        db,
		Logger:    logger,
		Processor: client,
		Store:     store.Store,
	})

	logger.Info("listening", "addr", cfg.AppAddr, "processor", client.Name())
	if err := r.Run(cfg.AppAddr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
