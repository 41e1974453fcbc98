package main

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/favorly/backend/internal/config"
	"github.com/favorly/backend/internal/db"
	"github.com/favorly/backend/internal/model"
	"github.com/favorly/backend/internal/server"
)

var (
	gitSHA    = "dev"
	buildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	conn, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	if err := conn.AutoMigrate(
		&model.Favor{},
		&model.ChatRoom{},
		&model.ChatMessage{},
		&model.PushSubscription{},
		&model.PushEndpoint{},
	); err != nil {
		logger.Fatal("auto migrate failed", zap.Error(err))
	}

	srv := server.New(conn, cfg, logger, gitSHA, buildTime)

	addr := ":" + cfg.Port
	logger.Info("starting server", zap.String("addr", addr))
	if err := srv.Start(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
