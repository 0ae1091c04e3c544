package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/laurent357/Sniping-bot/internal/bot"
	"github.com/laurent357/Sniping-bot/internal/config"
	"github.com/laurent357/Sniping-bot/internal/logger"
)

func main() {
	configPath := "configs/config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	} else if env := os.Getenv("SNIPING_BOT_CONFIG"); env != "" {
		configPath = env
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting sniping bot", zap.String("config", configPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner, err := bot.NewRunner(cfg, log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize bot", zap.Error(err))
	}

	if err := runner.Run(ctx); err != nil {
		log.Fatal("Bot execution error", zap.Error(err))
	}
}
