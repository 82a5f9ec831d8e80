package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"dms-server/config"
	"dms-server/core/appbootstrap"
	"dms-server/core/utils"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", os.Getenv("DMS_CONFIG"), "path to a YAML config file")
	flag.Parse()

	// a missing .env is normal outside development
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		utils.NewLogger().Fatalf("config: %v", err)
	}
	logger := utils.NewLoggerForEnv(cfg.AppEnv)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := appbootstrap.Run(ctx, cfg, logger); err != nil {
		logger.Fatalf("server: %v", err)
	}
}
