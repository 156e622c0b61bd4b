package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/godilite/booth-feedback/internal/app"
	"github.com/godilite/booth-feedback/internal/config"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kiosk := app.NewKiosk(cfg, logger, os.Stdout)
	if err := kiosk.Run(ctx, os.Stdin); err != nil {
		logger.Fatal("Kiosk exited with error", zap.Error(err))
	}
}
