package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	config, err := loadConfig()
	if err != nil {
		// Loggers are not up yet; initialize with defaults so the
		// diagnostic still lands on stderr.
		initLoggers("INFO")
		ErrorLogger.Fatalf("Configuration error: %v", err)
	}

	initLoggers(config.LogLevel)

	InfoLogger.Printf("Starting %s", config.BotName)
	InfoLogger.Printf("Max file size: %d MB, workers: %d, admins configured: %d",
		config.MaxFileSize, config.Workers, len(config.AdminUserIDs))

	db, err := initDB(config.DatabaseURL)
	if err != nil {
		ErrorLogger.Fatalf("Error initializing database: %v", err)
	}

	store := NewStore(db, RealClock{})

	b, err := NewBot(store, config, RealClock{}, nil)
	if err != nil {
		ErrorLogger.Fatalf("Error creating bot: %v", err)
	}

	tgClient, err := initTelegramBot(config.BotToken, config.Workers, b.handleUpdate)
	if err != nil {
		ErrorLogger.Fatalf("Error initializing Telegram client: %v", err)
	}
	b.tgBot = tgClient

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	InfoLogger.Println("Bot started, waiting for updates")
	b.Start(ctx)

	InfoLogger.Println("Bot stopped. Exiting application.")
}
