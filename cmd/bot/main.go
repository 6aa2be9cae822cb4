package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"dipbot/internal/broker/tinkoff"
	"dipbot/internal/config"
	"dipbot/internal/confirm"
	"dipbot/internal/engine"
	"dipbot/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Runtime.Log.Level,
		Format:     cfg.Runtime.Log.Format,
		Output:     cfg.Runtime.Log.File,
		MaxSize:    cfg.Runtime.Log.MaxSize,
		MaxBackups: cfg.Runtime.Log.MaxBackups,
		MaxAge:     cfg.Runtime.Log.MaxAge,
		Compress:   cfg.Runtime.Log.Compress,
	})

	log.Info("Запуск стратегии.")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := tinkoff.New(cfg.Broker.BaseUrl, cfg.Broker.Token, log)
	confirmer := confirm.NewTelegram(
		cfg.Telegram.BotToken,
		cfg.Telegram.ChatID,
		time.Duration(cfg.Telegram.ConfirmTimeoutSec)*time.Second,
		log,
	)

	eng := engine.New(cfg, client, confirmer, log)
	if err := eng.Run(ctx); err != nil {
		log.WithError(err).Fatal("Запуск завершился с ошибкой.")
	}

	log.Info("Запуск завершён.")
}
