package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"dipbot/internal/broker/tinkoff"
	"dipbot/internal/cache"
	"dipbot/internal/config"
	"dipbot/internal/logger"
	"dipbot/internal/moex"
)

// Обновлялка кешей: широкий список акций брокера и состав индекса MOEX.
// Запускается отдельно от торгового тика, у кешей собственный TTL.
func main() {
	force := flag.Bool("force", false, "обновить кеши независимо от TTL")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Runtime.Log.Level,
		Format: cfg.Runtime.Log.Format,
		Output: cfg.Runtime.Log.File,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := tinkoff.New(cfg.Broker.BaseUrl, cfg.Broker.Token, log)

	refresher := cache.NewRefresher(client, log, cfg.Scanner.MarketCachePath, cfg.Scanner.CacheTTLDays, cfg.Scanner.MaxLotRub)
	if err := refresher.Refresh(ctx, *force); err != nil {
		log.WithError(err).Error("Не удалось обновить рыночный кеш.")
	}

	iss := moex.New(log)
	tickers, err := iss.IndexConstituents(ctx, cfg.Scanner.Index)
	if err != nil {
		log.WithError(err).Error("Не удалось получить состав индекса.")
		return
	}
	if err := cache.WriteIndexCache(cfg.Scanner.IndexCachePath, cfg.Scanner.Index, tickers); err != nil {
		log.WithError(err).Error("Не удалось записать индексный кеш.")
		return
	}
	log.WithFields(map[string]interface{}{
		"index":   cfg.Scanner.Index,
		"tickers": len(tickers),
	}).Info("Индексный кеш обновлён.")
}
