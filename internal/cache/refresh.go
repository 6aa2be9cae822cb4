package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"dipbot/internal/broker"
	"dipbot/internal/logger"
)

// Refresher обновляет широкий рыночный кеш: полный список акций брокера
// с ценами пачками, отфильтрованный по стоимости лота. Работает вне
// торгового запуска, у кеша собственный TTL.
type Refresher struct {
	client         broker.Client
	log            *logger.Logger
	path           string
	ttl            time.Duration
	maxPricePerLot float64
	batchSize      int
}

func NewRefresher(client broker.Client, log *logger.Logger, path string, ttlDays int, maxPricePerLot float64) *Refresher {
	return &Refresher{
		client:         client,
		log:            log,
		path:           path,
		ttl:            time.Duration(ttlDays) * 24 * time.Hour,
		maxPricePerLot: maxPricePerLot,
		batchSize:      200,
	}
}

// Refresh перезаписывает кеш, если он старше TTL (или force).
func (r *Refresher) Refresh(ctx context.Context, force bool) error {
	if !force {
		if info, err := os.Stat(r.path); err == nil && time.Since(info.ModTime()) < r.ttl {
			r.log.WithComponent("cache").Debug("Рыночный кеш ещё свежий, обновление пропущено.")
			return nil
		}
	}

	shares, err := r.client.Shares(ctx)
	if err != nil {
		return err
	}
	if len(shares) == 0 {
		r.log.WithComponent("cache").Warn("Брокер вернул пустой список акций, кеш не перезаписан.")
		return nil
	}

	prices := map[string]float64{}
	figis := make([]string, 0, len(shares))
	for _, ins := range shares {
		figis = append(figis, ins.Figi)
	}
	for start := 0; start < len(figis); start += r.batchSize {
		end := start + r.batchSize
		if end > len(figis) {
			end = len(figis)
		}
		batch, err := r.client.LastPrices(ctx, figis[start:end])
		if err != nil {
			r.log.WithComponent("cache").WithError(err).Warn("Не удалось получить пачку последних цен.")
			continue
		}
		for figi, price := range batch {
			prices[figi] = price
		}
	}

	entries := make([]Entry, 0, len(shares))
	for _, ins := range shares {
		price, ok := prices[ins.Figi]
		if !ok || price <= 0 {
			continue
		}
		pricePerLot := price * float64(ins.Lot)
		if r.maxPricePerLot > 0 && pricePerLot > r.maxPricePerLot {
			continue
		}
		entries = append(entries, Entry{
			Ticker:      ins.Ticker,
			Figi:        ins.Figi,
			Lot:         ins.Lot,
			Price:       price,
			PricePerLot: pricePerLot,
		})
	}

	doc := Document{
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339),
		Instruments: entries,
	}
	if err := writeDocument(r.path, doc); err != nil {
		return err
	}

	r.log.WithComponent("cache").WithFields(map[string]interface{}{
		"instruments": len(entries),
		"path":        r.path,
	}).Info("Рыночный кеш обновлён.")
	return nil
}

func writeDocument(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// WriteIndexCache сохраняет состав индекса в форме, которую читает сканер.
func WriteIndexCache(path, index string, tickers []string) error {
	entries := make([]Entry, 0, len(tickers))
	for _, t := range tickers {
		entries = append(entries, Entry{SecID: t})
	}
	return writeDocument(path, Document{
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339),
		Index:       index,
		Instruments: entries,
	})
}
