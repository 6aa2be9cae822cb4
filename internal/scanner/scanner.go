package scanner

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"dipbot/internal/broker"
	"dipbot/internal/cache"
	"dipbot/internal/config"
	"dipbot/internal/logger"
	"dipbot/internal/marketdata"
	"dipbot/internal/models"
	"dipbot/internal/signal"
	"dipbot/internal/state"
)

// Gate — исполнение ордера с подтверждением; реализуется движком.
type Gate interface {
	Place(ctx context.Context, req broker.OrderRequest, prompt string) models.OrderOutcome
}

// Scanner ищет одну бумагу для покупки по 3-дневному моментуму в
// пересечении широкого рыночного кеша с составом индекса. Порядок обхода —
// порядок перечисления рыночного кеша; побеждает первый подходящий
// кандидат, чья заявка принята брокером.
type Scanner struct {
	client broker.Client
	data   *marketdata.Gateway
	store  *state.Store
	gate   Gate
	cfg    config.ScannerConfig
	strat  config.StrategyConfig
	log    *logger.Logger
}

func New(client broker.Client, data *marketdata.Gateway, store *state.Store, gate Gate, cfg config.ScannerConfig, strat config.StrategyConfig, log *logger.Logger) *Scanner {
	return &Scanner{
		client: client,
		data:   data,
		store:  store,
		gate:   gate,
		cfg:    cfg,
		strat:  strat,
		log:    log,
	}
}

// BuyOne возвращает true, если ровно одна покупка принята брокером.
// Отказ брокера, неотправка или сбой API — переход к следующему кандидату.
func (s *Scanner) BuyOne(ctx context.Context, accountID string) bool {
	market := cache.Load(s.cfg.MarketCachePath)
	index := cache.TickerSet(cache.Load(s.cfg.IndexCachePath))

	if len(market) == 0 || len(index) == 0 {
		s.logEntry().WithFields(map[string]interface{}{
			"market": len(market),
			"index":  len(index),
		}).Info("Кеши пусты, сканирование моментума пропущено.")
		return false
	}

	cooldown := time.Duration(s.cfg.PendingCooldownMin) * time.Minute
	lotsPerOrder := s.strat.LotsPerOrder
	if lotsPerOrder <= 0 {
		lotsPerOrder = 1
	}

	seen := map[string]bool{}
	for _, entry := range market {
		ticker := entry.Symbol()
		if seen[ticker] || !index[ticker] {
			continue
		}
		seen[ticker] = true

		if s.store.ActedToday(state.ActionBuy, ticker) {
			continue
		}

		candidate, ok := s.qualify(ctx, ticker, entry)
		if !ok {
			continue
		}

		cost := candidate.Price * float64(candidate.Lot) * float64(lotsPerOrder)
		if s.strat.MaxLotRub > 0 && cost > s.strat.MaxLotRub {
			s.logEntry().WithField("ticker", ticker).WithField("cost", cost).Debug("Заявка дороже потолка, пропуск.")
			continue
		}

		if s.store.PendingActive(ticker, cooldown) {
			s.logEntry().WithField("ticker", ticker).Info("Активен cooldown висящего ордера, пропуск.")
			continue
		}

		outcome := s.gate.Place(ctx, broker.OrderRequest{
			AccountID: accountID,
			Figi:      candidate.Figi,
			Quantity:  candidate.Lot * lotsPerOrder,
			Price:     candidate.Price,
			Direction: broker.DirectionBuy,
		}, "BUY по моментуму "+ticker)

		s.store.SyncPendingOrder(ticker, outcome)

		if outcome.Accepted() {
			s.store.MarkAction(state.ActionBuy, ticker)
			s.logEntry().WithField("ticker", ticker).WithField("order_id", outcome.OrderID).Info("Покупка по моментуму принята.")
			return true
		}

		s.logEntry().WithField("ticker", ticker).WithFields(map[string]interface{}{
			"category":      string(outcome.Category),
			"reject_reason": outcome.RejectReason,
			"error_code":    outcome.ErrorCode,
		}).Warn("Покупка не прошла, переходим к следующему кандидату.")
	}

	return false
}

// qualify проверяет кандидата: figi (из кеша или через поиск), четыре
// дневных закрытия со строгим ростом, живая цена. Любой сбой — пропуск.
func (s *Scanner) qualify(ctx context.Context, ticker string, entry cache.Entry) (models.Candidate, bool) {
	figi := entry.Figi
	lot := entry.Lot
	if figi == "" {
		inst, err := s.client.FindInstrument(ctx, ticker)
		if err != nil {
			s.logEntry().WithField("ticker", ticker).WithError(err).Debug("Figi не разрешился, пропуск.")
			return models.Candidate{}, false
		}
		figi = inst.Figi
		if lot <= 0 {
			lot = inst.Lot
		}
	}
	if lot <= 0 {
		lot = 1
	}

	closes := s.data.RecentDailyCloses(ctx, figi, 8)
	if !signal.MomentumUp(closes) {
		return models.Candidate{}, false
	}

	price, ok := s.data.LastPrice(ctx, figi)
	if !ok {
		if entry.Price > 0 {
			price = entry.Price
		} else {
			s.logEntry().WithField("ticker", ticker).Debug("Нет цены, пропуск.")
			return models.Candidate{}, false
		}
	}

	return models.Candidate{
		Ticker:      ticker,
		Figi:        figi,
		Lot:         lot,
		Price:       price,
		PricePerLot: price * float64(lot),
	}, true
}

func (s *Scanner) logEntry() *logrus.Entry {
	return s.log.WithComponent("scanner")
}
