package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"dipbot/internal/broker"
	"dipbot/internal/config"
	"dipbot/internal/confirm"
	"dipbot/internal/logger"
	"dipbot/internal/state"
)

// engineClient — сценарный брокер для сквозных тестов движка.
type engineClient struct {
	accounts    []broker.Account
	instruments map[string]broker.Instrument
	prices      map[string]float64
	day         map[string][]float64
	todayHigh   map[string]float64
	positions   []broker.Position
	positionErr error
	postResult  broker.OrderResult
	orders      []broker.OrderRequest
}

func (c *engineClient) Accounts(context.Context) ([]broker.Account, error) {
	return c.accounts, nil
}

func (c *engineClient) ResolveTicker(_ context.Context, ticker string) (broker.Instrument, error) {
	inst, ok := c.instruments[ticker]
	if !ok {
		return broker.Instrument{}, errors.New("инструмент не найден")
	}
	return inst, nil
}

func (c *engineClient) FindInstrument(ctx context.Context, query string) (broker.Instrument, error) {
	return c.ResolveTicker(ctx, query)
}

func (c *engineClient) InstrumentByFigi(_ context.Context, figi string) (broker.Instrument, error) {
	for _, inst := range c.instruments {
		if inst.Figi == figi {
			return inst, nil
		}
	}
	return broker.Instrument{}, errors.New("figi не найден")
}

func (c *engineClient) Shares(context.Context) ([]broker.Instrument, error) { return nil, nil }

func (c *engineClient) LastPrices(_ context.Context, figis []string) (map[string]float64, error) {
	out := map[string]float64{}
	for _, figi := range figis {
		if p, ok := c.prices[figi]; ok {
			out[figi] = p
		}
	}
	return out, nil
}

func (c *engineClient) Candles(_ context.Context, figi string, _, _ time.Time, interval broker.CandleInterval) ([]broker.Candle, error) {
	if interval == broker.Interval5Min {
		if high, ok := c.todayHigh[figi]; ok {
			return []broker.Candle{{Time: time.Now().UTC(), High: high}}, nil
		}
		return nil, nil
	}
	out := make([]broker.Candle, 0, len(c.day[figi]))
	for i, closePrice := range c.day[figi] {
		out = append(out, broker.Candle{
			Time:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * 24 * time.Hour),
			Close: closePrice,
		})
	}
	return out, nil
}

func (c *engineClient) Positions(context.Context, string) ([]broker.Position, error) {
	return c.positions, c.positionErr
}

func (c *engineClient) PostOrder(_ context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	c.orders = append(c.orders, req)
	return c.postResult, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Strategy: config.StrategyConfig{
			Tickers:           []string{"SBER"},
			MaxLotRub:         2000,
			DipPct:            0.01,
			LotsPerOrder:      1,
			ForceExitMultiple: 1.30,
			IndexTicker:       "IMOEX",
		},
		Scanner: config.ScannerConfig{
			MarketCachePath:    filepath.Join(dir, "market.json"),
			IndexCachePath:     filepath.Join(dir, "index.json"),
			PendingCooldownMin: 10,
		},
		State: config.StateConfig{Path: filepath.Join(dir, "state.json")},
	}
}

func reloadStore(t *testing.T, cfg *config.Config) *state.Store {
	t.Helper()
	s := state.NewStore(cfg.State.Path, logger.New(logger.Config{Level: "error"}))
	s.Load()
	return s
}

func TestRunUptrendBuysTheDip(t *testing.T) {
	cfg := testConfig(t)
	client := &engineClient{
		accounts: []broker.Account{{ID: "acc-7"}},
		instruments: map[string]broker.Instrument{
			"IMOEX": {Ticker: "IMOEX", Figi: "F-IDX"},
			"SBER":  {Ticker: "SBER", Figi: "F-SBER", Lot: 10},
		},
		prices:     map[string]float64{"F-SBER": 99},
		day:        map[string][]float64{"F-IDX": {10, 11, 12, 13}},
		todayHigh:  map[string]float64{"F-SBER": 100},
		postResult: broker.OrderResult{OrderID: "b-1", Status: "EXECUTION_REPORT_STATUS_FILL"},
	}

	eng := New(cfg, client, confirm.Auto{}, logger.New(logger.Config{Level: "error"}))
	if err := eng.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(client.orders) != 1 {
		t.Fatalf("placed %d orders, want 1: %+v", len(client.orders), client.orders)
	}
	order := client.orders[0]
	if order.Direction != broker.DirectionBuy || order.Figi != "F-SBER" {
		t.Errorf("unexpected order: %+v", order)
	}
	if order.AccountID != "acc-7" {
		t.Errorf("account = %s, want first account from the token", order.AccountID)
	}
	if order.Quantity != 10 || order.Price != 99 {
		t.Errorf("qty/price = %d/%v, want 10/99", order.Quantity, order.Price)
	}

	store := reloadStore(t, cfg)
	if !store.ActedToday(state.ActionBuy, "SBER") {
		t.Error("accepted dip buy must be persisted in the daily ledger")
	}
}

func TestRunUptrendSkipsWithoutDip(t *testing.T) {
	cfg := testConfig(t)
	client := &engineClient{
		accounts: []broker.Account{{ID: "acc-7"}},
		instruments: map[string]broker.Instrument{
			"IMOEX": {Ticker: "IMOEX", Figi: "F-IDX"},
			"SBER":  {Ticker: "SBER", Figi: "F-SBER", Lot: 10},
		},
		prices:    map[string]float64{"F-SBER": 100},
		day:       map[string][]float64{"F-IDX": {10, 11, 12, 13}},
		todayHigh: map[string]float64{"F-SBER": 100},
	}

	eng := New(cfg, client, confirm.Auto{}, logger.New(logger.Config{Level: "error"}))
	if err := eng.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(client.orders) != 0 {
		t.Errorf("price at the daily high must not trigger a buy: %+v", client.orders)
	}
}

func TestRunDowntrendSellsAtThreshold(t *testing.T) {
	cfg := testConfig(t)
	client := &engineClient{
		accounts: []broker.Account{{ID: "acc-7"}},
		instruments: map[string]broker.Instrument{
			"IMOEX": {Ticker: "IMOEX", Figi: "F-IDX"},
			"SBER":  {Ticker: "SBER", Figi: "F-SBER", Lot: 10},
		},
		prices:     map[string]float64{"F-SBER": 110},
		day:        map[string][]float64{"F-IDX": {13, 12, 11, 10}},
		positions:  []broker.Position{{Figi: "F-SBER", Quantity: 25, AvgPrice: 100}},
		postResult: broker.OrderResult{OrderID: "b-2", Status: "EXECUTION_REPORT_STATUS_FILL"},
	}

	eng := New(cfg, client, confirm.Auto{}, logger.New(logger.Config{Level: "error"}))
	if err := eng.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Ровно одна продажа: порог x1.10 достигнут, добор позиций вне
	// вселенной не должен продублировать заявку по тому же тикеру.
	if len(client.orders) != 1 {
		t.Fatalf("placed %d orders, want 1: %+v", len(client.orders), client.orders)
	}
	order := client.orders[0]
	if order.Direction != broker.DirectionSell {
		t.Errorf("direction = %s, want sell", order.Direction)
	}
	if order.Quantity != 10 {
		t.Errorf("qty = %d, want one lot (10)", order.Quantity)
	}

	store := reloadStore(t, cfg)
	if !store.ActedToday(state.ActionSell, "SBER") {
		t.Error("accepted sell must be persisted in the daily ledger")
	}
}

func TestRunForceExitClosesWholePosition(t *testing.T) {
	cfg := testConfig(t)
	client := &engineClient{
		accounts: []broker.Account{{ID: "acc-7"}},
		instruments: map[string]broker.Instrument{
			"IMOEX": {Ticker: "IMOEX", Figi: "F-IDX"},
			"SBER":  {Ticker: "SBER", Figi: "F-SBER", Lot: 10},
		},
		prices:     map[string]float64{"F-SBER": 135},
		day:        map[string][]float64{"F-IDX": {10, 11, 12, 13}},
		todayHigh:  map[string]float64{"F-SBER": 135},
		positions:  []broker.Position{{Figi: "F-SBER", Quantity: 25, AvgPrice: 100}},
		postResult: broker.OrderResult{OrderID: "b-3", Status: "EXECUTION_REPORT_STATUS_FILL"},
	}

	eng := New(cfg, client, confirm.Auto{}, logger.New(logger.Config{Level: "error"}))
	if err := eng.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(client.orders) != 1 {
		t.Fatalf("placed %d orders, want 1: %+v", len(client.orders), client.orders)
	}
	order := client.orders[0]
	if order.Direction != broker.DirectionSell || order.Quantity != 25 {
		t.Errorf("force exit must sell the whole position: %+v", order)
	}
}

func TestRunDowntrendAbortsOnPortfolioError(t *testing.T) {
	cfg := testConfig(t)
	client := &engineClient{
		accounts: []broker.Account{{ID: "acc-7"}},
		instruments: map[string]broker.Instrument{
			"IMOEX": {Ticker: "IMOEX", Figi: "F-IDX"},
			"SBER":  {Ticker: "SBER", Figi: "F-SBER", Lot: 10},
		},
		prices:      map[string]float64{"F-SBER": 110},
		day:         map[string][]float64{"F-IDX": {13, 12, 11, 10}},
		positionErr: errors.New("портфель недоступен"),
	}

	eng := New(cfg, client, confirm.Auto{}, logger.New(logger.Config{Level: "error"}))
	if err := eng.Run(context.Background()); err == nil {
		t.Fatal("portfolio failure on the sell branch must abort the run")
	}
	if len(client.orders) != 0 {
		t.Errorf("no orders must be placed, got %+v", client.orders)
	}
}

func TestRunUnresolvedIndexFallsBackToSideTrend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Strategy.IndexFallbacks = nil
	client := &engineClient{
		accounts: []broker.Account{{ID: "acc-7"}},
		instruments: map[string]broker.Instrument{
			// IMOEX отсутствует: тренд боковой, ветка продаж
			"SBER": {Ticker: "SBER", Figi: "F-SBER", Lot: 10},
		},
		prices:    map[string]float64{"F-SBER": 100},
		positions: []broker.Position{},
	}

	eng := New(cfg, client, confirm.Auto{}, logger.New(logger.Config{Level: "error"}))
	if err := eng.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(client.orders) != 0 {
		t.Errorf("no positions and no momentum: no orders expected, got %+v", client.orders)
	}
}
