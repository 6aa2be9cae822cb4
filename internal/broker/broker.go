package broker

import (
	"context"
	"time"
)

type Direction string

const (
	DirectionBuy  Direction = "ORDER_DIRECTION_BUY"
	DirectionSell Direction = "ORDER_DIRECTION_SELL"
)

type CandleInterval string

const (
	IntervalDay  CandleInterval = "CANDLE_INTERVAL_DAY"
	Interval5Min CandleInterval = "CANDLE_INTERVAL_5_MIN"
)

type Account struct {
	ID   string
	Name string
}

// Instrument — идентичность инструмента у брокера. FIGI первичен,
// тикер — человекочитаемый псевдоним.
type Instrument struct {
	Ticker string
	Figi   string
	Lot    int64
}

type Position struct {
	Figi     string
	Quantity int64
	AvgPrice float64
}

type Candle struct {
	Time   time.Time
	Close  float64
	High   float64
	Volume int64
}

type OrderRequest struct {
	AccountID string
	Figi      string
	Quantity  int64
	Price     float64
	Direction Direction
	OrderID   string
}

type OrderResult struct {
	OrderID      string
	Status       string
	Message      string
	LotsExecuted int64
}

type Client interface {
	Accounts(ctx context.Context) ([]Account, error)
	ResolveTicker(ctx context.Context, ticker string) (Instrument, error)
	FindInstrument(ctx context.Context, query string) (Instrument, error)
	InstrumentByFigi(ctx context.Context, figi string) (Instrument, error)
	Shares(ctx context.Context) ([]Instrument, error)
	LastPrices(ctx context.Context, figis []string) (map[string]float64, error)
	Candles(ctx context.Context, figi string, from, to time.Time, interval CandleInterval) ([]Candle, error)
	Positions(ctx context.Context, accountID string) ([]Position, error)
	PostOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
}
