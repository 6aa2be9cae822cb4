package marketdata

import (
	"context"
	"time"

	"dipbot/internal/broker"
	"dipbot/internal/logger"
)

// Gateway — тонкая обёртка над брокерским клиентом: любая ошибка
// получения данных деградирует в «нет данных», а не в отказ запуска.
type Gateway struct {
	client broker.Client
	log    *logger.Logger
	now    func() time.Time
}

func New(client broker.Client, log *logger.Logger) *Gateway {
	return &Gateway{
		client: client,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (g *Gateway) LastPrice(ctx context.Context, figi string) (float64, bool) {
	prices, err := g.client.LastPrices(ctx, []string{figi})
	if err != nil {
		g.log.WithComponent("marketdata").WithField("figi", figi).WithError(err).Debug("Нет последней цены.")
		return 0, false
	}
	price, ok := prices[figi]
	if !ok || price <= 0 {
		return 0, false
	}
	return price, true
}

func (g *Gateway) DailyCandles(ctx context.Context, figi string, from, to time.Time) []broker.Candle {
	candles, err := g.client.Candles(ctx, figi, from, to, broker.IntervalDay)
	if err != nil {
		g.log.WithComponent("marketdata").WithField("figi", figi).WithError(err).Debug("Нет дневных свечей.")
		return nil
	}
	return candles
}

// RecentDailyCloses — дневные закрытия за окно календарных дней,
// включая сегодняшнюю (возможно незавершённую) свечу.
func (g *Gateway) RecentDailyCloses(ctx context.Context, figi string, calendarDays int) []float64 {
	to := g.now()
	from := to.Add(-time.Duration(calendarDays) * 24 * time.Hour)
	candles := g.DailyCandles(ctx, figi, from, to)
	closes := make([]float64, 0, len(candles))
	for _, c := range candles {
		if c.Close <= 0 {
			continue
		}
		closes = append(closes, c.Close)
	}
	return closes
}

// LastDailyCloses — последние n завершённых дневных закрытий без
// сегодняшнего дня. Окно запроса берётся с запасом (2n календарных дней),
// чтобы пережить выходные и праздники.
func (g *Gateway) LastDailyCloses(ctx context.Context, figi string, n int) []float64 {
	to := g.now()
	from := to.Add(-time.Duration(2*n) * 24 * time.Hour)
	today := to.Format("2006-01-02")

	candles := g.DailyCandles(ctx, figi, from, to)
	closes := make([]float64, 0, len(candles))
	for _, c := range candles {
		if c.Time.UTC().Format("2006-01-02") == today {
			continue
		}
		if c.Close <= 0 {
			continue
		}
		closes = append(closes, c.Close)
	}
	if len(closes) > n {
		closes = closes[len(closes)-n:]
	}
	return closes
}

// TodayHigh — максимум по 5-минутным свечам с начала текущего дня UTC.
func (g *Gateway) TodayHigh(ctx context.Context, figi string) (float64, bool) {
	now := g.now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	candles, err := g.client.Candles(ctx, figi, from, now, broker.Interval5Min)
	if err != nil {
		g.log.WithComponent("marketdata").WithField("figi", figi).WithError(err).Debug("Нет внутридневных свечей.")
		return 0, false
	}

	high := 0.0
	for _, c := range candles {
		if c.High > high {
			high = c.High
		}
	}
	if high <= 0 {
		return 0, false
	}
	return high, true
}
