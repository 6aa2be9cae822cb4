package tinkoff

import (
	"context"
	"time"

	"dipbot/internal/broker"
)

func (c *Client) LastPrices(ctx context.Context, figis []string) (map[string]float64, error) {
	body := map[string]any{"figi": figis}
	var resp lastPricesResponse
	if err := c.doRequest(ctx, "MarketDataService", "GetLastPrices", body, &resp); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(resp.LastPrices))
	for _, lp := range resp.LastPrices {
		price, ok := lp.Price.Float()
		if !ok || lp.Figi == "" {
			continue
		}
		out[lp.Figi] = price
	}
	return out, nil
}

func (c *Client) Candles(ctx context.Context, figi string, from, to time.Time, interval broker.CandleInterval) ([]broker.Candle, error) {
	body := map[string]any{
		"figi":     figi,
		"from":     from.UTC().Format(time.RFC3339),
		"to":       to.UTC().Format(time.RFC3339),
		"interval": string(interval),
	}
	var resp candlesResponse
	if err := c.doRequest(ctx, "MarketDataService", "GetCandles", body, &resp); err != nil {
		return nil, err
	}

	out := make([]broker.Candle, 0, len(resp.Candles))
	for _, cd := range resp.Candles {
		closePrice, ok := cd.Close.Float()
		if !ok {
			continue
		}
		high, _ := cd.High.Float()
		out = append(out, broker.Candle{
			Time:   cd.Time,
			Close:  closePrice,
			High:   high,
			Volume: cd.Volume,
		})
	}
	return out, nil
}
