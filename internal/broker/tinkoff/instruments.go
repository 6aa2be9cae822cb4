package tinkoff

import (
	"context"
	"fmt"

	"dipbot/internal/broker"
)

// ResolveTicker ищет акцию на основной доске TQBR, при неудаче —
// без указания доски (как делает оригинальный сценарий для внебиржевых бумаг).
func (c *Client) ResolveTicker(ctx context.Context, ticker string) (broker.Instrument, error) {
	inst, err := c.shareBy(ctx, ticker, "TQBR")
	if err == nil {
		return inst, nil
	}
	return c.shareBy(ctx, ticker, "")
}

func (c *Client) shareBy(ctx context.Context, ticker, classCode string) (broker.Instrument, error) {
	body := map[string]string{
		"idType": "INSTRUMENT_ID_TYPE_TICKER",
		"id":     ticker,
	}
	if classCode != "" {
		body["classCode"] = classCode
	}

	var resp shareByResponse
	if err := c.doRequest(ctx, "InstrumentsService", "ShareBy", body, &resp); err != nil {
		return broker.Instrument{}, err
	}
	if resp.Instrument.Figi == "" {
		return broker.Instrument{}, fmt.Errorf("Инструмент не найден: %s", ticker)
	}
	return toInstrument(resp.Instrument), nil
}

func (c *Client) FindInstrument(ctx context.Context, query string) (broker.Instrument, error) {
	var resp findInstrumentResponse
	body := map[string]string{"query": query}
	if err := c.doRequest(ctx, "InstrumentsService", "FindInstrument", body, &resp); err != nil {
		return broker.Instrument{}, err
	}
	if len(resp.Instruments) == 0 {
		return broker.Instrument{}, fmt.Errorf("Инструмент не найден: %s", query)
	}
	return toInstrument(resp.Instruments[0]), nil
}

func (c *Client) InstrumentByFigi(ctx context.Context, figi string) (broker.Instrument, error) {
	body := map[string]string{
		"idType": "INSTRUMENT_ID_TYPE_FIGI",
		"id":     figi,
	}
	var resp shareByResponse
	if err := c.doRequest(ctx, "InstrumentsService", "GetInstrumentBy", body, &resp); err != nil {
		return broker.Instrument{}, err
	}
	if resp.Instrument.Figi == "" {
		return broker.Instrument{}, fmt.Errorf("Инструмент не найден по figi: %s", figi)
	}
	return toInstrument(resp.Instrument), nil
}

func (c *Client) Shares(ctx context.Context) ([]broker.Instrument, error) {
	body := map[string]string{"instrumentStatus": "INSTRUMENT_STATUS_BASE"}
	var resp sharesResponse
	if err := c.doRequest(ctx, "InstrumentsService", "Shares", body, &resp); err != nil {
		return nil, err
	}
	out := make([]broker.Instrument, 0, len(resp.Instruments))
	for _, ins := range resp.Instruments {
		if ins.Figi == "" {
			continue
		}
		out = append(out, toInstrument(ins))
	}
	return out, nil
}

func toInstrument(ins instrument) broker.Instrument {
	lot := ins.Lot
	if lot <= 0 {
		lot = 1
	}
	return broker.Instrument{
		Ticker: ins.Ticker,
		Figi:   ins.Figi,
		Lot:    lot,
	}
}
