package tinkoff

import (
	"context"

	"dipbot/internal/broker"
)

func (c *Client) Positions(ctx context.Context, accountID string) ([]broker.Position, error) {
	body := map[string]string{"accountId": accountID}
	var resp portfolioResponse
	if err := c.doRequest(ctx, "OperationsService", "GetPortfolio", body, &resp); err != nil {
		return nil, err
	}

	out := make([]broker.Position, 0, len(resp.Positions))
	for _, p := range resp.Positions {
		if p.Figi == "" {
			continue
		}
		avg, _ := p.AveragePositionPrice.Float()
		pos := broker.Position{
			Figi:     p.Figi,
			AvgPrice: avg,
		}
		if p.Quantity != nil {
			pos.Quantity = p.Quantity.Units
		}
		out = append(out, pos)
	}
	return out, nil
}
