package tinkoff

import (
	"context"

	"dipbot/internal/broker"
)

func (c *Client) PostOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	price := QuotationFromFloat(req.Price)
	body := map[string]any{
		"accountId": req.AccountID,
		"figi":      req.Figi,
		"quantity":  req.Quantity,
		"price":     price,
		"direction": string(req.Direction),
		"orderType": "ORDER_TYPE_LIMIT",
		"orderId":   req.OrderID,
	}

	var resp postOrderResponse
	if err := c.doRequest(ctx, "OrdersService", "PostOrder", body, &resp); err != nil {
		return broker.OrderResult{}, err
	}

	return broker.OrderResult{
		OrderID:      resp.OrderID,
		Status:       resp.ExecutionReportStatus,
		Message:      resp.Message,
		LotsExecuted: resp.LotsExecuted,
	}, nil
}
