package tinkoff

import (
	"context"

	"dipbot/internal/broker"
)

func (c *Client) Accounts(ctx context.Context) ([]broker.Account, error) {
	var resp accountsResponse
	if err := c.doRequest(ctx, "UsersService", "GetAccounts", map[string]string{}, &resp); err != nil {
		return nil, err
	}
	out := make([]broker.Account, 0, len(resp.Accounts))
	for _, acc := range resp.Accounts {
		out = append(out, broker.Account{ID: acc.ID, Name: acc.Name})
	}
	return out, nil
}
