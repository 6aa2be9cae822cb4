package tinkoff

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// REST-фасад Invest API: все вызовы — POST на путь сервиса из
// proto-контракта, тело и ответ — proto-JSON, авторизация Bearer-токеном.
func (c *Client) doRequest(ctx context.Context, service, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("Не удалось подготовить тело запроса: %w", err)
	}

	urlStr := c.baseURL + "/tinkoff.public.invest.api.contract.v1." + service + "/" + method

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("Не удалось создать запрос: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Ошибка запроса: %w", err)
	}

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("Не удалось прочитать ответ: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("Ошибка invest api: %s (code=%d)", apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("Неуспешный статус: %s", resp.Status)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("Не удалось разобрать ответ: %w", err)
	}

	return nil
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
