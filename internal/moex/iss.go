package moex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dipbot/internal/logger"
)

const defaultBase = "https://iss.moex.com/iss"

// Client — минимальный клиент ISS Московской биржи для получения
// состава индекса (например IMOEX). ISS отдаёт таблицы как пары
// columns/data, состав пагинируется через start/limit.
type Client struct {
	base       string
	engine     string
	market     string
	httpClient *http.Client
	log        *logger.Logger
}

func New(log *logger.Logger) *Client {
	return &Client{
		base:   defaultBase,
		engine: "stock",
		market: "shares",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

type issTable struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

// IndexConstituents возвращает тикеры состава индекса в порядке таблицы
// analytics; при неудаче пробует старые constituents-эндпоинты.
func (c *Client) IndexConstituents(ctx context.Context, indexID string) ([]string, error) {
	paths := []string{
		fmt.Sprintf("statistics/engines/%s/markets/index/analytics/%s.json",
			url.PathEscape(c.engine), url.PathEscape(indexID)),
		fmt.Sprintf("engines/%s/markets/%s/indexes/%s/constituents.json",
			url.PathEscape(c.engine), url.PathEscape(c.market), url.PathEscape(indexID)),
		fmt.Sprintf("indexes/%s/constituents.json", url.PathEscape(indexID)),
	}

	for _, path := range paths {
		tickers, err := c.fetchPaged(ctx, path)
		if err != nil {
			c.log.WithComponent("moex").WithError(err).Debug("Эндпоинт состава индекса не ответил, пробуем следующий.")
			continue
		}
		if len(tickers) > 0 {
			return tickers, nil
		}
	}
	return nil, fmt.Errorf("Состав индекса не найден: %s", indexID)
}

func (c *Client) fetchPaged(ctx context.Context, path string) ([]string, error) {
	const perPage = 100
	const maxPages = 50

	var tickers []string
	seen := map[string]bool{}

	for page := 0; page < maxPages; page++ {
		urlStr := fmt.Sprintf("%s/%s?limit=%d&start=%d", c.base, path, perPage, page*perPage)
		body, err := c.getJSON(ctx, urlStr)
		if err != nil {
			return nil, err
		}

		table := findTable(body)
		if table == nil {
			return nil, fmt.Errorf("В ответе ISS нет таблицы columns/data: %s", path)
		}
		if len(table.Data) == 0 {
			break
		}

		secidIdx := columnIndex(table.Columns, "secids", "secid", "seccode", "ticker")
		if secidIdx < 0 {
			return nil, fmt.Errorf("В таблице ISS нет колонки с тикером: %v", table.Columns)
		}

		for _, row := range table.Data {
			if secidIdx >= len(row) {
				continue
			}
			sym, _ := row[secidIdx].(string)
			sym = strings.ToUpper(strings.TrimSpace(sym))
			if sym == "" || seen[sym] {
				continue
			}
			seen[sym] = true
			tickers = append(tickers, sym)
		}

		if len(table.Data) < perPage {
			break
		}
	}
	return tickers, nil
}

func (c *Client) getJSON(ctx context.Context, urlStr string) (map[string]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Неуспешный статус ISS: %s", resp.Status)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	return body, nil
}

// findTable ищет блок вида {columns: [...], data: [...]}. Сначала
// известные имена таблиц, затем любой подходящий ключ, кроме служебных
// *.cursor (они тоже имеют форму columns/data, но несут пагинацию).
func findTable(body map[string]json.RawMessage) *issTable {
	for _, key := range []string{"analytics", "constituents", "securities"} {
		if table := parseTable(body[key]); table != nil {
			return table
		}
	}
	for key, raw := range body {
		if strings.HasSuffix(key, ".cursor") {
			continue
		}
		if table := parseTable(raw); table != nil {
			return table
		}
	}
	return nil
}

func parseTable(raw json.RawMessage) *issTable {
	if raw == nil {
		return nil
	}
	var table issTable
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil
	}
	if len(table.Columns) == 0 || table.Data == nil {
		return nil
	}
	return &table
}

func columnIndex(columns []string, names ...string) int {
	for _, name := range names {
		for i, col := range columns {
			if strings.EqualFold(col, name) {
				return i
			}
		}
	}
	return -1
}
