package cache

import (
	"encoding/json"
	"os"
	"strings"
)

// Document — снапшот, который пишут обновлялки кеша и читает сканер.
// Оба кеша (широкий рынок и состав индекса) используют одну форму,
// индексный дополнительно несёт имя индекса.
type Document struct {
	UpdatedAt   string  `json:"updated_at"`
	Index       string  `json:"index,omitempty"`
	Instruments []Entry `json:"instruments"`
}

type Entry struct {
	Ticker      string  `json:"ticker,omitempty"`
	SecID       string  `json:"secid,omitempty"`
	Figi        string  `json:"figi,omitempty"`
	Lot         int64   `json:"lot,omitempty"`
	Price       float64 `json:"price,omitempty"`
	PricePerLot float64 `json:"price_per_lot,omitempty"`
}

// Symbol — нормализованный тикер записи: ticker либо secid, в верхнем
// регистре. Пустая строка, если записи нечем представиться.
func (e Entry) Symbol() string {
	if e.Ticker != "" {
		return strings.ToUpper(e.Ticker)
	}
	return strings.ToUpper(e.SecID)
}

// Load читает кеш-документ. Отсутствующий или битый файл — пустой
// список: протухший кеш не ошибка, сканеру просто не с чем работать.
func Load(path string) []Entry {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}

	out := make([]Entry, 0, len(doc.Instruments))
	for _, e := range doc.Instruments {
		if e.Symbol() == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Tickers — уникальные нормализованные тикеры с сохранением порядка
// перечисления в документе.
func Tickers(entries []Entry) []string {
	seen := make(map[string]bool, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		sym := e.Symbol()
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}

// TickerSet — множество тикеров для проверки принадлежности индексу.
func TickerSet(entries []Entry) map[string]bool {
	set := make(map[string]bool, len(entries))
	for _, e := range entries {
		if sym := e.Symbol(); sym != "" {
			set[sym] = true
		}
	}
	return set
}
