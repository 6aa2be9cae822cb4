package tinkoff

import "time"

type accountsResponse struct {
	Accounts []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"accounts"`
}

type instrument struct {
	Figi   string `json:"figi"`
	Ticker string `json:"ticker"`
	Lot    int64  `json:"lot"`
}

type shareByResponse struct {
	Instrument instrument `json:"instrument"`
}

type findInstrumentResponse struct {
	Instruments []instrument `json:"instruments"`
}

type sharesResponse struct {
	Instruments []instrument `json:"instruments"`
}

type lastPricesResponse struct {
	LastPrices []struct {
		Figi  string     `json:"figi"`
		Price *Quotation `json:"price"`
	} `json:"lastPrices"`
}

type candlesResponse struct {
	Candles []struct {
		Close      *Quotation `json:"close"`
		High       *Quotation `json:"high"`
		Volume     int64      `json:"volume,string"`
		Time       time.Time  `json:"time"`
		IsComplete bool       `json:"isComplete"`
	} `json:"candles"`
}

type portfolioResponse struct {
	Positions []struct {
		Figi                 string      `json:"figi"`
		Quantity             *Quotation  `json:"quantity"`
		AveragePositionPrice *MoneyValue `json:"averagePositionPrice"`
	} `json:"positions"`
}

type postOrderResponse struct {
	OrderID               string `json:"orderId"`
	ExecutionReportStatus string `json:"executionReportStatus"`
	LotsRequested         int64  `json:"lotsRequested,string"`
	LotsExecuted          int64  `json:"lotsExecuted,string"`
	Message               string `json:"message"`
}
