package models

type OutcomeCategory string

const (
	OutcomeFilled          OutcomeCategory = "filled"
	OutcomePartiallyFilled OutcomeCategory = "partially_filled"
	OutcomeSentNotFilled   OutcomeCategory = "sent_not_filled"
	OutcomeBrokerRejected  OutcomeCategory = "broker_rejected"
	OutcomeNotSent         OutcomeCategory = "not_sent"
	OutcomeAPIError        OutcomeCategory = "api_error"
)

// OrderOutcome — классифицированный результат попытки выставить ордер.
// Никогда не пробрасывается как ошибка: категория всегда определена,
// чтобы хранилище состояния можно было синхронизировать.
type OrderOutcome struct {
	Category      OutcomeCategory
	OK            bool
	OrderID       string
	ClientOrderID string
	RejectReason  string
	ErrorCode     string
}

// Accepted — ордер принят биржей (исполнен целиком, частично или поставлен
// в очередь). Для таких исходов повторная покупка в тот же день блокируется.
func (o OrderOutcome) Accepted() bool {
	switch o.Category {
	case OutcomeFilled, OutcomeSentNotFilled, OutcomePartiallyFilled:
		return true
	}
	return false
}

// Pending — ордер висит у брокера и учитывается в cooldown-окне.
func (o OrderOutcome) Pending() bool {
	return o.Category == OutcomeSentNotFilled || o.Category == OutcomePartiallyFilled
}

// Candidate — инструмент вселенной с рассчитанной ценой. Пересчитывается
// на каждом запуске и никогда не сохраняется.
type Candidate struct {
	Ticker      string
	Figi        string
	Lot         int64
	Price       float64
	PricePerLot float64

	RelVolume    float64
	HasRelVolume bool
	Turnover     float64
	HasTurnover  bool
}
