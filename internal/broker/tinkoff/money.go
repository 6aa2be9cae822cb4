package tinkoff

import "math"

// Quotation — фиксированная точка из proto-контракта брокера:
// целые единицы плюс наносекундная дробная часть. В JSON units
// приходит строкой (int64 по правилам proto-JSON).
type Quotation struct {
	Units int64 `json:"units,string"`
	Nano  int32 `json:"nano"`
}

type MoneyValue struct {
	Currency string `json:"currency"`
	Units    int64  `json:"units,string"`
	Nano     int32  `json:"nano"`
}

// Float — units + nano/1e9. Для отсутствующего значения ok=false.
func (q *Quotation) Float() (float64, bool) {
	if q == nil {
		return 0, false
	}
	return float64(q.Units) + float64(q.Nano)/1e9, true
}

func (m *MoneyValue) Float() (float64, bool) {
	if m == nil {
		return 0, false
	}
	return float64(m.Units) + float64(m.Nano)/1e9, true
}

// QuotationFromFloat — обратное преобразование для исходящих лимитных цен.
func QuotationFromFloat(v float64) Quotation {
	units := math.Trunc(v)
	nano := math.Round((v - units) * 1e9)
	return Quotation{
		Units: int64(units),
		Nano:  int32(nano),
	}
}
