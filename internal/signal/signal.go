package signal

import (
	talib "github.com/markcheno/go-talib"
)

type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendSide Trend = "side"
)

// SellProfitMultiple — порог обычной продажи: текущая цена не ниже
// средней цены покупки плюс 10%.
const SellProfitMultiple = 1.10

// Classify — классификатор строгого монотонного хода по последним четырём
// дневным закрытиям (три подряд шага). Равенство или любой излом — side.
func Classify(closes []float64) Trend {
	if len(closes) < 4 {
		return TrendSide
	}
	a, b, c, d := closes[len(closes)-4], closes[len(closes)-3], closes[len(closes)-2], closes[len(closes)-1]
	if a < b && b < c && c < d {
		return TrendUp
	}
	if a > b && b > c && c > d {
		return TrendDown
	}
	return TrendSide
}

// MomentumUp — три последовательных дневных прироста (нужны 4 закрытия).
func MomentumUp(closes []float64) bool {
	if len(closes) < 4 {
		return false
	}
	a, b, c, d := closes[len(closes)-4], closes[len(closes)-3], closes[len(closes)-2], closes[len(closes)-1]
	return a < b && b < c && c < d
}

// IntradayDip — покупка только на дневной просадке: текущая цена
// не выше сегодняшнего максимума минус dipPct. Отсутствующая цена или
// максимум (неположительные значения) — просадки нет.
func IntradayDip(cur, high, dipPct float64) bool {
	if cur <= 0 || high <= 0 {
		return false
	}
	return cur <= high*(1.0-dipPct)
}

// ProfitMultiple — мультипликатор профита (текущая / средняя).
// ok=false, если не вычислить.
func ProfitMultiple(avg, cur float64) (float64, bool) {
	if avg <= 0 || cur <= 0 {
		return 0, false
	}
	return cur / avg, true
}

// RelativeVolume — сегодняшний объём к среднему за len(history) торговых
// дней. ok=false при пустой истории или нулевом среднем.
func RelativeVolume(today float64, history []float64) (float64, bool) {
	if len(history) == 0 {
		return 0, false
	}
	sma := talib.Sma(history, len(history))
	mean := sma[len(sma)-1]
	if mean <= 0 {
		return 0, false
	}
	return today / mean, true
}

// PadLookback — календарное окно для n торговых наблюдений: минимум
// трёхкратный запас и не меньше n+10 дней на выходные и праздники.
func PadLookback(n int) int {
	pad := 3 * n
	if pad < n+10 {
		pad = n + 10
	}
	return pad
}

// VolumeSpike — фильтр повышенного объёма. Без настроенного порога
// условие выполнено всегда.
func VolumeSpike(rel float64, ok bool, minRel float64) bool {
	if minRel <= 0 {
		return true
	}
	if !ok {
		return false
	}
	return rel >= minRel
}
