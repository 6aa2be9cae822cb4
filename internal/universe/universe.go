package universe

import (
	"context"
	"sort"
	"strings"
	"time"

	"dipbot/internal/broker"
	"dipbot/internal/config"
	"dipbot/internal/logger"
	"dipbot/internal/marketdata"
	"dipbot/internal/models"
	"dipbot/internal/signal"
)

const (
	CompareRelative = "relative"
	CompareTurnover = "turnover"
)

// Builder собирает торгуемую вселенную из настроенного списка тикеров:
// идентичность и лот у брокера, живая цена, потолки по размеру лота и
// стоимости заявки, опциональные объёмные метрики и ранжирование.
type Builder struct {
	client broker.Client
	data   *marketdata.Gateway
	cfg    config.StrategyConfig
	log    *logger.Logger
}

func New(client broker.Client, data *marketdata.Gateway, cfg config.StrategyConfig, log *logger.Logger) *Builder {
	return &Builder{
		client: client,
		data:   data,
		cfg:    cfg,
		log:    log,
	}
}

// Build детерминирован для одинаковых рыночных данных: порядок кандидатов
// либо входной, либо задан стабильной сортировкой по объёмной метрике.
func (b *Builder) Build(ctx context.Context) []models.Candidate {
	annotate := b.cfg.MinRelVolume > 0 || b.volumeCompare() != ""

	out := make([]models.Candidate, 0, len(b.cfg.Tickers))
	for _, ticker := range b.cfg.Tickers {
		cand, ok := b.buildOne(ctx, ticker, annotate)
		if !ok {
			continue
		}
		out = append(out, cand)
	}

	b.rank(out)
	return out
}

func (b *Builder) buildOne(ctx context.Context, ticker string, annotate bool) (models.Candidate, bool) {
	entry := b.log.WithComponent("universe").WithField("ticker", ticker)

	inst, err := b.client.ResolveTicker(ctx, ticker)
	if err != nil {
		entry.WithError(err).Debug("Тикер не разрешился, исключён из вселенной.")
		return models.Candidate{}, false
	}

	if b.cfg.MaxLotCount > 0 && inst.Lot > b.cfg.MaxLotCount {
		entry.WithField("lot", inst.Lot).Debug("Лот крупнее допустимого, исключён.")
		return models.Candidate{}, false
	}

	price, ok := b.data.LastPrice(ctx, inst.Figi)
	if !ok {
		entry.Debug("Нет последней цены, исключён.")
		return models.Candidate{}, false
	}

	pricePerLot := price * float64(inst.Lot)
	lotsPerOrder := b.cfg.LotsPerOrder
	if lotsPerOrder <= 0 {
		lotsPerOrder = 1
	}
	if b.cfg.MaxLotRub > 0 && pricePerLot*float64(lotsPerOrder) > b.cfg.MaxLotRub {
		entry.WithField("price_per_lot", pricePerLot).Debug("Заявка дороже потолка, исключён.")
		return models.Candidate{}, false
	}

	cand := models.Candidate{
		Ticker:      strings.ToUpper(ticker),
		Figi:        inst.Figi,
		Lot:         inst.Lot,
		Price:       price,
		PricePerLot: pricePerLot,
	}

	if annotate {
		b.annotateVolume(ctx, &cand)
	}
	return cand, true
}

// annotateVolume считает относительный объём (сегодня к среднему за
// lookback торговых дней) и дневной оборот в рублях.
func (b *Builder) annotateVolume(ctx context.Context, cand *models.Candidate) {
	lookback := b.cfg.VolumeLookbackDays
	if lookback <= 0 {
		lookback = 10
	}

	to := time.Now().UTC()
	from := to.Add(-time.Duration(signal.PadLookback(lookback)) * 24 * time.Hour)
	candles := b.data.DailyCandles(ctx, cand.Figi, from, to)
	if len(candles) < lookback+1 {
		return
	}

	today := candles[len(candles)-1]
	history := candles[:len(candles)-1]
	if len(history) > lookback {
		history = history[len(history)-lookback:]
	}

	volumes := make([]float64, 0, len(history))
	for _, c := range history {
		volumes = append(volumes, float64(c.Volume))
	}

	if rel, ok := signal.RelativeVolume(float64(today.Volume), volumes); ok {
		cand.RelVolume = rel
		cand.HasRelVolume = true
	}

	cand.Turnover = float64(today.Volume) * cand.Price
	cand.HasTurnover = true
}

func (b *Builder) volumeCompare() string {
	switch b.cfg.VolumeCompare {
	case CompareRelative, CompareTurnover:
		return b.cfg.VolumeCompare
	}
	return ""
}

func (b *Builder) rank(cands []models.Candidate) {
	switch b.volumeCompare() {
	case CompareRelative:
		sort.SliceStable(cands, func(i, j int) bool {
			return cands[i].RelVolume > cands[j].RelVolume
		})
	case CompareTurnover:
		sort.SliceStable(cands, func(i, j int) bool {
			return cands[i].Turnover > cands[j].Turnover
		})
	}
}
