package engine

import (
	"context"
	"fmt"
	"time"

	"dipbot/internal/broker"
	"dipbot/internal/config"
	"dipbot/internal/confirm"
	"dipbot/internal/logger"
	"dipbot/internal/marketdata"
	"dipbot/internal/models"
	"dipbot/internal/scanner"
	"dipbot/internal/signal"
	"dipbot/internal/state"
	"dipbot/internal/universe"
)

// Engine — один проход стратегии на тик планировщика: принудительный
// выход по профиту, затем ветка по тренду индекса (покупка на просадке
// либо продажи по порогу плюс одна попытка покупки по моментуму),
// затем сохранение состояния. Всё синхронно, без внутреннего параллелизма.
type Engine struct {
	cfg      *config.Config
	client   broker.Client
	data     *marketdata.Gateway
	store    *state.Store
	gate     *Gate
	universe *universe.Builder
	scanner  *scanner.Scanner
	log      *logger.Logger
}

func New(cfg *config.Config, client broker.Client, confirmer confirm.Confirmer, log *logger.Logger) *Engine {
	data := marketdata.New(client, log)
	store := state.NewStore(cfg.State.Path, log)
	gate := NewGate(client, confirmer, cfg.Runtime.DryRun, log)
	return &Engine{
		cfg:      cfg,
		client:   client,
		data:     data,
		store:    store,
		gate:     gate,
		universe: universe.New(client, data, cfg.Strategy, log),
		scanner:  scanner.New(client, data, store, gate, cfg.Scanner, cfg.Strategy, log),
		log:      log,
	}
}

func (e *Engine) Run(ctx context.Context) error {
	accountID, err := e.resolveAccount(ctx)
	if err != nil {
		return err
	}

	indexFigi := e.resolveIndexFigi(ctx)
	trend := signal.TrendSide
	if indexFigi != "" {
		trend = signal.Classify(e.data.RecentDailyCloses(ctx, indexFigi, 6))
	}
	e.logEntry().WithFields(map[string]interface{}{
		"index_figi": indexFigi,
		"trend":      string(trend),
	}).Info("Тренд индекса определён.")

	univ := e.universe.Build(ctx)
	if len(univ) == 0 {
		e.logEntry().Info("Вселенная пуста: нет инструментов дешевле потолка.")
		return nil
	}

	e.store.Load()
	defer func() {
		if err := e.store.Save(); err != nil {
			e.logEntry().WithError(err).Error("Не удалось сохранить состояние.")
		}
	}()

	e.forceExitPass(ctx, accountID, univ)

	switch trend {
	case signal.TrendUp:
		e.logEntry().Info("Тренд UP: покупка на внутридневной просадке.")
		e.dipBuyPass(ctx, accountID, univ)
	default:
		e.logEntry().Info("Тренд DOWN/SIDE: продажи по порогу и попытка покупки по моментуму.")
		positions, err := e.client.Positions(ctx, accountID)
		if err != nil {
			return fmt.Errorf("Не удалось получить портфель: %w", err)
		}
		e.sellPass(ctx, accountID, univ, positions)
		e.sellHeldPositions(ctx, accountID, positions)
		e.scanner.BuyOne(ctx, accountID)
	}

	return nil
}

func (e *Engine) resolveAccount(ctx context.Context) (string, error) {
	if e.cfg.Broker.AccountID != "" {
		return e.cfg.Broker.AccountID, nil
	}
	accounts, err := e.client.Accounts(ctx)
	if err != nil {
		return "", fmt.Errorf("Не удалось получить список счетов: %w", err)
	}
	if len(accounts) == 0 {
		return "", fmt.Errorf("У токена нет ни одного счёта.")
	}
	return accounts[0].ID, nil
}

// resolveIndexFigi ищет индекс напрямую, затем фонды-прокси.
// Пустая строка допустима: без индекса тренд считается боковым.
func (e *Engine) resolveIndexFigi(ctx context.Context) string {
	queries := append([]string{e.cfg.Strategy.IndexTicker}, e.cfg.Strategy.IndexFallbacks...)
	for _, q := range queries {
		if q == "" {
			continue
		}
		inst, err := e.client.FindInstrument(ctx, q)
		if err != nil {
			e.logEntry().WithField("query", q).WithError(err).Debug("Индекс не разрешился.")
			continue
		}
		return inst.Figi
	}
	return ""
}

// forceExitPass закрывает позиции целиком при достижении настроенного
// мультипликатора профита, независимо от тренда и просадки. Сбой
// портфеля здесь не валит запуск — пропускается только этот проход.
func (e *Engine) forceExitPass(ctx context.Context, accountID string, univ []models.Candidate) {
	positions, err := e.client.Positions(ctx, accountID)
	if err != nil {
		e.logEntry().WithError(err).Warn("Force exit: не удалось получить портфель, проход пропущен.")
		return
	}
	posByFigi := positionMap(positions)

	for _, cand := range univ {
		p, ok := posByFigi[cand.Figi]
		if !ok || p.Quantity <= 0 {
			continue
		}

		cur, ok := e.data.LastPrice(ctx, cand.Figi)
		if !ok {
			continue
		}
		multiple, ok := signal.ProfitMultiple(p.AvgPrice, cur)
		if !ok || multiple < e.cfg.Strategy.ForceExitMultiple {
			continue
		}

		prompt := fmt.Sprintf("FORCE SELL %s qty=%d @%v (профит x%.2f)", cand.Ticker, p.Quantity, cur, multiple)
		outcome := e.gate.Place(ctx, broker.OrderRequest{
			AccountID: accountID,
			Figi:      cand.Figi,
			Quantity:  p.Quantity,
			Price:     cur,
			Direction: broker.DirectionSell,
		}, prompt)

		if outcome.Accepted() {
			// mark_action не нужен: позиция обнулится, повтор не пройдёт
			e.logEntry().WithField("ticker", cand.Ticker).WithField("order_id", outcome.OrderID).Info("Принудительная продажа принята.")
		} else {
			e.logEntry().WithField("ticker", cand.Ticker).WithField("category", string(outcome.Category)).Info("Принудительная продажа не прошла.")
		}
	}
}

// dipBuyPass — не больше одной покупки на тикер в день; просадка от
// сегодняшнего максимума и, если настроен порог, повышенный объём.
func (e *Engine) dipBuyPass(ctx context.Context, accountID string, univ []models.Candidate) {
	cooldown := time.Duration(e.cfg.Scanner.PendingCooldownMin) * time.Minute
	lotsPerOrder := e.lotsPerOrder()

	for _, cand := range univ {
		if e.store.ActedToday(state.ActionBuy, cand.Ticker) {
			continue
		}
		if e.store.PendingActive(cand.Ticker, cooldown) {
			e.logEntry().WithField("ticker", cand.Ticker).Info("Активен cooldown висящего ордера, покупка пропущена.")
			continue
		}

		cur, curOK := e.data.LastPrice(ctx, cand.Figi)
		high, highOK := e.data.TodayHigh(ctx, cand.Figi)
		if !curOK || !highOK {
			continue
		}
		if !signal.IntradayDip(cur, high, e.cfg.Strategy.DipPct) {
			continue
		}
		if !signal.VolumeSpike(cand.RelVolume, cand.HasRelVolume, e.cfg.Strategy.MinRelVolume) {
			e.logEntry().WithField("ticker", cand.Ticker).Debug("Нет всплеска объёма, покупка пропущена.")
			continue
		}

		prompt := fmt.Sprintf("BUY %s lot=%d @%v", cand.Ticker, cand.Lot, cand.Price)
		outcome := e.gate.Place(ctx, broker.OrderRequest{
			AccountID: accountID,
			Figi:      cand.Figi,
			Quantity:  cand.Lot * lotsPerOrder,
			Price:     cand.Price,
			Direction: broker.DirectionBuy,
		}, prompt)

		e.store.SyncPendingOrder(cand.Ticker, outcome)

		if outcome.Accepted() {
			e.store.MarkAction(state.ActionBuy, cand.Ticker)
			e.logEntry().WithField("ticker", cand.Ticker).WithField("order_id", outcome.OrderID).Info("Покупка на просадке принята.")
		} else {
			e.logEntry().WithField("ticker", cand.Ticker).WithField("category", string(outcome.Category)).Info("Покупка не прошла.")
		}
	}
}

// sellPass продаёт один лот по бумагам вселенной при профите не ниже
// порога, не больше одного раза на тикер в день.
func (e *Engine) sellPass(ctx context.Context, accountID string, univ []models.Candidate, positions []broker.Position) {
	posByFigi := positionMap(positions)

	for _, cand := range univ {
		if e.store.ActedToday(state.ActionSell, cand.Ticker) {
			continue
		}
		p, ok := posByFigi[cand.Figi]
		if !ok || p.Quantity <= 0 {
			continue
		}
		if !e.shouldSell(ctx, p, cand.Figi) {
			continue
		}

		e.placeThresholdSell(ctx, accountID, cand.Ticker, cand.Figi, minInt64(p.Quantity, cand.Lot))
	}
}

// sellHeldPositions добирает позиции вне вселенной: тикер и лот
// разрешаются по figi, сбой разрешения исключает позицию.
func (e *Engine) sellHeldPositions(ctx context.Context, accountID string, positions []broker.Position) {
	for _, p := range positions {
		if p.Quantity <= 0 {
			continue
		}
		inst, err := e.client.InstrumentByFigi(ctx, p.Figi)
		if err != nil {
			e.logEntry().WithField("figi", p.Figi).WithError(err).Debug("Позиция без тикера, продажа пропущена.")
			continue
		}
		if e.store.ActedToday(state.ActionSell, inst.Ticker) {
			continue
		}
		if !e.shouldSell(ctx, p, p.Figi) {
			continue
		}

		e.placeThresholdSell(ctx, accountID, inst.Ticker, p.Figi, minInt64(p.Quantity, inst.Lot))
	}
}

func (e *Engine) shouldSell(ctx context.Context, p broker.Position, figi string) bool {
	cur, ok := e.data.LastPrice(ctx, figi)
	if !ok {
		return false
	}
	multiple, ok := signal.ProfitMultiple(p.AvgPrice, cur)
	return ok && multiple >= signal.SellProfitMultiple
}

func (e *Engine) placeThresholdSell(ctx context.Context, accountID, ticker, figi string, qty int64) {
	cur, ok := e.data.LastPrice(ctx, figi)
	if !ok {
		return
	}

	prompt := fmt.Sprintf("SELL %s qty=%d @%v", ticker, qty, cur)
	outcome := e.gate.Place(ctx, broker.OrderRequest{
		AccountID: accountID,
		Figi:      figi,
		Quantity:  qty,
		Price:     cur,
		Direction: broker.DirectionSell,
	}, prompt)

	if outcome.Accepted() {
		e.store.MarkAction(state.ActionSell, ticker)
		e.logEntry().WithField("ticker", ticker).WithField("order_id", outcome.OrderID).Info("Продажа по порогу принята.")
	} else {
		e.logEntry().WithField("ticker", ticker).WithField("category", string(outcome.Category)).Info("Продажа не прошла.")
	}
}

func (e *Engine) lotsPerOrder() int64 {
	if e.cfg.Strategy.LotsPerOrder > 0 {
		return e.cfg.Strategy.LotsPerOrder
	}
	return 1
}

func positionMap(positions []broker.Position) map[string]broker.Position {
	out := make(map[string]broker.Position, len(positions))
	for _, p := range positions {
		out[p.Figi] = p
	}
	return out
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
