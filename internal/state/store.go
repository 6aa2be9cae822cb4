package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"dipbot/internal/logger"
	"dipbot/internal/models"
)

type Action string

const (
	ActionBuy  Action = "last_buy"
	ActionSell Action = "last_sell"
)

type PendingStatus string

const (
	PendingSentNotFilled   PendingStatus = "sent_not_filled"
	PendingPartiallyFilled PendingStatus = "partially_filled"
)

type PendingOrder struct {
	ClientOrderID string `json:"client_order_id"`
	Ticker        string `json:"ticker"`
	TS            string `json:"ts"`
	Status        string `json:"status"`
}

// State — единственная персистентная сущность: дневной журнал действий
// (append-only, исторические дни не вычищаются) плюс карта висящих ордеров.
type State struct {
	LastBuy       map[string]map[string]bool `json:"last_buy"`
	LastSell      map[string]map[string]bool `json:"last_sell"`
	PendingOrders map[string]PendingOrder    `json:"pending_orders"`
}

type Store struct {
	path  string
	log   *logger.Logger
	now   func() time.Time
	state State
}

func NewStore(path string, log *logger.Logger) *Store {
	s := &Store{
		path: path,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
	s.state = defaultState()
	return s
}

func defaultState() State {
	return State{
		LastBuy:       map[string]map[string]bool{},
		LastSell:      map[string]map[string]bool{},
		PendingOrders: map[string]PendingOrder{},
	}
}

// Load читает файл состояния. Отсутствующий или битый файл — не повод
// останавливать запуск: состояние деградирует к пустой схеме.
func (s *Store) Load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.state = defaultState()
		return
	}
	var loaded State
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.log.WithComponent("state").WithError(err).Warn("Файл состояния повреждён, начинаем с пустого.")
		s.state = defaultState()
		return
	}
	ensureDefaults(&loaded)
	s.state = loaded
}

func ensureDefaults(st *State) {
	if st.LastBuy == nil {
		st.LastBuy = map[string]map[string]bool{}
	}
	if st.LastSell == nil {
		st.LastSell = map[string]map[string]bool{}
	}
	if st.PendingOrders == nil {
		st.PendingOrders = map[string]PendingOrder{}
	}
}

func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0o644)
}

func (s *Store) todayKey() string {
	return s.now().Format("2006-01-02")
}

func (s *Store) ledger(action Action) map[string]map[string]bool {
	if action == ActionSell {
		return s.state.LastSell
	}
	return s.state.LastBuy
}

// ActedToday — было ли действие по тикеру в текущий день UTC.
// Прошлые дни никогда не учитываются.
func (s *Store) ActedToday(action Action, ticker string) bool {
	day := s.ledger(action)[s.todayKey()]
	return day[ticker]
}

// MarkAction идемпотентно отмечает действие по тикеру на сегодня.
func (s *Store) MarkAction(action Action, ticker string) {
	ledger := s.ledger(action)
	key := s.todayKey()
	if ledger[key] == nil {
		ledger[key] = map[string]bool{}
	}
	ledger[key][ticker] = true
}

// PendingActive — активен ли cooldown по висящему ордеру. Ордер с
// терминальным статусом или нечитаемой меткой времени считается
// неактивным: битое состояние не должно блокировать торговлю.
func (s *Store) PendingActive(ticker string, cooldown time.Duration) bool {
	pending, ok := s.state.PendingOrders[ticker]
	if !ok {
		return false
	}
	switch PendingStatus(pending.Status) {
	case PendingSentNotFilled, PendingPartiallyFilled:
	default:
		return false
	}
	ts, err := time.Parse(time.RFC3339, pending.TS)
	if err != nil {
		return false
	}
	return s.now().Sub(ts) < cooldown
}

// SyncPendingOrder записывает висящий ордер по результату попытки либо
// снимает запись при любом терминальном исходе.
func (s *Store) SyncPendingOrder(ticker string, outcome models.OrderOutcome) {
	if outcome.Pending() {
		s.state.PendingOrders[ticker] = PendingOrder{
			ClientOrderID: outcome.ClientOrderID,
			Ticker:        ticker,
			TS:            s.now().Format(time.RFC3339),
			Status:        string(outcome.Category),
		}
		return
	}
	delete(s.state.PendingOrders, ticker)
}
