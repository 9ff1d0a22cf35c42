// Package memory keeps every repository in process memory behind one mutex.
// A transaction holds the mutex until it finishes and restores a snapshot when
// it fails, which gives the same all-or-nothing behaviour as the Postgres store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type levelKey struct {
	variantID  string
	locationID string
}

type state struct {
	levels       map[levelKey]*model.InventoryLevel
	movements    []model.InventoryMovement
	adjustments  map[string]*model.StockAdjustment
	reservations map[string]*model.InventoryReservation
	reservOrder  []string
	alerts       map[string]*model.LowStockAlert
	alertOrder   []string
	orders       map[string]*model.Order
	history      []model.OrderHistory
	notes        []model.OrderNote
	fulfillments map[string]*model.OrderFulfillment
	fulfilOrder  []string
}

func newState() *state {
	return &state{
		levels:       map[levelKey]*model.InventoryLevel{},
		adjustments:  map[string]*model.StockAdjustment{},
		reservations: map[string]*model.InventoryReservation{},
		alerts:       map[string]*model.LowStockAlert{},
		orders:       map[string]*model.Order{},
		fulfillments: map[string]*model.OrderFulfillment{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.levels {
		l := *v
		c.levels[k] = &l
	}
	c.movements = append([]model.InventoryMovement(nil), s.movements...)
	for k, v := range s.adjustments {
		a := *v
		c.adjustments[k] = &a
	}
	for k, v := range s.reservations {
		r := *v
		c.reservations[k] = &r
	}
	c.reservOrder = append([]string(nil), s.reservOrder...)
	for k, v := range s.alerts {
		a := *v
		c.alerts[k] = &a
	}
	c.alertOrder = append([]string(nil), s.alertOrder...)
	for k, v := range s.orders {
		o := *v
		c.orders[k] = &o
	}
	c.history = append([]model.OrderHistory(nil), s.history...)
	c.notes = append([]model.OrderNote(nil), s.notes...)
	for k, v := range s.fulfillments {
		f := copyFulfillment(v)
		c.fulfillments[k] = f
	}
	c.fulfilOrder = append([]string(nil), s.fulfilOrder...)
	return c
}

type txKey struct{}

type Store struct {
	mu   sync.Mutex
	data *state
}

func NewStore() *Store {
	return &Store{data: newState()}
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// guard takes the store mutex unless ctx already runs inside one of our transactions.
func (s *Store) guard(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	txCtx, hooks := database.WithHooks(context.WithValue(ctx, txKey{}, s))
	if err := s.run(txCtx, fn); err != nil {
		return err
	}
	hooks.Run()
	return nil
}

func (s *Store) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			panic(p)
		}
		if err != nil {
			s.data = snapshot
		}
	}()
	return fn(ctx)
}

func (s *Store) Inventory() *InventoryRepository {
	return &InventoryRepository{s: s}
}

func (s *Store) Reservations() *ReservationRepository {
	return &ReservationRepository{s: s}
}

func (s *Store) Alerts() *AlertRepository {
	return &AlertRepository{s: s}
}

func (s *Store) Orders() *OrderRepository {
	return &OrderRepository{s: s}
}

func (s *Store) Fulfillments() *FulfillmentRepository {
	return &FulfillmentRepository{s: s}
}

var _ database.TxManager = (*Store)(nil)

func paginate[T any](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func sortLevelsByLocation(levels []model.InventoryLevel) {
	sort.Slice(levels, func(i, j int) bool { return levels[i].LocationID < levels[j].LocationID })
}

func copyFulfillment(f *model.OrderFulfillment) *model.OrderFulfillment {
	c := *f
	c.Items = append(model.FulfillmentItems(nil), f.Items...)
	return &c
}
