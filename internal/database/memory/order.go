package memory

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
)

type OrderRepository struct {
	s *Store
}

func (r *OrderRepository) Create(ctx context.Context, o *model.Order) error {
	defer r.s.guard(ctx)()
	for _, existing := range r.s.data.orders {
		if existing.OrderNumber == o.OrderNumber {
			return apperror.Conflict(nil, "order number %s already exists", o.OrderNumber)
		}
	}
	c := *o
	r.s.data.orders[o.ID] = &c
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	defer r.s.guard(ctx)()
	o, ok := r.s.data.orders[id]
	if !ok {
		return nil, nil
	}
	c := *o
	return &c, nil
}

func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*model.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, o *model.Order) error {
	defer r.s.guard(ctx)()
	c := *o
	r.s.data.orders[o.ID] = &c
	return nil
}

func (r *OrderRepository) AppendHistory(ctx context.Context, h *model.OrderHistory) error {
	defer r.s.guard(ctx)()
	r.s.data.history = append(r.s.data.history, *h)
	return nil
}

func (r *OrderRepository) ListHistory(ctx context.Context, f *dto.HistoryFilters) ([]model.OrderHistory, int, error) {
	defer r.s.guard(ctx)()
	items := []model.OrderHistory{}
	for _, h := range r.s.data.history {
		if h.OrderID == f.OrderID {
			items = append(items, h)
		}
	}
	return paginate(items, f.Page, f.PageSize), len(items), nil
}

func (r *OrderRepository) CreateNote(ctx context.Context, n *model.OrderNote) error {
	defer r.s.guard(ctx)()
	r.s.data.notes = append(r.s.data.notes, *n)
	return nil
}

func (r *OrderRepository) ListNotes(ctx context.Context, orderID string, includeInternal bool) ([]model.OrderNote, error) {
	defer r.s.guard(ctx)()
	items := []model.OrderNote{}
	for _, n := range r.s.data.notes {
		if n.OrderID != orderID || (n.IsInternal && !includeInternal) {
			continue
		}
		items = append(items, n)
	}
	return items, nil
}
