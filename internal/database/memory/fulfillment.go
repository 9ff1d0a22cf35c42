package memory

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type FulfillmentRepository struct {
	s *Store
}

func (r *FulfillmentRepository) Create(ctx context.Context, f *model.OrderFulfillment) error {
	defer r.s.guard(ctx)()
	for _, existing := range r.s.data.fulfillments {
		if existing.FulfillmentNumber == f.FulfillmentNumber {
			return apperror.Conflict(nil, "fulfillment number %s already exists", f.FulfillmentNumber)
		}
	}
	r.s.data.fulfillments[f.ID] = copyFulfillment(f)
	r.s.data.fulfilOrder = append(r.s.data.fulfilOrder, f.ID)
	return nil
}

func (r *FulfillmentRepository) GetByID(ctx context.Context, id string) (*model.OrderFulfillment, error) {
	defer r.s.guard(ctx)()
	f, ok := r.s.data.fulfillments[id]
	if !ok {
		return nil, nil
	}
	return copyFulfillment(f), nil
}

func (r *FulfillmentRepository) GetForUpdate(ctx context.Context, id string) (*model.OrderFulfillment, error) {
	return r.GetByID(ctx, id)
}

func (r *FulfillmentRepository) Update(ctx context.Context, f *model.OrderFulfillment) error {
	defer r.s.guard(ctx)()
	r.s.data.fulfillments[f.ID] = copyFulfillment(f)
	return nil
}

func (r *FulfillmentRepository) ListByOrder(ctx context.Context, orderID string) ([]model.OrderFulfillment, error) {
	defer r.s.guard(ctx)()
	items := []model.OrderFulfillment{}
	for _, id := range r.s.data.fulfilOrder {
		f := r.s.data.fulfillments[id]
		if f.OrderID == orderID {
			items = append(items, *copyFulfillment(f))
		}
	}
	return items, nil
}

func (r *FulfillmentRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	defer r.s.guard(ctx)()
	n := 0
	for _, f := range r.s.data.fulfillments {
		if !f.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *FulfillmentRepository) CountByStatus(ctx context.Context) (map[model.FulfillmentStatus]int, error) {
	defer r.s.guard(ctx)()
	counts := map[model.FulfillmentStatus]int{}
	for _, f := range r.s.data.fulfillments {
		counts[f.Status]++
	}
	return counts, nil
}
