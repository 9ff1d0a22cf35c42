package memory

import (
	"context"
	"sort"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type ReservationRepository struct {
	s *Store
}

func (r *ReservationRepository) Create(ctx context.Context, res *model.InventoryReservation) error {
	defer r.s.guard(ctx)()
	c := *res
	r.s.data.reservations[res.ID] = &c
	r.s.data.reservOrder = append(r.s.data.reservOrder, res.ID)
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*model.InventoryReservation, error) {
	defer r.s.guard(ctx)()
	res, ok := r.s.data.reservations[id]
	if !ok {
		return nil, nil
	}
	c := *res
	return &c, nil
}

func (r *ReservationRepository) GetForUpdate(ctx context.Context, id string) (*model.InventoryReservation, error) {
	return r.GetByID(ctx, id)
}

func (r *ReservationRepository) Update(ctx context.Context, res *model.InventoryReservation) error {
	defer r.s.guard(ctx)()
	c := *res
	r.s.data.reservations[res.ID] = &c
	return nil
}

func (r *ReservationRepository) ListByOrder(ctx context.Context, orderID string, activeOnly bool) ([]model.InventoryReservation, error) {
	defer r.s.guard(ctx)()
	items := []model.InventoryReservation{}
	for _, id := range r.s.data.reservOrder {
		res := r.s.data.reservations[id]
		if res.OrderID != orderID || (activeOnly && !res.IsActive) {
			continue
		}
		items = append(items, *res)
	}
	return items, nil
}

func (r *ReservationRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.InventoryReservation, error) {
	defer r.s.guard(ctx)()
	items := []model.InventoryReservation{}
	for _, id := range r.s.data.reservOrder {
		res := r.s.data.reservations[id]
		if res.IsActive && res.IsExpired(now) {
			items = append(items, *res)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].ExpiresAt.Before(*items[j].ExpiresAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
