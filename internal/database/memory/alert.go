package memory

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/alert/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type AlertRepository struct {
	s *Store
}

func (r *AlertRepository) openFor(variantID, locationID string) *model.LowStockAlert {
	for _, id := range r.s.data.alertOrder {
		a := r.s.data.alerts[id]
		if a.VariantID == variantID && a.LocationID == locationID && a.IsOpen() {
			return a
		}
	}
	return nil
}

func (r *AlertRepository) GetOpen(ctx context.Context, variantID, locationID string) (*model.LowStockAlert, error) {
	defer r.s.guard(ctx)()
	a := r.openFor(variantID, locationID)
	if a == nil {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (r *AlertRepository) GetByID(ctx context.Context, id string) (*model.LowStockAlert, error) {
	defer r.s.guard(ctx)()
	a, ok := r.s.data.alerts[id]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (r *AlertRepository) Create(ctx context.Context, a *model.LowStockAlert) error {
	defer r.s.guard(ctx)()
	if a.IsOpen() && r.openFor(a.VariantID, a.LocationID) != nil {
		return apperror.Conflict(nil, "an open alert already exists for variant %s at %s", a.VariantID, a.LocationID)
	}
	c := *a
	r.s.data.alerts[a.ID] = &c
	r.s.data.alertOrder = append(r.s.data.alertOrder, a.ID)
	return nil
}

func (r *AlertRepository) Update(ctx context.Context, a *model.LowStockAlert) error {
	defer r.s.guard(ctx)()
	c := *a
	r.s.data.alerts[a.ID] = &c
	return nil
}

func (r *AlertRepository) List(ctx context.Context, f *dto.AlertFilters) ([]model.LowStockAlert, int, error) {
	defer r.s.guard(ctx)()
	items := []model.LowStockAlert{}
	for i := len(r.s.data.alertOrder) - 1; i >= 0; i-- {
		a := r.s.data.alerts[r.s.data.alertOrder[i]]
		if f.VariantID != "" && a.VariantID != f.VariantID {
			continue
		}
		if f.LocationID != "" && a.LocationID != f.LocationID {
			continue
		}
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		if f.OpenOnly && !a.IsOpen() {
			continue
		}
		items = append(items, *a)
	}
	return paginate(items, f.Page, f.PageSize), len(items), nil
}
