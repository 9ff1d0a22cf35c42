package memory

import (
	"context"
	"sort"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/google/uuid"
)

type InventoryRepository struct {
	s *Store
}

func (r *InventoryRepository) ensureLevel(variantID, locationID string) *model.InventoryLevel {
	key := levelKey{variantID: variantID, locationID: locationID}
	if l, ok := r.s.data.levels[key]; ok {
		return l
	}
	now := time.Now().UTC()
	l := &model.InventoryLevel{
		ID:         uuid.New().String(),
		VariantID:  variantID,
		LocationID: locationID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.s.data.levels[key] = l
	return l
}

func (r *InventoryRepository) GetLevel(ctx context.Context, variantID, locationID string) (*model.InventoryLevel, error) {
	defer r.s.guard(ctx)()
	l, ok := r.s.data.levels[levelKey{variantID: variantID, locationID: locationID}]
	if !ok {
		return nil, nil
	}
	c := *l
	return &c, nil
}

func (r *InventoryRepository) FindLevels(ctx context.Context, f *dto.LevelFilters) ([]model.InventoryLevel, int, error) {
	defer r.s.guard(ctx)()
	items := []model.InventoryLevel{}
	for _, l := range r.s.data.levels {
		if f.VariantID != "" && l.VariantID != f.VariantID {
			continue
		}
		if f.LocationID != "" && l.LocationID != f.LocationID {
			continue
		}
		if f.LowStock && !(l.IsThresholded() && l.Available() <= *l.ReorderPoint) {
			continue
		}
		items = append(items, *l)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].UpdatedAt.After(items[j].UpdatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return paginate(items, f.Page, f.PageSize), len(items), nil
}

func (r *InventoryRepository) ListThresholded(ctx context.Context) ([]model.InventoryLevel, error) {
	defer r.s.guard(ctx)()
	items := []model.InventoryLevel{}
	for _, l := range r.s.data.levels {
		if l.IsThresholded() {
			items = append(items, *l)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].VariantID != items[j].VariantID {
			return items[i].VariantID < items[j].VariantID
		}
		return items[i].LocationID < items[j].LocationID
	})
	return items, nil
}

func (r *InventoryRepository) LockLevels(ctx context.Context, variantID string, locationIDs []string) ([]model.InventoryLevel, error) {
	defer r.s.guard(ctx)()
	items := make([]model.InventoryLevel, 0, len(locationIDs))
	seen := map[string]bool{}
	for _, loc := range locationIDs {
		if seen[loc] {
			continue
		}
		seen[loc] = true
		items = append(items, *r.ensureLevel(variantID, loc))
	}
	sortLevelsByLocation(items)
	return items, nil
}

func (r *InventoryRepository) LockVariantLevels(ctx context.Context, variantID string) ([]model.InventoryLevel, error) {
	defer r.s.guard(ctx)()
	items := []model.InventoryLevel{}
	for _, l := range r.s.data.levels {
		if l.VariantID == variantID {
			items = append(items, *l)
		}
	}
	sortLevelsByLocation(items)
	return items, nil
}

func (r *InventoryRepository) ApplyDelta(ctx context.Context, d *dto.LevelDelta, m *model.InventoryMovement) (*model.InventoryLevel, error) {
	defer r.s.guard(ctx)()

	_, existed := r.s.data.levels[levelKey{variantID: d.VariantID, locationID: d.LocationID}]
	stored := r.ensureLevel(d.VariantID, d.LocationID)
	level := *stored
	before := level.QuantityOnHand
	if err := level.Apply(d.OnHandDelta, d.ReservedDelta); err != nil {
		if !existed {
			delete(r.s.data.levels, levelKey{variantID: d.VariantID, locationID: d.LocationID})
		}
		return nil, err
	}

	now := time.Now().UTC()
	level.UpdatedAt = now
	*stored = level

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.VariantID = d.VariantID
	m.LocationID = d.LocationID
	m.QuantityDelta = d.OnHandDelta
	m.ReservedDelta = d.ReservedDelta
	m.QuantityBefore = before
	m.QuantityAfter = level.QuantityOnHand
	r.s.data.movements = append(r.s.data.movements, *m)

	return &level, nil
}

func (r *InventoryRepository) UpdateThresholds(ctx context.Context, input *dto.ThresholdsInput) (*model.InventoryLevel, error) {
	defer r.s.guard(ctx)()
	l := r.ensureLevel(input.VariantID, input.LocationID)
	l.ReorderPoint = input.ReorderPoint
	l.ReorderQuantity = input.ReorderQuantity
	l.MaxStockLevel = input.MaxStockLevel
	l.UpdatedAt = time.Now().UTC()
	c := *l
	return &c, nil
}

func (r *InventoryRepository) MarkCounted(ctx context.Context, variantID, locationID string, at time.Time) error {
	defer r.s.guard(ctx)()
	l := r.ensureLevel(variantID, locationID)
	l.LastCountedAt = &at
	return nil
}

func (r *InventoryRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.InventoryMovement, int, error) {
	defer r.s.guard(ctx)()
	items := []model.InventoryMovement{}
	for i := len(r.s.data.movements) - 1; i >= 0; i-- {
		m := r.s.data.movements[i]
		if f.VariantID != "" && m.VariantID != f.VariantID {
			continue
		}
		if f.LocationID != "" && m.LocationID != f.LocationID {
			continue
		}
		if f.MovementType != "" && m.MovementType != f.MovementType {
			continue
		}
		if f.ReferenceType != "" && (m.ReferenceType == nil || *m.ReferenceType != f.ReferenceType) {
			continue
		}
		if f.ReferenceID != "" && (m.ReferenceID == nil || *m.ReferenceID != f.ReferenceID) {
			continue
		}
		if f.StartDate != nil && m.CreatedAt.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && m.CreatedAt.After(*f.EndDate) {
			continue
		}
		items = append(items, m)
	}
	return paginate(items, f.Page, f.PageSize), len(items), nil
}

func (r *InventoryRepository) CreateAdjustment(ctx context.Context, adj *model.StockAdjustment) error {
	defer r.s.guard(ctx)()
	c := *adj
	r.s.data.adjustments[adj.ID] = &c
	return nil
}

func (r *InventoryRepository) GetAdjustmentForUpdate(ctx context.Context, id string) (*model.StockAdjustment, error) {
	defer r.s.guard(ctx)()
	a, ok := r.s.data.adjustments[id]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (r *InventoryRepository) UpdateAdjustment(ctx context.Context, adj *model.StockAdjustment) error {
	defer r.s.guard(ctx)()
	c := *adj
	r.s.data.adjustments[adj.ID] = &c
	return nil
}

func (r *InventoryRepository) ListAdjustments(ctx context.Context, f *dto.AdjustmentFilters) ([]model.StockAdjustment, int, error) {
	defer r.s.guard(ctx)()
	items := []model.StockAdjustment{}
	for _, a := range r.s.data.adjustments {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.VariantID != "" && a.VariantID != f.VariantID {
			continue
		}
		if f.LocationID != "" && a.LocationID != f.LocationID {
			continue
		}
		items = append(items, *a)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].AdjustmentNumber > items[j].AdjustmentNumber })
	return paginate(items, f.Page, f.PageSize), len(items), nil
}

func (r *InventoryRepository) CountAdjustmentsSince(ctx context.Context, since time.Time) (int, error) {
	defer r.s.guard(ctx)()
	n := 0
	for _, a := range r.s.data.adjustments {
		if !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}
