package inventory

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type Repository interface {
	// Ledger reads
	GetLevel(ctx context.Context, variantID, locationID string) (*model.InventoryLevel, error)
	FindLevels(ctx context.Context, filters *dto.LevelFilters) ([]model.InventoryLevel, int, error)
	ListThresholded(ctx context.Context) ([]model.InventoryLevel, error)

	// Ledger locking. Rows are created lazily and locked in location_id order.
	LockLevels(ctx context.Context, variantID string, locationIDs []string) ([]model.InventoryLevel, error)
	LockVariantLevels(ctx context.Context, variantID string) ([]model.InventoryLevel, error)

	// ApplyDelta is the only path that changes quantities. It appends movement in
	// the same transaction and fills its before/after quantities.
	ApplyDelta(ctx context.Context, delta *dto.LevelDelta, movement *model.InventoryMovement) (*model.InventoryLevel, error)
	UpdateThresholds(ctx context.Context, input *dto.ThresholdsInput) (*model.InventoryLevel, error)
	MarkCounted(ctx context.Context, variantID, locationID string, at time.Time) error

	// Movements / Audit
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, int, error)

	// Adjustments
	CreateAdjustment(ctx context.Context, adj *model.StockAdjustment) error
	GetAdjustmentForUpdate(ctx context.Context, id string) (*model.StockAdjustment, error)
	UpdateAdjustment(ctx context.Context, adj *model.StockAdjustment) error
	ListAdjustments(ctx context.Context, filters *dto.AdjustmentFilters) ([]model.StockAdjustment, int, error)
	CountAdjustmentsSince(ctx context.Context, since time.Time) (int, error)
}

// EventPublisher is told about every committed ledger change.
type EventPublisher interface {
	PublishStockChanged(ctx context.Context, event *dto.StockChangedEvent) error
}
