package inventory

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	resDto "github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
)

type UseCase interface {
	// Stock operations
	Receive(ctx context.Context, input *dto.ReceiveInput) (*dto.StockResult, error)
	Ship(ctx context.Context, input *dto.ShipInput) (*dto.StockResult, error)
	Transfer(ctx context.Context, input *dto.TransferInput) (*dto.TransferResult, error)
	Reserve(ctx context.Context, input *resDto.ReserveInput) (*dto.ReservationResult, error)
	Release(ctx context.Context, input *resDto.ReleaseInput) (*dto.ReservationResult, error)
	BulkUpdate(ctx context.Context, input *dto.BulkUpdateInput) *dto.BulkUpdateResult

	// Adjustments
	CreateAdjustment(ctx context.Context, input *dto.CreateAdjustmentInput) (*model.StockAdjustment, error)
	ApproveAdjustment(ctx context.Context, input *dto.ReviewAdjustmentInput) (*model.StockAdjustment, error)
	RejectAdjustment(ctx context.Context, input *dto.ReviewAdjustmentInput) (*model.StockAdjustment, error)
	ListAdjustments(ctx context.Context, filters *dto.AdjustmentFilters) ([]model.StockAdjustment, int, error)

	// Reads
	GetLevel(ctx context.Context, variantID, locationID string) (*model.InventoryLevel, error)
	ListLevels(ctx context.Context, filters *dto.LevelFilters) ([]model.InventoryLevel, int, error)
	GetTotalStock(ctx context.Context, variantID string) (*dto.TotalStock, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, int, error)
	SetThresholds(ctx context.Context, input *dto.ThresholdsInput) (*model.InventoryLevel, error)
}
