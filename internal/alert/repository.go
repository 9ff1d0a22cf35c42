package alert

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/alert/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type Repository interface {
	GetOpen(ctx context.Context, variantID, locationID string) (*model.LowStockAlert, error)
	GetByID(ctx context.Context, id string) (*model.LowStockAlert, error)
	Create(ctx context.Context, a *model.LowStockAlert) error
	Update(ctx context.Context, a *model.LowStockAlert) error
	List(ctx context.Context, filters *dto.AlertFilters) ([]model.LowStockAlert, int, error)
}
