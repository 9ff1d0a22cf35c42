package alert

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/alert/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type UseCase interface {
	Evaluate(ctx context.Context, variantID, locationID string) (*dto.Evaluation, error)
	Sweep(ctx context.Context) (*dto.SweepResult, error)
	Acknowledge(ctx context.Context, input *dto.AcknowledgeInput) (*model.LowStockAlert, error)
	ListAlerts(ctx context.Context, filters *dto.AlertFilters) ([]model.LowStockAlert, int, error)
	LowStockReport(ctx context.Context, filters *dto.ReportFilters) (*dto.Report, error)
}
