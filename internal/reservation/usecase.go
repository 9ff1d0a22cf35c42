package reservation

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
)

type UseCase interface {
	Reserve(ctx context.Context, input *dto.ReserveInput) (*dto.ReserveOutcome, error)
	Release(ctx context.Context, input *dto.ReleaseInput) (*dto.ReleaseOutcome, error)
	Fulfill(ctx context.Context, input *dto.FulfillInput) (*dto.FulfillOutcome, error)
	ReleaseOrder(ctx context.Context, orderID, reason, userID string) ([]model.InventoryReservation, error)
	ExpireSweep(ctx context.Context, now time.Time) ([]model.InventoryReservation, error)
	Get(ctx context.Context, id string) (*model.InventoryReservation, error)
	ListByOrder(ctx context.Context, orderID string, activeOnly bool) ([]model.InventoryReservation, error)
}
