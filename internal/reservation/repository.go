package reservation

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, r *model.InventoryReservation) error
	GetByID(ctx context.Context, id string) (*model.InventoryReservation, error)
	// GetForUpdate locks the row for the rest of the surrounding transaction.
	GetForUpdate(ctx context.Context, id string) (*model.InventoryReservation, error)
	Update(ctx context.Context, r *model.InventoryReservation) error
	ListByOrder(ctx context.Context, orderID string, activeOnly bool) ([]model.InventoryReservation, error)
	// ListExpired returns active reservations whose expires_at is before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]model.InventoryReservation, error)
}
