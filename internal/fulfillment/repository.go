package fulfillment

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, f *model.OrderFulfillment) error
	GetByID(ctx context.Context, id string) (*model.OrderFulfillment, error)
	GetForUpdate(ctx context.Context, id string) (*model.OrderFulfillment, error)
	Update(ctx context.Context, f *model.OrderFulfillment) error
	ListByOrder(ctx context.Context, orderID string) ([]model.OrderFulfillment, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	CountByStatus(ctx context.Context) (map[model.FulfillmentStatus]int, error)
}
