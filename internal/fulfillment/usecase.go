package fulfillment

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/fulfillment/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type UseCase interface {
	Create(ctx context.Context, input *dto.CreateFulfillmentInput) (*model.OrderFulfillment, error)
	Get(ctx context.Context, id string) (*model.OrderFulfillment, error)
	ListByOrder(ctx context.Context, orderID string) ([]model.OrderFulfillment, error)
	Advance(ctx context.Context, input *dto.AdvanceInput) (*model.OrderFulfillment, error)
	Assign(ctx context.Context, input *dto.AssignInput) (*model.OrderFulfillment, error)
	Stats(ctx context.Context) (*dto.Stats, error)
}
