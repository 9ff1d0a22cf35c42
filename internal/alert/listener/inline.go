package listener

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/alert"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
)

type inlinePublisher struct {
	uc alert.UseCase
}

// NewInlinePublisher evaluates low stock in process instead of going through
// Kafka. It is used when no broker is configured.
func NewInlinePublisher(uc alert.UseCase) inventory.EventPublisher {
	return &inlinePublisher{uc: uc}
}

func (p *inlinePublisher) PublishStockChanged(ctx context.Context, event *dto.StockChangedEvent) error {
	_, err := p.uc.Evaluate(ctx, event.VariantID, event.LocationID)
	return err
}
