package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
)

type producer interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type kafkaPublisher struct {
	producer producer
}

// NewKafkaPublisher keys every event by variant and location so that changes to
// one ledger row stay ordered within a partition.
func NewKafkaPublisher(p producer) inventory.EventPublisher {
	return &kafkaPublisher{producer: p}
}

func (p *kafkaPublisher) PublishStockChanged(ctx context.Context, event *dto.StockChangedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal stock changed event: %w", err)
	}
	key := event.VariantID + ":" + event.LocationID
	if err := p.producer.Publish(ctx, key, payload); err != nil {
		return fmt.Errorf("failed to publish stock changed event: %w", err)
	}
	return nil
}
