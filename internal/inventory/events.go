package inventory

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// NotifyStockChanged publishes one StockChanged event per movement once the
// surrounding transaction commits. Publish failures are logged, never returned.
func NotifyStockChanged(ctx context.Context, pub EventPublisher, log logger.ZapLogger, movements ...model.InventoryMovement) {
	if pub == nil || len(movements) == 0 {
		return
	}

	events := make([]*dto.StockChangedEvent, 0, len(movements))
	for _, m := range movements {
		events = append(events, &dto.StockChangedEvent{
			EventID:      uuid.New().String(),
			EventType:    dto.StockChangedEventType,
			VariantID:    m.VariantID,
			LocationID:   m.LocationID,
			MovementType: m.MovementType,
			Timestamp:    m.CreatedAt,
		})
	}

	database.AfterCommit(ctx, func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		for _, e := range events {
			if err := pub.PublishStockChanged(pubCtx, e); err != nil {
				log.Warn("Failed to publish stock changed event",
					zap.String("variant_id", e.VariantID),
					zap.String("location_id", e.LocationID),
					zap.Error(err),
				)
			}
		}
	})
}
