package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/alert"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// StockListener feeds StockChanged events from Kafka into the low-stock evaluator.
type StockListener struct {
	consumer messageReader
	uc       alert.UseCase
	logger   logger.ZapLogger
}

func NewStockListener(consumer messageReader, uc alert.UseCase, logger logger.ZapLogger) *StockListener {
	return &StockListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *StockListener) Start(ctx context.Context) {
	l.logger.Info("Starting stock change Kafka listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping stock change Kafka listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

func (l *StockListener) processMessage(ctx context.Context, value []byte) {
	var event dto.StockChangedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != dto.StockChangedEventType {
		return
	}

	if err := l.Handle(ctx, &event); err != nil {
		l.logger.Error("Failed to evaluate low stock",
			zap.String("event_id", event.EventID),
			zap.String("variant_id", event.VariantID),
			zap.String("location_id", event.LocationID),
			zap.Error(err),
		)
	}
}

// Handle evaluates the ledger row named by event.
func (l *StockListener) Handle(ctx context.Context, event *dto.StockChangedEvent) error {
	_, err := l.uc.Evaluate(ctx, event.VariantID, event.LocationID)
	return err
}
