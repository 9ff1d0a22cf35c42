package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/catalog"
	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/metrics"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation"
	resDto "github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	referenceTransfer   = "transfer"
	referenceAdjustment = "adjustment"
)

type inventoryUseCase struct {
	txm          database.TxManager
	repo         inventory.Repository
	reservations reservation.UseCase
	catalog      catalog.Checker
	publisher    inventory.EventPublisher
	metrics      *metrics.Metrics
	logger       logger.ZapLogger
}

func NewInventoryUseCase(
	txm database.TxManager,
	repo inventory.Repository,
	reservations reservation.UseCase,
	checker catalog.Checker,
	publisher inventory.EventPublisher,
	m *metrics.Metrics,
	log logger.ZapLogger,
) inventory.UseCase {
	return &inventoryUseCase{
		txm:          txm,
		repo:         repo,
		reservations: reservations,
		catalog:      checker,
		publisher:    publisher,
		metrics:      m,
		logger:       log,
	}
}

// track opens a span for op and returns the func that closes it and records the outcome.
func (uc *inventoryUseCase) track(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := tracing.Start(ctx, "inventory."+op, attrs...)
	return ctx, func(err error) {
		uc.metrics.RecordStockOperation(op, err)
		tracing.End(span, err)
	}
}

func stockAttrs(variantID, locationID string, qty int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("variant_id", variantID),
		attribute.String("location_id", locationID),
		attribute.Int("quantity", qty),
	}
}

func (uc *inventoryUseCase) Receive(ctx context.Context, input *dto.ReceiveInput) (result *dto.StockResult, err error) {
	ctx, done := uc.track(ctx, "receive", stockAttrs(input.VariantID, input.LocationID, input.Quantity)...)
	defer func() { done(err) }()

	if input.Quantity <= 0 {
		return nil, apperror.InvalidArgument("quantity must be positive, got %d", input.Quantity)
	}
	if input.UnitCost != nil && *input.UnitCost < 0 {
		return nil, apperror.InvalidArgument("unit_cost must not be negative")
	}
	if err := catalog.Require(ctx, uc.catalog, input.VariantID, input.LocationID); err != nil {
		return nil, err
	}

	err = uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		movement := &model.InventoryMovement{
			MovementType:    model.MovementReceive,
			UnitCost:        input.UnitCost,
			ReferenceType:   model.OptionalString(input.Reference.Type),
			ReferenceID:     model.OptionalString(input.Reference.ID),
			ReferenceNumber: model.OptionalString(input.Reference.Number),
			Notes:           input.Notes,
			CreatedBy:       model.OptionalString(input.UserID),
		}
		level, err := uc.repo.ApplyDelta(ctx, &dto.LevelDelta{
			VariantID:   input.VariantID,
			LocationID:  input.LocationID,
			OnHandDelta: input.Quantity,
		}, movement)
		if err != nil {
			return err
		}
		inventory.NotifyStockChanged(ctx, uc.publisher, uc.logger, *movement)
		result = &dto.StockResult{Level: level, Movement: movement}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (uc *inventoryUseCase) Ship(ctx context.Context, input *dto.ShipInput) (result *dto.StockResult, err error) {
	ctx, done := uc.track(ctx, "ship", stockAttrs(input.VariantID, input.LocationID, input.Quantity)...)
	defer func() { done(err) }()

	if input.Quantity <= 0 {
		return nil, apperror.InvalidArgument("quantity must be positive, got %d", input.Quantity)
	}

	err = uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		if input.ReservationID != "" {
			res, err := uc.reservations.Get(ctx, input.ReservationID)
			if err != nil {
				return err
			}
			if (input.VariantID != "" && input.VariantID != res.VariantID) ||
				(input.LocationID != "" && input.LocationID != res.LocationID) {
				return apperror.InvalidArgument("reservation %s does not hold %s at %s", res.ID, input.VariantID, input.LocationID)
			}
			out, err := uc.reservations.Fulfill(ctx, &resDto.FulfillInput{
				ReservationID:   input.ReservationID,
				Quantity:        input.Quantity,
				ReferenceType:   input.Reference.Type,
				ReferenceID:     input.Reference.ID,
				ReferenceNumber: input.Reference.Number,
				Notes:           input.Notes,
				UserID:          input.UserID,
			})
			if err != nil {
				return err
			}
			result = &dto.StockResult{Level: out.Level, Movement: out.Movement}
			return nil
		}

		movement := &model.InventoryMovement{
			MovementType:    model.MovementShip,
			ReferenceType:   model.OptionalString(input.Reference.Type),
			ReferenceID:     model.OptionalString(input.Reference.ID),
			ReferenceNumber: model.OptionalString(input.Reference.Number),
			Notes:           input.Notes,
			CreatedBy:       model.OptionalString(input.UserID),
		}
		level, err := uc.repo.ApplyDelta(ctx, &dto.LevelDelta{
			VariantID:   input.VariantID,
			LocationID:  input.LocationID,
			OnHandDelta: -input.Quantity,
		}, movement)
		if err != nil {
			return err
		}
		inventory.NotifyStockChanged(ctx, uc.publisher, uc.logger, *movement)
		result = &dto.StockResult{Level: level, Movement: movement}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (uc *inventoryUseCase) Transfer(ctx context.Context, input *dto.TransferInput) (result *dto.TransferResult, err error) {
	ctx, done := uc.track(ctx, "transfer",
		attribute.String("variant_id", input.VariantID),
		attribute.String("from_location_id", input.FromLocationID),
		attribute.String("to_location_id", input.ToLocationID),
		attribute.Int("quantity", input.Quantity),
	)
	defer func() { done(err) }()

	if input.FromLocationID == input.ToLocationID {
		return nil, apperror.InvalidArgument("source and destination locations must differ")
	}
	if input.Quantity <= 0 {
		return nil, apperror.InvalidArgument("quantity must be positive, got %d", input.Quantity)
	}
	if err := catalog.Require(ctx, uc.catalog, input.VariantID, input.FromLocationID, input.ToLocationID); err != nil {
		return nil, err
	}

	transferID := uuid.New().String()
	err = uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := uc.repo.LockLevels(ctx, input.VariantID, []string{input.FromLocationID, input.ToLocationID}); err != nil {
			return err
		}

		out := &model.InventoryMovement{
			MovementType:  model.MovementTransferOut,
			ReferenceType: model.OptionalString(referenceTransfer),
			ReferenceID:   model.OptionalString(transferID),
			Notes:         input.Notes,
			CreatedBy:     model.OptionalString(input.UserID),
		}
		from, err := uc.repo.ApplyDelta(ctx, &dto.LevelDelta{
			VariantID:   input.VariantID,
			LocationID:  input.FromLocationID,
			OnHandDelta: -input.Quantity,
		}, out)
		if err != nil {
			return err
		}

		in := &model.InventoryMovement{
			MovementType:  model.MovementTransferIn,
			ReferenceType: model.OptionalString(referenceTransfer),
			ReferenceID:   model.OptionalString(transferID),
			Notes:         input.Notes,
			CreatedBy:     model.OptionalString(input.UserID),
		}
		to, err := uc.repo.ApplyDelta(ctx, &dto.LevelDelta{
			VariantID:   input.VariantID,
			LocationID:  input.ToLocationID,
			OnHandDelta: input.Quantity,
		}, in)
		if err != nil {
			return err
		}

		inventory.NotifyStockChanged(ctx, uc.publisher, uc.logger, *out, *in)
		result = &dto.TransferResult{From: from, To: to, OutMovement: out, InMovement: in}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Stock transferred",
		zap.String("variant_id", input.VariantID),
		zap.String("from_location_id", input.FromLocationID),
		zap.String("to_location_id", input.ToLocationID),
		zap.Int("quantity", input.Quantity),
	)
	return result, nil
}

func (uc *inventoryUseCase) Reserve(ctx context.Context, input *resDto.ReserveInput) (result *dto.ReservationResult, err error) {
	ctx, done := uc.track(ctx, "reserve", stockAttrs(input.VariantID, input.LocationID, input.Quantity)...)
	defer func() { done(err) }()

	locations := []string{}
	if input.LocationID != "" {
		locations = append(locations, input.LocationID)
	}
	if err := catalog.Require(ctx, uc.catalog, input.VariantID, locations...); err != nil {
		return nil, err
	}

	out, err := uc.reservations.Reserve(ctx, input)
	if err != nil {
		return nil, err
	}

	available, err := uc.available(ctx, input.VariantID, input.LocationID)
	if err != nil {
		return nil, err
	}
	return &dto.ReservationResult{
		Success:           true,
		ReservedQuantity:  out.Total(),
		AvailableQuantity: available,
		Reservations:      out.Reservations,
	}, nil
}

func (uc *inventoryUseCase) Release(ctx context.Context, input *resDto.ReleaseInput) (result *dto.ReservationResult, err error) {
	ctx, done := uc.track(ctx, "release", attribute.String("reservation_id", input.ReservationID))
	defer func() { done(err) }()

	out, err := uc.reservations.Release(ctx, input)
	if err != nil {
		return nil, err
	}
	return &dto.ReservationResult{
		Success:           true,
		ReleasedQuantity:  out.ReleasedQuantity,
		AvailableQuantity: out.Level.Available(),
		Reservations:      []model.InventoryReservation{*out.Reservation},
	}, nil
}

// available is the stock left at location, or across all locations when location is empty.
func (uc *inventoryUseCase) available(ctx context.Context, variantID, locationID string) (int, error) {
	if locationID != "" {
		level, err := uc.GetLevel(ctx, variantID, locationID)
		if err != nil {
			return 0, err
		}
		return level.Available(), nil
	}
	total, err := uc.GetTotalStock(ctx, variantID)
	if err != nil {
		return 0, err
	}
	return total.QuantityAvailable, nil
}

// BulkUpdate receives every item in its own transaction. One failing item never
// undoes the others; each outcome is reported.
func (uc *inventoryUseCase) BulkUpdate(ctx context.Context, input *dto.BulkUpdateInput) *dto.BulkUpdateResult {
	result := &dto.BulkUpdateResult{Items: make([]dto.BulkItemResult, 0, len(input.Items))}

	for _, item := range input.Items {
		res, err := uc.Receive(ctx, &dto.ReceiveInput{
			VariantID:  item.VariantID,
			LocationID: input.LocationID,
			Quantity:   item.Quantity,
			UnitCost:   item.Cost,
			Reference:  dto.Reference{Type: "bulk_update"},
			Notes:      input.Notes,
			UserID:     input.UserID,
		})
		result.TotalProcessed++
		if err != nil {
			uc.logger.Warn("Bulk update item failed",
				zap.String("variant_id", item.VariantID),
				zap.String("location_id", input.LocationID),
				zap.Error(err),
			)
			result.TotalFailed++
			result.Items = append(result.Items, dto.BulkItemResult{
				VariantID: item.VariantID,
				Error:     err.Error(),
				ErrorCode: string(apperror.KindOf(err)),
			})
			continue
		}
		result.Items = append(result.Items, dto.BulkItemResult{VariantID: item.VariantID, Success: true, Level: res.Level})
	}

	result.Success = result.TotalFailed == 0
	return result
}

func (uc *inventoryUseCase) CreateAdjustment(ctx context.Context, input *dto.CreateAdjustmentInput) (adj *model.StockAdjustment, err error) {
	ctx, done := uc.track(ctx, "create_adjustment", stockAttrs(input.VariantID, input.LocationID, input.QuantityDelta)...)
	defer func() { done(err) }()

	if input.QuantityDelta == 0 {
		return nil, apperror.InvalidArgument("quantity_delta must not be zero")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, apperror.InvalidArgument("reason is required")
	}
	if err := catalog.Require(ctx, uc.catalog, input.VariantID, input.LocationID); err != nil {
		return nil, err
	}

	err = uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		count, err := uc.repo.CountAdjustmentsSince(ctx, startOfDay(now))
		if err != nil {
			return err
		}
		adj = &model.StockAdjustment{
			ID:                     uuid.New().String(),
			AdjustmentNumber:       fmt.Sprintf("ADJ-%s-%04d", now.Format("20060102"), count+1),
			VariantID:              input.VariantID,
			LocationID:             input.LocationID,
			RequestedQuantityDelta: input.QuantityDelta,
			Reason:                 input.Reason,
			Notes:                  input.Notes,
			Status:                 model.AdjustmentPending,
			RequestedByID:          model.OptionalString(input.UserID),
			CreatedAt:              now,
		}
		return uc.repo.CreateAdjustment(ctx, adj)
	})
	if err != nil {
		return nil, err
	}
	return adj, nil
}

func (uc *inventoryUseCase) ApproveAdjustment(ctx context.Context, input *dto.ReviewAdjustmentInput) (adj *model.StockAdjustment, err error) {
	ctx, done := uc.track(ctx, "approve_adjustment", attribute.String("adjustment_id", input.AdjustmentID))
	defer func() { done(err) }()

	err = uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		adj, err = uc.lockAdjustment(ctx, input.AdjustmentID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := adj.Review(model.AdjustmentApproved, input.UserID, now); err != nil {
			return err
		}
		appendNotes(adj, input.Notes)

		movement := &model.InventoryMovement{
			MovementType:    model.MovementAdjustment,
			ReferenceType:   model.OptionalString(referenceAdjustment),
			ReferenceID:     model.OptionalString(adj.ID),
			ReferenceNumber: model.OptionalString(adj.AdjustmentNumber),
			Notes:           adj.Reason,
			CreatedBy:       model.OptionalString(input.UserID),
		}
		if _, err := uc.repo.ApplyDelta(ctx, &dto.LevelDelta{
			VariantID:   adj.VariantID,
			LocationID:  adj.LocationID,
			OnHandDelta: adj.RequestedQuantityDelta,
		}, movement); err != nil {
			return err
		}
		if err := uc.repo.MarkCounted(ctx, adj.VariantID, adj.LocationID, now); err != nil {
			return err
		}
		if err := uc.repo.UpdateAdjustment(ctx, adj); err != nil {
			return err
		}
		inventory.NotifyStockChanged(ctx, uc.publisher, uc.logger, *movement)
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Stock adjustment approved",
		zap.String("adjustment_number", adj.AdjustmentNumber),
		zap.Int("quantity_delta", adj.RequestedQuantityDelta),
	)
	return adj, nil
}

func (uc *inventoryUseCase) RejectAdjustment(ctx context.Context, input *dto.ReviewAdjustmentInput) (adj *model.StockAdjustment, err error) {
	ctx, done := uc.track(ctx, "reject_adjustment", attribute.String("adjustment_id", input.AdjustmentID))
	defer func() { done(err) }()

	err = uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		adj, err = uc.lockAdjustment(ctx, input.AdjustmentID)
		if err != nil {
			return err
		}
		if err := adj.Review(model.AdjustmentRejected, input.UserID, time.Now().UTC()); err != nil {
			return err
		}
		appendNotes(adj, input.Notes)
		return uc.repo.UpdateAdjustment(ctx, adj)
	})
	if err != nil {
		return nil, err
	}
	return adj, nil
}

func (uc *inventoryUseCase) lockAdjustment(ctx context.Context, id string) (*model.StockAdjustment, error) {
	adj, err := uc.repo.GetAdjustmentForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if adj == nil {
		return nil, apperror.NotFound("stock adjustment", id)
	}
	return adj, nil
}

func appendNotes(adj *model.StockAdjustment, notes string) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return
	}
	if adj.Notes == "" {
		adj.Notes = notes
		return
	}
	adj.Notes += "\n" + notes
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (uc *inventoryUseCase) ListAdjustments(ctx context.Context, filters *dto.AdjustmentFilters) ([]model.StockAdjustment, int, error) {
	return uc.repo.ListAdjustments(ctx, filters)
}

// GetLevel returns a zero level for a pair that never had stock.
func (uc *inventoryUseCase) GetLevel(ctx context.Context, variantID, locationID string) (*model.InventoryLevel, error) {
	level, err := uc.repo.GetLevel(ctx, variantID, locationID)
	if err != nil {
		return nil, err
	}
	if level == nil {
		return &model.InventoryLevel{VariantID: variantID, LocationID: locationID}, nil
	}
	return level, nil
}

func (uc *inventoryUseCase) ListLevels(ctx context.Context, filters *dto.LevelFilters) ([]model.InventoryLevel, int, error) {
	return uc.repo.FindLevels(ctx, filters)
}

func (uc *inventoryUseCase) GetTotalStock(ctx context.Context, variantID string) (*dto.TotalStock, error) {
	levels, _, err := uc.repo.FindLevels(ctx, &dto.LevelFilters{VariantID: variantID})
	if err != nil {
		return nil, err
	}

	total := &dto.TotalStock{VariantID: variantID, Locations: levels, LocationCount: len(levels)}
	for _, l := range levels {
		total.QuantityOnHand += l.QuantityOnHand
		total.QuantityReserved += l.QuantityReserved
		total.QuantityAvailable += l.Available()
	}
	return total, nil
}

func (uc *inventoryUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, int, error) {
	if filters.MovementType != "" && !filters.MovementType.Valid() {
		return nil, 0, apperror.InvalidArgument("unknown movement type %q", filters.MovementType)
	}
	return uc.repo.ListMovements(ctx, filters)
}

func (uc *inventoryUseCase) SetThresholds(ctx context.Context, input *dto.ThresholdsInput) (*model.InventoryLevel, error) {
	for name, v := range map[string]*int{
		"reorder_point":    input.ReorderPoint,
		"reorder_quantity": input.ReorderQuantity,
		"max_stock_level":  input.MaxStockLevel,
	} {
		if v != nil && *v < 0 {
			return nil, apperror.InvalidArgument("%s must not be negative", name)
		}
	}

	var level *model.InventoryLevel
	err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		level, err = uc.repo.UpdateThresholds(ctx, input)
		if err != nil {
			return err
		}
		inventory.NotifyStockChanged(ctx, uc.publisher, uc.logger, model.InventoryMovement{
			VariantID:  input.VariantID,
			LocationID: input.LocationID,
			CreatedAt:  level.UpdatedAt,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return level, nil
}
