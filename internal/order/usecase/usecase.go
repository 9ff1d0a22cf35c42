package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/metrics"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation"
	resDto "github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type orderUseCase struct {
	txm          database.TxManager
	repo         order.Repository
	reservations reservation.UseCase
	metrics      *metrics.Metrics
	logger       logger.ZapLogger
}

func NewOrderUseCase(
	txm database.TxManager,
	repo order.Repository,
	reservations reservation.UseCase,
	m *metrics.Metrics,
	log logger.ZapLogger,
) order.UseCase {
	return &orderUseCase{
		txm:          txm,
		repo:         repo,
		reservations: reservations,
		metrics:      m,
		logger:       log,
	}
}

func (uc *orderUseCase) Create(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error) {
	number := strings.TrimSpace(input.OrderNumber)
	if number == "" {
		return nil, apperror.InvalidArgument("order_number is required")
	}

	now := time.Now().UTC()
	o := &model.Order{
		ID:          uuid.New().String(),
		OrderNumber: number,
		Status:      model.OrderCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.repo.Create(ctx, o); err != nil {
			return err
		}
		status := model.OrderCreated
		return uc.repo.AppendHistory(ctx, &model.OrderHistory{
			ID:            uuid.New().String(),
			OrderID:       o.ID,
			Action:        model.ActionCreated,
			NewStatus:     &status,
			Description:   fmt.Sprintf("Order %s created", number),
			PerformedByID: model.OptionalString(input.UserID),
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (uc *orderUseCase) Get(ctx context.Context, id string) (*model.Order, error) {
	o, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperror.NotFound("order", id)
	}
	return o, nil
}

func (uc *orderUseCase) Transition(ctx context.Context, input *dto.TransitionInput) (o *model.Order, err error) {
	defer func() { uc.metrics.RecordOrderTransition(string(input.NewStatus), err) }()

	if !input.NewStatus.Valid() {
		return nil, apperror.InvalidArgument("unknown order status %q", input.NewStatus)
	}

	err = uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		o, err = uc.repo.GetForUpdate(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if o == nil {
			return apperror.NotFound("order", input.OrderID)
		}
		return uc.transition(ctx, o, input)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Order status changed",
		zap.String("order_id", o.ID),
		zap.String("status", string(o.Status)),
	)
	return o, nil
}

// transition runs inside a transaction that already holds the order row.
func (uc *orderUseCase) transition(ctx context.Context, o *model.Order, input *dto.TransitionInput) error {
	oldStatus, newStatus := o.Status, input.NewStatus
	if !oldStatus.CanTransitionTo(newStatus) {
		return apperror.InvalidTransition("order %s cannot move from %s to %s", o.OrderNumber, oldStatus, newStatus).
			WithDetails("allowed", oldStatus.AllowedTransitions())
	}

	now := time.Now().UTC()
	o.Status = newStatus
	o.StampStatus(now)
	if err := uc.repo.UpdateStatus(ctx, o); err != nil {
		return err
	}

	description := input.Note
	if description == "" {
		description = fmt.Sprintf("Order status changed from %s to %s", oldStatus, newStatus)
	}
	data := model.JSONMap{}
	for k, v := range input.Metadata {
		data[k] = v
	}
	if err := uc.repo.AppendHistory(ctx, &model.OrderHistory{
		ID:             uuid.New().String(),
		OrderID:        o.ID,
		Action:         newStatus.HistoryAction(),
		OldStatus:      &oldStatus,
		NewStatus:      &newStatus,
		Description:    description,
		PerformedByID:  model.OptionalString(input.UserID),
		AdditionalData: data,
		CreatedAt:      now,
	}); err != nil {
		return err
	}

	if oldStatus.HoldsStock() && (newStatus == model.OrderCancelled || newStatus == model.OrderRefunded) {
		return uc.releaseStock(ctx, o, newStatus, input.UserID, now)
	}
	return nil
}

func (uc *orderUseCase) releaseStock(ctx context.Context, o *model.Order, status model.OrderStatus, userID string, now time.Time) error {
	released, err := uc.reservations.ReleaseOrder(ctx, o.ID, fmt.Sprintf("order %s", status), userID)
	if err != nil {
		return err
	}
	if len(released) == 0 {
		return nil
	}

	ids := make([]string, 0, len(released))
	quantity := 0
	for _, r := range released {
		ids = append(ids, r.ID)
		quantity += r.QuantityReleased
	}
	return uc.repo.AppendHistory(ctx, &model.OrderHistory{
		ID:            uuid.New().String(),
		OrderID:       o.ID,
		Action:        model.ActionInventoryReleased,
		Description:   fmt.Sprintf("Released %d reserved units", quantity),
		PerformedByID: model.OptionalString(userID),
		AdditionalData: model.JSONMap{
			"reservation_ids":   ids,
			"released_quantity": quantity,
		},
		CreatedAt: now,
	})
}

// BulkTransition moves every order in its own transaction and reports each outcome.
func (uc *orderUseCase) BulkTransition(ctx context.Context, input *dto.BulkTransitionInput) *dto.BulkTransitionResult {
	result := &dto.BulkTransitionResult{Items: make([]dto.BulkTransitionItem, 0, len(input.OrderIDs))}
	for _, id := range input.OrderIDs {
		_, err := uc.Transition(ctx, &dto.TransitionInput{
			OrderID:   id,
			NewStatus: input.NewStatus,
			Note:      input.Note,
			UserID:    input.UserID,
			Metadata:  map[string]interface{}{"bulk": true},
		})
		result.TotalProcessed++
		if err != nil {
			result.TotalFailed++
			result.Items = append(result.Items, dto.BulkTransitionItem{
				OrderID:   id,
				Error:     err.Error(),
				ErrorCode: string(apperror.KindOf(err)),
			})
			continue
		}
		result.Items = append(result.Items, dto.BulkTransitionItem{OrderID: id, Success: true})
	}
	result.Success = result.TotalFailed == 0
	return result
}

// ReserveItems reserves stock for every line of the order, all or nothing.
func (uc *orderUseCase) ReserveItems(ctx context.Context, input *dto.ReserveItemsInput) ([]model.InventoryReservation, error) {
	if len(input.Items) == 0 {
		return nil, apperror.InvalidArgument("at least one item is required")
	}

	var reserved []model.InventoryReservation
	err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		o, err := uc.repo.GetForUpdate(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if o == nil {
			return apperror.NotFound("order", input.OrderID)
		}
		if !o.Status.HoldsStock() || o.Status == model.OrderPacked {
			return apperror.InvalidState("order %s is %s and can no longer reserve stock", o.OrderNumber, o.Status)
		}

		quantity := 0
		for _, item := range input.Items {
			out, err := uc.reservations.Reserve(ctx, &resDto.ReserveInput{
				OrderID:     o.ID,
				OrderItemID: item.OrderItemID,
				VariantID:   item.VariantID,
				LocationID:  item.LocationID,
				Quantity:    item.Quantity,
				UserID:      input.UserID,
			})
			if err != nil {
				return err
			}
			reserved = append(reserved, out.Reservations...)
			quantity += out.Total()
		}

		return uc.repo.AppendHistory(ctx, &model.OrderHistory{
			ID:            uuid.New().String(),
			OrderID:       o.ID,
			Action:        model.ActionInventoryReserved,
			Description:   fmt.Sprintf("Reserved %d units for %d items", quantity, len(input.Items)),
			PerformedByID: model.OptionalString(input.UserID),
			AdditionalData: model.JSONMap{
				"reserved_quantity": quantity,
				"reservation_count": len(reserved),
			},
			CreatedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}
	return reserved, nil
}

func (uc *orderUseCase) AddNote(ctx context.Context, input *dto.AddNoteInput) (*model.OrderNote, error) {
	if strings.TrimSpace(input.Note) == "" {
		return nil, apperror.InvalidArgument("note is required")
	}

	var note *model.OrderNote
	err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := uc.Get(ctx, input.OrderID); err != nil {
			return err
		}
		now := time.Now().UTC()
		note = &model.OrderNote{
			ID:          uuid.New().String(),
			OrderID:     input.OrderID,
			Note:        input.Note,
			IsInternal:  input.IsInternal,
			CreatedByID: model.OptionalString(input.UserID),
			CreatedAt:   now,
		}
		if err := uc.repo.CreateNote(ctx, note); err != nil {
			return err
		}
		return uc.repo.AppendHistory(ctx, &model.OrderHistory{
			ID:             uuid.New().String(),
			OrderID:        input.OrderID,
			Action:         model.ActionNoteAdded,
			Description:    "Note added",
			PerformedByID:  model.OptionalString(input.UserID),
			AdditionalData: model.JSONMap{"note_id": note.ID, "is_internal": note.IsInternal},
			CreatedAt:      now,
		})
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

func (uc *orderUseCase) ListNotes(ctx context.Context, orderID string, includeInternal bool) ([]model.OrderNote, error) {
	return uc.repo.ListNotes(ctx, orderID, includeInternal)
}

func (uc *orderUseCase) History(ctx context.Context, filters *dto.HistoryFilters) ([]model.OrderHistory, int, error) {
	return uc.repo.ListHistory(ctx, filters)
}
