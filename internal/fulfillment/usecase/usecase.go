package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/fulfillment"
	"github.com/fekuna/omnipos-inventory-service/internal/fulfillment/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	invDto "github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/metrics"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order"
	orderDto "github.com/fekuna/omnipos-inventory-service/internal/order/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation"
	resDto "github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const referenceFulfillment = "fulfillment"

type fulfillmentUseCase struct {
	txm          database.TxManager
	repo         fulfillment.Repository
	orders       order.UseCase
	history      order.HistoryRecorder
	stock        inventory.UseCase
	reservations reservation.UseCase
	metrics      *metrics.Metrics
	logger       logger.ZapLogger
}

func NewFulfillmentUseCase(
	txm database.TxManager,
	repo fulfillment.Repository,
	orders order.UseCase,
	history order.HistoryRecorder,
	stock inventory.UseCase,
	reservations reservation.UseCase,
	m *metrics.Metrics,
	log logger.ZapLogger,
) fulfillment.UseCase {
	return &fulfillmentUseCase{
		txm:          txm,
		repo:         repo,
		orders:       orders,
		history:      history,
		stock:        stock,
		reservations: reservations,
		metrics:      m,
		logger:       log,
	}
}

func (uc *fulfillmentUseCase) Create(ctx context.Context, input *dto.CreateFulfillmentInput) (*model.OrderFulfillment, error) {
	if len(input.Items) == 0 {
		return nil, apperror.InvalidArgument("at least one item is required")
	}

	var f *model.OrderFulfillment
	err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		o, err := uc.orders.Get(ctx, input.OrderID)
		if err != nil {
			return err
		}
		switch o.Status {
		case model.OrderPaymentReceived:
			if _, err := uc.orders.Transition(ctx, &orderDto.TransitionInput{
				OrderID:   o.ID,
				NewStatus: model.OrderProcessingStarted,
				Note:      "Fulfillment started",
				UserID:    input.UserID,
			}); err != nil {
				return err
			}
		case model.OrderProcessingStarted:
		default:
			return apperror.InvalidState("order %s is %s and cannot be fulfilled", o.OrderNumber, o.Status)
		}

		items, err := uc.snapshotItems(ctx, o.ID, input.Items)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		count, err := uc.repo.CountSince(ctx, startOfDay(now))
		if err != nil {
			return err
		}
		f = &model.OrderFulfillment{
			ID:                uuid.New().String(),
			OrderID:           o.ID,
			FulfillmentNumber: fmt.Sprintf("FUL-%s-%04d", now.Format("20060102"), count+1),
			Status:            model.FulfillmentPending,
			Items:             items,
			WarehouseLocation: input.WarehouseLocation,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		f.Assign(input.AssignedToID, now)
		if err := uc.repo.Create(ctx, f); err != nil {
			return err
		}
		return uc.record(ctx, f, "", input.UserID, fmt.Sprintf("Fulfillment %s created", f.FulfillmentNumber), now)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Fulfillment created",
		zap.String("order_id", f.OrderID),
		zap.String("fulfillment_number", f.FulfillmentNumber),
		zap.Int("items", len(f.Items)),
	)
	return f, nil
}

// snapshotItems checks every item against its reservation and copies the
// reservation's variant and location into the snapshot.
func (uc *fulfillmentUseCase) snapshotItems(ctx context.Context, orderID string, items []dto.CreateItem) (model.FulfillmentItems, error) {
	snapshot := make(model.FulfillmentItems, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, apperror.InvalidArgument("item %s: quantity must be positive", item.OrderItemID)
		}
		if item.ReservationID == "" {
			return nil, apperror.InvalidArgument("item %s: reservation_id is required", item.OrderItemID)
		}
		res, err := uc.reservations.Get(ctx, item.ReservationID)
		if err != nil {
			return nil, err
		}
		if res.OrderID != orderID {
			return nil, apperror.InvalidArgument("reservation %s does not belong to order %s", res.ID, orderID)
		}
		if !res.IsActive || res.Outstanding() < item.Quantity {
			return nil, apperror.InvalidState("reservation %s has only %d units outstanding", res.ID, res.Outstanding())
		}
		orderItemID := item.OrderItemID
		if orderItemID == "" {
			orderItemID = res.OrderItemID
		}
		snapshot = append(snapshot, model.FulfillmentItem{
			OrderItemID:   orderItemID,
			VariantID:     res.VariantID,
			LocationID:    res.LocationID,
			ReservationID: res.ID,
			Quantity:      item.Quantity,
		})
	}
	return snapshot, nil
}

func (uc *fulfillmentUseCase) Get(ctx context.Context, id string) (*model.OrderFulfillment, error) {
	f, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, apperror.NotFound("fulfillment", id)
	}
	return f, nil
}

func (uc *fulfillmentUseCase) ListByOrder(ctx context.Context, orderID string) ([]model.OrderFulfillment, error) {
	return uc.repo.ListByOrder(ctx, orderID)
}

// Advance moves the fulfillment to input.Status. Asking for the current status is a no-op.
func (uc *fulfillmentUseCase) Advance(ctx context.Context, input *dto.AdvanceInput) (f *model.OrderFulfillment, err error) {
	defer func() { uc.metrics.RecordFulfillmentTransition(string(input.Status), err) }()

	if !input.Status.Valid() {
		return nil, apperror.InvalidArgument("unknown fulfillment status %q", input.Status)
	}

	err = uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		f, err = uc.repo.GetForUpdate(ctx, input.FulfillmentID)
		if err != nil {
			return err
		}
		if f == nil {
			return apperror.NotFound("fulfillment", input.FulfillmentID)
		}
		if f.Status == input.Status {
			return nil
		}
		if !f.Status.CanTransitionTo(input.Status) {
			return apperror.InvalidTransition("fulfillment %s cannot move from %s to %s", f.FulfillmentNumber, f.Status, input.Status)
		}

		now := time.Now().UTC()
		oldStatus := f.Status
		if err := uc.enter(ctx, f, input, now); err != nil {
			return err
		}

		f.Status = input.Status
		f.StampStatus(now)
		if err := uc.repo.Update(ctx, f); err != nil {
			return err
		}
		return uc.record(ctx, f, oldStatus, input.UserID,
			fmt.Sprintf("Fulfillment %s moved from %s to %s", f.FulfillmentNumber, oldStatus, input.Status), now)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// enter applies the side effects of entering input.Status.
func (uc *fulfillmentUseCase) enter(ctx context.Context, f *model.OrderFulfillment, input *dto.AdvanceInput, now time.Time) error {
	switch input.Status {
	case model.FulfillmentPicking:
		f.Assign(input.UserID, now)
		if input.Notes != "" {
			f.PickingNotes = input.Notes
		}

	case model.FulfillmentPacking:
		if input.Notes != "" {
			f.PackingNotes = input.Notes
		}

	case model.FulfillmentReadyToShip:
		return uc.advanceOrder(ctx, f.OrderID, model.OrderProcessingStarted, model.OrderPacked, input.UserID)

	case model.FulfillmentShipped:
		for _, item := range f.Items {
			if _, err := uc.stock.Ship(ctx, &invDto.ShipInput{
				VariantID:     item.VariantID,
				LocationID:    item.LocationID,
				Quantity:      item.Quantity,
				ReservationID: item.ReservationID,
				Reference:     invDto.Reference{Type: referenceFulfillment, ID: f.ID, Number: f.FulfillmentNumber},
				Notes:         input.Notes,
				UserID:        input.UserID,
			}); err != nil {
				return err
			}
		}
		return uc.advanceOrder(ctx, f.OrderID, model.OrderPacked, model.OrderShipped, input.UserID)

	case model.FulfillmentFulfilled, model.FulfillmentPartiallyFulfilled:
		outstanding, err := uc.outstanding(ctx, f)
		if err != nil {
			return err
		}
		if input.Status == model.FulfillmentFulfilled && outstanding > 0 {
			return apperror.InvalidTransition("fulfillment %s still has %d reserved units outstanding", f.FulfillmentNumber, outstanding)
		}
		if input.Status == model.FulfillmentPartiallyFulfilled && outstanding == 0 {
			return apperror.InvalidTransition("fulfillment %s has no outstanding units, use fulfilled", f.FulfillmentNumber)
		}

	case model.FulfillmentCancelled:
		if f.Status == model.FulfillmentPicking || f.Status == model.FulfillmentPacking {
			return uc.releaseItems(ctx, f, input.UserID)
		}
	}
	return nil
}

// advanceOrder moves the order from -> to. An order already at or past to is left
// alone so that several fulfillments of one order can progress independently.
func (uc *fulfillmentUseCase) advanceOrder(ctx context.Context, orderID string, from, to model.OrderStatus, userID string) error {
	o, err := uc.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	switch {
	case o.Status.AtOrPast(to):
		return nil
	case o.Status == from:
		_, err := uc.orders.Transition(ctx, &orderDto.TransitionInput{OrderID: orderID, NewStatus: to, UserID: userID})
		return err
	}
	return apperror.InvalidState("order %s is %s, expected %s", o.OrderNumber, o.Status, from)
}

// outstanding sums what is still reserved behind the items snapshot.
func (uc *fulfillmentUseCase) outstanding(ctx context.Context, f *model.OrderFulfillment) (int, error) {
	seen := map[string]bool{}
	total := 0
	for _, item := range f.Items {
		if item.ReservationID == "" || seen[item.ReservationID] {
			continue
		}
		seen[item.ReservationID] = true
		res, err := uc.reservations.Get(ctx, item.ReservationID)
		if err != nil {
			return 0, err
		}
		if res.IsActive {
			total += res.Outstanding()
		}
	}
	return total, nil
}

func (uc *fulfillmentUseCase) releaseItems(ctx context.Context, f *model.OrderFulfillment, userID string) error {
	for _, item := range f.Items {
		if item.ReservationID == "" {
			continue
		}
		res, err := uc.reservations.Get(ctx, item.ReservationID)
		if err != nil {
			return err
		}
		if !res.IsActive {
			continue
		}
		qty := item.Quantity
		if qty > res.Outstanding() {
			qty = res.Outstanding()
		}
		if _, err := uc.reservations.Release(ctx, &resDto.ReleaseInput{
			ReservationID: res.ID,
			Quantity:      &qty,
			Reason:        fmt.Sprintf("fulfillment %s cancelled", f.FulfillmentNumber),
			UserID:        userID,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (uc *fulfillmentUseCase) Assign(ctx context.Context, input *dto.AssignInput) (*model.OrderFulfillment, error) {
	if input.AssigneeID == "" {
		return nil, apperror.InvalidArgument("assignee_id is required")
	}

	var f *model.OrderFulfillment
	err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		f, err = uc.repo.GetForUpdate(ctx, input.FulfillmentID)
		if err != nil {
			return err
		}
		if f == nil {
			return apperror.NotFound("fulfillment", input.FulfillmentID)
		}
		if f.Status.IsTerminal() || f.Status == model.FulfillmentShipped {
			return apperror.InvalidState("fulfillment %s is %s and can no longer be reassigned", f.FulfillmentNumber, f.Status)
		}

		now := time.Now().UTC()
		assignee := input.AssigneeID
		f.AssignedToID = &assignee
		f.AssignedAt = &now
		f.UpdatedAt = now
		if err := uc.repo.Update(ctx, f); err != nil {
			return err
		}
		return uc.history.AppendHistory(ctx, &model.OrderHistory{
			ID:            uuid.New().String(),
			OrderID:       f.OrderID,
			Action:        model.ActionAssigned,
			Description:   fmt.Sprintf("Fulfillment %s assigned", f.FulfillmentNumber),
			PerformedByID: model.OptionalString(input.UserID),
			AdditionalData: model.JSONMap{
				"fulfillment_id":     f.ID,
				"fulfillment_number": f.FulfillmentNumber,
				"assigned_to_id":     assignee,
			},
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (uc *fulfillmentUseCase) Stats(ctx context.Context) (*dto.Stats, error) {
	counts, err := uc.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &dto.Stats{ByStatus: make(map[model.FulfillmentStatus]int, len(model.FulfillmentStatuses))}
	for _, s := range model.FulfillmentStatuses {
		stats.ByStatus[s] = counts[s]
		stats.Total += counts[s]
	}
	return stats, nil
}

// record appends a status_changed row to the order's audit trail.
func (uc *fulfillmentUseCase) record(ctx context.Context, f *model.OrderFulfillment, oldStatus model.FulfillmentStatus, userID, description string, now time.Time) error {
	data := model.JSONMap{
		"fulfillment_id":     f.ID,
		"fulfillment_number": f.FulfillmentNumber,
		"fulfillment_status": string(f.Status),
	}
	if oldStatus != "" {
		data["previous_fulfillment_status"] = string(oldStatus)
	}
	return uc.history.AppendHistory(ctx, &model.OrderHistory{
		ID:             uuid.New().String(),
		OrderID:        f.OrderID,
		Action:         model.ActionStatusChanged,
		Description:    description,
		PerformedByID:  model.OptionalString(userID),
		AdditionalData: data,
		CreatedAt:      now,
	})
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
