package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	invDto "github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/metrics"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultTTL        = 7 * 24 * time.Hour
	DefaultSweepBatch = 500

	referenceOrder = "order"
)

type Config struct {
	DefaultTTL time.Duration
	SweepBatch int
}

type reservationUseCase struct {
	txm       database.TxManager
	repo      reservation.Repository
	ledger    inventory.Repository
	publisher inventory.EventPublisher
	cfg       Config
	metrics   *metrics.Metrics
	logger    logger.ZapLogger
}

func NewReservationUseCase(
	txm database.TxManager,
	repo reservation.Repository,
	ledger inventory.Repository,
	publisher inventory.EventPublisher,
	cfg Config,
	m *metrics.Metrics,
	log logger.ZapLogger,
) reservation.UseCase {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = DefaultSweepBatch
	}
	return &reservationUseCase{
		txm:       txm,
		repo:      repo,
		ledger:    ledger,
		publisher: publisher,
		cfg:       cfg,
		metrics:   m,
		logger:    log,
	}
}

func (uc *reservationUseCase) Reserve(ctx context.Context, input *dto.ReserveInput) (*dto.ReserveOutcome, error) {
	if strings.TrimSpace(input.OrderID) == "" {
		return nil, apperror.InvalidArgument("order_id is required")
	}
	if strings.TrimSpace(input.VariantID) == "" {
		return nil, apperror.InvalidArgument("variant_id is required")
	}
	if input.Quantity <= 0 {
		return nil, apperror.InvalidArgument("quantity must be positive, got %d", input.Quantity)
	}

	now := time.Now().UTC()
	expiresAt := now.Add(uc.cfg.DefaultTTL)
	if input.ExpiresAt != nil {
		if !input.ExpiresAt.After(now) {
			return nil, apperror.InvalidArgument("expires_at must be in the future")
		}
		expiresAt = input.ExpiresAt.UTC()
	}

	outcome := &dto.ReserveOutcome{}
	err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		allocations := []dto.Allocation{{LocationID: input.LocationID, Quantity: input.Quantity}}
		if input.LocationID == "" {
			levels, err := uc.ledger.LockVariantLevels(ctx, input.VariantID)
			if err != nil {
				return err
			}
			allocations, err = Allocate(levels, input.Quantity)
			if err != nil {
				return err
			}
		}

		movements := make([]model.InventoryMovement, 0, len(allocations))
		for _, a := range allocations {
			movement := &model.InventoryMovement{
				MovementType:  model.MovementReservation,
				ReferenceType: model.OptionalString(referenceOrder),
				ReferenceID:   model.OptionalString(input.OrderID),
				Notes:         input.Notes,
				CreatedBy:     model.OptionalString(input.UserID),
			}
			level, err := uc.ledger.ApplyDelta(ctx, &invDto.LevelDelta{
				VariantID:     input.VariantID,
				LocationID:    a.LocationID,
				ReservedDelta: a.Quantity,
			}, movement)
			if err != nil {
				return err
			}

			res := model.InventoryReservation{
				ID:               uuid.New().String(),
				OrderID:          input.OrderID,
				OrderItemID:      input.OrderItemID,
				VariantID:        input.VariantID,
				LocationID:       a.LocationID,
				QuantityReserved: a.Quantity,
				IsActive:         true,
				ExpiresAt:        &expiresAt,
				Notes:            input.Notes,
				ReservedAt:       now,
				UpdatedAt:        now,
			}
			if err := uc.repo.Create(ctx, &res); err != nil {
				return err
			}

			outcome.Reservations = append(outcome.Reservations, res)
			outcome.Levels = append(outcome.Levels, *level)
			movements = append(movements, *movement)
		}

		inventory.NotifyStockChanged(ctx, uc.publisher, uc.logger, movements...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Stock reserved",
		zap.String("order_id", input.OrderID),
		zap.String("variant_id", input.VariantID),
		zap.Int("quantity", input.Quantity),
		zap.Int("locations", len(outcome.Reservations)),
	)
	return outcome, nil
}

// Allocate splits qty across levels, most available first with ties broken by
// location id. It fails with InsufficientStock when the levels cannot cover qty.
func Allocate(levels []model.InventoryLevel, qty int) ([]dto.Allocation, error) {
	sorted := append([]model.InventoryLevel(nil), levels...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Available() != sorted[j].Available() {
			return sorted[i].Available() > sorted[j].Available()
		}
		return sorted[i].LocationID < sorted[j].LocationID
	})

	total := 0
	for _, l := range sorted {
		if l.Available() > 0 {
			total += l.Available()
		}
	}
	if total < qty {
		return nil, apperror.InsufficientStock("requested %d units but only %d available across all locations", qty, total).
			WithDetails("available", total)
	}

	allocations := []dto.Allocation{}
	remaining := qty
	for _, l := range sorted {
		if remaining == 0 {
			break
		}
		take := l.Available()
		if take <= 0 {
			continue
		}
		if take > remaining {
			take = remaining
		}
		allocations = append(allocations, dto.Allocation{LocationID: l.LocationID, Quantity: take})
		remaining -= take
	}
	return allocations, nil
}

func (uc *reservationUseCase) Release(ctx context.Context, input *dto.ReleaseInput) (*dto.ReleaseOutcome, error) {
	var outcome *dto.ReleaseOutcome
	err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		res, err := uc.repo.GetForUpdate(ctx, input.ReservationID)
		if err != nil {
			return err
		}
		if res == nil {
			return apperror.NotFound("reservation", input.ReservationID)
		}

		qty := res.Outstanding()
		if input.Quantity != nil {
			qty = *input.Quantity
		}
		outcome, err = uc.release(ctx, res, qty, input.Reason, input.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// release runs inside a transaction that already holds the reservation row.
func (uc *reservationUseCase) release(ctx context.Context, res *model.InventoryReservation, qty int, reason, userID string) (*dto.ReleaseOutcome, error) {
	if err := res.Release(qty, time.Now().UTC()); err != nil {
		return nil, err
	}

	movement := &model.InventoryMovement{
		MovementType:  model.MovementRelease,
		ReferenceType: model.OptionalString(referenceOrder),
		ReferenceID:   model.OptionalString(res.OrderID),
		Notes:         reason,
		CreatedBy:     model.OptionalString(userID),
	}
	level, err := uc.ledger.ApplyDelta(ctx, &invDto.LevelDelta{
		VariantID:     res.VariantID,
		LocationID:    res.LocationID,
		ReservedDelta: -qty,
	}, movement)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Update(ctx, res); err != nil {
		return nil, err
	}

	inventory.NotifyStockChanged(ctx, uc.publisher, uc.logger, *movement)
	return &dto.ReleaseOutcome{Reservation: res, ReleasedQuantity: qty, Level: level}, nil
}

func (uc *reservationUseCase) Fulfill(ctx context.Context, input *dto.FulfillInput) (*dto.FulfillOutcome, error) {
	var outcome *dto.FulfillOutcome
	err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		res, err := uc.repo.GetForUpdate(ctx, input.ReservationID)
		if err != nil {
			return err
		}
		if res == nil {
			return apperror.NotFound("reservation", input.ReservationID)
		}
		if err := res.Fulfill(input.Quantity, time.Now().UTC()); err != nil {
			return err
		}

		refType, refID := input.ReferenceType, input.ReferenceID
		if refType == "" && refID == "" {
			refType, refID = referenceOrder, res.OrderID
		}
		movement := &model.InventoryMovement{
			MovementType:    model.MovementShip,
			ReferenceType:   model.OptionalString(refType),
			ReferenceID:     model.OptionalString(refID),
			ReferenceNumber: model.OptionalString(input.ReferenceNumber),
			Notes:           input.Notes,
			CreatedBy:       model.OptionalString(input.UserID),
		}
		level, err := uc.ledger.ApplyDelta(ctx, &invDto.LevelDelta{
			VariantID:     res.VariantID,
			LocationID:    res.LocationID,
			OnHandDelta:   -input.Quantity,
			ReservedDelta: -input.Quantity,
		}, movement)
		if err != nil {
			return err
		}
		if err := uc.repo.Update(ctx, res); err != nil {
			return err
		}

		inventory.NotifyStockChanged(ctx, uc.publisher, uc.logger, *movement)
		outcome = &dto.FulfillOutcome{Reservation: res, Level: level, Movement: movement}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (uc *reservationUseCase) ReleaseOrder(ctx context.Context, orderID, reason, userID string) ([]model.InventoryReservation, error) {
	var released []model.InventoryReservation
	err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		active, err := uc.repo.ListByOrder(ctx, orderID, true)
		if err != nil {
			return err
		}
		for _, candidate := range active {
			res, err := uc.repo.GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if res == nil || !res.IsActive {
				continue
			}
			outcome, err := uc.release(ctx, res, res.Outstanding(), reason, userID)
			if err != nil {
				return err
			}
			released = append(released, *outcome.Reservation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// ExpireSweep releases every active reservation that expired before now. Each
// reservation is released in its own transaction; losing a race to a concurrent
// release or fulfil is logged and skipped.
func (uc *reservationUseCase) ExpireSweep(ctx context.Context, now time.Time) ([]model.InventoryReservation, error) {
	candidates, err := uc.repo.ListExpired(ctx, now, uc.cfg.SweepBatch)
	if err != nil {
		return nil, err
	}

	expired := []model.InventoryReservation{}
	for _, candidate := range candidates {
		var outcome *dto.ReleaseOutcome
		err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
			res, err := uc.repo.GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if res == nil || !res.IsActive || !res.IsExpired(now) {
				return apperror.InvalidState("reservation %s is no longer expirable", candidate.ID)
			}
			outcome, err = uc.release(ctx, res, res.Outstanding(), "reservation expired", "")
			return err
		})
		if err != nil {
			if errors.Is(err, apperror.ErrInvalidState) {
				uc.logger.Debug("Skipped reservation during expiry sweep",
					zap.String("reservation_id", candidate.ID), zap.Error(err))
				continue
			}
			uc.logger.Error("Failed to expire reservation",
				zap.String("reservation_id", candidate.ID), zap.Error(err))
			continue
		}
		expired = append(expired, *outcome.Reservation)
	}

	uc.metrics.RecordReservationsExpired(len(expired))
	if len(expired) > 0 {
		uc.logger.Info("Expired reservations released", zap.Int("count", len(expired)))
	}
	return expired, nil
}

func (uc *reservationUseCase) Get(ctx context.Context, id string) (*model.InventoryReservation, error) {
	res, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, apperror.NotFound("reservation", id)
	}
	return res, nil
}

func (uc *reservationUseCase) ListByOrder(ctx context.Context, orderID string, activeOnly bool) ([]model.InventoryReservation, error) {
	return uc.repo.ListByOrder(ctx, orderID, activeOnly)
}
