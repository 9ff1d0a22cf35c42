package model

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
)

type InventoryLevel struct {
	ID                string     `db:"id" json:"id"`
	VariantID         string     `db:"variant_id" json:"variant_id"`
	LocationID        string     `db:"location_id" json:"location_id"`
	QuantityOnHand    int        `db:"quantity_on_hand" json:"quantity_on_hand"`
	QuantityReserved  int        `db:"quantity_reserved" json:"quantity_reserved"`
	QuantityAvailable int        `db:"quantity_available" json:"quantity_available"` // Generated column
	ReorderPoint      *int       `db:"reorder_point" json:"reorder_point"`
	ReorderQuantity   *int       `db:"reorder_quantity" json:"reorder_quantity"`
	MaxStockLevel     *int       `db:"max_stock_level" json:"max_stock_level"`
	LastCountedAt     *time.Time `db:"last_counted_at" json:"last_counted_at"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

func (l *InventoryLevel) Available() int {
	return l.QuantityOnHand - l.QuantityReserved
}

// Apply moves on-hand and reserved by the given deltas, keeping 0 <= reserved <= on_hand.
// The level is left untouched when the move is rejected.
func (l *InventoryLevel) Apply(onHandDelta, reservedDelta int) error {
	onHand := l.QuantityOnHand + onHandDelta
	reserved := l.QuantityReserved + reservedDelta

	if onHand < 0 {
		return apperror.InsufficientStock("requested %d units but only %d on hand", -onHandDelta, l.QuantityOnHand).
			WithDetails("available", l.Available())
	}
	if reserved < 0 {
		return apperror.InvalidState("cannot release %d units, only %d reserved", -reservedDelta, l.QuantityReserved)
	}
	if reserved > onHand {
		if reservedDelta > 0 {
			return apperror.InsufficientStock("requested %d units but only %d available", reservedDelta, l.Available()).
				WithDetails("available", l.Available())
		}
		return apperror.InsufficientStock("removing %d units would leave %d reserved units uncovered", -onHandDelta, reserved-onHand).
			WithDetails("available", l.Available())
	}

	l.QuantityOnHand = onHand
	l.QuantityReserved = reserved
	l.QuantityAvailable = onHand - reserved
	return nil
}

// IsThresholded reports whether the row takes part in low-stock evaluation.
func (l *InventoryLevel) IsThresholded() bool {
	return l.ReorderPoint != nil && *l.ReorderPoint > 0
}

type MovementType string

const (
	MovementReceive     MovementType = "receive"
	MovementShip        MovementType = "ship"
	MovementTransferOut MovementType = "transfer_out"
	MovementTransferIn  MovementType = "transfer_in"
	MovementAdjustment  MovementType = "adjustment"
	MovementReservation MovementType = "reservation"
	MovementRelease     MovementType = "release"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementReceive, MovementShip, MovementTransferOut, MovementTransferIn,
		MovementAdjustment, MovementReservation, MovementRelease:
		return true
	}
	return false
}

// InventoryMovement is append-only. QuantityDelta is the signed on-hand change and
// ReservedDelta the signed reserved change, so reservation movements carry a zero
// QuantityDelta.
type InventoryMovement struct {
	ID              string       `db:"id" json:"id"`
	MovementType    MovementType `db:"movement_type" json:"movement_type"`
	VariantID       string       `db:"variant_id" json:"variant_id"`
	LocationID      string       `db:"location_id" json:"location_id"`
	QuantityDelta   int          `db:"quantity_delta" json:"quantity_delta"`
	ReservedDelta   int          `db:"reserved_delta" json:"reserved_delta"`
	QuantityBefore  int          `db:"quantity_before" json:"quantity_before"`
	QuantityAfter   int          `db:"quantity_after" json:"quantity_after"`
	UnitCost        *float64     `db:"unit_cost" json:"unit_cost,omitempty"`
	ReferenceType   *string      `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceID     *string      `db:"reference_id" json:"reference_id,omitempty"`
	ReferenceNumber *string      `db:"reference_number" json:"reference_number,omitempty"`
	Notes           string       `db:"notes" json:"notes"`
	CreatedBy       *string      `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
}

type AdjustmentStatus string

const (
	AdjustmentPending  AdjustmentStatus = "pending"
	AdjustmentApproved AdjustmentStatus = "approved"
	AdjustmentRejected AdjustmentStatus = "rejected"
)

type StockAdjustment struct {
	ID                     string           `db:"id" json:"id"`
	AdjustmentNumber       string           `db:"adjustment_number" json:"adjustment_number"`
	VariantID              string           `db:"variant_id" json:"variant_id"`
	LocationID             string           `db:"location_id" json:"location_id"`
	RequestedQuantityDelta int              `db:"requested_quantity_delta" json:"requested_quantity_delta"`
	Reason                 string           `db:"reason" json:"reason"`
	Notes                  string           `db:"notes" json:"notes"`
	Status                 AdjustmentStatus `db:"status" json:"status"`
	RequestedByID          *string          `db:"requested_by_id" json:"requested_by_id,omitempty"`
	ApprovedByID           *string          `db:"approved_by_id" json:"approved_by_id,omitempty"`
	ApprovedAt             *time.Time       `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt              time.Time        `db:"created_at" json:"created_at"`
}

// Review moves a pending adjustment to approved or rejected.
func (a *StockAdjustment) Review(status AdjustmentStatus, reviewerID string, now time.Time) error {
	if a.Status != AdjustmentPending {
		return apperror.InvalidState("adjustment %s is already %s", a.AdjustmentNumber, a.Status)
	}
	a.Status = status
	if reviewerID != "" {
		a.ApprovedByID = &reviewerID
	}
	a.ApprovedAt = &now
	return nil
}
