package model

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
)

// InventoryReservation is a promise of units at one location to one order line.
// QuantityReserved is the original promise; Outstanding is what is still held.
type InventoryReservation struct {
	ID                string     `db:"id" json:"id"`
	OrderID           string     `db:"order_id" json:"order_id"`
	OrderItemID       string     `db:"order_item_id" json:"order_item_id"`
	VariantID         string     `db:"product_variant_id" json:"product_variant_id"`
	LocationID        string     `db:"stock_location_id" json:"stock_location_id"`
	QuantityReserved  int        `db:"quantity_reserved" json:"quantity_reserved"`
	QuantityFulfilled int        `db:"quantity_fulfilled" json:"quantity_fulfilled"`
	QuantityReleased  int        `db:"quantity_released" json:"quantity_released"`
	IsActive          bool       `db:"is_active" json:"is_active"`
	ExpiresAt         *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	Notes             string     `db:"notes" json:"notes"`
	ReservedAt        time.Time  `db:"reserved_at" json:"reserved_at"`
	ReleasedAt        *time.Time `db:"released_at" json:"released_at,omitempty"`
	FulfilledAt       *time.Time `db:"fulfilled_at" json:"fulfilled_at,omitempty"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

func (r *InventoryReservation) Outstanding() int {
	return r.QuantityReserved - r.QuantityFulfilled - r.QuantityReleased
}

func (r *InventoryReservation) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

// Release gives qty outstanding units back. Reaching zero outstanding closes the
// reservation as released.
func (r *InventoryReservation) Release(qty int, now time.Time) error {
	if !r.IsActive {
		return apperror.InvalidState("reservation %s is no longer active", r.ID)
	}
	if qty <= 0 || qty > r.Outstanding() {
		return apperror.InvalidArgument("release quantity must be between 1 and %d, got %d", r.Outstanding(), qty)
	}
	r.QuantityReleased += qty
	r.UpdatedAt = now
	if r.Outstanding() == 0 {
		r.IsActive = false
		r.ReleasedAt = &now
	}
	return nil
}

// Fulfill marks qty outstanding units as shipped. Reaching zero outstanding closes
// the reservation as fulfilled.
func (r *InventoryReservation) Fulfill(qty int, now time.Time) error {
	if !r.IsActive {
		return apperror.InvalidState("reservation %s is no longer active", r.ID)
	}
	if qty <= 0 {
		return apperror.InvalidArgument("fulfil quantity must be positive, got %d", qty)
	}
	if qty > r.Outstanding() {
		return apperror.InvalidState("cannot fulfil %d units, only %d outstanding on reservation %s", qty, r.Outstanding(), r.ID)
	}
	r.QuantityFulfilled += qty
	r.UpdatedAt = now
	if r.Outstanding() == 0 {
		r.IsActive = false
		r.FulfilledAt = &now
	}
	return nil
}
