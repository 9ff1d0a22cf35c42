package dto

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

// ReserveInput asks for Quantity units of a variant for one order line. An empty
// LocationID lets the manager allocate across locations.
type ReserveInput struct {
	OrderID     string
	OrderItemID string
	VariantID   string
	LocationID  string
	Quantity    int
	ExpiresAt   *time.Time
	Notes       string
	UserID      string
}

// ReleaseInput gives units back. A nil Quantity releases everything outstanding.
type ReleaseInput struct {
	ReservationID string
	Quantity      *int
	Reason        string
	UserID        string
}

type FulfillInput struct {
	ReservationID   string
	Quantity        int
	ReferenceType   string
	ReferenceID     string
	ReferenceNumber string
	Notes           string
	UserID          string
}

type ReserveOutcome struct {
	Reservations []model.InventoryReservation
	Levels       []model.InventoryLevel
}

func (o *ReserveOutcome) Total() int {
	total := 0
	for _, r := range o.Reservations {
		total += r.QuantityReserved
	}
	return total
}

type ReleaseOutcome struct {
	Reservation      *model.InventoryReservation
	ReleasedQuantity int
	Level            *model.InventoryLevel
}

type FulfillOutcome struct {
	Reservation *model.InventoryReservation
	Level       *model.InventoryLevel
	Movement    *model.InventoryMovement
}

// Allocation is one slice of a reservation request placed at a location.
type Allocation struct {
	LocationID string
	Quantity   int
}
