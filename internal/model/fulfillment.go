package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type FulfillmentStatus string

const (
	FulfillmentPending            FulfillmentStatus = "pending"
	FulfillmentPicking            FulfillmentStatus = "picking"
	FulfillmentPacking            FulfillmentStatus = "packing"
	FulfillmentReadyToShip        FulfillmentStatus = "ready_to_ship"
	FulfillmentShipped            FulfillmentStatus = "shipped"
	FulfillmentFulfilled          FulfillmentStatus = "fulfilled"
	FulfillmentPartiallyFulfilled FulfillmentStatus = "partially_fulfilled"
	FulfillmentCancelled          FulfillmentStatus = "cancelled"
)

var fulfillmentTransitions = map[FulfillmentStatus][]FulfillmentStatus{
	FulfillmentPending:     {FulfillmentPicking, FulfillmentCancelled},
	FulfillmentPicking:     {FulfillmentPacking, FulfillmentCancelled},
	FulfillmentPacking:     {FulfillmentReadyToShip, FulfillmentCancelled},
	FulfillmentReadyToShip: {FulfillmentShipped},
	FulfillmentShipped:     {FulfillmentFulfilled, FulfillmentPartiallyFulfilled},
}

// FulfillmentStatuses lists every state in workflow order.
var FulfillmentStatuses = []FulfillmentStatus{
	FulfillmentPending, FulfillmentPicking, FulfillmentPacking, FulfillmentReadyToShip,
	FulfillmentShipped, FulfillmentFulfilled, FulfillmentPartiallyFulfilled, FulfillmentCancelled,
}

func (s FulfillmentStatus) Valid() bool {
	for _, known := range FulfillmentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s FulfillmentStatus) CanTransitionTo(next FulfillmentStatus) bool {
	for _, allowed := range fulfillmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s FulfillmentStatus) IsTerminal() bool {
	return len(fulfillmentTransitions[s]) == 0
}

// FulfillmentItem is the items snapshot taken when the fulfillment is created.
type FulfillmentItem struct {
	OrderItemID   string `json:"order_item_id"`
	VariantID     string `json:"variant_id"`
	LocationID    string `json:"location_id"`
	ReservationID string `json:"reservation_id"`
	Quantity      int    `json:"quantity"`
}

type FulfillmentItems []FulfillmentItem

func (items *FulfillmentItems) Scan(value interface{}) error {
	if value == nil {
		*items = FulfillmentItems{}
		return nil
	}
	b, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("failed to scan FulfillmentItems: %w", err)
	}
	return json.Unmarshal(b, items)
}

func (items FulfillmentItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type OrderFulfillment struct {
	ID                 string            `db:"id" json:"id"`
	OrderID            string            `db:"order_id" json:"order_id"`
	FulfillmentNumber  string            `db:"fulfillment_number" json:"fulfillment_number"`
	Status             FulfillmentStatus `db:"status" json:"status"`
	AssignedToID       *string           `db:"assigned_to_id" json:"assigned_to_id,omitempty"`
	Items              FulfillmentItems  `db:"items" json:"items"`
	WarehouseLocation  string            `db:"warehouse_location" json:"warehouse_location"`
	PickingNotes       string            `db:"picking_notes" json:"picking_notes"`
	PackingNotes       string            `db:"packing_notes" json:"packing_notes"`
	AssignedAt         *time.Time        `db:"assigned_at" json:"assigned_at,omitempty"`
	PickingStartedAt   *time.Time        `db:"picking_started_at" json:"picking_started_at,omitempty"`
	PickingCompletedAt *time.Time        `db:"picking_completed_at" json:"picking_completed_at,omitempty"`
	PackingStartedAt   *time.Time        `db:"packing_started_at" json:"packing_started_at,omitempty"`
	PackingCompletedAt *time.Time        `db:"packing_completed_at" json:"packing_completed_at,omitempty"`
	ShippedAt          *time.Time        `db:"shipped_at" json:"shipped_at,omitempty"`
	CompletedAt        *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt        *time.Time        `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt          time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updated_at"`
}

// Assign sets the assignee if none is set yet.
func (f *OrderFulfillment) Assign(userID string, now time.Time) bool {
	if userID == "" || f.AssignedToID != nil {
		return false
	}
	f.AssignedToID = &userID
	f.AssignedAt = &now
	return true
}

// StampStatus sets the timestamps tied to the state the fulfillment just entered.
// A timestamp that is already set is never rewritten.
func (f *OrderFulfillment) StampStatus(now time.Time) {
	f.UpdatedAt = now
	switch f.Status {
	case FulfillmentPicking:
		setOnce(&f.PickingStartedAt, now)
	case FulfillmentPacking:
		setOnce(&f.PickingCompletedAt, now)
		setOnce(&f.PackingStartedAt, now)
	case FulfillmentReadyToShip:
		setOnce(&f.PackingCompletedAt, now)
	case FulfillmentShipped:
		setOnce(&f.ShippedAt, now)
	case FulfillmentFulfilled, FulfillmentPartiallyFulfilled:
		setOnce(&f.CompletedAt, now)
	case FulfillmentCancelled:
		setOnce(&f.CancelledAt, now)
	}
}

func setOnce(field **time.Time, now time.Time) {
	if *field == nil {
		t := now
		*field = &t
	}
}
