package model

import "time"

type OrderStatus string

const (
	OrderCreated           OrderStatus = "created"
	OrderConfirmed         OrderStatus = "confirmed"
	OrderPaymentReceived   OrderStatus = "payment_received"
	OrderProcessingStarted OrderStatus = "processing_started"
	OrderPacked            OrderStatus = "packed"
	OrderShipped           OrderStatus = "shipped"
	OrderDelivered         OrderStatus = "delivered"
	OrderCancelled         OrderStatus = "cancelled"
	OrderRefunded          OrderStatus = "refunded"
	OrderReturnRequested   OrderStatus = "return_requested"
	OrderReturned          OrderStatus = "returned"
)

// orderTransitions enumerates every legal (from, to) pair. States missing as keys are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderCreated:           {OrderConfirmed, OrderCancelled},
	OrderConfirmed:         {OrderPaymentReceived, OrderCancelled},
	OrderPaymentReceived:   {OrderProcessingStarted, OrderCancelled, OrderRefunded},
	OrderProcessingStarted: {OrderPacked, OrderCancelled},
	OrderPacked:            {OrderShipped},
	OrderShipped:           {OrderDelivered, OrderReturnRequested},
	OrderDelivered:         {OrderReturnRequested},
	OrderReturnRequested:   {OrderReturned, OrderRefunded},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderCreated, OrderConfirmed, OrderPaymentReceived, OrderProcessingStarted, OrderPacked,
		OrderShipped, OrderDelivered, OrderCancelled, OrderRefunded, OrderReturnRequested, OrderReturned:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the states reachable from s in one step.
func (s OrderStatus) AllowedTransitions() []OrderStatus {
	out := make([]OrderStatus, len(orderTransitions[s]))
	copy(out, orderTransitions[s])
	return out
}

func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// shippingRank orders the forward path of an order. Cancelled and refunded are off the path.
var shippingRank = map[OrderStatus]int{
	OrderCreated:           0,
	OrderConfirmed:         1,
	OrderPaymentReceived:   2,
	OrderProcessingStarted: 3,
	OrderPacked:            4,
	OrderShipped:           5,
	OrderDelivered:         6,
	OrderReturnRequested:   7,
	OrderReturned:          8,
}

// AtOrPast reports whether s has reached target on the forward path.
func (s OrderStatus) AtOrPast(target OrderStatus) bool {
	rank, ok := shippingRank[s]
	want, known := shippingRank[target]
	return ok && known && rank >= want
}

// HoldsStock is true while goods have not left the building.
func (s OrderStatus) HoldsStock() bool {
	switch s {
	case OrderCreated, OrderConfirmed, OrderPaymentReceived, OrderProcessingStarted, OrderPacked:
		return true
	}
	return false
}

// HistoryAction is the audit action recorded when an order enters s.
func (s OrderStatus) HistoryAction() HistoryAction {
	switch s {
	case OrderCreated:
		return ActionCreated
	case OrderConfirmed:
		return ActionConfirmed
	case OrderPaymentReceived:
		return ActionPaymentReceived
	case OrderProcessingStarted:
		return ActionProcessingStarted
	case OrderPacked:
		return ActionPacked
	case OrderShipped:
		return ActionShipped
	case OrderDelivered:
		return ActionDelivered
	case OrderCancelled:
		return ActionCancelled
	case OrderRefunded:
		return ActionRefunded
	case OrderReturnRequested:
		return ActionReturnRequested
	case OrderReturned:
		return ActionReturned
	}
	return ActionStatusChanged
}

type HistoryAction string

const (
	ActionCreated           HistoryAction = "created"
	ActionConfirmed         HistoryAction = "confirmed"
	ActionPaymentReceived   HistoryAction = "payment_received"
	ActionProcessingStarted HistoryAction = "processing_started"
	ActionPacked            HistoryAction = "packed"
	ActionShipped           HistoryAction = "shipped"
	ActionDelivered         HistoryAction = "delivered"
	ActionCancelled         HistoryAction = "cancelled"
	ActionRefunded          HistoryAction = "refunded"
	ActionStatusChanged     HistoryAction = "status_changed"
	ActionNoteAdded         HistoryAction = "note_added"
	ActionPaymentFailed     HistoryAction = "payment_failed"
	ActionReturnRequested   HistoryAction = "return_requested"
	ActionReturned          HistoryAction = "returned"
	ActionEdited            HistoryAction = "edited"
	ActionAssigned          HistoryAction = "assigned"
	ActionInventoryReserved HistoryAction = "inventory_reserved"
	ActionInventoryReleased HistoryAction = "inventory_released"
)

// Order is the status carrier for an order. Line items and pricing live in the order CRUD service.
type Order struct {
	ID          string      `db:"id" json:"id"`
	OrderNumber string      `db:"order_number" json:"order_number"`
	Status      OrderStatus `db:"status" json:"status"`
	ConfirmedAt *time.Time  `db:"confirmed_at" json:"confirmed_at,omitempty"`
	ShippedAt   *time.Time  `db:"shipped_at" json:"shipped_at,omitempty"`
	DeliveredAt *time.Time  `db:"delivered_at" json:"delivered_at,omitempty"`
	CancelledAt *time.Time  `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// StampStatus records the milestone timestamp for the status the order just entered.
func (o *Order) StampStatus(now time.Time) {
	o.UpdatedAt = now
	switch o.Status {
	case OrderConfirmed:
		o.ConfirmedAt = &now
	case OrderShipped:
		o.ShippedAt = &now
	case OrderDelivered:
		o.DeliveredAt = &now
	case OrderCancelled:
		o.CancelledAt = &now
	}
}

type OrderHistory struct {
	ID             string        `db:"id" json:"id"`
	OrderID        string        `db:"order_id" json:"order_id"`
	Action         HistoryAction `db:"action" json:"action"`
	OldStatus      *OrderStatus  `db:"old_status" json:"old_status,omitempty"`
	NewStatus      *OrderStatus  `db:"new_status" json:"new_status,omitempty"`
	Description    string        `db:"description" json:"description"`
	PerformedByID  *string       `db:"performed_by_id" json:"performed_by_id,omitempty"`
	AdditionalData JSONMap       `db:"additional_data" json:"additional_data"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

type OrderNote struct {
	ID          string    `db:"id" json:"id"`
	OrderID     string    `db:"order_id" json:"order_id"`
	Note        string    `db:"note" json:"note"`
	IsInternal  bool      `db:"is_internal" json:"is_internal"`
	CreatedByID *string   `db:"created_by_id" json:"created_by_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
