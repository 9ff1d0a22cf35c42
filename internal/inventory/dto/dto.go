package dto

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type LevelFilters struct {
	VariantID  string
	LocationID string
	LowStock   bool // If true, only rows at or below their reorder point
	Page       int
	PageSize   int
}

type MovementFilters struct {
	VariantID     string
	LocationID    string
	MovementType  model.MovementType
	ReferenceType string
	ReferenceID   string
	StartDate     *time.Time
	EndDate       *time.Time
	Page          int
	PageSize      int
}

// LevelDelta is the single mutation the ledger accepts.
type LevelDelta struct {
	VariantID     string
	LocationID    string
	OnHandDelta   int
	ReservedDelta int
}

type AdjustmentFilters struct {
	Status     model.AdjustmentStatus
	VariantID  string
	LocationID string
	Page       int
	PageSize   int
}

type TotalStock struct {
	VariantID         string                 `json:"variant_id"`
	QuantityOnHand    int                    `json:"quantity_on_hand"`
	QuantityReserved  int                    `json:"quantity_reserved"`
	QuantityAvailable int                    `json:"quantity_available"`
	LocationCount     int                    `json:"location_count"`
	Locations         []model.InventoryLevel `json:"locations"`
}

type StockResult struct {
	Level    *model.InventoryLevel    `json:"level"`
	Movement *model.InventoryMovement `json:"movement"`
}

type TransferResult struct {
	From        *model.InventoryLevel    `json:"from"`
	To          *model.InventoryLevel    `json:"to"`
	OutMovement *model.InventoryMovement `json:"out_movement"`
	InMovement  *model.InventoryMovement `json:"in_movement"`
}

// ReservationResult is the facade answer for reserve and release calls.
type ReservationResult struct {
	Success           bool                         `json:"success"`
	ReservedQuantity  int                          `json:"reserved_quantity,omitempty"`
	ReleasedQuantity  int                          `json:"released_quantity,omitempty"`
	AvailableQuantity int                          `json:"available_quantity"`
	Reservations      []model.InventoryReservation `json:"reservations,omitempty"`
}

type BulkItemResult struct {
	VariantID string                `json:"variant_id"`
	Success   bool                  `json:"success"`
	Level     *model.InventoryLevel `json:"level,omitempty"`
	Error     string                `json:"error,omitempty"`
	ErrorCode string                `json:"error_code,omitempty"`
}

type BulkUpdateResult struct {
	Success        bool             `json:"success"`
	TotalProcessed int              `json:"total_processed"`
	TotalFailed    int              `json:"total_failed"`
	Items          []BulkItemResult `json:"items"`
}

const StockChangedEventType = "StockChanged"

// StockChangedEvent is published after every committed ledger mutation.
type StockChangedEvent struct {
	EventID      string             `json:"event_id"`
	EventType    string             `json:"event_type"`
	VariantID    string             `json:"variant_id"`
	LocationID   string             `json:"location_id"`
	MovementType model.MovementType `json:"movement_type"`
	Timestamp    time.Time          `json:"timestamp"`
}
