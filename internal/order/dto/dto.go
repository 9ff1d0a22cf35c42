package dto

import "github.com/fekuna/omnipos-inventory-service/internal/model"

type CreateOrderInput struct {
	OrderNumber string
	UserID      string
}

type TransitionInput struct {
	OrderID   string
	NewStatus model.OrderStatus
	Note      string
	UserID    string
	// Metadata is merged into the history row's additional_data.
	Metadata map[string]interface{}
}

type BulkTransitionInput struct {
	OrderIDs  []string
	NewStatus model.OrderStatus
	Note      string
	UserID    string
}

type BulkTransitionItem struct {
	OrderID   string `json:"order_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

type BulkTransitionResult struct {
	Success        bool                 `json:"success"`
	TotalProcessed int                  `json:"total_processed"`
	TotalFailed    int                  `json:"total_failed"`
	Items          []BulkTransitionItem `json:"items"`
}

type ReserveItem struct {
	OrderItemID string `json:"order_item_id"`
	VariantID   string `json:"variant_id"`
	LocationID  string `json:"location_id"`
	Quantity    int    `json:"quantity"`
}

type ReserveItemsInput struct {
	OrderID string
	Items   []ReserveItem
	UserID  string
}

type AddNoteInput struct {
	OrderID    string
	Note       string
	IsInternal bool
	UserID     string
}

type HistoryFilters struct {
	OrderID  string
	Page     int
	PageSize int
}
