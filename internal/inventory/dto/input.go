package dto

type Reference struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Number string `json:"number"`
}

type ReceiveInput struct {
	VariantID  string
	LocationID string
	Quantity   int
	UnitCost   *float64
	Reference  Reference
	Notes      string
	UserID     string
}

// ShipInput removes stock. With ReservationID set, the units come out of that reservation.
type ShipInput struct {
	VariantID     string
	LocationID    string
	Quantity      int
	ReservationID string
	Reference     Reference
	Notes         string
	UserID        string
}

type TransferInput struct {
	VariantID      string
	FromLocationID string
	ToLocationID   string
	Quantity       int
	Notes          string
	UserID         string
}

type BulkUpdateItem struct {
	VariantID string   `json:"variant_id"`
	Quantity  int      `json:"quantity"`
	Cost      *float64 `json:"cost"`
}

type BulkUpdateInput struct {
	LocationID string
	Items      []BulkUpdateItem
	Notes      string
	UserID     string
}

type ThresholdsInput struct {
	VariantID       string
	LocationID      string
	ReorderPoint    *int
	ReorderQuantity *int
	MaxStockLevel   *int
}

type CreateAdjustmentInput struct {
	VariantID     string
	LocationID    string
	QuantityDelta int
	Reason        string
	Notes         string
	UserID        string
}

type ReviewAdjustmentInput struct {
	AdjustmentID string
	Notes        string
	UserID       string
}
