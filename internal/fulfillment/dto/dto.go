package dto

import "github.com/fekuna/omnipos-inventory-service/internal/model"

type CreateItem struct {
	OrderItemID   string `json:"order_item_id"`
	ReservationID string `json:"reservation_id"`
	Quantity      int    `json:"quantity"`
}

type CreateFulfillmentInput struct {
	OrderID           string
	Items             []CreateItem
	WarehouseLocation string
	AssignedToID      string
	UserID            string
}

type AdvanceInput struct {
	FulfillmentID string
	Status        model.FulfillmentStatus
	Notes         string
	UserID        string
}

type AssignInput struct {
	FulfillmentID string
	AssigneeID    string
	UserID        string
}

type Stats struct {
	Total    int                             `json:"total"`
	ByStatus map[model.FulfillmentStatus]int `json:"by_status"`
}
