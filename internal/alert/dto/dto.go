package dto

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type AlertFilters struct {
	VariantID  string
	LocationID string
	Severity   model.AlertSeverity
	OpenOnly   bool
	Page       int
	PageSize   int
}

type ReportFilters struct {
	LocationID string              `json:"location_id"`
	Severity   model.AlertSeverity `json:"severity"`
}

type AcknowledgeInput struct {
	AlertID string
	Notes   string
	UserID  string
}

type EvaluationAction string

const (
	ActionNone     EvaluationAction = "none"
	ActionCreated  EvaluationAction = "created"
	ActionUpdated  EvaluationAction = "updated"
	ActionResolved EvaluationAction = "resolved"
)

type Evaluation struct {
	VariantID  string               `json:"variant_id"`
	LocationID string               `json:"location_id"`
	Severity   *model.AlertSeverity `json:"severity,omitempty"`
	Action     EvaluationAction     `json:"action"`
	Alert      *model.LowStockAlert `json:"alert,omitempty"`
}

type SweepResult struct {
	Evaluated int `json:"evaluated"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Resolved  int `json:"resolved"`
	Failed    int `json:"failed"`
}

type ReportItem struct {
	VariantID                string              `json:"variant_id"`
	LocationID               string              `json:"location_id"`
	Severity                 model.AlertSeverity `json:"severity"`
	QuantityOnHand           int                 `json:"quantity_on_hand"`
	QuantityAvailable        int                 `json:"quantity_available"`
	ReorderPoint             int                 `json:"reorder_point"`
	RecommendedOrderQuantity int                 `json:"recommended_order_quantity"`
}

type Report struct {
	GeneratedAt time.Time                   `json:"generated_at"`
	Counts      map[model.AlertSeverity]int `json:"counts"`
	Items       []ReportItem                `json:"items"`
}
