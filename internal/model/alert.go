package model

import "time"

type AlertSeverity string

const (
	SeverityLow        AlertSeverity = "low"
	SeverityCritical   AlertSeverity = "critical"
	SeverityOutOfStock AlertSeverity = "out_of_stock"
)

type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertResolved AlertStatus = "resolved"
)

type LowStockAlert struct {
	ID                       string        `db:"id" json:"id"`
	VariantID                string        `db:"variant_id" json:"variant_id"`
	LocationID               string        `db:"location_id" json:"location_id"`
	Severity                 AlertSeverity `db:"severity" json:"severity"`
	Status                   AlertStatus   `db:"status" json:"status"`
	CurrentQuantity          int           `db:"current_quantity" json:"current_quantity"`
	ReorderPoint             int           `db:"reorder_point" json:"reorder_point"`
	RecommendedOrderQuantity int           `db:"recommended_order_quantity" json:"recommended_order_quantity"`
	ResolvedAt               *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedByID             *string       `db:"resolved_by_id" json:"resolved_by_id,omitempty"`
	ResolutionNotes          string        `db:"resolution_notes" json:"resolution_notes"`
	CreatedAt                time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time     `db:"updated_at" json:"updated_at"`
}

func (a *LowStockAlert) IsOpen() bool {
	return a.ResolvedAt == nil
}

func (a *LowStockAlert) Resolve(userID, notes string, now time.Time) {
	a.Status = AlertResolved
	a.ResolvedAt = &now
	if userID != "" {
		a.ResolvedByID = &userID
	}
	a.ResolutionNotes = notes
	a.UpdatedAt = now
}
