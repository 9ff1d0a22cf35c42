package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/fekuna/omnipos-inventory-service/internal/alert/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/database/postgres"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) get(ctx context.Context, query string, args ...interface{}) (*model.LowStockAlert, error) {
	var a model.LowStockAlert
	err := postgres.Conn(ctx, r.DB).GetContext(ctx, &a, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *PGRepository) GetOpen(ctx context.Context, variantID, locationID string) (*model.LowStockAlert, error) {
	return r.get(ctx, `
        SELECT * FROM low_stock_alerts
        WHERE variant_id = $1 AND location_id = $2 AND resolved_at IS NULL
        FOR UPDATE`, variantID, locationID)
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.LowStockAlert, error) {
	return r.get(ctx, `SELECT * FROM low_stock_alerts WHERE id = $1`, id)
}

func (r *PGRepository) Create(ctx context.Context, a *model.LowStockAlert) error {
	query := `
        INSERT INTO low_stock_alerts (
            id, variant_id, location_id, severity, status, current_quantity, reorder_point,
            recommended_order_quantity, resolved_at, resolved_by_id, resolution_notes, created_at, updated_at
        )
        VALUES (
            :id, :variant_id, :location_id, :severity, :status, :current_quantity, :reorder_point,
            :recommended_order_quantity, :resolved_at, :resolved_by_id, :resolution_notes, :created_at, :updated_at
        )`
	_, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, a)
	return postgres.MapError(err)
}

func (r *PGRepository) Update(ctx context.Context, a *model.LowStockAlert) error {
	query := `
        UPDATE low_stock_alerts
        SET severity = :severity,
            status = :status,
            current_quantity = :current_quantity,
            reorder_point = :reorder_point,
            recommended_order_quantity = :recommended_order_quantity,
            resolved_at = :resolved_at,
            resolved_by_id = :resolved_by_id,
            resolution_notes = :resolution_notes,
            updated_at = :updated_at
        WHERE id = :id`
	_, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, a)
	return err
}

func (r *PGRepository) List(ctx context.Context, f *dto.AlertFilters) ([]model.LowStockAlert, int, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.VariantID != "" {
		conditions = append(conditions, "variant_id = :variant_id")
		args["variant_id"] = f.VariantID
	}
	if f.LocationID != "" {
		conditions = append(conditions, "location_id = :location_id")
		args["location_id"] = f.LocationID
	}
	if f.Severity != "" {
		conditions = append(conditions, "severity = :severity")
		args["severity"] = string(f.Severity)
	}
	if f.OpenOnly {
		conditions = append(conditions, "resolved_at IS NULL")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	if err := postgres.NamedGet(ctx, r.DB, &count, "SELECT count(*) FROM low_stock_alerts"+whereClause, args); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM low_stock_alerts" + whereClause + " ORDER BY created_at DESC, id"
	query += postgres.PageClause(f.Page, f.PageSize)

	items := []model.LowStockAlert{}
	if err := postgres.NamedSelect(ctx, r.DB, &items, query, args); err != nil {
		return nil, 0, err
	}
	return items, count, nil
}
