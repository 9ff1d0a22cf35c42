package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

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

func (r *PGRepository) Create(ctx context.Context, f *model.OrderFulfillment) error {
	query := `
        INSERT INTO order_fulfillments (
            id, order_id, fulfillment_number, status, assigned_to_id, items, warehouse_location,
            picking_notes, packing_notes, assigned_at, picking_started_at, picking_completed_at,
            packing_started_at, packing_completed_at, shipped_at, completed_at, cancelled_at,
            created_at, updated_at
        )
        VALUES (
            :id, :order_id, :fulfillment_number, :status, :assigned_to_id, :items, :warehouse_location,
            :picking_notes, :packing_notes, :assigned_at, :picking_started_at, :picking_completed_at,
            :packing_started_at, :packing_completed_at, :shipped_at, :completed_at, :cancelled_at,
            :created_at, :updated_at
        )`
	_, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, f)
	return postgres.MapError(err)
}

func (r *PGRepository) get(ctx context.Context, query, id string) (*model.OrderFulfillment, error) {
	var f model.OrderFulfillment
	err := postgres.Conn(ctx, r.DB).GetContext(ctx, &f, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.OrderFulfillment, error) {
	return r.get(ctx, `SELECT * FROM order_fulfillments WHERE id = $1`, id)
}

func (r *PGRepository) GetForUpdate(ctx context.Context, id string) (*model.OrderFulfillment, error) {
	return r.get(ctx, `SELECT * FROM order_fulfillments WHERE id = $1 FOR UPDATE`, id)
}

func (r *PGRepository) Update(ctx context.Context, f *model.OrderFulfillment) error {
	query := `
        UPDATE order_fulfillments
        SET status = :status,
            assigned_to_id = :assigned_to_id,
            picking_notes = :picking_notes,
            packing_notes = :packing_notes,
            assigned_at = :assigned_at,
            picking_started_at = :picking_started_at,
            picking_completed_at = :picking_completed_at,
            packing_started_at = :packing_started_at,
            packing_completed_at = :packing_completed_at,
            shipped_at = :shipped_at,
            completed_at = :completed_at,
            cancelled_at = :cancelled_at,
            updated_at = :updated_at
        WHERE id = :id`
	_, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, f)
	return err
}

func (r *PGRepository) ListByOrder(ctx context.Context, orderID string) ([]model.OrderFulfillment, error) {
	items := []model.OrderFulfillment{}
	err := postgres.Conn(ctx, r.DB).SelectContext(ctx, &items,
		`SELECT * FROM order_fulfillments WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	return items, err
}

func (r *PGRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := postgres.Conn(ctx, r.DB).GetContext(ctx, &count,
		`SELECT count(*) FROM order_fulfillments WHERE created_at >= $1`, since)
	return count, err
}

func (r *PGRepository) CountByStatus(ctx context.Context) (map[model.FulfillmentStatus]int, error) {
	rows := []struct {
		Status model.FulfillmentStatus `db:"status"`
		Count  int                     `db:"count"`
	}{}
	err := postgres.Conn(ctx, r.DB).SelectContext(ctx, &rows,
		`SELECT status, count(*) AS count FROM order_fulfillments GROUP BY status`)
	if err != nil {
		return nil, err
	}
	counts := make(map[model.FulfillmentStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
