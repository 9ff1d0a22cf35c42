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

func (r *PGRepository) Create(ctx context.Context, res *model.InventoryReservation) error {
	query := `
        INSERT INTO inventory_reservations (
            id, order_id, order_item_id, product_variant_id, stock_location_id,
            quantity_reserved, quantity_fulfilled, quantity_released, is_active,
            expires_at, notes, reserved_at, released_at, fulfilled_at, updated_at
        )
        VALUES (
            :id, :order_id, :order_item_id, :product_variant_id, :stock_location_id,
            :quantity_reserved, :quantity_fulfilled, :quantity_released, :is_active,
            :expires_at, :notes, :reserved_at, :released_at, :fulfilled_at, :updated_at
        )`
	_, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, res)
	return err
}

func (r *PGRepository) get(ctx context.Context, query, id string) (*model.InventoryReservation, error) {
	var res model.InventoryReservation
	err := postgres.Conn(ctx, r.DB).GetContext(ctx, &res, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.InventoryReservation, error) {
	return r.get(ctx, `SELECT * FROM inventory_reservations WHERE id = $1`, id)
}

func (r *PGRepository) GetForUpdate(ctx context.Context, id string) (*model.InventoryReservation, error) {
	return r.get(ctx, `SELECT * FROM inventory_reservations WHERE id = $1 FOR UPDATE`, id)
}

func (r *PGRepository) Update(ctx context.Context, res *model.InventoryReservation) error {
	query := `
        UPDATE inventory_reservations
        SET quantity_fulfilled = :quantity_fulfilled,
            quantity_released = :quantity_released,
            is_active = :is_active,
            released_at = :released_at,
            fulfilled_at = :fulfilled_at,
            notes = :notes,
            updated_at = :updated_at
        WHERE id = :id`
	_, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, res)
	return err
}

func (r *PGRepository) ListByOrder(ctx context.Context, orderID string, activeOnly bool) ([]model.InventoryReservation, error) {
	query := `SELECT * FROM inventory_reservations WHERE order_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY reserved_at, id`

	items := []model.InventoryReservation{}
	err := postgres.Conn(ctx, r.DB).SelectContext(ctx, &items, query, orderID)
	return items, err
}

func (r *PGRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.InventoryReservation, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `
        SELECT * FROM inventory_reservations
        WHERE is_active AND expires_at IS NOT NULL AND expires_at < $1
        ORDER BY expires_at
        LIMIT $2`

	items := []model.InventoryReservation{}
	err := postgres.Conn(ctx, r.DB).SelectContext(ctx, &items, query, now, limit)
	return items, err
}
