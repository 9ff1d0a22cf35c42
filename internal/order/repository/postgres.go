package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fekuna/omnipos-inventory-service/internal/database/postgres"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, o *model.Order) error {
	query := `
        INSERT INTO orders (id, order_number, status, confirmed_at, shipped_at, delivered_at, cancelled_at, created_at, updated_at)
        VALUES (:id, :order_number, :status, :confirmed_at, :shipped_at, :delivered_at, :cancelled_at, :created_at, :updated_at)`
	_, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, o)
	return postgres.MapError(err)
}

func (r *PGRepository) get(ctx context.Context, query, id string) (*model.Order, error) {
	var o model.Order
	err := postgres.Conn(ctx, r.DB).GetContext(ctx, &o, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	return r.get(ctx, `SELECT * FROM orders WHERE id = $1`, id)
}

func (r *PGRepository) GetForUpdate(ctx context.Context, id string) (*model.Order, error) {
	return r.get(ctx, `SELECT * FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *PGRepository) UpdateStatus(ctx context.Context, o *model.Order) error {
	query := `
        UPDATE orders
        SET status = :status,
            confirmed_at = :confirmed_at,
            shipped_at = :shipped_at,
            delivered_at = :delivered_at,
            cancelled_at = :cancelled_at,
            updated_at = :updated_at
        WHERE id = :id`
	_, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, o)
	return err
}

func (r *PGRepository) AppendHistory(ctx context.Context, h *model.OrderHistory) error {
	query := `
        INSERT INTO order_history (
            id, order_id, action, old_status, new_status, description,
            performed_by_id, additional_data, created_at
        )
        VALUES (
            :id, :order_id, :action, :old_status, :new_status, :description,
            :performed_by_id, :additional_data, :created_at
        )`
	_, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, h)
	return err
}

func (r *PGRepository) ListHistory(ctx context.Context, f *dto.HistoryFilters) ([]model.OrderHistory, int, error) {
	args := map[string]interface{}{"order_id": f.OrderID}

	var count int
	if err := postgres.NamedGet(ctx, r.DB, &count, "SELECT count(*) FROM order_history WHERE order_id = :order_id", args); err != nil {
		return nil, 0, err
	}

	// seq keeps rows written in one transaction in insertion order.
	query := `
        SELECT id, order_id, action, old_status, new_status, description,
               performed_by_id, additional_data, created_at
        FROM order_history WHERE order_id = :order_id ORDER BY seq`
	query += postgres.PageClause(f.Page, f.PageSize)

	items := []model.OrderHistory{}
	if err := postgres.NamedSelect(ctx, r.DB, &items, query, args); err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

func (r *PGRepository) CreateNote(ctx context.Context, n *model.OrderNote) error {
	query := `
        INSERT INTO order_notes (id, order_id, note, is_internal, created_by_id, created_at)
        VALUES (:id, :order_id, :note, :is_internal, :created_by_id, :created_at)`
	_, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, n)
	return err
}

func (r *PGRepository) ListNotes(ctx context.Context, orderID string, includeInternal bool) ([]model.OrderNote, error) {
	query := `SELECT * FROM order_notes WHERE order_id = $1`
	if !includeInternal {
		query += ` AND NOT is_internal`
	}
	query += ` ORDER BY created_at, id`

	items := []model.OrderNote{}
	err := postgres.Conn(ctx, r.DB).SelectContext(ctx, &items, query, orderID)
	return items, err
}
