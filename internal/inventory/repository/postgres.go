package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/database/postgres"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB  *sqlx.DB
	txm *postgres.TxManager
}

func NewPGRepository(db *sqlx.DB, txm *postgres.TxManager) *PGRepository {
	return &PGRepository{DB: db, txm: txm}
}

const levelColumns = `id, variant_id, location_id, quantity_on_hand, quantity_reserved, quantity_available,
        reorder_point, reorder_quantity, max_stock_level, last_counted_at, created_at, updated_at`

func (r *PGRepository) GetLevel(ctx context.Context, variantID, locationID string) (*model.InventoryLevel, error) {
	var level model.InventoryLevel
	query := `SELECT ` + levelColumns + ` FROM inventory_levels WHERE variant_id = $1 AND location_id = $2`

	err := postgres.Conn(ctx, r.DB).GetContext(ctx, &level, query, variantID, locationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Caller decides whether a missing row means zero stock
		}
		return nil, err
	}
	return &level, nil
}

func (r *PGRepository) FindLevels(ctx context.Context, f *dto.LevelFilters) ([]model.InventoryLevel, int, error) {
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
	if f.LowStock {
		conditions = append(conditions, "reorder_point > 0 AND quantity_available <= reorder_point")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	if err := postgres.NamedGet(ctx, r.DB, &count, "SELECT count(*) FROM inventory_levels"+whereClause, args); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + levelColumns + " FROM inventory_levels" + whereClause + " ORDER BY updated_at DESC, id"
	query += postgres.PageClause(f.Page, f.PageSize)

	items := []model.InventoryLevel{}
	if err := postgres.NamedSelect(ctx, r.DB, &items, query, args); err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

func (r *PGRepository) ListThresholded(ctx context.Context) ([]model.InventoryLevel, error) {
	items := []model.InventoryLevel{}
	query := `SELECT ` + levelColumns + ` FROM inventory_levels
        WHERE reorder_point > 0 ORDER BY variant_id, location_id`
	err := postgres.Conn(ctx, r.DB).SelectContext(ctx, &items, query)
	return items, err
}

func (r *PGRepository) ensureLevel(ctx context.Context, db postgres.Executor, variantID, locationID string) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `
        INSERT INTO inventory_levels (id, variant_id, location_id, quantity_on_hand, quantity_reserved, created_at, updated_at)
        VALUES ($1, $2, $3, 0, 0, $4, $4)
        ON CONFLICT (variant_id, location_id) DO NOTHING`,
		uuid.New().String(), variantID, locationID, now)
	if err != nil {
		return fmt.Errorf("failed to create inventory level: %w", err)
	}
	return nil
}

func (r *PGRepository) LockLevels(ctx context.Context, variantID string, locationIDs []string) ([]model.InventoryLevel, error) {
	items := []model.InventoryLevel{}
	if len(locationIDs) == 0 {
		return items, nil
	}
	err := r.txm.WithinTx(ctx, func(ctx context.Context) error {
		db := postgres.Conn(ctx, r.DB)
		for _, loc := range locationIDs {
			if err := r.ensureLevel(ctx, db, variantID, loc); err != nil {
				return err
			}
		}

		query, args, err := sqlx.In(`SELECT `+levelColumns+` FROM inventory_levels
            WHERE variant_id = ? AND location_id IN (?)
            ORDER BY location_id
            FOR UPDATE`, variantID, locationIDs)
		if err != nil {
			return err
		}
		return db.SelectContext(ctx, &items, db.Rebind(query), args...)
	})
	return items, err
}

func (r *PGRepository) LockVariantLevels(ctx context.Context, variantID string) ([]model.InventoryLevel, error) {
	items := []model.InventoryLevel{}
	query := `SELECT ` + levelColumns + ` FROM inventory_levels
        WHERE variant_id = $1
        ORDER BY location_id
        FOR UPDATE`
	err := postgres.Conn(ctx, r.DB).SelectContext(ctx, &items, query, variantID)
	return items, err
}

func (r *PGRepository) ApplyDelta(ctx context.Context, d *dto.LevelDelta, m *model.InventoryMovement) (*model.InventoryLevel, error) {
	var level model.InventoryLevel
	err := r.txm.WithinTx(ctx, func(ctx context.Context) error {
		db := postgres.Conn(ctx, r.DB)

		// 1. Lock the row, creating it on first movement into the pair
		if err := r.ensureLevel(ctx, db, d.VariantID, d.LocationID); err != nil {
			return err
		}
		lockQuery := `SELECT ` + levelColumns + ` FROM inventory_levels
            WHERE variant_id = $1 AND location_id = $2 FOR UPDATE`
		if err := db.GetContext(ctx, &level, lockQuery, d.VariantID, d.LocationID); err != nil {
			return fmt.Errorf("failed to lock inventory level: %w", err)
		}

		// 2. Validate and update
		before := level.QuantityOnHand
		if err := level.Apply(d.OnHandDelta, d.ReservedDelta); err != nil {
			return err
		}
		level.UpdatedAt = time.Now().UTC()

		_, err := db.NamedExecContext(ctx, `
            UPDATE inventory_levels
            SET quantity_on_hand = :quantity_on_hand,
                quantity_reserved = :quantity_reserved,
                updated_at = :updated_at
            WHERE id = :id`, &level)
		if err != nil {
			return fmt.Errorf("failed to update inventory level: %w", err)
		}

		// 3. Log movement
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = level.UpdatedAt
		}
		m.VariantID = d.VariantID
		m.LocationID = d.LocationID
		m.QuantityDelta = d.OnHandDelta
		m.ReservedDelta = d.ReservedDelta
		m.QuantityBefore = before
		m.QuantityAfter = level.QuantityOnHand

		_, err = db.NamedExecContext(ctx, `
            INSERT INTO inventory_movements (
                id, movement_type, variant_id, location_id,
                quantity_delta, reserved_delta, quantity_before, quantity_after, unit_cost,
                reference_type, reference_id, reference_number, notes, created_by, created_at
            )
            VALUES (
                :id, :movement_type, :variant_id, :location_id,
                :quantity_delta, :reserved_delta, :quantity_before, :quantity_after, :unit_cost,
                :reference_type, :reference_id, :reference_number, :notes, :created_by, :created_at
            )`, m)
		if err != nil {
			return fmt.Errorf("failed to log movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *PGRepository) UpdateThresholds(ctx context.Context, input *dto.ThresholdsInput) (*model.InventoryLevel, error) {
	var level model.InventoryLevel
	err := r.txm.WithinTx(ctx, func(ctx context.Context) error {
		db := postgres.Conn(ctx, r.DB)
		if err := r.ensureLevel(ctx, db, input.VariantID, input.LocationID); err != nil {
			return err
		}
		query := `
            UPDATE inventory_levels
            SET reorder_point = $3, reorder_quantity = $4, max_stock_level = $5, updated_at = $6
            WHERE variant_id = $1 AND location_id = $2
            RETURNING ` + levelColumns
		return db.GetContext(ctx, &level, query,
			input.VariantID, input.LocationID, input.ReorderPoint, input.ReorderQuantity, input.MaxStockLevel, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *PGRepository) MarkCounted(ctx context.Context, variantID, locationID string, at time.Time) error {
	_, err := postgres.Conn(ctx, r.DB).ExecContext(ctx,
		`UPDATE inventory_levels SET last_counted_at = $3 WHERE variant_id = $1 AND location_id = $2`,
		variantID, locationID, at)
	return err
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.InventoryMovement, int, error) {
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
	if f.MovementType != "" {
		conditions = append(conditions, "movement_type = :movement_type")
		args["movement_type"] = string(f.MovementType)
	}
	if f.ReferenceType != "" {
		conditions = append(conditions, "reference_type = :reference_type")
		args["reference_type"] = f.ReferenceType
	}
	if f.ReferenceID != "" {
		conditions = append(conditions, "reference_id = :reference_id")
		args["reference_id"] = f.ReferenceID
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= :end_date")
		args["end_date"] = *f.EndDate
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	if err := postgres.NamedGet(ctx, r.DB, &count, "SELECT count(*) FROM inventory_movements"+whereClause, args); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM inventory_movements" + whereClause + " ORDER BY created_at DESC, id"
	query += postgres.PageClause(f.Page, f.PageSize)

	items := []model.InventoryMovement{}
	if err := postgres.NamedSelect(ctx, r.DB, &items, query, args); err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

func (r *PGRepository) CreateAdjustment(ctx context.Context, adj *model.StockAdjustment) error {
	query := `
        INSERT INTO stock_adjustments (
            id, adjustment_number, variant_id, location_id, requested_quantity_delta,
            reason, notes, status, requested_by_id, approved_by_id, approved_at, created_at
        )
        VALUES (
            :id, :adjustment_number, :variant_id, :location_id, :requested_quantity_delta,
            :reason, :notes, :status, :requested_by_id, :approved_by_id, :approved_at, :created_at
        )`
	_, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, adj)
	return err
}

func (r *PGRepository) GetAdjustmentForUpdate(ctx context.Context, id string) (*model.StockAdjustment, error) {
	var adj model.StockAdjustment
	err := postgres.Conn(ctx, r.DB).GetContext(ctx, &adj, `SELECT * FROM stock_adjustments WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &adj, nil
}

func (r *PGRepository) UpdateAdjustment(ctx context.Context, adj *model.StockAdjustment) error {
	query := `
        UPDATE stock_adjustments
        SET status = :status, notes = :notes, approved_by_id = :approved_by_id, approved_at = :approved_at
        WHERE id = :id`
	_, err := postgres.Conn(ctx, r.DB).NamedExecContext(ctx, query, adj)
	return err
}

func (r *PGRepository) ListAdjustments(ctx context.Context, f *dto.AdjustmentFilters) ([]model.StockAdjustment, int, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = string(f.Status)
	}
	if f.VariantID != "" {
		conditions = append(conditions, "variant_id = :variant_id")
		args["variant_id"] = f.VariantID
	}
	if f.LocationID != "" {
		conditions = append(conditions, "location_id = :location_id")
		args["location_id"] = f.LocationID
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	if err := postgres.NamedGet(ctx, r.DB, &count, "SELECT count(*) FROM stock_adjustments"+whereClause, args); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM stock_adjustments" + whereClause + " ORDER BY adjustment_number DESC"
	query += postgres.PageClause(f.Page, f.PageSize)

	items := []model.StockAdjustment{}
	if err := postgres.NamedSelect(ctx, r.DB, &items, query, args); err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

func (r *PGRepository) CountAdjustmentsSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := postgres.Conn(ctx, r.DB).GetContext(ctx, &count,
		`SELECT count(*) FROM stock_adjustments WHERE created_at >= $1`, since)
	return count, err
}
