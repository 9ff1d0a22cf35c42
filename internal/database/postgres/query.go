package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// NamedGet binds :name parameters from args and runs the query on the connection bound to ctx.
func NamedGet(ctx context.Context, db *sqlx.DB, dest interface{}, query string, args map[string]interface{}) error {
	q, params, err := sqlx.Named(query, args)
	if err != nil {
		return err
	}
	conn := Conn(ctx, db)
	return conn.GetContext(ctx, dest, conn.Rebind(q), params...)
}

func NamedSelect(ctx context.Context, db *sqlx.DB, dest interface{}, query string, args map[string]interface{}) error {
	q, params, err := sqlx.Named(query, args)
	if err != nil {
		return err
	}
	conn := Conn(ctx, db)
	return conn.SelectContext(ctx, dest, conn.Rebind(q), params...)
}

func PageClause(page, pageSize int) string {
	if pageSize <= 0 {
		return ""
	}
	if page < 1 {
		page = 1
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)
}
