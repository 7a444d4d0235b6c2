// Package postgres implements ledger.Store on sqlx over the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
	codeInvalidText     = "22P02"
)

// Store runs reads against the pool and mutations inside WithinTx.
type Store struct {
	*repo
	DB *sqlx.DB
}

var _ ledger.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{repo: &repo{ext: db}, DB: db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&repo{ext: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// repo carries every query. ext is either the pool or an open transaction.
type repo struct {
	ext sqlx.ExtContext
}

// selectNamed expands :name parameters and runs the query into dest.
func (r *repo) selectNamed(ctx context.Context, dest interface{}, query string, args map[string]interface{}) error {
	q, bound, err := sqlx.Named(query, args)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, r.ext, dest, r.ext.Rebind(q), bound...)
}

func (r *repo) countNamed(ctx context.Context, query string, args map[string]interface{}) (int, error) {
	q, bound, err := sqlx.Named(query, args)
	if err != nil {
		return 0, err
	}
	var count int
	if err := sqlx.GetContext(ctx, r.ext, &count, r.ext.Rebind(q), bound...); err != nil {
		return 0, err
	}
	return count, nil
}

func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

func limitClause(page, pageSize int) string {
	if pageSize <= 0 {
		return ""
	}
	if page < 1 {
		page = 1
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)
}

// validID reports whether id can name a row. Ids are UUID columns, so
// anything else is a miss rather than a query error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeInvalidText {
		return ledger.ErrNotFound
	}
	return err
}

func requireRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// mapConstraint turns unique and check violations into ledger sentinels.
func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		switch pgErr.ConstraintName {
		case "sales_receipt_number_key":
			return ledger.ErrDuplicateReceipt
		case "products_sku_key":
			return ledger.ErrDuplicateSKU
		case "products_barcode_key":
			return ledger.ErrDuplicateBarcode
		case "sale_item_refunds_sale_item_id_key":
			return ledger.ErrConditionFailed
		}
	case codeCheckViolation:
		return ledger.ErrConditionFailed
	}
	return err
}
