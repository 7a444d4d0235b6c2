package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/jmoiron/sqlx"
)

func (r *repo) InsertSale(ctx context.Context, s *model.Sale) error {
	query := `
        INSERT INTO sales (
            id, receipt_number, subtotal, discount, tax, total, payment_method,
            amount_paid, change_due, status, customer_id, user_id, notes, created_at
        )
        VALUES (
            :id, :receipt_number, :subtotal, :discount, :tax, :total, :payment_method,
            :amount_paid, :change_due, :status, :customer_id, :user_id, :notes, :created_at
        )
    `
	_, err := sqlx.NamedExecContext(ctx, r.ext, query, s)
	return mapConstraint(err)
}

func (r *repo) InsertSaleItems(ctx context.Context, items []model.SaleItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `
        INSERT INTO sale_items (id, sale_id, product_id, quantity, price_at_sale, discount, subtotal)
        VALUES (:id, :sale_id, :product_id, :quantity, :price_at_sale, :discount, :subtotal)
    `
	_, err := sqlx.NamedExecContext(ctx, r.ext, query, items)
	return err
}

func (r *repo) GetSale(ctx context.Context, id string) (*model.Sale, error) {
	if !validID(id) {
		return nil, ledger.ErrNotFound
	}
	var s model.Sale
	if err := sqlx.GetContext(ctx, r.ext, &s, `SELECT * FROM sales WHERE id = $1 LIMIT 1`, id); err != nil {
		return nil, notFound(err)
	}
	if err := r.hydrate(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repo) GetSaleForUpdate(ctx context.Context, id string) (*model.Sale, error) {
	if !validID(id) {
		return nil, ledger.ErrNotFound
	}
	var s model.Sale
	if err := sqlx.GetContext(ctx, r.ext, &s, `SELECT * FROM sales WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, notFound(err)
	}
	items, err := r.saleItems(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Items = items
	return &s, nil
}

func (r *repo) saleItems(ctx context.Context, saleID string) ([]model.SaleItem, error) {
	items := []model.SaleItem{}
	if err := sqlx.SelectContext(ctx, r.ext, &items, `SELECT * FROM sale_items WHERE sale_id = $1 ORDER BY id`, saleID); err != nil {
		return nil, err
	}
	return items, nil
}

// hydrate attaches items with their products, the customer and the cashier.
func (r *repo) hydrate(ctx context.Context, s *model.Sale) error {
	items, err := r.saleItems(ctx, s.ID)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := r.GetProductsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for i := range items {
		items[i].Product = byID[items[i].ProductID]
	}
	s.Items = items

	if s.CustomerID != nil {
		c, err := r.GetCustomer(ctx, *s.CustomerID)
		if err != nil && !errors.Is(err, ledger.ErrNotFound) {
			return err
		}
		s.Customer = c
	}

	var u model.User
	err = sqlx.GetContext(ctx, r.ext, &u, `SELECT id, username, full_name, role FROM users WHERE id = $1`, s.UserID)
	switch {
	case err == nil:
		s.User = &u
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}
	return nil
}

func (r *repo) ListSales(ctx context.Context, f *ledger.SaleFilter) ([]model.Sale, int, error) {
	var sales []model.Sale

	conditions := []string{}
	args := map[string]interface{}{}

	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= :end_date")
		args["end_date"] = *f.EndDate
	}
	if f.CustomerID != "" {
		conditions = append(conditions, "customer_id::text = :customer_id")
		args["customer_id"] = f.CustomerID
	}
	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = f.Status
	}
	where := whereClause(conditions)

	count, err := r.countNamed(ctx, "SELECT count(*) FROM sales"+where, args)
	if err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM sales" + where + " ORDER BY created_at DESC" + limitClause(f.Page, f.PageSize)
	if err := r.selectNamed(ctx, &sales, query, args); err != nil {
		return nil, 0, err
	}
	for i := range sales {
		if err := r.hydrate(ctx, &sales[i]); err != nil {
			return nil, 0, err
		}
	}
	return sales, count, nil
}

func (r *repo) UpdateSaleStatus(ctx context.Context, saleID string, status model.SaleStatus) error {
	res, err := r.ext.ExecContext(ctx, `UPDATE sales SET status = $1 WHERE id = $2`, status, saleID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *repo) InsertSaleItemRefunds(ctx context.Context, refunds []model.SaleItemRefund) error {
	if len(refunds) == 0 {
		return nil
	}
	query := `
        INSERT INTO sale_item_refunds (id, sale_id, sale_item_id, quantity, user_id, created_at)
        VALUES (:id, :sale_id, :sale_item_id, :quantity, :user_id, :created_at)
    `
	_, err := sqlx.NamedExecContext(ctx, r.ext, query, refunds)
	return mapConstraint(err)
}

func (r *repo) ListRefundedItemIDs(ctx context.Context, saleID string) ([]string, error) {
	ids := []string{}
	if err := sqlx.SelectContext(ctx, r.ext, &ids, `SELECT sale_item_id FROM sale_item_refunds WHERE sale_id = $1`, saleID); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) UpsertUser(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (id, username, full_name, role)
        VALUES (:id, :username, :full_name, :role)
        ON CONFLICT (id) DO UPDATE
        SET username = EXCLUDED.username,
            full_name = CASE WHEN EXCLUDED.full_name = '' THEN users.full_name ELSE EXCLUDED.full_name END,
            role = EXCLUDED.role
    `
	_, err := sqlx.NamedExecContext(ctx, r.ext, query, u)
	return err
}
