package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/jmoiron/sqlx"
)

func (r *repo) CreateProduct(ctx context.Context, p *model.Product) error {
	query := `
        INSERT INTO products (
            id, name, sku, barcode, description, price, cost,
            stock_quantity, min_stock_level, is_active, created_at, updated_at
        )
        VALUES (
            :id, :name, :sku, :barcode, :description, :price, :cost,
            :stock_quantity, :min_stock_level, :is_active, :created_at, :updated_at
        )
    `
	_, err := sqlx.NamedExecContext(ctx, r.ext, query, p)
	return mapConstraint(err)
}

func (r *repo) UpdateProduct(ctx context.Context, p *model.Product) error {
	query := `
        UPDATE products
        SET name = :name,
            sku = :sku,
            barcode = :barcode,
            description = :description,
            price = :price,
            cost = :cost,
            min_stock_level = :min_stock_level,
            is_active = :is_active,
            updated_at = :updated_at
        WHERE id = :id
    `
	res, err := sqlx.NamedExecContext(ctx, r.ext, query, p)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *repo) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	if !validID(id) {
		return nil, ledger.ErrNotFound
	}
	var p model.Product
	err := sqlx.GetContext(ctx, r.ext, &p, `SELECT * FROM products WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *repo) GetProductByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	var p model.Product
	err := sqlx.GetContext(ctx, r.ext, &p, `SELECT * FROM products WHERE barcode = $1 AND is_active = true LIMIT 1`, barcode)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *repo) GetProductsByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	products := []model.Product{}
	// malformed ids cannot match; the caller reports them as missing
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return products, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM products WHERE id IN (?)`, valid)
	if err != nil {
		return nil, err
	}
	if err := sqlx.SelectContext(ctx, r.ext, &products, r.ext.Rebind(query), args...); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) ListProducts(ctx context.Context, f *ledger.ProductFilter) ([]model.Product, int, error) {
	var products []model.Product

	conditions := []string{}
	args := map[string]interface{}{}

	if f.IsActive != nil {
		conditions = append(conditions, "is_active = :is_active")
		args["is_active"] = *f.IsActive
	}
	if f.LowStock {
		conditions = append(conditions, "stock_quantity <= min_stock_level")
	}
	if f.Search != "" {
		conditions = append(conditions, "(name ILIKE :search OR sku ILIKE :search OR barcode ILIKE :search)")
		args["search"] = "%" + f.Search + "%"
	}
	where := whereClause(conditions)

	count, err := r.countNamed(ctx, "SELECT count(*) FROM products"+where, args)
	if err != nil {
		return nil, 0, err
	}

	orderBy := "created_at DESC"
	if f.SortBy != "" {
		switch f.SortBy {
		case "name":
			orderBy = "name"
		case "price":
			orderBy = "price"
		case "stock":
			orderBy = "stock_quantity"
		default:
			orderBy = "created_at"
		}
		if strings.ToLower(f.SortOrder) == "asc" {
			orderBy += " ASC"
		} else {
			orderBy += " DESC"
		}
	}

	query := fmt.Sprintf("SELECT * FROM products%s ORDER BY %s", where, orderBy) + limitClause(f.Page, f.PageSize)
	if err := r.selectNamed(ctx, &products, query, args); err != nil {
		return nil, 0, err
	}
	return products, count, nil
}

func (r *repo) IncrementStock(ctx context.Context, productID string, qty int) (*model.Product, error) {
	if !validID(productID) {
		return nil, ledger.ErrNotFound
	}
	var p model.Product
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING *
	`
	if err := sqlx.GetContext(ctx, r.ext, &p, query, qty, productID); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *repo) DecrementStock(ctx context.Context, productID string, qty int) (*model.Product, error) {
	if !validID(productID) {
		return nil, ledger.ErrNotFound
	}
	var p model.Product
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity - $1, updated_at = NOW()
		WHERE id = $2 AND stock_quantity >= $1
		RETURNING *
	`
	err := sqlx.GetContext(ctx, r.ext, &p, query, qty, productID)
	if err != nil {
		return nil, r.missOrShort(ctx, productID, err)
	}
	return &p, nil
}

func (r *repo) ApplyStockDelta(ctx context.Context, productID string, delta int) (*model.Product, error) {
	if !validID(productID) {
		return nil, ledger.ErrNotFound
	}
	var p model.Product
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity + $1, updated_at = NOW()
		WHERE id = $2 AND stock_quantity + $1 >= 0
		RETURNING *
	`
	err := sqlx.GetContext(ctx, r.ext, &p, query, delta, productID)
	if err != nil {
		return nil, r.missOrShort(ctx, productID, err)
	}
	return &p, nil
}

// missOrShort tells a missing product apart from a guard that did not match.
func (r *repo) missOrShort(ctx context.Context, productID string, err error) error {
	if notFound(err) != ledger.ErrNotFound {
		return mapConstraint(err)
	}
	var exists bool
	if err := sqlx.GetContext(ctx, r.ext, &exists, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID); err != nil {
		return err
	}
	if !exists {
		return ledger.ErrNotFound
	}
	return ledger.ErrConditionFailed
}

func (r *repo) InsertMovement(ctx context.Context, m *model.StockMovement) error {
	query := `
        INSERT INTO stock_movements (id, product_id, quantity, type, reason, notes, user_id, created_at)
        VALUES (:id, :product_id, :quantity, :type, :reason, :notes, :user_id, :created_at)
    `
	_, err := sqlx.NamedExecContext(ctx, r.ext, query, m)
	return err
}

func (r *repo) ListMovements(ctx context.Context, f *ledger.MovementFilter) ([]model.StockMovement, int, error) {
	var movements []model.StockMovement

	conditions := []string{}
	args := map[string]interface{}{}

	if f.ProductID != "" {
		conditions = append(conditions, "product_id::text = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.Type != "" {
		conditions = append(conditions, "type = :type")
		args["type"] = f.Type
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= :end_date")
		args["end_date"] = *f.EndDate
	}
	where := whereClause(conditions)

	count, err := r.countNamed(ctx, "SELECT count(*) FROM stock_movements"+where, args)
	if err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM stock_movements" + where + " ORDER BY created_at DESC" + limitClause(f.Page, f.PageSize)
	if err := r.selectNamed(ctx, &movements, query, args); err != nil {
		return nil, 0, err
	}
	return movements, count, nil
}
