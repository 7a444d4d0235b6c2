package postgres

import (
	"context"

	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

func (r *repo) CreateCustomer(ctx context.Context, c *model.Customer) error {
	query := `
        INSERT INTO customers (
            id, name, email, phone, address, credit_balance, credit_limit,
            is_active, created_at, updated_at
        )
        VALUES (
            :id, :name, :email, :phone, :address, :credit_balance, :credit_limit,
            :is_active, :created_at, :updated_at
        )
    `
	_, err := sqlx.NamedExecContext(ctx, r.ext, query, c)
	return mapConstraint(err)
}

func (r *repo) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	query := `
        UPDATE customers
        SET name = :name,
            email = :email,
            phone = :phone,
            address = :address,
            credit_limit = :credit_limit,
            is_active = :is_active,
            updated_at = :updated_at
        WHERE id = :id
    `
	res, err := sqlx.NamedExecContext(ctx, r.ext, query, c)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *repo) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	if !validID(id) {
		return nil, ledger.ErrNotFound
	}
	var c model.Customer
	if err := sqlx.GetContext(ctx, r.ext, &c, `SELECT * FROM customers WHERE id = $1 LIMIT 1`, id); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *repo) GetCustomerForUpdate(ctx context.Context, id string) (*model.Customer, error) {
	if !validID(id) {
		return nil, ledger.ErrNotFound
	}
	var c model.Customer
	if err := sqlx.GetContext(ctx, r.ext, &c, `SELECT * FROM customers WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *repo) ListCustomers(ctx context.Context, f *ledger.CustomerFilter) ([]model.Customer, int, error) {
	var customers []model.Customer

	conditions := []string{"is_active = true"}
	args := map[string]interface{}{}

	if f.HasCredit {
		conditions = append(conditions, "credit_balance > 0")
	}
	if f.Search != "" {
		conditions = append(conditions, "(name ILIKE :search OR email ILIKE :search OR phone ILIKE :search)")
		args["search"] = "%" + f.Search + "%"
	}
	where := whereClause(conditions)

	count, err := r.countNamed(ctx, "SELECT count(*) FROM customers"+where, args)
	if err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM customers" + where + " ORDER BY name ASC" + limitClause(f.Page, f.PageSize)
	if err := r.selectNamed(ctx, &customers, query, args); err != nil {
		return nil, 0, err
	}
	return customers, count, nil
}

func (r *repo) SetCreditBalance(ctx context.Context, customerID string, balance decimal.Decimal) error {
	res, err := r.ext.ExecContext(ctx,
		`UPDATE customers SET credit_balance = $1, updated_at = NOW() WHERE id = $2`,
		balance, customerID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *repo) InsertCreditTransaction(ctx context.Context, t *model.CreditTransaction) error {
	query := `
        INSERT INTO credit_transactions (
            id, customer_id, sale_id, amount, type, description, reference, balance_after, created_at
        )
        VALUES (
            :id, :customer_id, :sale_id, :amount, :type, :description, :reference, :balance_after, :created_at
        )
    `
	_, err := sqlx.NamedExecContext(ctx, r.ext, query, t)
	return err
}

func (r *repo) ListCreditTransactions(ctx context.Context, customerID string) ([]model.CreditTransaction, error) {
	txns := []model.CreditTransaction{}
	query := `SELECT * FROM credit_transactions WHERE customer_id = $1 ORDER BY created_at ASC, id ASC`
	if err := sqlx.SelectContext(ctx, r.ext, &txns, query, customerID); err != nil {
		return nil, err
	}
	return txns, nil
}
