package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Customer struct {
	BaseModel
	Name          string          `db:"name" json:"name"`
	Email         *string         `db:"email" json:"email"`
	Phone         *string         `db:"phone" json:"phone"`
	Address       *string         `db:"address" json:"address"`
	CreditBalance decimal.Decimal `db:"credit_balance" json:"credit_balance"`
	CreditLimit   decimal.Decimal `db:"credit_limit" json:"credit_limit"` // 0 means unlimited
	IsActive      bool            `db:"is_active" json:"is_active"`
}

// HasCreditLimit is false when the customer may carry an unlimited balance.
func (c *Customer) HasCreditLimit() bool {
	return c.CreditLimit.IsPositive()
}

type CreditTransactionType string

const (
	CreditPurchase   CreditTransactionType = "purchase"
	CreditPayment    CreditTransactionType = "payment"
	CreditAdjustment CreditTransactionType = "adjustment"
)

// CreditTransaction is an append-only record of a balance change. Amount is
// stored as a positive magnitude, BalanceAfter is the balance written by the
// same database transaction.
type CreditTransaction struct {
	ID           string                `db:"id" json:"id"`
	CustomerID   string                `db:"customer_id" json:"customer_id"`
	SaleID       *string               `db:"sale_id" json:"sale_id"`
	Amount       decimal.Decimal       `db:"amount" json:"amount"`
	Type         CreditTransactionType `db:"type" json:"type"`
	Description  string                `db:"description" json:"description"`
	Reference    *string               `db:"reference" json:"reference"`
	BalanceAfter decimal.Decimal       `db:"balance_after" json:"balance_after"`
	CreatedAt    time.Time             `db:"created_at" json:"created_at"`
}
