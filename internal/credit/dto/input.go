package dto

import "github.com/shopspring/decimal"

type CreateCustomerInput struct {
	Name        string
	Email       string
	Phone       string
	Address     string
	CreditLimit decimal.Decimal
}

// UpdateCustomerInput changes only the fields that are set.
type UpdateCustomerInput struct {
	ID          string
	Name        *string
	Email       *string
	Phone       *string
	Address     *string
	CreditLimit *decimal.Decimal
	IsActive    *bool
}

type RecordPaymentInput struct {
	CustomerID  string
	Amount      decimal.Decimal
	Description string
	Reference   string
	UserID      string
}

type AdjustBalanceInput struct {
	CustomerID  string
	Amount      decimal.Decimal // signed
	Description string
	UserID      string
}
