package dto

import (
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/shopspring/decimal"
)

type CreateCustomerRequest struct {
	Name        string          `json:"name" binding:"required"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	Address     string          `json:"address"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
}

type UpdateCustomerRequest struct {
	Name        *string          `json:"name"`
	Email       *string          `json:"email"`
	Phone       *string          `json:"phone"`
	Address     *string          `json:"address"`
	CreditLimit *decimal.Decimal `json:"credit_limit"`
	IsActive    *bool            `json:"is_active"`
}

type PaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
}

type AdjustmentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type CustomerQuery struct {
	Search    string `form:"search"`
	HasCredit bool   `form:"has_credit"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}

type BalanceResult struct {
	Customer    *model.Customer          `json:"customer"`
	Transaction *model.CreditTransaction `json:"transaction"`
}

type CreditSummary struct {
	TotalOutstanding    decimal.Decimal  `json:"total_outstanding"`
	CustomersWithCredit int              `json:"customers_with_credit"`
	Customers           []model.Customer `json:"customers"`
}

type ReconcileReport struct {
	CustomerID      string            `json:"customer_id"`
	StoredBalance   decimal.Decimal   `json:"stored_balance"`
	ReplayedBalance decimal.Decimal   `json:"replayed_balance"`
	Drift           decimal.Decimal   `json:"drift"`
	Consistent      bool              `json:"consistent"`
	Transactions    int               `json:"transactions"`
	Mismatches      []Mismatch        `json:"mismatches,omitempty"`
}

// Mismatch is a history row whose balance_after disagrees with the replay.
type Mismatch struct {
	TransactionID string          `json:"transaction_id"`
	Expected      decimal.Decimal `json:"expected"`
	Recorded      decimal.Decimal `json:"recorded"`
}
