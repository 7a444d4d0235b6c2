// Package credit keeps customer balances and their append-only transaction
// history in step. Balance changes lock the customer row first.
package credit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-store-service/internal/apperror"
	"github.com/fekuna/omnipos-store-service/internal/credit/dto"
	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase describes a credit sale to post against a customer.
type Purchase struct {
	CustomerID    string
	SaleID        string
	ReceiptNumber string
	Amount        decimal.Decimal
}

// WholeCents reports whether d has at most two decimal places, the precision
// the ledger stores.
func WholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// CheckLimit reports CREDIT_LIMIT_EXCEEDED when adding amount would take the
// customer past a positive credit limit.
func CheckLimit(c *model.Customer, amount decimal.Decimal) error {
	if !c.HasCreditLimit() {
		return nil
	}
	newBalance := c.CreditBalance.Add(amount)
	if newBalance.GreaterThan(c.CreditLimit) {
		return apperror.Conflict(apperror.CodeCreditLimitExceeded,
			"Credit limit exceeded. Current balance: %s, Limit: %s, Purchase: %s",
			c.CreditBalance.StringFixed(2), c.CreditLimit.StringFixed(2), amount.StringFixed(2)).
			With("balance", c.CreditBalance).
			With("limit", c.CreditLimit).
			With("purchase", amount)
	}
	return nil
}

// Charge posts a purchase inside tx. The limit is checked again against the
// locked row, so two concurrent credit sales cannot both slip under it.
func Charge(ctx context.Context, tx ledger.Tx, p Purchase) (*model.Customer, *model.CreditTransaction, error) {
	c, err := LockCustomer(ctx, tx, p.CustomerID)
	if err != nil {
		return nil, nil, err
	}
	if !c.IsActive {
		return nil, nil, apperror.NotFound(apperror.CodeCustomerNotFound, "Customer not found")
	}
	if err := CheckLimit(c, p.Amount); err != nil {
		return nil, nil, err
	}

	saleID := p.SaleID
	reference := p.ReceiptNumber
	txn, err := Post(ctx, tx, c, c.CreditBalance.Add(p.Amount), &model.CreditTransaction{
		SaleID:      &saleID,
		Amount:      p.Amount,
		Type:        model.CreditPurchase,
		Description: "Purchase - Receipt " + p.ReceiptNumber,
		Reference:   &reference,
	})
	if err != nil {
		return nil, nil, err
	}
	return c, txn, nil
}

// LockCustomer loads a customer with a row lock, active or not. Charge is the
// only caller that refuses inactive customers.
func LockCustomer(ctx context.Context, tx ledger.Tx, id string) (*model.Customer, error) {
	c, err := tx.GetCustomerForUpdate(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, apperror.NotFound(apperror.CodeCustomerNotFound, "Customer not found")
	}
	if err != nil {
		return nil, fmt.Errorf("lock customer: %w", err)
	}
	return c, nil
}

// Post writes newBalance onto the locked customer c and appends txn with
// balance_after set to it. c is updated in place.
func Post(ctx context.Context, tx ledger.Tx, c *model.Customer, newBalance decimal.Decimal, txn *model.CreditTransaction) (*model.CreditTransaction, error) {
	if err := tx.SetCreditBalance(ctx, c.ID, newBalance); err != nil {
		return nil, fmt.Errorf("set credit balance: %w", err)
	}

	txn.ID = uuid.New().String()
	txn.CustomerID = c.ID
	txn.BalanceAfter = newBalance
	txn.CreatedAt = time.Now()
	if err := tx.InsertCreditTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("insert credit transaction: %w", err)
	}

	c.CreditBalance = newBalance
	c.UpdatedAt = txn.CreatedAt
	return txn, nil
}

// Replay recomputes a balance from its history: purchases add, payments
// subtract and adjustments reset the balance to their recorded value.
func Replay(history []model.CreditTransaction) (decimal.Decimal, []dto.Mismatch) {
	balance := decimal.Zero
	var mismatches []dto.Mismatch
	for _, t := range history {
		switch t.Type {
		case model.CreditPurchase:
			balance = balance.Add(t.Amount)
		case model.CreditPayment:
			balance = balance.Sub(t.Amount)
		case model.CreditAdjustment:
			balance = t.BalanceAfter
		}
		if !balance.Equal(t.BalanceAfter) {
			mismatches = append(mismatches, dto.Mismatch{TransactionID: t.ID, Expected: balance, Recorded: t.BalanceAfter})
			balance = t.BalanceAfter
		}
	}
	return balance, mismatches
}
