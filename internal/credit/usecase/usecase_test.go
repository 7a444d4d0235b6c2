package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/omnipos-store-service/internal/apperror"
	"github.com/fekuna/omnipos-store-service/internal/broker"
	"github.com/fekuna/omnipos-store-service/internal/cache"
	"github.com/fekuna/omnipos-store-service/internal/credit"
	"github.com/fekuna/omnipos-store-service/internal/credit/dto"
	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/ledger/memory"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func setup(t *testing.T, balance, limit string) (*memory.Store, credit.UseCase) {
	t.Helper()
	store := memory.New()
	now := time.Now()
	err := store.CreateCustomer(context.Background(), &model.Customer{
		BaseModel:     model.BaseModel{ID: "c1", CreatedAt: now, UpdatedAt: now},
		Name:          "Ana",
		CreditBalance: dec(balance),
		CreditLimit:   dec(limit),
		IsActive:      true,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store, NewCreditUseCase(store, cache.NewNoop(), time.Minute, broker.NewNoopPublisher(), logger.NewNop())
}

func TestRecordPaymentExceedingBalance(t *testing.T) {
	store, uc := setup(t, "150", "0")

	_, err := uc.RecordPayment(context.Background(), &dto.RecordPaymentInput{CustomerID: "c1", Amount: dec("200")})
	if !apperror.HasCode(err, apperror.CodePaymentExceedsBalance) {
		t.Fatalf("expected PAYMENT_EXCEEDS_BALANCE, got %v", err)
	}
	appErr, _ := apperror.As(err)
	if !appErr.Details["balance"].(decimal.Decimal).Equal(dec("150")) {
		t.Fatalf("expected balance 150 in details, got %v", appErr.Details["balance"])
	}

	c, _ := store.GetCustomer(context.Background(), "c1")
	if !c.CreditBalance.Equal(dec("150")) {
		t.Fatalf("balance changed: %s", c.CreditBalance)
	}
	history, _ := store.ListCreditTransactions(context.Background(), "c1")
	if len(history) != 0 {
		t.Fatalf("expected no transactions, got %d", len(history))
	}
}

func TestRecordPayment(t *testing.T) {
	_, uc := setup(t, "150", "0")

	res, err := uc.RecordPayment(context.Background(), &dto.RecordPaymentInput{CustomerID: "c1", Amount: dec("50.25"), Reference: "CASH-1"})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if !res.Customer.CreditBalance.Equal(dec("99.75")) {
		t.Fatalf("expected 99.75, got %s", res.Customer.CreditBalance)
	}
	txn := res.Transaction
	if txn.Type != model.CreditPayment || !txn.Amount.Equal(dec("50.25")) || !txn.BalanceAfter.Equal(dec("99.75")) {
		t.Fatalf("unexpected transaction %+v", txn)
	}
	if txn.Description != "Credit payment" || txn.Reference == nil || *txn.Reference != "CASH-1" {
		t.Fatalf("unexpected description/reference %q %v", txn.Description, txn.Reference)
	}
}

func TestRecordPaymentValidation(t *testing.T) {
	_, uc := setup(t, "10", "0")

	tests := []struct {
		name  string
		input dto.RecordPaymentInput
		code  string
	}{
		{"zero amount", dto.RecordPaymentInput{CustomerID: "c1", Amount: decimal.Zero}, apperror.CodeInvalidAmount},
		{"negative amount", dto.RecordPaymentInput{CustomerID: "c1", Amount: dec("-1")}, apperror.CodeInvalidAmount},
		{"unknown customer", dto.RecordPaymentInput{CustomerID: "c9", Amount: dec("1")}, apperror.CodeCustomerNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.RecordPayment(context.Background(), &tt.input)
			if !apperror.HasCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestAdjustBalance(t *testing.T) {
	tests := []struct {
		name        string
		amount      string
		wantBalance string
		wantAmount  string
	}{
		{"increase", "25", "65", "25"},
		{"decrease", "-15", "25", "15"},
		{"clamped at zero", "-100", "0", "100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, uc := setup(t, "40", "0")
			res, err := uc.AdjustBalance(context.Background(), &dto.AdjustBalanceInput{CustomerID: "c1", Amount: dec(tt.amount)})
			if err != nil {
				t.Fatalf("adjust: %v", err)
			}
			if !res.Customer.CreditBalance.Equal(dec(tt.wantBalance)) {
				t.Fatalf("expected balance %s, got %s", tt.wantBalance, res.Customer.CreditBalance)
			}
			if !res.Transaction.Amount.Equal(dec(tt.wantAmount)) || res.Transaction.Type != model.CreditAdjustment {
				t.Fatalf("unexpected transaction %+v", res.Transaction)
			}
			if res.Transaction.Description != "Manual adjustment" {
				t.Fatalf("unexpected description %q", res.Transaction.Description)
			}
		})
	}
}

func TestAdjustBalanceZeroRejected(t *testing.T) {
	_, uc := setup(t, "40", "0")
	_, err := uc.AdjustBalance(context.Background(), &dto.AdjustBalanceInput{CustomerID: "c1", Amount: decimal.Zero})
	if !apperror.HasCode(err, apperror.CodeInvalidAmount) {
		t.Fatalf("expected INVALID_AMOUNT, got %v", err)
	}
}

func TestChargeRechecksLimitOnLockedRow(t *testing.T) {
	store, _ := setup(t, "50", "100")

	err := store.WithinTx(context.Background(), func(tx ledger.Tx) error {
		_, _, err := credit.Charge(context.Background(), tx, credit.Purchase{
			CustomerID: "c1", SaleID: "s1", ReceiptNumber: "RCP-1", Amount: dec("60"),
		})
		return err
	})
	if !apperror.HasCode(err, apperror.CodeCreditLimitExceeded) {
		t.Fatalf("expected CREDIT_LIMIT_EXCEEDED, got %v", err)
	}

	err = store.WithinTx(context.Background(), func(tx ledger.Tx) error {
		c, txn, err := credit.Charge(context.Background(), tx, credit.Purchase{
			CustomerID: "c1", SaleID: "s1", ReceiptNumber: "RCP-1", Amount: dec("40"),
		})
		if err != nil {
			return err
		}
		if !c.CreditBalance.Equal(dec("90")) || !txn.BalanceAfter.Equal(dec("90")) {
			t.Fatalf("unexpected balance %s / %s", c.CreditBalance, txn.BalanceAfter)
		}
		if txn.Description != "Purchase - Receipt RCP-1" {
			t.Fatalf("unexpected description %q", txn.Description)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
}

func TestReconcileReplaysHistory(t *testing.T) {
	store, uc := setup(t, "0", "0")
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx ledger.Tx) error {
		_, _, err := credit.Charge(ctx, tx, credit.Purchase{CustomerID: "c1", SaleID: "s1", ReceiptNumber: "R1", Amount: dec("70")})
		return err
	})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if _, err := uc.RecordPayment(ctx, &dto.RecordPaymentInput{CustomerID: "c1", Amount: dec("20")}); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if _, err := uc.AdjustBalance(ctx, &dto.AdjustBalanceInput{CustomerID: "c1", Amount: dec("-5")}); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	report, err := uc.Reconcile(ctx, "c1")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !report.Consistent || !report.ReplayedBalance.Equal(dec("45")) || report.Transactions != 3 {
		t.Fatalf("unexpected report %+v", report)
	}

	// tamper with the stored balance
	if err := store.SetCreditBalance(ctx, "c1", dec("60")); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	report, err = uc.Reconcile(ctx, "c1")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if report.Consistent || !report.Drift.Equal(dec("15")) {
		t.Fatalf("expected drift 15, got %+v", report)
	}
}

func TestSummaryAndDeactivate(t *testing.T) {
	store, uc := setup(t, "30", "0")
	ctx := context.Background()
	now := time.Now()
	_ = store.CreateCustomer(ctx, &model.Customer{
		BaseModel: model.BaseModel{ID: "c2", CreatedAt: now}, Name: "Ben", CreditBalance: dec("70"), IsActive: true,
	})
	_ = store.CreateCustomer(ctx, &model.Customer{
		BaseModel: model.BaseModel{ID: "c3", CreatedAt: now}, Name: "Cid", CreditBalance: decimal.Zero, IsActive: true,
	})

	summary, err := uc.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !summary.TotalOutstanding.Equal(dec("100")) || summary.CustomersWithCredit != 2 || summary.Customers[0].ID != "c2" {
		t.Fatalf("unexpected summary %+v", summary)
	}

	if err := uc.DeactivateCustomer(ctx, "c2"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	summary, _ = uc.Summary(ctx)
	if summary.CustomersWithCredit != 1 {
		t.Fatalf("expected 1 customer after deactivation, got %d", summary.CustomersWithCredit)
	}
}

func TestDeactivatedCustomerCanSettleBalance(t *testing.T) {
	store, uc := setup(t, "150", "0")
	ctx := context.Background()

	if err := uc.DeactivateCustomer(ctx, "c1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	paid, err := uc.RecordPayment(ctx, &dto.RecordPaymentInput{CustomerID: "c1", Amount: dec("50")})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if !paid.Customer.CreditBalance.Equal(dec("100")) {
		t.Fatalf("expected 100, got %s", paid.Customer.CreditBalance)
	}

	adjusted, err := uc.AdjustBalance(ctx, &dto.AdjustBalanceInput{CustomerID: "c1", Amount: dec("-100")})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if !adjusted.Customer.CreditBalance.IsZero() {
		t.Fatalf("expected zero balance, got %s", adjusted.Customer.CreditBalance)
	}

	err = store.WithinTx(ctx, func(tx ledger.Tx) error {
		_, _, err := credit.Charge(ctx, tx, credit.Purchase{CustomerID: "c1", SaleID: "s1", ReceiptNumber: "R1", Amount: dec("1")})
		return err
	})
	if !apperror.HasCode(err, apperror.CodeCustomerNotFound) {
		t.Fatalf("expected inactive customer to be refused credit, got %v", err)
	}

	active := true
	c, err := uc.UpdateCustomer(ctx, &dto.UpdateCustomerInput{ID: "c1", IsActive: &active})
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if !c.IsActive {
		t.Fatal("expected customer to be active again")
	}
}

func TestCreditAmountsMustBeWholeCents(t *testing.T) {
	_, uc := setup(t, "150", "0")
	ctx := context.Background()
	limit := dec("10.001")

	tests := []struct {
		name string
		call func() error
	}{
		{"payment", func() error {
			_, err := uc.RecordPayment(ctx, &dto.RecordPaymentInput{CustomerID: "c1", Amount: dec("0.005")})
			return err
		}},
		{"adjustment", func() error {
			_, err := uc.AdjustBalance(ctx, &dto.AdjustBalanceInput{CustomerID: "c1", Amount: dec("-1.234")})
			return err
		}},
		{"new customer limit", func() error {
			_, err := uc.CreateCustomer(ctx, &dto.CreateCustomerInput{Name: "Eve", CreditLimit: limit})
			return err
		}},
		{"updated limit", func() error {
			_, err := uc.UpdateCustomer(ctx, &dto.UpdateCustomerInput{ID: "c1", CreditLimit: &limit})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !apperror.HasCode(err, apperror.CodeInvalidAmount) {
				t.Fatalf("expected INVALID_AMOUNT, got %v", err)
			}
		})
	}

	report, err := uc.Reconcile(ctx, "c1")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if report.Transactions != 0 {
		t.Fatalf("expected no transactions, got %d", report.Transactions)
	}
}

func TestCreateAndUpdateCustomer(t *testing.T) {
	_, uc := setup(t, "0", "0")
	ctx := context.Background()

	c, err := uc.CreateCustomer(ctx, &dto.CreateCustomerInput{Name: "  Dina ", Email: "dina@example.com", CreditLimit: dec("250")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Name != "Dina" || c.Phone != nil || !c.CreditLimit.Equal(dec("250")) {
		t.Fatalf("unexpected customer %+v", c)
	}

	phone := "0812"
	updated, err := uc.UpdateCustomer(ctx, &dto.UpdateCustomerInput{ID: c.ID, Phone: &phone})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Phone == nil || *updated.Phone != "0812" || updated.Email == nil {
		t.Fatalf("unexpected update result %+v", updated)
	}

	negative := dec("-1")
	if _, err := uc.UpdateCustomer(ctx, &dto.UpdateCustomerInput{ID: c.ID, CreditLimit: &negative}); !apperror.HasCode(err, apperror.CodeInvalidAmount) {
		t.Fatalf("expected INVALID_AMOUNT, got %v", err)
	}
	if _, err := uc.CreateCustomer(ctx, &dto.CreateCustomerInput{Name: " "}); apperror.KindOf(err) != apperror.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
