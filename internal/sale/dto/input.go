package dto

import "github.com/shopspring/decimal"

type CheckoutItem struct {
	ProductID string
	Quantity  int
	Discount  decimal.Decimal
}

type CheckoutInput struct {
	Items         []CheckoutItem
	PaymentMethod string
	AmountPaid    decimal.Decimal
	Discount      decimal.Decimal
	CustomerID    string
	Notes         string

	UserID   string
	Username string
	Role     string
}

type RefundInput struct {
	SaleID  string
	ItemIDs []string // empty means every item not yet refunded
	UserID  string
}
