package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentCard    PaymentMethod = "card"
	PaymentEWallet PaymentMethod = "e-wallet"
	PaymentCredit  PaymentMethod = "credit"
	PaymentSplit   PaymentMethod = "split"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentEWallet, PaymentCredit, PaymentSplit:
		return true
	}
	return false
}

type SaleStatus string

const (
	SaleCompleted     SaleStatus = "completed"
	SaleRefunded      SaleStatus = "refunded"
	SalePartialRefund SaleStatus = "partial_refund"
)

type Sale struct {
	ID            string          `db:"id" json:"id"`
	ReceiptNumber string          `db:"receipt_number" json:"receipt_number"`
	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	Discount      decimal.Decimal `db:"discount" json:"discount"`
	Tax           decimal.Decimal `db:"tax" json:"tax"`
	Total         decimal.Decimal `db:"total" json:"total"`
	PaymentMethod PaymentMethod   `db:"payment_method" json:"payment_method"`
	AmountPaid    decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	Change        decimal.Decimal `db:"change_due" json:"change"`
	Status        SaleStatus      `db:"status" json:"status"`
	CustomerID    *string         `db:"customer_id" json:"customer_id"`
	UserID        string          `db:"user_id" json:"user_id"`
	Notes         *string         `db:"notes" json:"notes"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`

	Items    []SaleItem `db:"-" json:"items"`
	Customer *Customer  `db:"-" json:"customer,omitempty"`
	User     *User      `db:"-" json:"user,omitempty"`
}

// SaleItem freezes the product price at checkout time in PriceAtSale.
type SaleItem struct {
	ID          string          `db:"id" json:"id"`
	SaleID      string          `db:"sale_id" json:"sale_id"`
	ProductID   string          `db:"product_id" json:"product_id"`
	Quantity    int             `db:"quantity" json:"quantity"`
	PriceAtSale decimal.Decimal `db:"price_at_sale" json:"price_at_sale"`
	Discount    decimal.Decimal `db:"discount" json:"discount"`
	Subtotal    decimal.Decimal `db:"subtotal" json:"subtotal"`

	Product *Product `db:"-" json:"product,omitempty"`
}

// SaleItemRefund marks a sale item as returned.
type SaleItemRefund struct {
	ID         string    `db:"id" json:"id"`
	SaleID     string    `db:"sale_id" json:"sale_id"`
	SaleItemID string    `db:"sale_item_id" json:"sale_item_id"`
	Quantity   int       `db:"quantity" json:"quantity"`
	UserID     string    `db:"user_id" json:"user_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
