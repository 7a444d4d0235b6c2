package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CheckoutItemRequest struct {
	ProductID string          `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity"`
	Discount  decimal.Decimal `json:"discount"`
}

type CheckoutRequest struct {
	Items         []CheckoutItemRequest `json:"items"`
	PaymentMethod string                `json:"payment_method" binding:"required"`
	AmountPaid    decimal.Decimal       `json:"amount_paid"`
	Discount      decimal.Decimal       `json:"discount"`
	CustomerID    string                `json:"customer_id"`
	Notes         string                `json:"notes"`
}

type RefundRequest struct {
	ItemIDs []string `json:"item_ids"`
}

type SaleQuery struct {
	StartDate  *time.Time `form:"start_date" time_format:"2006-01-02"`
	EndDate    *time.Time `form:"end_date" time_format:"2006-01-02"`
	CustomerID string     `form:"customer_id"`
	Status     string     `form:"status"`
	Page       int        `form:"page"`
	PageSize   int        `form:"page_size"`
}
