package dto

import "github.com/shopspring/decimal"

type CreateProductInput struct {
	Name          string
	SKU           string
	Barcode       string
	Description   string
	Price         decimal.Decimal
	Cost          decimal.Decimal
	StockQuantity int  // initial stock, recorded as a movement
	MinStockLevel *int // defaults to 10
	UserID        string
}

// UpdateProductInput changes only the fields that are set. Stock is not
// editable here; use receive or adjust.
type UpdateProductInput struct {
	ID            string
	Name          *string
	SKU           *string
	Barcode       *string
	Description   *string
	Price         *decimal.Decimal
	Cost          *decimal.Decimal
	MinStockLevel *int
	IsActive      *bool
}
