package model

import "github.com/shopspring/decimal"

type Product struct {
	BaseModel
	Name          string          `db:"name" json:"name"`
	SKU           string          `db:"sku" json:"sku"`
	Barcode       *string         `db:"barcode" json:"barcode"` // Nullable, unique when set
	Description   *string         `db:"description" json:"description"`
	Price         decimal.Decimal `db:"price" json:"price"`
	Cost          decimal.Decimal `db:"cost" json:"cost"`
	StockQuantity int             `db:"stock_quantity" json:"stock_quantity"`
	MinStockLevel int             `db:"min_stock_level" json:"min_stock_level"`
	IsActive      bool            `db:"is_active" json:"is_active"`
}

// IsLowStock reports whether on-hand stock has reached the reorder threshold.
func (p *Product) IsLowStock() bool {
	return p.StockQuantity <= p.MinStockLevel
}
