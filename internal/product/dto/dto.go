package dto

import "github.com/shopspring/decimal"

type CreateProductRequest struct {
	Name          string          `json:"name" binding:"required"`
	SKU           string          `json:"sku" binding:"required"`
	Barcode       string          `json:"barcode"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Cost          decimal.Decimal `json:"cost"`
	StockQuantity int             `json:"stock_quantity"`
	MinStockLevel *int            `json:"min_stock_level"`
}

type UpdateProductRequest struct {
	Name          *string          `json:"name"`
	SKU           *string          `json:"sku"`
	Barcode       *string          `json:"barcode"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	Cost          *decimal.Decimal `json:"cost"`
	MinStockLevel *int             `json:"min_stock_level"`
	IsActive      *bool            `json:"is_active"`
}

type ProductQuery struct {
	Search    string `form:"search"`
	IsActive  *bool  `form:"is_active"`
	LowStock  bool   `form:"low_stock"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}

type SearchQuery struct {
	Q        string `form:"q" binding:"required"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}
