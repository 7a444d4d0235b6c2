// Package ledger is the durable store behind the POS core. All mutations go
// through WithinTx; the Tx handle is passed explicitly to every call that
// must take part in the same atomic unit.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("ledger: record not found")
	// ErrConditionFailed is returned when a guarded update matched no row,
	// e.g. a stock decrement that would go below zero.
	ErrConditionFailed  = errors.New("ledger: update condition not met")
	ErrDuplicateReceipt = errors.New("ledger: duplicate receipt number")
	ErrDuplicateSKU     = errors.New("ledger: duplicate sku")
	ErrDuplicateBarcode = errors.New("ledger: duplicate barcode")
)

type ProductFilter struct {
	Search    string // name, sku or barcode
	IsActive  *bool
	LowStock  bool
	SortBy    string // name, price, stock, created_at
	SortOrder string // asc, desc
	Page      int
	PageSize  int
}

type MovementFilter struct {
	ProductID string
	Type      model.MovementType
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}

type CustomerFilter struct {
	Search    string
	HasCredit bool
	Page      int
	PageSize  int
}

type SaleFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	CustomerID string
	Status     model.SaleStatus
	Page       int
	PageSize   int
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, p *model.Product) error
	// UpdateProduct writes catalog fields only; stock is never touched.
	UpdateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) ([]model.Product, error)
	ListProducts(ctx context.Context, f *ProductFilter) ([]model.Product, int, error)

	// IncrementStock adds qty and returns the updated row.
	IncrementStock(ctx context.Context, productID string, qty int) (*model.Product, error)
	// DecrementStock subtracts qty only if stock_quantity >= qty, otherwise
	// it returns ErrConditionFailed.
	DecrementStock(ctx context.Context, productID string, qty int) (*model.Product, error)
	// ApplyStockDelta adds a signed delta only if the result stays >= 0,
	// otherwise it returns ErrConditionFailed.
	ApplyStockDelta(ctx context.Context, productID string, delta int) (*model.Product, error)
}

type MovementRepository interface {
	InsertMovement(ctx context.Context, m *model.StockMovement) error
	ListMovements(ctx context.Context, f *MovementFilter) ([]model.StockMovement, int, error)
}

type CustomerRepository interface {
	CreateCustomer(ctx context.Context, c *model.Customer) error
	// UpdateCustomer writes profile fields only; the balance is never touched.
	UpdateCustomer(ctx context.Context, c *model.Customer) error
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	// GetCustomerForUpdate locks the row until the transaction ends.
	GetCustomerForUpdate(ctx context.Context, id string) (*model.Customer, error)
	ListCustomers(ctx context.Context, f *CustomerFilter) ([]model.Customer, int, error)
	SetCreditBalance(ctx context.Context, customerID string, balance decimal.Decimal) error

	InsertCreditTransaction(ctx context.Context, t *model.CreditTransaction) error
	// ListCreditTransactions returns the history oldest first.
	ListCreditTransactions(ctx context.Context, customerID string) ([]model.CreditTransaction, error)
}

type SaleRepository interface {
	// InsertSale returns ErrDuplicateReceipt when the receipt number is taken.
	InsertSale(ctx context.Context, s *model.Sale) error
	InsertSaleItems(ctx context.Context, items []model.SaleItem) error
	// GetSale returns the sale hydrated with items, products, customer and user.
	GetSale(ctx context.Context, id string) (*model.Sale, error)
	// GetSaleForUpdate locks the sale row and loads its items.
	GetSaleForUpdate(ctx context.Context, id string) (*model.Sale, error)
	ListSales(ctx context.Context, f *SaleFilter) ([]model.Sale, int, error)
	UpdateSaleStatus(ctx context.Context, saleID string, status model.SaleStatus) error

	InsertSaleItemRefunds(ctx context.Context, refunds []model.SaleItemRefund) error
	ListRefundedItemIDs(ctx context.Context, saleID string) ([]string, error)
}

type UserRepository interface {
	UpsertUser(ctx context.Context, u *model.User) error
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	ProductRepository
	MovementRepository
	CustomerRepository
	SaleRepository
	UserRepository
}

// Store runs reads directly and mutations inside WithinTx. If fn returns an
// error the transaction is rolled back and the error is returned unchanged.
type Store interface {
	Tx
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
