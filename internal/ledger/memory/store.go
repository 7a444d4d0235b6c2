package memory

import (
	"context"

	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/shopspring/decimal"
)

var _ ledger.Store = (*Store)(nil)

func (s *Store) CreateProduct(ctx context.Context, p *model.Product) error {
	return s.write(ctx, func(t *tx) error { return t.CreateProduct(ctx, p) })
}

func (s *Store) UpdateProduct(ctx context.Context, p *model.Product) error {
	return s.write(ctx, func(t *tx) error { return t.UpdateProduct(ctx, p) })
}

func (s *Store) GetProduct(ctx context.Context, id string) (p *model.Product, err error) {
	err = s.read(func(t *tx) error { p, err = t.GetProduct(ctx, id); return err })
	return p, err
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (p *model.Product, err error) {
	err = s.read(func(t *tx) error { p, err = t.GetProductByBarcode(ctx, barcode); return err })
	return p, err
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (ps []model.Product, err error) {
	err = s.read(func(t *tx) error { ps, err = t.GetProductsByIDs(ctx, ids); return err })
	return ps, err
}

func (s *Store) ListProducts(ctx context.Context, f *ledger.ProductFilter) (ps []model.Product, total int, err error) {
	err = s.read(func(t *tx) error { ps, total, err = t.ListProducts(ctx, f); return err })
	return ps, total, err
}

func (s *Store) IncrementStock(ctx context.Context, productID string, qty int) (p *model.Product, err error) {
	err = s.write(ctx, func(t *tx) error { p, err = t.IncrementStock(ctx, productID, qty); return err })
	return p, err
}

func (s *Store) DecrementStock(ctx context.Context, productID string, qty int) (p *model.Product, err error) {
	err = s.write(ctx, func(t *tx) error { p, err = t.DecrementStock(ctx, productID, qty); return err })
	return p, err
}

func (s *Store) ApplyStockDelta(ctx context.Context, productID string, delta int) (p *model.Product, err error) {
	err = s.write(ctx, func(t *tx) error { p, err = t.ApplyStockDelta(ctx, productID, delta); return err })
	return p, err
}

func (s *Store) InsertMovement(ctx context.Context, m *model.StockMovement) error {
	return s.write(ctx, func(t *tx) error { return t.InsertMovement(ctx, m) })
}

func (s *Store) ListMovements(ctx context.Context, f *ledger.MovementFilter) (ms []model.StockMovement, total int, err error) {
	err = s.read(func(t *tx) error { ms, total, err = t.ListMovements(ctx, f); return err })
	return ms, total, err
}

func (s *Store) CreateCustomer(ctx context.Context, c *model.Customer) error {
	return s.write(ctx, func(t *tx) error { return t.CreateCustomer(ctx, c) })
}

func (s *Store) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	return s.write(ctx, func(t *tx) error { return t.UpdateCustomer(ctx, c) })
}

func (s *Store) GetCustomer(ctx context.Context, id string) (c *model.Customer, err error) {
	err = s.read(func(t *tx) error { c, err = t.GetCustomer(ctx, id); return err })
	return c, err
}

func (s *Store) GetCustomerForUpdate(ctx context.Context, id string) (*model.Customer, error) {
	return s.GetCustomer(ctx, id)
}

func (s *Store) ListCustomers(ctx context.Context, f *ledger.CustomerFilter) (cs []model.Customer, total int, err error) {
	err = s.read(func(t *tx) error { cs, total, err = t.ListCustomers(ctx, f); return err })
	return cs, total, err
}

func (s *Store) SetCreditBalance(ctx context.Context, customerID string, balance decimal.Decimal) error {
	return s.write(ctx, func(t *tx) error { return t.SetCreditBalance(ctx, customerID, balance) })
}

func (s *Store) InsertCreditTransaction(ctx context.Context, ct *model.CreditTransaction) error {
	return s.write(ctx, func(t *tx) error { return t.InsertCreditTransaction(ctx, ct) })
}

func (s *Store) ListCreditTransactions(ctx context.Context, customerID string) (cts []model.CreditTransaction, err error) {
	err = s.read(func(t *tx) error { cts, err = t.ListCreditTransactions(ctx, customerID); return err })
	return cts, err
}

func (s *Store) InsertSale(ctx context.Context, sale *model.Sale) error {
	return s.write(ctx, func(t *tx) error { return t.InsertSale(ctx, sale) })
}

func (s *Store) InsertSaleItems(ctx context.Context, items []model.SaleItem) error {
	return s.write(ctx, func(t *tx) error { return t.InsertSaleItems(ctx, items) })
}

func (s *Store) GetSale(ctx context.Context, id string) (sale *model.Sale, err error) {
	err = s.read(func(t *tx) error { sale, err = t.GetSale(ctx, id); return err })
	return sale, err
}

func (s *Store) GetSaleForUpdate(ctx context.Context, id string) (sale *model.Sale, err error) {
	err = s.read(func(t *tx) error { sale, err = t.GetSaleForUpdate(ctx, id); return err })
	return sale, err
}

func (s *Store) ListSales(ctx context.Context, f *ledger.SaleFilter) (sales []model.Sale, total int, err error) {
	err = s.read(func(t *tx) error { sales, total, err = t.ListSales(ctx, f); return err })
	return sales, total, err
}

func (s *Store) UpdateSaleStatus(ctx context.Context, saleID string, status model.SaleStatus) error {
	return s.write(ctx, func(t *tx) error { return t.UpdateSaleStatus(ctx, saleID, status) })
}

func (s *Store) InsertSaleItemRefunds(ctx context.Context, refunds []model.SaleItemRefund) error {
	return s.write(ctx, func(t *tx) error { return t.InsertSaleItemRefunds(ctx, refunds) })
}

func (s *Store) ListRefundedItemIDs(ctx context.Context, saleID string) (ids []string, err error) {
	err = s.read(func(t *tx) error { ids, err = t.ListRefundedItemIDs(ctx, saleID); return err })
	return ids, err
}

func (s *Store) UpsertUser(ctx context.Context, u *model.User) error {
	return s.write(ctx, func(t *tx) error { return t.UpsertUser(ctx, u) })
}
