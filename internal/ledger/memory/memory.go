// Package memory is an in-process ledger.Store. Transactions are serialised
// by a single mutex and applied copy-on-write, so a failed transaction
// leaves no trace.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fekuna/omnipos-store-service/internal/ledger"
	"github.com/fekuna/omnipos-store-service/internal/model"
	"github.com/shopspring/decimal"
)

type state struct {
	products     map[string]model.Product
	movements    []model.StockMovement
	customers    map[string]model.Customer
	creditTxns   []model.CreditTransaction
	sales        map[string]model.Sale
	saleItems    []model.SaleItem
	itemRefunds  []model.SaleItemRefund
	users        map[string]model.User
	receiptIndex map[string]string
}

func newState() *state {
	return &state{
		products:     map[string]model.Product{},
		customers:    map[string]model.Customer{},
		sales:        map[string]model.Sale{},
		users:        map[string]model.User{},
		receiptIndex: map[string]string{},
	}
}

func (s *state) clone() *state {
	c := &state{
		products:     make(map[string]model.Product, len(s.products)),
		movements:    append([]model.StockMovement(nil), s.movements...),
		customers:    make(map[string]model.Customer, len(s.customers)),
		creditTxns:   append([]model.CreditTransaction(nil), s.creditTxns...),
		sales:        make(map[string]model.Sale, len(s.sales)),
		saleItems:    append([]model.SaleItem(nil), s.saleItems...),
		itemRefunds:  append([]model.SaleItemRefund(nil), s.itemRefunds...),
		users:        make(map[string]model.User, len(s.users)),
		receiptIndex: make(map[string]string, len(s.receiptIndex)),
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.sales {
		c.sales[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.receiptIndex {
		c.receiptIndex[k] = v
	}
	return c
}

type Store struct {
	mu    sync.Mutex
	state *state
}

func New() *Store {
	return &Store{state: newState()}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := &tx{st: s.state.clone()}
	if err := fn(work); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work.st
	return nil
}

func (s *Store) Close() error { return nil }

// write runs a single mutation in its own transaction.
func (s *Store) write(ctx context.Context, fn func(t *tx) error) error {
	return s.WithinTx(ctx, func(t ledger.Tx) error {
		return fn(t.(*tx))
	})
}

// read runs fn against the committed state without copying it.
func (s *Store) read(fn func(t *tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&tx{st: s.state})
}

// tx operates on a private copy of the state.
type tx struct {
	st *state
}

// ---- products ----

func (t *tx) CreateProduct(_ context.Context, p *model.Product) error {
	for _, existing := range t.st.products {
		if existing.SKU == p.SKU {
			return ledger.ErrDuplicateSKU
		}
		if p.Barcode != nil && existing.Barcode != nil && *existing.Barcode == *p.Barcode {
			return ledger.ErrDuplicateBarcode
		}
	}
	t.st.products[p.ID] = *p
	return nil
}

func (t *tx) UpdateProduct(_ context.Context, p *model.Product) error {
	current, ok := t.st.products[p.ID]
	if !ok {
		return ledger.ErrNotFound
	}
	for id, existing := range t.st.products {
		if id == p.ID {
			continue
		}
		if existing.SKU == p.SKU {
			return ledger.ErrDuplicateSKU
		}
		if p.Barcode != nil && existing.Barcode != nil && *existing.Barcode == *p.Barcode {
			return ledger.ErrDuplicateBarcode
		}
	}
	updated := *p
	updated.StockQuantity = current.StockQuantity
	updated.CreatedAt = current.CreatedAt
	t.st.products[p.ID] = updated
	return nil
}

func (t *tx) GetProduct(_ context.Context, id string) (*model.Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &p, nil
}

func (t *tx) GetProductByBarcode(_ context.Context, barcode string) (*model.Product, error) {
	for _, p := range t.st.products {
		if p.Barcode != nil && *p.Barcode == barcode && p.IsActive {
			p := p
			return &p, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (t *tx) GetProductsByIDs(_ context.Context, ids []string) ([]model.Product, error) {
	out := make([]model.Product, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := t.st.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *tx) ListProducts(_ context.Context, f *ledger.ProductFilter) ([]model.Product, int, error) {
	var items []model.Product
	search := strings.ToLower(f.Search)
	for _, p := range t.st.products {
		if f.IsActive != nil && p.IsActive != *f.IsActive {
			continue
		}
		if f.LowStock && !p.IsLowStock() {
			continue
		}
		if search != "" && !matchesProduct(p, search) {
			continue
		}
		items = append(items, p)
	}
	sortProducts(items, f.SortBy, strings.ToLower(f.SortOrder) == "asc")
	total := len(items)
	return paginate(items, f.Page, f.PageSize), total, nil
}

func matchesProduct(p model.Product, search string) bool {
	if strings.Contains(strings.ToLower(p.Name), search) || strings.Contains(strings.ToLower(p.SKU), search) {
		return true
	}
	return p.Barcode != nil && strings.Contains(strings.ToLower(*p.Barcode), search)
}

func sortProducts(items []model.Product, by string, asc bool) {
	less := func(a, b model.Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	switch by {
	case "name":
		less = func(a, b model.Product) bool { return a.Name < b.Name }
	case "price":
		less = func(a, b model.Product) bool { return a.Price.LessThan(b.Price) }
	case "stock":
		less = func(a, b model.Product) bool { return a.StockQuantity < b.StockQuantity }
	case "created_at":
		less = func(a, b model.Product) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
	if by != "" && !asc {
		inner := less
		less = func(a, b model.Product) bool { return inner(b, a) }
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

func (t *tx) IncrementStock(_ context.Context, productID string, qty int) (*model.Product, error) {
	p, ok := t.st.products[productID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	p.StockQuantity += qty
	p.UpdatedAt = time.Now()
	t.st.products[productID] = p
	return &p, nil
}

func (t *tx) DecrementStock(_ context.Context, productID string, qty int) (*model.Product, error) {
	p, ok := t.st.products[productID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	if p.StockQuantity < qty {
		return nil, ledger.ErrConditionFailed
	}
	p.StockQuantity -= qty
	p.UpdatedAt = time.Now()
	t.st.products[productID] = p
	return &p, nil
}

func (t *tx) ApplyStockDelta(_ context.Context, productID string, delta int) (*model.Product, error) {
	p, ok := t.st.products[productID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	if p.StockQuantity+delta < 0 {
		return nil, ledger.ErrConditionFailed
	}
	p.StockQuantity += delta
	p.UpdatedAt = time.Now()
	t.st.products[productID] = p
	return &p, nil
}

// ---- movements ----

func (t *tx) InsertMovement(_ context.Context, m *model.StockMovement) error {
	if _, ok := t.st.products[m.ProductID]; !ok {
		return ledger.ErrNotFound
	}
	t.st.movements = append(t.st.movements, *m)
	return nil
}

func (t *tx) ListMovements(_ context.Context, f *ledger.MovementFilter) ([]model.StockMovement, int, error) {
	var items []model.StockMovement
	for i := len(t.st.movements) - 1; i >= 0; i-- {
		m := t.st.movements[i]
		if f.ProductID != "" && m.ProductID != f.ProductID {
			continue
		}
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		if f.StartDate != nil && m.CreatedAt.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && m.CreatedAt.After(*f.EndDate) {
			continue
		}
		items = append(items, m)
	}
	total := len(items)
	return paginate(items, f.Page, f.PageSize), total, nil
}

// ---- customers ----

func (t *tx) CreateCustomer(_ context.Context, c *model.Customer) error {
	t.st.customers[c.ID] = *c
	return nil
}

func (t *tx) UpdateCustomer(_ context.Context, c *model.Customer) error {
	current, ok := t.st.customers[c.ID]
	if !ok {
		return ledger.ErrNotFound
	}
	updated := *c
	updated.CreditBalance = current.CreditBalance
	updated.CreatedAt = current.CreatedAt
	t.st.customers[c.ID] = updated
	return nil
}

func (t *tx) GetCustomer(_ context.Context, id string) (*model.Customer, error) {
	c, ok := t.st.customers[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &c, nil
}

// GetCustomerForUpdate needs no lock: transactions are already serialised.
func (t *tx) GetCustomerForUpdate(ctx context.Context, id string) (*model.Customer, error) {
	return t.GetCustomer(ctx, id)
}

func (t *tx) ListCustomers(_ context.Context, f *ledger.CustomerFilter) ([]model.Customer, int, error) {
	var items []model.Customer
	search := strings.ToLower(f.Search)
	for _, c := range t.st.customers {
		if !c.IsActive {
			continue
		}
		if f.HasCredit && !c.CreditBalance.IsPositive() {
			continue
		}
		if search != "" && !matchesCustomer(c, search) {
			continue
		}
		items = append(items, c)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	total := len(items)
	return paginate(items, f.Page, f.PageSize), total, nil
}

func matchesCustomer(c model.Customer, search string) bool {
	if strings.Contains(strings.ToLower(c.Name), search) {
		return true
	}
	if c.Email != nil && strings.Contains(strings.ToLower(*c.Email), search) {
		return true
	}
	return c.Phone != nil && strings.Contains(*c.Phone, search)
}

func (t *tx) SetCreditBalance(_ context.Context, customerID string, balance decimal.Decimal) error {
	c, ok := t.st.customers[customerID]
	if !ok {
		return ledger.ErrNotFound
	}
	if balance.IsNegative() {
		return ledger.ErrConditionFailed
	}
	c.CreditBalance = balance
	c.UpdatedAt = time.Now()
	t.st.customers[customerID] = c
	return nil
}

func (t *tx) InsertCreditTransaction(_ context.Context, ct *model.CreditTransaction) error {
	if _, ok := t.st.customers[ct.CustomerID]; !ok {
		return ledger.ErrNotFound
	}
	t.st.creditTxns = append(t.st.creditTxns, *ct)
	return nil
}

func (t *tx) ListCreditTransactions(_ context.Context, customerID string) ([]model.CreditTransaction, error) {
	var out []model.CreditTransaction
	for _, ct := range t.st.creditTxns {
		if ct.CustomerID == customerID {
			out = append(out, ct)
		}
	}
	return out, nil
}

// ---- sales ----

func (t *tx) InsertSale(_ context.Context, s *model.Sale) error {
	if _, taken := t.st.receiptIndex[s.ReceiptNumber]; taken {
		return ledger.ErrDuplicateReceipt
	}
	row := *s
	row.Items = nil
	row.Customer = nil
	row.User = nil
	t.st.sales[s.ID] = row
	t.st.receiptIndex[s.ReceiptNumber] = s.ID
	return nil
}

func (t *tx) InsertSaleItems(_ context.Context, items []model.SaleItem) error {
	for _, it := range items {
		if _, ok := t.st.sales[it.SaleID]; !ok {
			return ledger.ErrNotFound
		}
		row := it
		row.Product = nil
		t.st.saleItems = append(t.st.saleItems, row)
	}
	return nil
}

func (t *tx) itemsOf(saleID string, withProducts bool) []model.SaleItem {
	var items []model.SaleItem
	for _, it := range t.st.saleItems {
		if it.SaleID != saleID {
			continue
		}
		if withProducts {
			if p, ok := t.st.products[it.ProductID]; ok {
				p := p
				it.Product = &p
			}
		}
		items = append(items, it)
	}
	return items
}

func (t *tx) GetSale(_ context.Context, id string) (*model.Sale, error) {
	s, ok := t.st.sales[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	t.hydrate(&s)
	return &s, nil
}

func (t *tx) hydrate(s *model.Sale) {
	s.Items = t.itemsOf(s.ID, true)
	if s.CustomerID != nil {
		if c, ok := t.st.customers[*s.CustomerID]; ok {
			s.Customer = &c
		}
	}
	if u, ok := t.st.users[s.UserID]; ok {
		s.User = &u
	}
}

func (t *tx) GetSaleForUpdate(_ context.Context, id string) (*model.Sale, error) {
	s, ok := t.st.sales[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	s.Items = t.itemsOf(id, false)
	return &s, nil
}

func (t *tx) ListSales(_ context.Context, f *ledger.SaleFilter) ([]model.Sale, int, error) {
	var items []model.Sale
	for _, s := range t.st.sales {
		if f.StartDate != nil && s.CreatedAt.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && s.CreatedAt.After(*f.EndDate) {
			continue
		}
		if f.CustomerID != "" && (s.CustomerID == nil || *s.CustomerID != f.CustomerID) {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		t.hydrate(&s)
		items = append(items, s)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	total := len(items)
	return paginate(items, f.Page, f.PageSize), total, nil
}

func (t *tx) UpdateSaleStatus(_ context.Context, saleID string, status model.SaleStatus) error {
	s, ok := t.st.sales[saleID]
	if !ok {
		return ledger.ErrNotFound
	}
	s.Status = status
	t.st.sales[saleID] = s
	return nil
}

func (t *tx) InsertSaleItemRefunds(_ context.Context, refunds []model.SaleItemRefund) error {
	for _, r := range refunds {
		for _, existing := range t.st.itemRefunds {
			if existing.SaleItemID == r.SaleItemID {
				return ledger.ErrConditionFailed
			}
		}
		t.st.itemRefunds = append(t.st.itemRefunds, r)
	}
	return nil
}

func (t *tx) ListRefundedItemIDs(_ context.Context, saleID string) ([]string, error) {
	var ids []string
	for _, r := range t.st.itemRefunds {
		if r.SaleID == saleID {
			ids = append(ids, r.SaleItemID)
		}
	}
	return ids, nil
}

// ---- users ----

func (t *tx) UpsertUser(_ context.Context, u *model.User) error {
	t.st.users[u.ID] = *u
	return nil
}

func paginate[T any](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
