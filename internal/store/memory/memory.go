package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"barakapos/backend/internal/alert"
	"barakapos/backend/internal/domain"
	"barakapos/backend/internal/store"
	"barakapos/backend/internal/xid"
)

// Store keeps the whole business state behind one lock. Every multi-step
// mutation (sale, return, alert raise) runs in a single critical section.
type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	sales           []domain.Sale
	salesByID       map[string]int
	returns         []domain.ReturnInvoice
	alerts          []domain.InventoryAlert
	settings        domain.Settings
	usersByUsername map[string]domain.UserAccount
}

func DefaultSettings() domain.Settings {
	return domain.Settings{
		StoreName:       "Baraka Market",
		TaxRate:         decimal.NewFromInt(14),
		Currency:        "EGP",
		ReceiptFooter:   "Thank you for shopping with us",
		LowStockDefault: 10,
	}
}

func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		salesByID:       make(map[string]int),
		settings:        DefaultSettings(),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedProducts(), nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	copyProduct := cloneProduct(product)
	return &copyProduct, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, fmt.Errorf("%w: product id %s already exists", store.ErrValidation, product.ID)
	}
	if err := s.checkBarcode(product.ID, product.Barcode); err != nil {
		return nil, err
	}

	s.products[product.ID] = cloneProduct(product)
	created := cloneProduct(product)
	return &created, nil
}

// UpdateProduct applies mutate to the live product under the write lock, so
// stock changed by a concurrent sale or return is never overwritten by a
// stale copy. The id and creation time are kept.
func (s *Store) UpdateProduct(_ context.Context, id string, mutate store.ProductMutator) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[id]
	if !exists {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	product := cloneProduct(existing)
	if err := mutate(&product); err != nil {
		return nil, err
	}
	product.ID = existing.ID
	product.CreatedAt = existing.CreatedAt
	if err := s.checkBarcode(product.ID, product.Barcode); err != nil {
		return nil, err
	}

	s.products[id] = cloneProduct(product)
	updated := cloneProduct(product)
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	delete(s.products, id)
	return nil
}

// CommitSale re-validates every line against live stock and only then
// decrements, so a rejected sale leaves the catalog untouched.
func (s *Store) CommitSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Items) == 0 {
		return nil, store.ErrEmptyCart
	}

	required := make(map[string]int, len(sale.Items))
	for _, item := range sale.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity for %s must be positive", store.ErrValidation, item.Product.ID)
		}
		required[item.Product.ID] += item.Quantity
	}
	for productID, qty := range required {
		product, exists := s.products[productID]
		if !exists {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
		}
		if product.Quantity-qty < 0 {
			return nil, fmt.Errorf("%w: %s has %d, requested %d", store.ErrInsufficientStock, product.Name, product.Quantity, qty)
		}
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if _, exists := s.salesByID[sale.ID]; exists {
		return nil, fmt.Errorf("%w: sale id %s already exists", store.ErrValidation, sale.ID)
	}
	if sale.Timestamp.IsZero() {
		sale.Timestamp = time.Now().UTC()
	}
	if sale.Status == "" {
		sale.Status = domain.SaleStatusCompleted
	}

	for productID, qty := range required {
		product := s.products[productID]
		product.Quantity -= qty
		product.UpdatedAt = sale.Timestamp
		s.products[productID] = product
	}

	s.salesByID[sale.ID] = len(s.sales)
	s.sales = append(s.sales, cloneSale(sale))
	created := cloneSale(sale)
	return &created, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.salesByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: sale %s", store.ErrNotFound, id)
	}
	sale := cloneSale(s.sales[idx])
	return &sale, nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		sales = append(sales, cloneSale(sale))
	}
	return sales, nil
}

func (s *Store) GetReturnedQtyBySale(_ context.Context, saleID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.salesByID[saleID]; !ok {
		return nil, fmt.Errorf("%w: sale %s", store.ErrNotFound, saleID)
	}
	return s.returnedQty(saleID), nil
}

// CommitReturn hands the planner a consistent view of the sale and its prior
// returns, then applies the plan: stock restore, sale update, ledger append.
// Products deleted since the sale have nothing to restore.
func (s *Store) CommitReturn(_ context.Context, saleID string, plan store.ReturnPlanner) (*store.ReturnPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.salesByID[saleID]
	if !ok {
		return nil, fmt.Errorf("%w: sale %s", store.ErrNotFound, saleID)
	}

	result, err := plan(cloneSale(s.sales[idx]), s.returnedQty(saleID))
	if err != nil {
		return nil, err
	}
	if result.Sale.ID != saleID || result.Invoice.OriginalSaleID != saleID {
		return nil, fmt.Errorf("%w: return plan does not match sale %s", store.ErrValidation, saleID)
	}

	if result.Invoice.ID == "" {
		result.Invoice.ID = xid.New("ret")
	}
	if result.Invoice.Timestamp.IsZero() {
		result.Invoice.Timestamp = time.Now().UTC()
	}

	for _, item := range result.Invoice.Items {
		product, exists := s.products[item.ProductID]
		if !exists {
			continue
		}
		product.Quantity += item.ReturnedQuantity
		product.UpdatedAt = result.Invoice.Timestamp
		s.products[item.ProductID] = product
	}

	s.sales[idx] = cloneSale(result.Sale)
	s.returns = append(s.returns, cloneReturn(result.Invoice))

	applied := store.ReturnPlan{
		Invoice: cloneReturn(result.Invoice),
		Sale:    cloneSale(result.Sale),
	}
	return &applied, nil
}

func (s *Store) ListReturns(_ context.Context) ([]domain.ReturnInvoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	returns := make([]domain.ReturnInvoice, 0, len(s.returns))
	for _, ret := range s.returns {
		returns = append(returns, cloneReturn(ret))
	}
	return returns, nil
}

func (s *Store) ListAlerts(_ context.Context) ([]domain.InventoryAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.alerts), nil
}

// RaiseAlerts appends the candidates that have no open alert of the same
// type for the same product and returns only what was appended.
func (s *Store) RaiseAlerts(_ context.Context, candidates []domain.InventoryAlert) ([]domain.InventoryAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := alert.Fresh(s.alerts, candidates)
	for i := range fresh {
		if fresh[i].ID == "" {
			fresh[i].ID = xid.New("alert")
		}
		if fresh[i].Timestamp.IsZero() {
			fresh[i].Timestamp = time.Now().UTC()
		}
		fresh[i].Acknowledged = false
	}
	s.alerts = append(s.alerts, fresh...)
	return slices.Clone(fresh), nil
}

func (s *Store) AcknowledgeAlert(_ context.Context, id string) (*domain.InventoryAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.alerts {
		if s.alerts[i].ID != id {
			continue
		}
		s.alerts[i].Acknowledged = true
		acked := s.alerts[i]
		return &acked, nil
	}
	return nil, fmt.Errorf("%w: alert %s", store.ErrNotFound, id)
}

func (s *Store) GetSettings(_ context.Context) (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.settings, nil
}

func (s *Store) SaveSettings(_ context.Context, settings domain.Settings) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = settings
	return s.settings, nil
}

func (s *Store) Export(_ context.Context) (store.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := store.State{
		Products: s.sortedProducts(),
		Sales:    make([]domain.Sale, 0, len(s.sales)),
		Returns:  make([]domain.ReturnInvoice, 0, len(s.returns)),
		Alerts:   slices.Clone(s.alerts),
	}
	if state.Alerts == nil {
		state.Alerts = []domain.InventoryAlert{}
	}
	for _, sale := range s.sales {
		state.Sales = append(state.Sales, cloneSale(sale))
	}
	for _, ret := range s.returns {
		state.Returns = append(state.Returns, cloneReturn(ret))
	}
	settings := s.settings
	state.Settings = &settings
	return state, nil
}

// Restore replaces every collection that is non-nil in state.
func (s *Store) Restore(_ context.Context, state store.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state.Products != nil {
		products := make(map[string]domain.Product, len(state.Products))
		for _, p := range state.Products {
			if p.ID == "" {
				return fmt.Errorf("%w: restored product without id", store.ErrValidation)
			}
			products[p.ID] = cloneProduct(p)
		}
		s.products = products
	}
	if state.Sales != nil {
		s.sales = make([]domain.Sale, 0, len(state.Sales))
		s.salesByID = make(map[string]int, len(state.Sales))
		for _, sale := range state.Sales {
			s.salesByID[sale.ID] = len(s.sales)
			s.sales = append(s.sales, cloneSale(sale))
		}
	}
	if state.Returns != nil {
		s.returns = make([]domain.ReturnInvoice, 0, len(state.Returns))
		for _, ret := range state.Returns {
			s.returns = append(s.returns, cloneReturn(ret))
		}
	}
	if state.Alerts != nil {
		s.alerts = slices.Clone(state.Alerts)
	}
	if state.Settings != nil {
		s.settings = *state.Settings
	}
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrValidation
	}
	if _, exists := s.usersByUsername[username]; exists {
		return fmt.Errorf("%w: username already exists", store.ErrValidation)
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrValidation
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return fmt.Errorf("%w: user %s", store.ErrNotFound, username)
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) checkBarcode(productID string, barcode string) error {
	for id, existing := range s.products {
		if id != productID && existing.Barcode == barcode {
			return fmt.Errorf("%w: barcode %s already used by %s", store.ErrValidation, barcode, existing.Name)
		}
	}
	return nil
}

func (s *Store) returnedQty(saleID string) map[string]int {
	result := make(map[string]int)
	for _, ret := range s.returns {
		if ret.OriginalSaleID != saleID {
			continue
		}
		for _, line := range ret.Items {
			result[line.ProductID] += line.ReturnedQuantity
		}
	}
	return result
}

func (s *Store) sortedProducts() []domain.Product {
	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, cloneProduct(p))
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return products
}

func cloneProduct(src domain.Product) domain.Product {
	dst := src
	if src.ExpiryDate != nil {
		expiry := *src.ExpiryDate
		dst.ExpiryDate = &expiry
	}
	return dst
}

func cloneSale(src domain.Sale) domain.Sale {
	dst := src
	dst.Items = make([]domain.CartItem, len(src.Items))
	for i, item := range src.Items {
		dst.Items[i] = domain.CartItem{Product: cloneProduct(item.Product), Quantity: item.Quantity}
	}
	return dst
}

func cloneReturn(src domain.ReturnInvoice) domain.ReturnInvoice {
	dst := src
	dst.Items = slices.Clone(src.Items)
	return dst
}
