// Package memory is an in-process Repository used for tests and for
// running the server without PostgreSQL.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"estoquepro/backend/internal/domain"
	"estoquepro/backend/internal/store"
	"estoquepro/backend/internal/xid"
)

type Store struct {
	mu sync.RWMutex

	products map[string]domain.Product // by product ID
	sales    []domain.SaleRecord
	settings map[string]domain.StoreSettings // by owner ID
	users    map[string]domain.UserAccount   // by lowercased email
	audits   []domain.AuditLog

	// legacySchema simulates an old install whose products table still
	// uses the historical cost column. While set, cost-bearing writes
	// through the normal path fail with ErrSchemaMismatch and only the
	// legacy path succeeds.
	legacySchema bool
}

func New() *Store {
	return &Store{
		products: make(map[string]domain.Product),
		settings: make(map[string]domain.StoreSettings),
		users:    make(map[string]domain.UserAccount),
	}
}

// Seed loads a small demo catalog for an owner so a fresh server has
// something to sell.
func (s *Store) Seed(ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	demo := []domain.Product{
		{Barcode: "7891000100103", Name: "Café Pilão 500g", Quantity: 24, SaleCents: 2190},
		{Barcode: "7891000100110", Name: "Filtro de Papel 103", Quantity: 40, SaleCents: 690},
		{Barcode: "7891000100127", Name: "Açúcar Cristal 1kg", Quantity: 8, SaleCents: 499},
	}
	for _, p := range demo {
		p.ID = xid.New("prod")
		p.OwnerID = ownerID
		s.products[p.ID] = p
	}
}

// SetLegacySchema toggles the legacy column simulation.
func (s *Store) SetLegacySchema(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.legacySchema = on
}

func (s *Store) ListProducts(ctx context.Context, ownerID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.OwnerID == ownerID {
			products = append(products, p)
		}
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return products, nil
}

func (s *Store) GetProductByBarcode(ctx context.Context, ownerID string, barcode string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.OwnerID == ownerID && p.Barcode == barcode {
			found := p
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateProduct(ctx context.Context, ownerID string, ins domain.ProductInsert) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.legacySchema && ins.CostCents > 0 {
		return nil, store.ErrSchemaMismatch
	}
	return s.createLocked(ownerID, ins)
}

func (s *Store) CreateProductLegacy(ctx context.Context, ownerID string, ins domain.ProductInsert) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(ownerID, ins)
}

func (s *Store) createLocked(ownerID string, ins domain.ProductInsert) (*domain.Product, error) {
	if ins.Barcode == "" || ins.Name == "" || ins.Quantity < 0 || ins.SaleCents < 0 {
		return nil, store.ErrInvalidInput
	}
	for _, p := range s.products {
		if p.OwnerID == ownerID && p.Barcode == ins.Barcode {
			return nil, store.ErrDuplicate
		}
	}
	p := domain.Product{
		ID:        xid.New("prod"),
		OwnerID:   ownerID,
		Barcode:   ins.Barcode,
		Name:      ins.Name,
		Quantity:  ins.Quantity,
		SaleCents: ins.SaleCents,
	}
	if ins.CostCents > 0 {
		cost := ins.CostCents
		p.CostCents = &cost
	}
	s.products[p.ID] = p
	created := p
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, ownerID string, productID string, upd domain.ProductUpdateRequest) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok || p.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			return nil, store.ErrInvalidInput
		}
		p.Name = *upd.Name
	}
	if upd.Quantity != nil {
		if *upd.Quantity < 0 {
			return nil, store.ErrInvalidInput
		}
		p.Quantity = *upd.Quantity
	}
	if upd.CostCents != nil {
		if s.legacySchema {
			return nil, store.ErrSchemaMismatch
		}
		cost := *upd.CostCents
		p.CostCents = &cost
	}
	if upd.SaleCents != nil {
		if *upd.SaleCents < 0 {
			return nil, store.ErrInvalidInput
		}
		p.SaleCents = *upd.SaleCents
	}
	if upd.CategoryID != nil {
		p.CategoryID = *upd.CategoryID
	}
	s.products[productID] = p
	updated := p
	return &updated, nil
}

func (s *Store) ApplyStockUpdate(ctx context.Context, ownerID string, upd domain.StockUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.legacySchema && upd.CostCents != nil {
		return store.ErrSchemaMismatch
	}
	return s.applyStockLocked(ownerID, upd)
}

func (s *Store) ApplyStockUpdateLegacy(ctx context.Context, ownerID string, upd domain.StockUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyStockLocked(ownerID, upd)
}

func (s *Store) applyStockLocked(ownerID string, upd domain.StockUpdate) error {
	p, ok := s.products[upd.ProductID]
	if !ok || p.OwnerID != ownerID {
		return store.ErrNotFound
	}
	if upd.NewQuantity < 0 {
		return store.ErrInvalidInput
	}
	p.Quantity = upd.NewQuantity
	if upd.CostCents != nil {
		cost := *upd.CostCents
		p.CostCents = &cost
	}
	if upd.SaleCents != nil {
		p.SaleCents = *upd.SaleCents
	}
	s.products[upd.ProductID] = p
	return nil
}

func (s *Store) SetQuantity(ctx context.Context, ownerID string, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok || p.OwnerID != ownerID {
		return store.ErrNotFound
	}
	if quantity < 0 {
		return store.ErrInvalidInput
	}
	p.Quantity = quantity
	s.products[productID] = p
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, ownerID string, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok || p.OwnerID != ownerID {
		return store.ErrNotFound
	}
	delete(s.products, productID)
	return nil
}

func (s *Store) CreateSaleRecord(ctx context.Context, rec domain.SaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.OwnerID == "" || rec.ProductID == "" || rec.Quantity < 1 {
		return store.ErrInvalidInput
	}
	if rec.ID == "" {
		rec.ID = xid.New("sale")
	}
	if rec.SoldAt.IsZero() {
		rec.SoldAt = time.Now().UTC()
	}
	s.sales = append(s.sales, rec)
	return nil
}

func (s *Store) ListSaleRecords(ctx context.Context, ownerID string, from time.Time, to time.Time, limit int) ([]domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 500
	}
	records := make([]domain.SaleRecord, 0, 32)
	for _, rec := range s.sales {
		if rec.OwnerID != ownerID {
			continue
		}
		if !from.IsZero() && rec.SoldAt.Before(from) {
			continue
		}
		if !to.IsZero() && !rec.SoldAt.Before(to) {
			continue
		}
		records = append(records, rec)
	}
	slices.SortFunc(records, func(a, b domain.SaleRecord) int {
		return b.SoldAt.Compare(a.SoldAt)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *Store) GetStoreSettings(ctx context.Context, ownerID string) (*domain.StoreSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.settings[ownerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := settings
	return &found, nil
}

func (s *Store) UpsertStoreSettings(ctx context.Context, settings domain.StoreSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if settings.OwnerID == "" || strings.TrimSpace(settings.Name) == "" {
		return store.ErrInvalidInput
	}
	if settings.UpdatedAt.IsZero() {
		settings.UpdatedAt = time.Now().UTC()
	}
	s.settings[settings.OwnerID] = settings
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.users[email]; exists {
		return store.ErrDuplicate
	}
	if user.ID == "" {
		user.ID = xid.New("user")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Email = email
	s.users[email] = user
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := user
	return &found, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.audits = append(s.audits, entry)
	return nil
}

func (s *Store) ListAuditLogs(ctx context.Context, ownerID string, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}
	logs := make([]domain.AuditLog, 0, limit)
	for i := len(s.audits) - 1; i >= 0 && len(logs) < limit; i-- {
		if s.audits[i].OwnerID == ownerID {
			logs = append(logs, s.audits[i])
		}
	}
	return logs, nil
}
