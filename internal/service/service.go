package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"estoquepro/backend/internal/cache"
	"estoquepro/backend/internal/catalog"
	"estoquepro/backend/internal/domain"
	"estoquepro/backend/internal/money"
	"estoquepro/backend/internal/pricing"
	"estoquepro/backend/internal/reconcile"
	"estoquepro/backend/internal/settle"
	"estoquepro/backend/internal/store"
)

// ErrUnauthenticated blocks every operation that has no actor on the
// request context.
var ErrUnauthenticated = errors.New("authentication required")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// repoCallTimeout bounds every repository call so a hung external store
// surfaces as an error instead of blocking the request forever.
const repoCallTimeout = 6 * time.Second

const catalogCacheTTL = 30 * time.Second

type Service struct {
	repo    store.Repository
	catalog cache.CatalogCache
	matcher *catalog.Matcher
}

func New(repo store.Repository, catalogCache cache.CatalogCache) *Service {
	if catalogCache == nil {
		catalogCache = cache.NoopCatalogCache{}
	}
	return &Service{
		repo:    repo,
		catalog: catalogCache,
		matcher: catalog.NewMatcher(),
	}
}

func (s *Service) requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.UserID == "" {
		return domain.Actor{}, ErrUnauthenticated
	}
	return actor, nil
}

func callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, repoCallTimeout)
}

// loadCatalog returns the owner's full product list, serving the cached
// snapshot when fresh.
func (s *Service) loadCatalog(ctx context.Context, ownerID string) ([]domain.Product, error) {
	if products, ok, err := s.catalog.Get(ctx, ownerID); err == nil && ok {
		return products, nil
	} else if err != nil {
		log.Printf("[service] WARN: catalog cache read failed: %v", err)
	}

	cctx, cancel := callCtx(ctx)
	defer cancel()
	products, err := s.repo.ListProducts(cctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.Set(ctx, ownerID, products, catalogCacheTTL); err != nil {
		log.Printf("[service] WARN: catalog cache write failed: %v", err)
	}
	return products, nil
}

func (s *Service) invalidateCatalog(ctx context.Context, ownerID string) {
	if err := s.catalog.Invalidate(ctx, ownerID); err != nil {
		log.Printf("[service] WARN: catalog cache invalidate failed: %v", err)
	}
}

func (s *Service) ListCatalog(ctx context.Context) ([]domain.Product, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return s.loadCatalog(ctx, actor.UserID)
}

// SearchCatalog ranks the owner's products against a free-text query.
// A scanned barcode resolves to its single product before any fuzzy
// ranking runs.
func (s *Service) SearchCatalog(ctx context.Context, query string) ([]domain.Product, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.loadCatalog(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Product, len(products))
	cands := make([]catalog.Candidate, 0, len(products))
	for _, p := range products {
		byID[p.ID] = p
		cands = append(cands, catalog.Candidate{
			ID:      p.ID,
			Barcode: p.Barcode,
			Name:    p.Name,
			InStock: p.Quantity > 0,
		})
	}

	if c, ok := catalog.FindByBarcode(query, cands); ok {
		return []domain.Product{byID[c.ID]}, nil
	}

	ranked := s.matcher.Match(query, cands)
	out := make([]domain.Product, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, byID[c.ID])
	}
	return out, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	req.Barcode = strings.TrimSpace(req.Barcode)
	req.Name = strings.TrimSpace(req.Name)
	if req.Barcode == "" || req.Name == "" || req.Quantity < 0 || req.SaleCents < 1 {
		return domain.Product{}, store.ErrInvalidInput
	}

	ins := domain.ProductInsert{
		Barcode:   req.Barcode,
		Name:      req.Name,
		Quantity:  req.Quantity,
		SaleCents: req.SaleCents,
	}
	if req.CostCents != nil {
		ins.CostCents = *req.CostCents
	}

	created, err := s.createWithLegacyRetry(ctx, actor.UserID, ins)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, actor, "product_create", "product", created.ID,
		fmt.Sprintf("barcode=%s,name=%s,qty=%d", created.Barcode, created.Name, created.Quantity))
	s.invalidateCatalog(ctx, actor.UserID)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	if strings.TrimSpace(productID) == "" {
		return domain.Product{}, store.ErrInvalidInput
	}

	cctx, cancel := callCtx(ctx)
	defer cancel()
	updated, err := s.repo.UpdateProduct(cctx, actor.UserID, productID, req)
	if err != nil {
		return domain.Product{}, err
	}

	if updated.CostCents != nil && updated.SaleCents < *updated.CostCents {
		log.Printf("[service] WARN: product %s sale price below cost", updated.ID)
	}

	s.logAudit(ctx, actor, "product_update", "product", updated.ID,
		fmt.Sprintf("qty=%d,sale=%d", updated.Quantity, updated.SaleCents))
	s.invalidateCatalog(ctx, actor.UserID)
	return *updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, productID string) error {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(productID) == "" {
		return store.ErrInvalidInput
	}

	cctx, cancel := callCtx(ctx)
	defer cancel()
	if err := s.repo.DeleteProduct(cctx, actor.UserID, productID); err != nil {
		return err
	}

	s.logAudit(ctx, actor, "product_delete", "product", productID, "")
	s.invalidateCatalog(ctx, actor.UserID)
	return nil
}

// BatchEntry reconciles typed, pasted and uploaded rows against the
// catalog and applies the plan row by row. Persistence failures do not
// stop sibling rows; each failed write is reported and the rest of the
// batch continues.
func (s *Service) BatchEntry(ctx context.Context, req domain.BatchEntryRequest) (domain.BatchEntryResponse, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.BatchEntryResponse{}, err
	}

	rows := make([]domain.BatchRow, 0, len(req.Rows))
	rows = append(rows, req.Rows...)
	rows = append(rows, reconcile.ParseDelimited(req.Pasted)...)
	rows = append(rows, reconcile.ParseDelimited(req.Upload)...)
	if len(rows) == 0 {
		return domain.BatchEntryResponse{}, store.ErrInvalidInput
	}

	products, err := s.loadCatalog(ctx, actor.UserID)
	if err != nil {
		return domain.BatchEntryResponse{}, err
	}
	existing := make(map[string]domain.Product, len(products))
	for _, p := range products {
		existing[p.Barcode] = p
	}

	plan, rowErrs := reconcile.Reconcile(rows, existing)
	resp := domain.BatchEntryResponse{RowErrors: rowErrs}
	if len(plan.Inserts) == 0 && len(plan.Updates) == 0 {
		if len(rowErrs) > 0 {
			return resp, store.ErrInvalidInput
		}
		return resp, nil
	}

	for _, ins := range plan.Inserts {
		if _, err := s.createWithLegacyRetry(ctx, actor.UserID, ins); err != nil {
			resp.WriteErrors = append(resp.WriteErrors,
				fmt.Sprintf("create %s: %v", ins.Barcode, err))
			continue
		}
		resp.Created++
	}
	for _, upd := range plan.Updates {
		if err := s.applyStockWithLegacyRetry(ctx, actor.UserID, upd); err != nil {
			resp.WriteErrors = append(resp.WriteErrors,
				fmt.Sprintf("update %s: %v", upd.Barcode, err))
			continue
		}
		resp.Updated++
	}

	s.logAudit(ctx, actor, "batch_entry", "product", "",
		fmt.Sprintf("created=%d,updated=%d,errors=%d", resp.Created, resp.Updated, len(resp.RowErrors)+len(resp.WriteErrors)))
	s.invalidateCatalog(ctx, actor.UserID)
	return resp, nil
}

// createWithLegacyRetry creates a product, retrying exactly once through
// the legacy column layout when the store reports a schema mismatch.
func (s *Service) createWithLegacyRetry(ctx context.Context, ownerID string, ins domain.ProductInsert) (*domain.Product, error) {
	cctx, cancel := callCtx(ctx)
	defer cancel()
	created, err := s.repo.CreateProduct(cctx, ownerID, ins)
	if !errors.Is(err, store.ErrSchemaMismatch) {
		return created, err
	}

	legacy, ok := s.repo.(store.LegacyWriter)
	if !ok {
		return nil, err
	}
	log.Printf("[service] WARN: schema mismatch creating %s, retrying with legacy cost column", ins.Barcode)
	rctx, rcancel := callCtx(ctx)
	defer rcancel()
	return legacy.CreateProductLegacy(rctx, ownerID, ins)
}

func (s *Service) applyStockWithLegacyRetry(ctx context.Context, ownerID string, upd domain.StockUpdate) error {
	cctx, cancel := callCtx(ctx)
	defer cancel()
	err := s.repo.ApplyStockUpdate(cctx, ownerID, upd)
	if !errors.Is(err, store.ErrSchemaMismatch) {
		return err
	}

	legacy, ok := s.repo.(store.LegacyWriter)
	if !ok {
		return err
	}
	log.Printf("[service] WARN: schema mismatch updating %s, retrying with legacy cost column", upd.Barcode)
	rctx, rcancel := callCtx(ctx)
	defer rcancel()
	return legacy.ApplyStockUpdateLegacy(rctx, ownerID, upd)
}

// FinalizeSale settles a cart. Preconditions are all-or-nothing; the
// writes that follow are per-line best-effort, so a mid-flight database
// failure leaves the earlier lines recorded and reports the rest.
func (s *Service) FinalizeSale(ctx context.Context, req domain.FinalizeSaleRequest) (domain.FinalizeSaleResponse, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.FinalizeSaleResponse{}, err
	}

	var discountCents int64
	if strings.TrimSpace(req.Discount) != "" {
		discountCents, err = money.ParseCents(req.Discount)
		if err != nil {
			return domain.FinalizeSaleResponse{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
		}
	}

	products, err := s.loadCatalog(ctx, actor.UserID)
	if err != nil {
		return domain.FinalizeSaleResponse{}, err
	}

	saleID := uuid.NewString()
	soldAt := time.Now().UTC()
	plan, lineErrs := settle.Settle(req.Cart, discountCents, products, saleID, soldAt)
	if len(lineErrs) > 0 {
		precondition := store.ErrInvalidInput
		byID := make(map[string]domain.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}
		for _, cl := range req.Cart {
			if p, ok := byID[cl.ProductID]; ok && p.Quantity < cl.Quantity {
				precondition = store.ErrInsufficientStock
				break
			}
		}
		return domain.FinalizeSaleResponse{LineErrors: lineErrs}, precondition
	}

	resp := domain.FinalizeSaleResponse{
		SaleID:        plan.SaleID,
		SoldAt:        plan.At,
		SubtotalCents: plan.SubtotalCents,
		DiscountCents: plan.DiscountCents,
		TotalCents:    plan.TotalCents,
	}
	for i := range plan.Records {
		rec := plan.Records[i]
		rec.OwnerID = actor.UserID
		dec := plan.Decrements[i]

		cctx, cancel := callCtx(ctx)
		err := s.repo.CreateSaleRecord(cctx, rec)
		cancel()
		if err != nil {
			resp.LineErrors = append(resp.LineErrors,
				fmt.Sprintf("%s: record sale: %v", rec.Barcode, err))
			continue
		}

		cctx, cancel = callCtx(ctx)
		err = s.repo.SetQuantity(cctx, actor.UserID, dec.ProductID, dec.NewQuantity)
		cancel()
		if err != nil {
			resp.LineErrors = append(resp.LineErrors,
				fmt.Sprintf("%s: decrement stock: %v", rec.Barcode, err))
			continue
		}
		resp.LinesSettled++
	}

	s.logAudit(ctx, actor, "sale_finalize", "sale", saleID,
		fmt.Sprintf("lines=%d,total=%s", resp.LinesSettled, money.FormatCents(resp.TotalCents)))
	s.invalidateCatalog(ctx, actor.UserID)
	return resp, nil
}

func periodStart(period string, now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch period {
	case domain.PeriodToday:
		return today
	case domain.PeriodWeek:
		return today.AddDate(0, 0, -7)
	case domain.PeriodMonth:
		return today.AddDate(0, -1, 0)
	default:
		return time.Time{}
	}
}

// SalesHistory returns the sale ledger grouped by sale id, newest sale
// first.
func (s *Service) SalesHistory(ctx context.Context, req domain.SalesHistoryRequest) (domain.SalesHistoryResponse, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.SalesHistoryResponse{}, err
	}
	if req.Limit < 1 {
		req.Limit = 50
	}

	from := periodStart(req.Period, time.Now().UTC())
	cctx, cancel := callCtx(ctx)
	defer cancel()
	records, err := s.repo.ListSaleRecords(cctx, actor.UserID, from, time.Time{}, 0)
	if err != nil {
		return domain.SalesHistoryResponse{}, err
	}

	groupsByID := make(map[string]*domain.SaleGroup)
	order := make([]string, 0, 16)
	for _, rec := range records {
		g, ok := groupsByID[rec.SaleID]
		if !ok {
			g = &domain.SaleGroup{SaleID: rec.SaleID, SoldAt: rec.SoldAt}
			groupsByID[rec.SaleID] = g
			order = append(order, rec.SaleID)
		}
		if rec.SoldAt.After(g.SoldAt) {
			g.SoldAt = rec.SoldAt
		}
		g.TotalCents += rec.TotalCents
		g.Items = append(g.Items, rec)
	}

	query := catalog.Normalize(req.Query)
	groups := make([]domain.SaleGroup, 0, len(order))
	for _, id := range order {
		g := groupsByID[id]
		if query != "" && !groupMatches(*g, query) {
			continue
		}
		groups = append(groups, *g)
	}
	slices.SortFunc(groups, func(a, b domain.SaleGroup) int {
		return b.SoldAt.Compare(a.SoldAt)
	})
	if len(groups) > req.Limit {
		groups = groups[:req.Limit]
	}
	return domain.SalesHistoryResponse{Groups: groups}, nil
}

func groupMatches(g domain.SaleGroup, query string) bool {
	for _, item := range g.Items {
		if strings.Contains(catalog.Normalize(item.ProductName), query) ||
			strings.Contains(catalog.Normalize(item.Barcode), query) {
			return true
		}
	}
	return false
}

// SalesSummary feeds the dashboard cards: lifetime revenue, catalog
// size and how many products are running low.
func (s *Service) SalesSummary(ctx context.Context) (domain.SalesSummary, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.SalesSummary{}, err
	}

	cctx, cancel := callCtx(ctx)
	defer cancel()
	records, err := s.repo.ListSaleRecords(cctx, actor.UserID, time.Time{}, time.Time{}, 0)
	if err != nil {
		return domain.SalesSummary{}, err
	}
	products, err := s.loadCatalog(ctx, actor.UserID)
	if err != nil {
		return domain.SalesSummary{}, err
	}

	var summary domain.SalesSummary
	for _, rec := range records {
		summary.TotalSalesCents += rec.TotalCents
	}
	summary.TotalProducts = len(products)
	for _, p := range products {
		if p.Quantity < domain.LowStockThreshold {
			summary.LowStockCount++
		}
	}
	return summary, nil
}

// QuotePrice parses the calculator's locale-formatted inputs and runs
// the pricing engine.
func (s *Service) QuotePrice(ctx context.Context, req domain.PricingRequest) (domain.PricingResponse, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return domain.PricingResponse{}, err
	}

	in := pricing.Inputs{Mode: req.Mode}
	var err error
	if in.Cost, err = money.ParseDecimal(req.Cost); err != nil {
		return domain.PricingResponse{}, fmt.Errorf("%w: cost: %v", store.ErrInvalidInput, err)
	}
	if in.Freight, err = parseOptionalDecimal(req.Freight); err != nil {
		return domain.PricingResponse{}, fmt.Errorf("%w: freight: %v", store.ErrInvalidInput, err)
	}
	if in.Packaging, err = parseOptionalDecimal(req.Packaging); err != nil {
		return domain.PricingResponse{}, fmt.Errorf("%w: packaging: %v", store.ErrInvalidInput, err)
	}
	if in.OtherCosts, err = parseOptionalDecimal(req.OtherCosts); err != nil {
		return domain.PricingResponse{}, fmt.Errorf("%w: other costs: %v", store.ErrInvalidInput, err)
	}

	if req.SimpleMode {
		if in.TaxPercent, err = parseOptionalDecimal(req.TaxPercent); err != nil {
			return domain.PricingResponse{}, fmt.Errorf("%w: tax: %v", store.ErrInvalidInput, err)
		}
	} else {
		for i, raw := range req.ItemizedTaxes {
			rate, err := parseOptionalDecimal(raw)
			if err != nil {
				return domain.PricingResponse{}, fmt.Errorf("%w: tax %d: %v", store.ErrInvalidInput, i+1, err)
			}
			in.TaxPercent += rate
		}
	}

	switch req.Mode {
	case domain.PricingModeMargin:
		if in.TargetMargin, err = money.ParsePercent(req.TargetMargin); err != nil {
			return domain.PricingResponse{}, fmt.Errorf("%w: margin: %v", store.ErrInvalidInput, err)
		}
	case domain.PricingModeReverse:
		if in.EnteredSale, err = money.ParseDecimal(req.EnteredSale); err != nil {
			return domain.PricingResponse{}, fmt.Errorf("%w: sale price: %v", store.ErrInvalidInput, err)
		}
	}

	res, err := pricing.Compute(in)
	if err != nil {
		return domain.PricingResponse{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	return domain.PricingResponse{
		BaseCostCents:      money.CentsFromFloat(res.BaseCost),
		CostWithTaxesCents: money.CentsFromFloat(res.CostWithTaxes),
		SaleCents:          money.CentsFromFloat(res.Sale),
		MarginPercent:      res.MarginPercent,
	}, nil
}

func parseOptionalDecimal(raw string) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return money.ParseDecimal(raw)
}

// ApplySalePrice writes a calculator result onto a product. This is the
// only path from the calculator into the catalog; quoting alone never
// mutates anything.
func (s *Service) ApplySalePrice(ctx context.Context, req domain.ApplySalePriceRequest) (domain.Product, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	req.Barcode = strings.TrimSpace(req.Barcode)
	if req.Barcode == "" || req.SaleCents < 1 {
		return domain.Product{}, store.ErrInvalidInput
	}

	cctx, cancel := callCtx(ctx)
	defer cancel()
	p, err := s.repo.GetProductByBarcode(cctx, actor.UserID, req.Barcode)
	if err != nil {
		return domain.Product{}, err
	}

	sale := req.SaleCents
	uctx, ucancel := callCtx(ctx)
	defer ucancel()
	updated, err := s.repo.UpdateProduct(uctx, actor.UserID, p.ID, domain.ProductUpdateRequest{SaleCents: &sale})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, actor, "price_apply", "product", updated.ID,
		fmt.Sprintf("sale=%s", money.FormatCents(updated.SaleCents)))
	s.invalidateCatalog(ctx, actor.UserID)
	return *updated, nil
}

func (s *Service) GetStoreSettings(ctx context.Context) (domain.StoreSettings, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.StoreSettings{}, err
	}

	cctx, cancel := callCtx(ctx)
	defer cancel()
	settings, err := s.repo.GetStoreSettings(cctx, actor.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.StoreSettings{OwnerID: actor.UserID, Name: "Minha Loja"}, nil
	}
	if err != nil {
		return domain.StoreSettings{}, err
	}
	return *settings, nil
}

func (s *Service) SaveStoreSettings(ctx context.Context, req domain.StoreSettingsRequest) (domain.StoreSettings, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.StoreSettings{}, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return domain.StoreSettings{}, store.ErrInvalidInput
	}

	settings := domain.StoreSettings{
		OwnerID:   actor.UserID,
		Name:      strings.TrimSpace(req.Name),
		LogoURL:   strings.TrimSpace(req.LogoURL),
		UpdatedAt: time.Now().UTC(),
	}
	cctx, cancel := callCtx(ctx)
	defer cancel()
	if err := s.repo.UpsertStoreSettings(cctx, settings); err != nil {
		return domain.StoreSettings{}, err
	}

	s.logAudit(ctx, actor, "settings_save", "store_settings", actor.UserID, "name="+settings.Name)
	return settings, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	cctx, cancel := callCtx(ctx)
	defer cancel()
	return s.repo.ListAuditLogs(cctx, actor.UserID, limit)
}

func (s *Service) logAudit(ctx context.Context, actor domain.Actor, action, entityType, entityID, detail string) {
	cctx, cancel := callCtx(ctx)
	defer cancel()
	err := s.repo.CreateAuditLog(cctx, domain.AuditLog{
		OwnerID:    actor.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s: %v", action, err)
	}
}
