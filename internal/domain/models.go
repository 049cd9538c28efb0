package domain

import "time"

type Product struct {
	ID         string `json:"id"`
	OwnerID    string `json:"owner_id"`
	Barcode    string `json:"barcode"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	CostCents  *int64 `json:"cost_cents,omitempty"`
	SaleCents  int64  `json:"sale_cents"`
	CategoryID string `json:"category_id,omitempty"`
}

type ProductCreateRequest struct {
	Barcode    string `json:"barcode"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	CostCents  *int64 `json:"cost_cents,omitempty"`
	SaleCents  int64  `json:"sale_cents"`
	CategoryID string `json:"category_id,omitempty"`
}

type ProductUpdateRequest struct {
	Name       *string `json:"name,omitempty"`
	Quantity   *int    `json:"quantity,omitempty"`
	CostCents  *int64  `json:"cost_cents,omitempty"`
	SaleCents  *int64  `json:"sale_cents,omitempty"`
	CategoryID *string `json:"category_id,omitempty"`
}

// BatchRow is one proposed stock-entry line exactly as the user typed,
// pasted or imported it. Numeric fields stay raw strings until the
// reconciler normalizes them; "" means "not supplied", which is distinct
// from zero.
type BatchRow struct {
	Barcode  string `json:"barcode"`
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Cost     string `json:"cost"`
	Sale     string `json:"sale"`
}

// ProductInsert is a reconciliation intent to register a new product.
type ProductInsert struct {
	Barcode   string `json:"barcode"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	CostCents int64  `json:"cost_cents"`
	SaleCents int64  `json:"sale_cents"`
}

// StockUpdate is a reconciliation intent against an existing product.
// NewQuantity is the absolute on-hand value after adding the entered
// quantity; price fields are only overwritten when non-nil.
type StockUpdate struct {
	ProductID   string `json:"product_id"`
	Barcode     string `json:"barcode"`
	NewQuantity int    `json:"new_quantity"`
	CostCents   *int64 `json:"cost_cents,omitempty"`
	SaleCents   *int64 `json:"sale_cents,omitempty"`
}

type BatchEntryRequest struct {
	Rows []BatchRow `json:"rows,omitempty"`
	// Pasted holds raw delimited text from the clipboard; Upload holds the
	// contents of an uploaded delimited file. Either is parsed into rows
	// and merged with Rows before reconciliation.
	Pasted string `json:"pasted,omitempty"`
	Upload string `json:"upload,omitempty"`
}

type BatchEntryResponse struct {
	Created     int      `json:"created"`
	Updated     int      `json:"updated"`
	RowErrors   []string `json:"row_errors,omitempty"`
	WriteErrors []string `json:"write_errors,omitempty"`
}

type CartLine struct {
	ProductID string `json:"product_id"`
	Barcode   string `json:"barcode"`
	Name      string `json:"name"`
	UnitCents int64  `json:"unit_cents"`
	Quantity  int    `json:"quantity"`
}

type SaleRecord struct {
	ID          string    `json:"id"`
	SaleID      string    `json:"sale_id"`
	OwnerID     string    `json:"owner_id"`
	ProductID   string    `json:"product_id"`
	Barcode     string    `json:"barcode"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitCents   int64     `json:"unit_cents"`
	TotalCents  int64     `json:"total_cents"`
	SoldAt      time.Time `json:"sold_at"`
}

// StockDecrement is a settlement intent to lower a product's on-hand
// quantity to the given absolute value.
type StockDecrement struct {
	ProductID   string `json:"product_id"`
	Barcode     string `json:"barcode"`
	NewQuantity int    `json:"new_quantity"`
}

type FinalizeSaleRequest struct {
	Cart []CartLine `json:"cart"`
	// Discount is a flat currency amount in the user's locale format
	// ("5", "5.00" and "5,00" are all accepted). Empty means no discount.
	Discount string `json:"discount,omitempty"`
}

type FinalizeSaleResponse struct {
	SaleID        string    `json:"sale_id"`
	SoldAt        time.Time `json:"sold_at"`
	SubtotalCents int64     `json:"subtotal_cents"`
	DiscountCents int64     `json:"discount_cents"`
	TotalCents    int64     `json:"total_cents"`
	LinesSettled  int       `json:"lines_settled"`
	LineErrors    []string  `json:"line_errors,omitempty"`
}

type SaleGroup struct {
	SaleID     string       `json:"sale_id"`
	SoldAt     time.Time    `json:"sold_at"`
	TotalCents int64        `json:"total_cents"`
	Items      []SaleRecord `json:"items"`
}

type SalesHistoryRequest struct {
	// Period is one of the Period constants; empty means all.
	Period string `json:"period,omitempty"`
	// Query filters groups to those containing a product whose name or
	// barcode matches.
	Query string `json:"query,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type SalesHistoryResponse struct {
	Groups []SaleGroup `json:"groups"`
}

type SalesSummary struct {
	TotalSalesCents int64 `json:"total_sales_cents"`
	TotalProducts   int   `json:"total_products"`
	LowStockCount   int   `json:"low_stock_count"`
}

type PricingRequest struct {
	// All monetary and percentage inputs are locale-formatted strings; the
	// service normalizes them. Empty fields count as zero except where the
	// calculator requires a value (target margin, entered sale price).
	Cost       string `json:"cost"`
	Freight    string `json:"freight,omitempty"`
	Packaging  string `json:"packaging,omitempty"`
	OtherCosts string `json:"other_costs,omitempty"`

	SimpleMode    bool     `json:"simple_mode"`
	TaxPercent    string   `json:"tax_percent,omitempty"`
	ItemizedTaxes []string `json:"itemized_taxes,omitempty"`

	// Mode is "margin" or "reverse".
	Mode         string `json:"mode"`
	TargetMargin string `json:"target_margin,omitempty"`
	EnteredSale  string `json:"entered_sale,omitempty"`
}

type PricingResponse struct {
	BaseCostCents      int64   `json:"base_cost_cents"`
	CostWithTaxesCents int64   `json:"cost_with_taxes_cents"`
	SaleCents          int64   `json:"sale_cents"`
	MarginPercent      float64 `json:"margin_percent"`
}

type ApplySalePriceRequest struct {
	Barcode   string `json:"barcode"`
	SaleCents int64  `json:"sale_cents"`
}

type StoreSettings struct {
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	LogoURL   string    `json:"logo_url,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StoreSettingsRequest struct {
	Name    string `json:"name"`
	LogoURL string `json:"logo_url,omitempty"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	UserID string
	Email  string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	ID        string
	Email     string
	Password  string
	CreatedAt time.Time
}

type AuditLog struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	PeriodAll   = "all"
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

const (
	PricingModeMargin  = "margin"
	PricingModeReverse = "reverse"
)

// LowStockThreshold mirrors the dashboard's low-stock card: products with
// fewer units on hand than this are counted as low stock.
const LowStockThreshold = 10
