package store

import (
	"context"
	"errors"
	"time"

	"estoquepro/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicate         = errors.New("already exists")
	// ErrSchemaMismatch means the products table does not carry the
	// expected cost column. The service retries such writes once against
	// the legacy column layout.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

type Repository interface {
	ListProducts(ctx context.Context, ownerID string) ([]domain.Product, error)
	GetProductByBarcode(ctx context.Context, ownerID string, barcode string) (*domain.Product, error)
	CreateProduct(ctx context.Context, ownerID string, ins domain.ProductInsert) (*domain.Product, error)
	UpdateProduct(ctx context.Context, ownerID string, productID string, upd domain.ProductUpdateRequest) (*domain.Product, error)
	ApplyStockUpdate(ctx context.Context, ownerID string, upd domain.StockUpdate) error
	SetQuantity(ctx context.Context, ownerID string, productID string, quantity int) error
	DeleteProduct(ctx context.Context, ownerID string, productID string) error

	CreateSaleRecord(ctx context.Context, rec domain.SaleRecord) error
	ListSaleRecords(ctx context.Context, ownerID string, from time.Time, to time.Time, limit int) ([]domain.SaleRecord, error)

	GetStoreSettings(ctx context.Context, ownerID string) (*domain.StoreSettings, error)
	UpsertStoreSettings(ctx context.Context, settings domain.StoreSettings) error

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, ownerID string, limit int) ([]domain.AuditLog, error)
}

// LegacyWriter is implemented by repositories that can also write cost
// data through the legacy column layout kept by older installs.
type LegacyWriter interface {
	ApplyStockUpdateLegacy(ctx context.Context, ownerID string, upd domain.StockUpdate) error
	CreateProductLegacy(ctx context.Context, ownerID string, ins domain.ProductInsert) (*domain.Product, error)
}
