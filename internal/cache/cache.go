package cache

import (
	"context"
	"time"

	"estoquepro/backend/internal/domain"
)

// CatalogCache holds a per-owner snapshot of the product catalog so the
// matcher does not hit the database on every keystroke of the search
// field. Writes to the catalog invalidate the owner's snapshot.
type CatalogCache interface {
	Get(ctx context.Context, ownerID string) ([]domain.Product, bool, error)
	Set(ctx context.Context, ownerID string, products []domain.Product, ttl time.Duration) error
	Invalidate(ctx context.Context, ownerID string) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) Get(_ context.Context, _ string) ([]domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) Set(_ context.Context, _ string, _ []domain.Product, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
