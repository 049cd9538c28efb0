package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"estoquepro/backend/internal/domain"
)

func TestStockUpdateRoundTrip(t *testing.T) {
	databaseURL := os.Getenv("ESTOQUEPRO_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set ESTOQUEPRO_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	ownerID := fmt.Sprintf("owner-it-%d", stamp)
	barcode := fmt.Sprintf("789%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE owner_id = $1`, ownerID)
	})

	created, err := s.CreateProduct(ctx, ownerID, domain.ProductInsert{
		Barcode:   barcode,
		Name:      "Produto IT",
		Quantity:  5,
		CostCents: 800,
		SaleCents: 1500,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	newCost := int64(900)
	err = s.ApplyStockUpdate(ctx, ownerID, domain.StockUpdate{
		ProductID:   created.ID,
		Barcode:     barcode,
		NewQuantity: 12,
		CostCents:   &newCost,
	})
	if err != nil {
		t.Fatalf("apply stock update: %v", err)
	}

	got, err := s.GetProductByBarcode(ctx, ownerID, barcode)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Quantity != 12 {
		t.Fatalf("expected quantity 12, got %d", got.Quantity)
	}
	if got.CostCents == nil || *got.CostCents != 900 {
		t.Fatalf("expected cost 900, got %v", got.CostCents)
	}
	if got.SaleCents != 1500 {
		t.Fatalf("sale price should be untouched, got %d", got.SaleCents)
	}
}
