// Package settle computes the write intents for finalizing a sale: one
// sale record and one stock decrement per cart line, with a flat
// discount spread proportionally across lines.
package settle

import (
	"fmt"
	"time"

	"estoquepro/backend/internal/domain"
)

// Plan is the full write plan for one sale. Every record shares the
// sale id and timestamp, and the record totals add up to TotalCents.
type Plan struct {
	SaleID        string
	At            time.Time
	SubtotalCents int64
	DiscountCents int64
	TotalCents    int64
	Records       []domain.SaleRecord
	Decrements    []domain.StockDecrement
}

// Settle validates the cart against the catalog and allocates the
// discount. Preconditions are all-or-nothing: any invalid line voids
// the whole plan and every problem is reported at once, so the cashier
// fixes the cart in one pass instead of replaying it error by error.
func Settle(cart []domain.CartLine, discountCents int64, catalog []domain.Product, saleID string, at time.Time) (Plan, []string) {
	var errs []string
	if len(cart) == 0 {
		return Plan{}, []string{"cart is empty"}
	}
	if discountCents < 0 {
		errs = append(errs, "discount cannot be negative")
	}

	byID := make(map[string]domain.Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}

	type line struct {
		product domain.Product
		cart    domain.CartLine
		gross   int64
		net     int64
	}
	lines := make([]line, 0, len(cart))
	var subtotal int64
	for i, cl := range cart {
		pos := i + 1
		if cl.Quantity < 1 {
			errs = append(errs, fmt.Sprintf("line %d: quantity must be at least 1", pos))
			continue
		}
		if cl.UnitCents <= 0 {
			errs = append(errs, fmt.Sprintf("line %d: unit price must be positive", pos))
			continue
		}
		p, ok := byID[cl.ProductID]
		if !ok {
			errs = append(errs, fmt.Sprintf("line %d: unknown product %s", pos, cl.ProductID))
			continue
		}
		if p.Quantity < cl.Quantity {
			errs = append(errs, fmt.Sprintf("line %d: %s has %d in stock, cart wants %d",
				pos, p.Name, p.Quantity, cl.Quantity))
			continue
		}
		gross := cl.UnitCents * int64(cl.Quantity)
		subtotal += gross
		lines = append(lines, line{product: p, cart: cl, gross: gross})
	}
	if len(errs) > 0 || len(lines) != len(cart) {
		return Plan{}, errs
	}

	// A discount larger than the subtotal clamps to it; neither the sale
	// nor any line goes negative.
	discount := discountCents
	if discount > subtotal {
		discount = subtotal
	}

	// Proportional allocation in integer cents. Each line takes
	// round(discount * gross / subtotal) and the last line absorbs the
	// rounding remainder so the nets sum exactly to the total.
	var allocated int64
	for i := range lines {
		var share int64
		if i == len(lines)-1 {
			share = discount - allocated
		} else if subtotal > 0 {
			share = (discount*lines[i].gross + subtotal/2) / subtotal
		}
		allocated += share
		lines[i].net = lines[i].gross - share
		if lines[i].net < 0 {
			lines[i].net = 0
		}
	}

	plan := Plan{
		SaleID:        saleID,
		At:            at,
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TotalCents:    subtotal - discount,
		Records:       make([]domain.SaleRecord, 0, len(lines)),
		Decrements:    make([]domain.StockDecrement, 0, len(lines)),
	}
	for _, l := range lines {
		plan.Records = append(plan.Records, domain.SaleRecord{
			SaleID:      saleID,
			OwnerID:     l.product.OwnerID,
			ProductID:   l.product.ID,
			Barcode:     l.product.Barcode,
			ProductName: l.product.Name,
			Quantity:    l.cart.Quantity,
			UnitCents:   l.cart.UnitCents,
			TotalCents:  l.net,
			SoldAt:      at,
		})
		plan.Decrements = append(plan.Decrements, domain.StockDecrement{
			ProductID:   l.product.ID,
			Barcode:     l.product.Barcode,
			NewQuantity: l.product.Quantity - l.cart.Quantity,
		})
	}
	return plan, nil
}
