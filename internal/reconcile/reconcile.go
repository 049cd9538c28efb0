// Package reconcile turns a pile of proposed stock-entry rows into an
// exact write plan against the current catalog. Rows arrive as raw user
// input (typed, pasted or uploaded), so everything here is defensive:
// bad rows are reported by position and never turn into silent zeroes.
package reconcile

import (
	"fmt"
	"strings"

	"estoquepro/backend/internal/domain"
	"estoquepro/backend/internal/money"
)

// Plan is the outcome of reconciliation: products to register and
// existing products whose stock and prices change. Applying the plan in
// any order yields the same catalog.
type Plan struct {
	Inserts []domain.ProductInsert
	Updates []domain.StockUpdate
}

type normalizedRow struct {
	position  int
	barcode   string
	name      string
	quantity  int
	costCents *int64
	saleCents *int64
}

// Reconcile validates rows, consolidates duplicates that share a
// barcode, and splits the result into inserts and updates using the
// existing catalog keyed by barcode. Row errors are reported with the
// 1-based position of the offending input row; a row with an error
// contributes nothing to the plan.
func Reconcile(rows []domain.BatchRow, existing map[string]domain.Product) (Plan, []string) {
	var errs []string

	// Validation pass. Each surviving row has a barcode, a positive
	// whole quantity and well-formed prices where given.
	valid := make([]normalizedRow, 0, len(rows))
	for i, r := range rows {
		pos := i + 1
		barcode := strings.TrimSpace(r.Barcode)
		if barcode == "" {
			errs = append(errs, fmt.Sprintf("row %d: missing barcode", pos))
			continue
		}
		qty, err := money.ParseQuantity(r.Quantity)
		if err != nil {
			errs = append(errs, fmt.Sprintf("row %d: bad quantity: %v", pos, err))
			continue
		}
		cost, err := money.ParseOptionalCents(r.Cost)
		if err != nil {
			errs = append(errs, fmt.Sprintf("row %d: bad cost: %v", pos, err))
			continue
		}
		sale, err := money.ParseOptionalCents(r.Sale)
		if err != nil {
			errs = append(errs, fmt.Sprintf("row %d: bad sale price: %v", pos, err))
			continue
		}
		if sale != nil && *sale <= 0 {
			errs = append(errs, fmt.Sprintf("row %d: sale price must be positive", pos))
			continue
		}
		if cost != nil && sale != nil && *sale < *cost {
			errs = append(errs, fmt.Sprintf("row %d: sale price below cost", pos))
			continue
		}
		valid = append(valid, normalizedRow{
			position:  pos,
			barcode:   barcode,
			name:      strings.TrimSpace(r.Name),
			quantity:  qty,
			costCents: cost,
			saleCents: sale,
		})
	}

	// Consolidation pass. Rows sharing a barcode collapse into one:
	// quantities add up, and the last row to state a name or a price
	// wins. This keeps a re-pasted sheet from double-counting.
	merged := make(map[string]*normalizedRow)
	order := make([]string, 0, len(valid))
	for _, r := range valid {
		if prev, ok := merged[r.barcode]; ok {
			prev.quantity += r.quantity
			if r.name != "" {
				prev.name = r.name
			}
			if r.costCents != nil {
				prev.costCents = r.costCents
			}
			if r.saleCents != nil {
				prev.saleCents = r.saleCents
			}
			continue
		}
		rc := r
		merged[r.barcode] = &rc
		order = append(order, r.barcode)
	}

	// Split pass.
	var plan Plan
	for _, code := range order {
		r := merged[code]
		if p, ok := existing[code]; ok {
			plan.Updates = append(plan.Updates, domain.StockUpdate{
				ProductID:   p.ID,
				Barcode:     code,
				NewQuantity: p.Quantity + r.quantity,
				CostCents:   r.costCents,
				SaleCents:   r.saleCents,
			})
			continue
		}
		if r.name == "" {
			errs = append(errs, fmt.Sprintf("row %d: new product %s needs a name", r.position, code))
			continue
		}
		if r.saleCents == nil {
			errs = append(errs, fmt.Sprintf("row %d: new product %s needs a sale price", r.position, code))
			continue
		}
		ins := domain.ProductInsert{
			Barcode:   code,
			Name:      r.name,
			Quantity:  r.quantity,
			SaleCents: *r.saleCents,
		}
		if r.costCents != nil {
			ins.CostCents = *r.costCents
		}
		plan.Inserts = append(plan.Inserts, ins)
	}
	return plan, errs
}
