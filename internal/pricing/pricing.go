// Package pricing is the sale-price calculator: acquisition costs plus
// taxes in, either a suggested price for a target margin or the real
// margin of a price the user already has in mind.
package pricing

import (
	"errors"
	"fmt"
)

// Mode selects the direction of the calculation.
const (
	ModeMargin  = "margin"
	ModeReverse = "reverse"
)

var (
	// ErrMarginTooHigh means the target margin is 100% or more, where
	// sale = cost / (1 - m/100) has no finite answer.
	ErrMarginTooHigh = errors.New("pricing: target margin must be below 100%")
	// ErrSaleNotPositive means reverse mode got a sale price of zero or
	// less, for which no margin is defined.
	ErrSaleNotPositive = errors.New("pricing: sale price must be positive")
)

// Inputs are the calculator's numeric inputs in currency units and
// percentage points. TaxPercent is the total tax load, whether the user
// typed one figure or itemized ICMS, IPI, PIS, COFINS and ISS; the
// caller sums itemized entries before calling.
type Inputs struct {
	Cost       float64
	Freight    float64
	Packaging  float64
	OtherCosts float64
	TaxPercent float64

	Mode         string
	TargetMargin float64
	EnteredSale  float64
}

// Result carries every intermediate the calculator screen displays.
type Result struct {
	BaseCost      float64
	CostWithTaxes float64
	Sale          float64
	MarginPercent float64
}

// Compute runs the calculator. Margin here is margin on the sale price,
// not markup on cost: a 20% margin means a fifth of what the customer
// pays is gross profit.
func Compute(in Inputs) (Result, error) {
	if in.Cost < 0 || in.Freight < 0 || in.Packaging < 0 || in.OtherCosts < 0 {
		return Result{}, errors.New("pricing: cost components cannot be negative")
	}
	if in.TaxPercent < 0 {
		return Result{}, errors.New("pricing: tax percentage cannot be negative")
	}

	base := in.Cost + in.Freight + in.Packaging + in.OtherCosts
	cwt := base * (1 + in.TaxPercent/100)

	res := Result{BaseCost: base, CostWithTaxes: cwt}
	switch in.Mode {
	case ModeMargin:
		if in.TargetMargin >= 100 {
			return Result{}, ErrMarginTooHigh
		}
		if in.TargetMargin < 0 {
			return Result{}, errors.New("pricing: target margin cannot be negative")
		}
		res.Sale = cwt / (1 - in.TargetMargin/100)
		res.MarginPercent = in.TargetMargin
	case ModeReverse:
		if in.EnteredSale <= 0 {
			return Result{}, ErrSaleNotPositive
		}
		res.Sale = in.EnteredSale
		res.MarginPercent = (in.EnteredSale - cwt) / in.EnteredSale * 100
	default:
		return Result{}, fmt.Errorf("pricing: unknown mode %q", in.Mode)
	}
	return res, nil
}

// MarkupSale is the quick-entry shortcut: sale price from cost and a
// markup on cost, no tax chain involved.
func MarkupSale(cost, markupPercent float64) (float64, error) {
	if cost < 0 || markupPercent < 0 {
		return 0, errors.New("pricing: cost and markup cannot be negative")
	}
	return cost * (1 + markupPercent/100), nil
}

// Markup reports the markup on cost implied by a sale price.
func Markup(cost, sale float64) (float64, error) {
	if cost <= 0 {
		return 0, errors.New("pricing: cost must be positive")
	}
	return (sale - cost) / cost * 100, nil
}
