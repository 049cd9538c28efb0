package pricing

import (
	"errors"
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMarginModeSuggestsSale(t *testing.T) {
	res, err := Compute(Inputs{Cost: 100, TaxPercent: 10, Mode: ModeMargin, TargetMargin: 20})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !approx(res.BaseCost, 100) || !approx(res.CostWithTaxes, 110) {
		t.Fatalf("unexpected cost chain: %+v", res)
	}
	if !approx(res.Sale, 137.5) {
		t.Fatalf("expected sale 137.50, got %v", res.Sale)
	}
}

func TestMarginModeSumsCostComponents(t *testing.T) {
	res, err := Compute(Inputs{Cost: 80, Freight: 10, Packaging: 5, OtherCosts: 5, Mode: ModeMargin, TargetMargin: 0})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !approx(res.BaseCost, 100) || !approx(res.Sale, 100) {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestMarginAtOrAbove100IsAnError(t *testing.T) {
	for _, m := range []float64{100, 150} {
		_, err := Compute(Inputs{Cost: 10, Mode: ModeMargin, TargetMargin: m})
		if !errors.Is(err, ErrMarginTooHigh) {
			t.Fatalf("margin %v: expected ErrMarginTooHigh, got %v", m, err)
		}
	}
}

func TestReverseModeRecoversMargin(t *testing.T) {
	fwd, err := Compute(Inputs{Cost: 100, TaxPercent: 10, Mode: ModeMargin, TargetMargin: 20})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	rev, err := Compute(Inputs{Cost: 100, TaxPercent: 10, Mode: ModeReverse, EnteredSale: fwd.Sale})
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if !approx(rev.MarginPercent, 20) {
		t.Fatalf("expected margin 20%%, got %v", rev.MarginPercent)
	}
}

func TestReverseModeRejectsNonPositiveSale(t *testing.T) {
	for _, sale := range []float64{0, -10} {
		_, err := Compute(Inputs{Cost: 10, Mode: ModeReverse, EnteredSale: sale})
		if !errors.Is(err, ErrSaleNotPositive) {
			t.Fatalf("sale %v: expected ErrSaleNotPositive, got %v", sale, err)
		}
	}
}

func TestReverseModeNegativeMarginIsReported(t *testing.T) {
	res, err := Compute(Inputs{Cost: 100, Mode: ModeReverse, EnteredSale: 80})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.MarginPercent >= 0 {
		t.Fatalf("selling below cost should show a negative margin, got %v", res.MarginPercent)
	}
}

func TestMarkupHelpers(t *testing.T) {
	sale, err := MarkupSale(100, 30)
	if err != nil || !approx(sale, 130) {
		t.Fatalf("expected 130, got %v (err %v)", sale, err)
	}
	mk, err := Markup(100, 130)
	if err != nil || !approx(mk, 30) {
		t.Fatalf("expected markup 30%%, got %v (err %v)", mk, err)
	}
	if _, err := Markup(0, 10); err == nil {
		t.Fatal("expected error for zero cost")
	}
}

func TestUnknownModeAndNegativeInputs(t *testing.T) {
	if _, err := Compute(Inputs{Cost: 10, Mode: "banana"}); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if _, err := Compute(Inputs{Cost: -1, Mode: ModeMargin}); err == nil {
		t.Fatal("expected error for negative cost")
	}
	if _, err := Compute(Inputs{Cost: 1, TaxPercent: -2, Mode: ModeMargin}); err == nil {
		t.Fatal("expected error for negative tax")
	}
}
