package money

import "testing"

func TestParseDecimalCommaAndDotAgree(t *testing.T) {
	comma, err := ParseDecimal("12,50")
	if err != nil {
		t.Fatalf("parse comma form: %v", err)
	}
	dot, err := ParseDecimal("12.50")
	if err != nil {
		t.Fatalf("parse dot form: %v", err)
	}
	if comma != dot {
		t.Fatalf("comma and dot forms disagree: %v vs %v", comma, dot)
	}
	if comma != 12.5 {
		t.Fatalf("expected 12.5, got %v", comma)
	}
}

func TestParseDecimalRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "abc", "12,5,0", "NaN", "Inf"} {
		if v, err := ParseDecimal(raw); err == nil {
			t.Fatalf("expected error for %q, got %v", raw, v)
		}
	}
}

func TestParseCents(t *testing.T) {
	c, err := ParseCents("3,999")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c != 400 {
		t.Fatalf("expected rounding to 400 cents, got %d", c)
	}
	if _, err := ParseCents("-1"); err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestParseOptionalCents(t *testing.T) {
	p, err := ParseOptionalCents("  ")
	if err != nil {
		t.Fatalf("blank should be absent, not an error: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil for blank input, got %d", *p)
	}
	p, err = ParseOptionalCents("0,99")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p == nil || *p != 99 {
		t.Fatalf("expected 99 cents, got %v", p)
	}
}

func TestParseQuantity(t *testing.T) {
	q, err := ParseQuantity("7,0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q != 7 {
		t.Fatalf("expected 7, got %d", q)
	}
	for _, raw := range []string{"0", "-3", "", "x", "2,5", "1.01"} {
		if _, err := ParseQuantity(raw); err == nil {
			t.Fatalf("expected error for quantity %q", raw)
		}
	}
}

func TestFormatCents(t *testing.T) {
	if got := FormatCents(1250); got != "12.50" {
		t.Fatalf("expected 12.50, got %s", got)
	}
	if got := FormatCents(-5); got != "-0.05" {
		t.Fatalf("expected -0.05, got %s", got)
	}
}
