package catalog

import "testing"

func candidates() []Candidate {
	return []Candidate{
		{ID: "1", Barcode: "7891000100103", Name: "Café Pilão 500g", InStock: true},
		{ID: "2", Barcode: "7891000100110", Name: "Cabo USB-C 1m", InStock: true},
		{ID: "3", Barcode: "7891000100127", Name: "ABC Fone de Ouvido", InStock: true},
		{ID: "4", Barcode: "ab99", Name: "Pilha AA", InStock: false},
		{ID: "5", Barcode: "7891000100141", Name: "Filtro de Café", InStock: true},
	}
}

func TestNormalizeStripsAccents(t *testing.T) {
	if got := Normalize("  CAFÉ Pilão "); got != "cafe pilao" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

func TestShortQueryUsesPrefixTiersOnly(t *testing.T) {
	m := NewMatcher()
	got := m.Match("ab", candidates())
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(got), got)
	}
	// "ABC Fone" is a name prefix match, "ab99" only a code prefix.
	if got[0].ID != "3" || got[1].ID != "4" {
		t.Fatalf("unexpected order: %s then %s", got[0].ID, got[1].ID)
	}
	for _, c := range got {
		if c.Name == "Cabo USB-C 1m" {
			t.Fatal("substring match must not fire for a two-rune query")
		}
	}
}

func TestLongQuerySubstringTiers(t *testing.T) {
	m := NewMatcher()
	got := m.Match("cafe", candidates())
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	if got[0].ID != "1" {
		t.Fatalf("name-prefix match should outrank word match, got %s first", got[0].ID)
	}
	if got[1].ID != "5" {
		t.Fatalf("expected Filtro de Café second, got %s", got[1].ID)
	}
}

func TestBarcodeExactOutranksEverything(t *testing.T) {
	m := NewMatcher()
	got := m.Match("7891000100110", candidates())
	if len(got) == 0 || got[0].ID != "2" {
		t.Fatalf("exact barcode should rank first, got %+v", got)
	}
}

func TestInStockBreaksTies(t *testing.T) {
	m := NewMatcher()
	cands := []Candidate{
		{ID: "a", Barcode: "1", Name: "Pilha", InStock: false},
		{ID: "b", Barcode: "2", Name: "Pilha", InStock: true},
	}
	got := m.Match("pil", cands)
	if len(got) != 2 || got[0].ID != "b" {
		t.Fatalf("in-stock candidate should come first, got %+v", got)
	}
}

func TestMatchCapsSuggestionList(t *testing.T) {
	m := NewMatcher()
	cands := make([]Candidate, 0, 20)
	for i := 0; i < 20; i++ {
		cands = append(cands, Candidate{
			ID:      string(rune('a' + i)),
			Barcode: string(rune('0' + i%10)),
			Name:    "Pilha AA",
			InStock: true,
		})
	}
	if got := m.Match("pilha", cands); len(got) != maxResults {
		t.Fatalf("expected %d suggestions, got %d", maxResults, len(got))
	}
}

func TestWordBoundaryIncludesPunctuation(t *testing.T) {
	m := NewMatcher()
	cands := []Candidate{
		{ID: "1", Barcode: "10", Name: "Coca-Cola 2L", InStock: true},
		{ID: "2", Barcode: "20", Name: "Chocolate", InStock: true},
	}
	got := m.Match("cola", cands)
	if len(got) != 2 || got[0].ID != "1" {
		t.Fatalf("hyphenated word start should outrank a substring hit, got %+v", got)
	}
}

func TestEmptyQueryMatchesNothing(t *testing.T) {
	m := NewMatcher()
	if got := m.Match("   ", candidates()); got != nil {
		t.Fatalf("expected no matches, got %+v", got)
	}
}

func TestFindByBarcode(t *testing.T) {
	c, ok := FindByBarcode("AB99", candidates())
	if !ok || c.ID != "4" {
		t.Fatalf("expected candidate 4, got %+v ok=%v", c, ok)
	}
	if _, ok := FindByBarcode("nope", candidates()); ok {
		t.Fatal("expected no match")
	}
}
