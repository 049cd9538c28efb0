// Package catalog ranks products against free-text queries for the sale
// screen. Matching is accent-insensitive and case-insensitive so that
// "cafe" finds "Café" and vice versa.
package catalog

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Ranking tiers, best first. Short queries (two runes or fewer) only use
// the prefix tiers; substring tiers would flood a barcode scan field
// with noise.
const (
	tierCodeExact = iota
	tierNamePrefix
	tierNameWord
	tierCodePrefix
	tierNameContains
	tierCodeContains
	tierNoMatch
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// maxResults caps the suggestion list; the sale screen shows a short
// dropdown, not a report.
const maxResults = 8

// Normalize lowercases the input and strips combining accent marks.
func Normalize(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Candidate pairs a product's searchable fields with its stock level.
type Candidate struct {
	ID      string
	Barcode string
	Name    string
	InStock bool
}

// Matcher ranks candidates against normalized queries. It is stateless
// apart from a pt-BR collator used for deterministic name ordering.
type Matcher struct {
	coll *collate.Collator
}

func NewMatcher() *Matcher {
	return &Matcher{coll: collate.New(language.BrazilianPortuguese)}
}

func rank(query, name, code string, short bool) int {
	if code == query && query != "" {
		return tierCodeExact
	}
	if strings.HasPrefix(name, query) {
		return tierNamePrefix
	}
	if !short && wordStartsWith(name, query) {
		return tierNameWord
	}
	if strings.HasPrefix(code, query) {
		return tierCodePrefix
	}
	if !short && strings.Contains(name, query) {
		return tierNameContains
	}
	if !short && strings.Contains(code, query) {
		return tierCodeContains
	}
	return tierNoMatch
}

// wordStartsWith treats any non-alphanumeric rune as a word boundary,
// so "cola" matches inside "coca-cola".
func wordStartsWith(name, query string) bool {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if strings.HasPrefix(w, query) {
			return true
		}
	}
	return false
}

// Match returns up to maxResults candidates relevant to query, best
// first. Ordering
// within a tier prefers in-stock products, then shorter names, then
// pt-BR alphabetical order. An empty query matches nothing.
func (m *Matcher) Match(query string, cands []Candidate) []Candidate {
	q := Normalize(query)
	if q == "" {
		return nil
	}
	short := len([]rune(q)) <= 2

	type scored struct {
		c    Candidate
		tier int
		name string
	}
	var hits []scored
	for _, c := range cands {
		name := Normalize(c.Name)
		t := rank(q, name, Normalize(c.Barcode), short)
		if t == tierNoMatch {
			continue
		}
		hits = append(hits, scored{c: c, tier: t, name: name})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if a.c.InStock != b.c.InStock {
			return a.c.InStock
		}
		if len(a.name) != len(b.name) {
			return len(a.name) < len(b.name)
		}
		return m.coll.CompareString(a.c.Name, b.c.Name) < 0
	})

	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	out := make([]Candidate, len(hits))
	for i, h := range hits {
		out[i] = h.c
	}
	return out
}

// FindByBarcode returns the candidate whose barcode equals the query
// after normalization, or false. The sale screen calls this before
// Match so a scanned code resolves instantly regardless of how many
// names happen to contain the same digits.
func FindByBarcode(query string, cands []Candidate) (Candidate, bool) {
	q := Normalize(query)
	if q == "" {
		return Candidate{}, false
	}
	for _, c := range cands {
		if Normalize(c.Barcode) == q {
			return c, true
		}
	}
	return Candidate{}, false
}
