package reconcile

import (
	"strings"

	"estoquepro/backend/internal/domain"
)

// Column order for delimited stock-entry text. Missing trailing columns
// are treated as blank, which the reconciler reads as "not supplied".
const (
	colBarcode = iota
	colName
	colQuantity
	colCost
	colSale
	colCount
)

var headerTokens = map[string]bool{
	"codigo": true, "código": true, "barcode": true, "cod": true, "ean": true,
	"nome": true, "name": true, "produto": true, "descricao": true, "descrição": true,
	"quantidade": true, "qtd": true, "qty": true, "quantity": true, "estoque": true,
	"custo": true, "cost": true, "preco": true, "preço": true,
	"venda": true, "sale": true, "price": true, "valor": true,
}

// detectDelimiter picks the column separator by counting candidates in
// the first non-empty line and keeping the majority. Semicolon wins ties
// because pt-BR spreadsheets export CSV with ";" while "," is busy being
// the decimal separator.
func detectDelimiter(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		best, bestCount := ";", strings.Count(line, ";")
		if n := strings.Count(line, "\t"); n > bestCount {
			best, bestCount = "\t", n
		}
		if n := strings.Count(line, ","); n > bestCount {
			best = ","
		}
		return best
	}
	return ";"
}

// looksLikeHeader reports whether every non-blank cell of the first row
// is a known column label. A real product row always carries at least a
// barcode or a quantity that no header word matches.
func looksLikeHeader(cells []string) bool {
	seen := false
	for _, c := range cells {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if !headerTokens[c] {
			return false
		}
		seen = true
	}
	return seen
}

// ParseDelimited splits pasted or uploaded text into batch rows. The
// expected column order is barcode, name, quantity, cost, sale. A
// leading header row is skipped. Blank lines are ignored.
func ParseDelimited(text string) []domain.BatchRow {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	sep := detectDelimiter(text)

	var rows []domain.BatchRow
	first := true
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := strings.Split(line, sep)
		if first {
			first = false
			if looksLikeHeader(cells) {
				continue
			}
		}
		for len(cells) < colCount {
			cells = append(cells, "")
		}
		rows = append(rows, domain.BatchRow{
			Barcode:  strings.TrimSpace(cells[colBarcode]),
			Name:     strings.TrimSpace(cells[colName]),
			Quantity: strings.TrimSpace(cells[colQuantity]),
			Cost:     strings.TrimSpace(cells[colCost]),
			Sale:     strings.TrimSpace(cells[colSale]),
		})
	}
	return rows
}
