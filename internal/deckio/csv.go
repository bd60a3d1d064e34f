package deckio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/example/studydesk/internal/domain"
)

// ParseCSV reads term/definition/example rows into a brand-new deck.
// Quoted fields use standard doubled-quote escaping. If the first row
// names both a term and a definition column it is treated as a header
// and columns are mapped by name; otherwise the first three columns are
// used positionally. Rows missing a term or a definition are dropped.
func ParseCSV(r io.Reader, now time.Time) (*domain.Deck, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows are tolerated
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	deck := domain.NewDeck(DefaultTitle, now)
	if len(rows) == 0 {
		return deck, nil
	}

	termCol, defCol, exampleCol := 0, 1, 2
	if header, ok := headerColumns(rows[0]); ok {
		termCol, defCol = header["term"], header["definition"]
		if c, ok := header["example"]; ok {
			exampleCol = c
		} else {
			exampleCol = -1
		}
		rows = rows[1:]
	}

	for _, row := range rows {
		term := strings.TrimSpace(cell(row, termCol))
		definition := strings.TrimSpace(cell(row, defCol))
		if term == "" || definition == "" {
			continue
		}
		example := strings.TrimSpace(cell(row, exampleCol))
		deck.Items = append(deck.Items, domain.NewItem(term, definition, example, now))
	}
	return deck, nil
}

// headerColumns reports whether the row looks like a header, and if so
// maps normalized column names to indices. Case and a capitalized
// variant are tolerated.
func headerColumns(row []string) (map[string]int, bool) {
	cols := make(map[string]int, len(row))
	for i, c := range row {
		cols[strings.ToLower(strings.TrimSpace(c))] = i
	}
	_, hasTerm := cols["term"]
	_, hasDef := cols["definition"]
	if !hasTerm || !hasDef {
		return nil, false
	}
	return cols, true
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// ExportCSV renders the deck as a term,definition,example table. Every
// field is quoted, with embedded quotes doubled.
func ExportCSV(deck *domain.Deck) []byte {
	var b strings.Builder
	b.WriteString("term,definition,example\n")
	for _, it := range deck.Items {
		b.WriteString(quoteField(it.Term))
		b.WriteByte(',')
		b.WriteString(quoteField(it.Definition))
		b.WriteByte(',')
		b.WriteString(quoteField(it.Example))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
