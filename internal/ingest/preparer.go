package ingest

import (
	"fmt"
	"strings"
)

// PreparedPage is one page of a statement after line preparation: each
// retained line carries its global 1-based index.
type PreparedPage struct {
	Page  int
	Lines []NumberedLine
}

// PreparedDocument is the whole statement as numbered lines. Indices are
// global across pages and contiguous, so later stages can correlate model
// output back to its source line.
type PreparedDocument struct {
	Pages      []PreparedPage
	TotalLines int
}

// PrepareGrids flattens page grids into numbered lines. Cells of one row
// join with a single space, interior whitespace collapses, and blank rows
// vanish before numbering so indices stay contiguous.
func PrepareGrids(grids []PageGrid) PreparedDocument {
	doc := PreparedDocument{}
	next := 1
	for _, g := range grids {
		page := PreparedPage{Page: g.Page}
		for _, row := range g.Rows {
			line := collapse(rowText(row))
			if line == "" {
				continue
			}
			page.Lines = append(page.Lines, NumberedLine{Index: next, Text: line})
			next++
		}
		doc.Pages = append(doc.Pages, page)
	}
	doc.TotalLines = next - 1
	return doc
}

// PrepareText numbers a flat text blob as a single page, one line per
// newline-delimited row.
func PrepareText(text string) PreparedDocument {
	page := PreparedPage{Page: 1}
	next := 1
	for _, raw := range strings.Split(text, "\n") {
		line := collapse(raw)
		if line == "" {
			continue
		}
		page.Lines = append(page.Lines, NumberedLine{Index: next, Text: line})
		next++
	}
	return PreparedDocument{Pages: []PreparedPage{page}, TotalLines: next - 1}
}

// Corpus renders a page's numbered lines in the "<index>. <text>" form the
// extraction prompt expects.
func (p PreparedPage) Corpus() string {
	var b strings.Builder
	for i, line := range p.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", line.Index, line.Text)
	}
	return b.String()
}

// collapse trims a line and squeezes interior runs of whitespace to a
// single space. Collapsing is idempotent.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
