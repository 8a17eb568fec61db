// Package ingest converts uploaded bank and credit-card statements into
// structured candidate expenses. It covers layout-aware PDF text extraction,
// line preparation, PII masking, model-backed and heuristic parsing, sign
// normalization and deduplication. The package holds no state across
// requests; every upload is an independent pipeline invocation.
package ingest

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Fragment is one positioned glyph run from a PDF page's text layer.
// Y is normalized so it grows downward from the top of the page.
// Fragments exist only within one extraction call.
type Fragment struct {
	Text string
	X    float64
	Y    float64
	W    float64
	H    float64
	Page int
}

// TableRow is an ordered sequence of cell strings reconstructed from one
// printed line. Cells are ordered by ascending x.
type TableRow []string

// PageGrid is the row/column structure recovered from a single page or
// spreadsheet sheet.
type PageGrid struct {
	Page int
	Rows []TableRow
}

// NumberedLine is one normalized statement line with its 1-based index.
// Indices increase across the whole document and are never reset per page;
// they are the correlation key that keeps two textually identical
// transactions apart through the rest of the pipeline.
type NumberedLine struct {
	Index int
	Text  string
}

// Direction values supplied by the extraction model.
const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"
)

// CandidateExpense is one tentative transaction record produced by the
// pipeline, pending human review before import. Amount sign convention:
// positive is an outflow/purchase, negative a refund/credit/reversal.
type CandidateExpense struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Merchant      string          `json:"merchant,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Note          string          `json:"note,omitempty"`
	OccurredOn    string          `json:"occurred_on"`
	Category      string          `json:"category,omitempty"`

	// Internal correlation fields, stripped before the result is handed
	// to the caller.
	LineIndex   int    `json:"-"`
	SourceChunk int    `json:"-"`
	Direction   string `json:"-"`
}

// identifier returns the free-text field used for dedup keying: the
// merchant when present, otherwise the note.
func (c *CandidateExpense) identifier() string {
	if strings.TrimSpace(c.Merchant) != "" {
		return c.Merchant
	}
	return c.Note
}
