package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	s := NewSanitizer(nil)
	assert.Equal(t, "contact [EMAIL] for help", s.Mask("contact jane.doe+cc@example.co.uk for help"))
}

func TestMaskCardBeforeGenericDigits(t *testing.T) {
	s := NewSanitizer(nil)
	assert.Equal(t, "card [CARD] ending", s.Mask("card 4111 1111 1111 1111 ending"))
	assert.Equal(t, "card [CARD] ending", s.Mask("card 4111-1111-1111-1111 ending"))
	assert.Equal(t, "card [CARD] ending", s.Mask("card 4111111111111111 ending"))
}

func TestMaskLongDigitRuns(t *testing.T) {
	s := NewSanitizer(nil)
	assert.Equal(t, "acct [NUM] ref", s.Mask("acct 12345678 ref"))
	// Sub-cutoff runs survive: they are usually amounts or dates.
	assert.Equal(t, "ref 1234567", s.Mask("ref 1234567"))
}

func TestMaskSeparatedDigitRuns(t *testing.T) {
	s := NewSanitizer(nil)
	// Account and reference numbers formatted with spaces or hyphens are
	// still eight-plus digit runs.
	assert.Equal(t, "account [NUM] closing", s.Mask("account 12 34 56 78 closing"))
	assert.Equal(t, "ref [NUM] posted", s.Mask("ref 123456-78 posted"))
	// A fifteen-digit Amex misses the card rule but not this one.
	assert.Equal(t, "card [NUM] due", s.Mask("card 3782 822463 10005 due"))
	// Hyphenated dates stay readable.
	assert.Equal(t, "due 2026-08-29 posted", s.Mask("due 2026-08-29 posted"))
	assert.Equal(t, "on 12-08-2026 at", s.Mask("on 12-08-2026 at"))
}

func TestMaskPhoneKeepsShortFigures(t *testing.T) {
	s := NewSanitizer(nil)
	masked := s.Mask("call 555-1234 today")
	assert.Contains(t, masked, "[PHONE]")
	// Ten-digit phones fall to the long-run rule first; either way no
	// digits leave the process.
	assert.Equal(t, "call [NUM] today", s.Mask("call 416-555-1234 today"))
	// Grouped amounts with too few digits stay put.
	assert.Equal(t, "paid 1 234 today", s.Mask("paid 1 234 today"))
}

func TestMaskNameLabels(t *testing.T) {
	s := NewSanitizer(nil)
	assert.Equal(t, "Name: [REDACTED]", s.Mask("Name: John Smith"))
	assert.Equal(t, "customer: [REDACTED]", s.Mask("customer: Jane Doe"))
}

func TestMaskExtraTerms(t *testing.T) {
	s := NewSanitizer([]string{"Acme Corp", "(unclosed"})
	assert.Equal(t, "paid [REDACTED] rent", s.Mask("paid acme corp rent"))
	// An invalid pattern degrades to literal matching instead of vanishing.
	assert.Equal(t, "[REDACTED] text", s.Mask("(unclosed text"))
}

func TestMaskLinesPreservesIndices(t *testing.T) {
	s := NewSanitizer(nil)
	doc := PrepareText("statement for jane@example.com\n12/08 Starbucks 4.50")
	s.MaskLines(&doc)

	assert.Equal(t, 1, doc.Pages[0].Lines[0].Index)
	assert.Equal(t, "statement for [EMAIL]", doc.Pages[0].Lines[0].Text)
	assert.Equal(t, 2, doc.Pages[0].Lines[1].Index)
}
