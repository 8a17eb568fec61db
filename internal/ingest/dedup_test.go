package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduplicateKeepsSameDayRepeatPurchases(t *testing.T) {
	// Two coffees, same merchant, same price, different statement lines.
	out := Deduplicate([]CandidateExpense{
		{Amount: dec("4.50"), Currency: "USD", Merchant: "Starbucks", OccurredOn: "2026-08-12", LineIndex: 4},
		{Amount: dec("4.50"), Currency: "USD", Merchant: "Starbucks", OccurredOn: "2026-08-12", LineIndex: 9},
	})
	assert.Len(t, out, 2)
}

func TestDeduplicateCollapsesRepeatedRows(t *testing.T) {
	out := Deduplicate([]CandidateExpense{
		{Amount: dec("4.50"), Currency: "USD", Merchant: "Starbucks", OccurredOn: "2026-08-12", LineIndex: 4},
		{Amount: dec("4.5"), Currency: "USD", Merchant: "STARBUCKS #2041", OccurredOn: "2026-08-12", LineIndex: 4},
	})
	require.Len(t, out, 1)
}

func TestDeduplicateMatchesMerchantAgainstNote(t *testing.T) {
	// One source names the merchant, the other only carries a note. The
	// normalized identifiers agree, so the rows fold and the one with a
	// merchant survives.
	out := Deduplicate([]CandidateExpense{
		{Amount: dec("20"), Currency: "USD", Note: "STARBUCKS #123", OccurredOn: "2026-08-12", LineIndex: 7},
		{Amount: dec("20"), Currency: "USD", Merchant: "Starbucks", OccurredOn: "2026-08-12", LineIndex: 7},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "Starbucks", out[0].Merchant)
}

func TestDeduplicateTieBreakOrder(t *testing.T) {
	// Same key, both with merchants: the row carrying a category wins
	// over the one carrying only a payment method.
	out := Deduplicate([]CandidateExpense{
		{Amount: dec("10"), Currency: "USD", Merchant: "Amazon", OccurredOn: "2026-08-01", LineIndex: 2, PaymentMethod: "card"},
		{Amount: dec("10"), Currency: "USD", Merchant: "Amazon", OccurredOn: "2026-08-01", LineIndex: 2, Category: "shopping"},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "shopping", out[0].Category)
}

func TestDeduplicateLaterChunkWinsWhenEqual(t *testing.T) {
	out := Deduplicate([]CandidateExpense{
		{Amount: dec("10"), Currency: "USD", Merchant: "Amazon", OccurredOn: "2026-08-01", LineIndex: 2, SourceChunk: 0, Note: "a"},
		{Amount: dec("10"), Currency: "USD", Merchant: "Amazon", OccurredOn: "2026-08-01", LineIndex: 2, SourceChunk: 1, Note: "b"},
	})
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].SourceChunk)
}

func TestDeduplicateRefundSemanticsWin(t *testing.T) {
	// Same source line extracted twice with conflicting signs; the
	// refund wording makes the negative member the right one.
	out := Deduplicate([]CandidateExpense{
		{Amount: dec("30"), Currency: "USD", Merchant: "Amazon Refund", OccurredOn: "2026-08-01", LineIndex: 5},
		{Amount: dec("-30"), Currency: "USD", Merchant: "Amazon Refund", OccurredOn: "2026-08-01", LineIndex: 5},
	})
	require.Len(t, out, 1)
	assert.True(t, out[0].Amount.Sign() < 0)
}

func TestDeduplicateRefundWordingInNoteWins(t *testing.T) {
	// The merchant is plain; only the note says refund. The negative
	// member still beats the positive one, whichever arrives first.
	purchase := CandidateExpense{Amount: dec("30"), Currency: "USD", Merchant: "Amazon", OccurredOn: "2026-08-01", LineIndex: 5}
	refund := CandidateExpense{Amount: dec("-30"), Currency: "USD", Merchant: "Amazon", Note: "refund of order", OccurredOn: "2026-08-01", LineIndex: 5}

	out := Deduplicate([]CandidateExpense{purchase, refund})
	require.Len(t, out, 1)
	assert.True(t, out[0].Amount.Sign() < 0)

	out = Deduplicate([]CandidateExpense{refund, purchase})
	require.Len(t, out, 1)
	assert.True(t, out[0].Amount.Sign() < 0)
}

func TestDeduplicateExplicitDirectionWins(t *testing.T) {
	out := Deduplicate([]CandidateExpense{
		{Amount: dec("30"), Currency: "USD", Merchant: "Amazon", OccurredOn: "2026-08-01", LineIndex: 5},
		{Amount: dec("30"), Currency: "USD", Merchant: "Amazon", OccurredOn: "2026-08-01", LineIndex: 5, Direction: DirectionDebit, Note: "order"},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "order", out[0].Note)
}

func TestDeduplicatePositiveSignPreferredOnConflict(t *testing.T) {
	out := Deduplicate([]CandidateExpense{
		{Amount: dec("-30"), Currency: "USD", Merchant: "Amazon", OccurredOn: "2026-08-01", LineIndex: 5},
		{Amount: dec("30"), Currency: "USD", Merchant: "Amazon", OccurredOn: "2026-08-01", LineIndex: 5},
	})
	require.Len(t, out, 1)
	assert.True(t, out[0].Amount.Sign() > 0, "purchases are the default assumption")
}

func TestNormalizeIdentifier(t *testing.T) {
	assert.Equal(t, "STARBUCKS", normalizeIdentifier("Starbucks #2041"))
	assert.Equal(t, "UPI AMAZON PAY", normalizeIdentifier("upi/amazon-pay/9137842"))
	long := normalizeIdentifier("a very long merchant descriptor that keeps going")
	assert.LessOrEqual(t, len(long), 24)
}

func TestDeduplicateDifferentSignsDoNotFold(t *testing.T) {
	// A purchase and its refund share magnitude and merchant but not
	// line, so both survive; on the same line the magnitudes fold.
	out := Deduplicate([]CandidateExpense{
		{Amount: dec("30"), Currency: "USD", Merchant: "Amazon", OccurredOn: "2026-08-01", LineIndex: 3},
		{Amount: dec("-30"), Currency: "USD", Merchant: "Amazon", OccurredOn: "2026-08-02", LineIndex: 8},
	})
	assert.Len(t, out, 2)
}
