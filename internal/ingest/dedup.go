package ingest

import (
	"strconv"
	"strings"
	"unicode"
)

// Deduplicate collapses rows that describe the same transaction. Model
// output can repeat a row when a page chunk boundary overlaps or when the
// same statement arrives through two export formats. Two distinct
// same-day purchases at the same merchant for the same amount land on
// different statement lines and therefore survive.
func Deduplicate(expenses []CandidateExpense) []CandidateExpense {
	index := make(map[string]int, len(expenses))
	out := make([]CandidateExpense, 0, len(expenses))

	for _, e := range expenses {
		key := dedupKey(&e)
		at, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, e)
			continue
		}
		if betterCandidate(&e, &out[at]) {
			out[at] = e
		}
	}
	return out
}

// dedupKey builds the identity key: source line, date, currency, the
// cent-rounded magnitude, and a normalized identifier prefix. A missing
// line index collapses to "N" so heuristic rows can still fold against
// each other.
func dedupKey(e *CandidateExpense) string {
	line := "N"
	if e.LineIndex > 0 {
		line = strconv.Itoa(e.LineIndex)
	}
	return strings.Join([]string{
		line,
		e.OccurredOn,
		e.Currency,
		e.Amount.Abs().Round(2).StringFixed(2),
		normalizeIdentifier(e.identifier()),
	}, "|")
}

// normalizeIdentifier reduces a merchant or note to a stable comparison
// form: digits dropped, every non-letter squeezed to a single space,
// upper-cased, clipped to 24 characters.
func normalizeIdentifier(id string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range id {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToUpper(r))
			lastSpace = false
		case unicode.IsDigit(r):
			// reference numbers vary per export, never per transaction
		default:
			if !lastSpace && b.Len() > 0 {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	s := strings.TrimSpace(b.String())
	if len(s) > 24 {
		s = s[:24]
	}
	return s
}

// betterCandidate reports whether the new duplicate should replace the
// kept one. Preferences apply in order; the first decisive rule wins:
// refund wording backed by a negative sign on a sign conflict, an
// explicit direction, positive sign on a sign conflict, richer
// descriptive fields, then the later chunk. Ties keep the first-seen
// member.
func betterCandidate(n, kept *CandidateExpense) bool {
	if n.Amount.Sign() != kept.Amount.Sign() {
		if a, b := refundAligned(n), refundAligned(kept); a != b {
			return a
		}
	}
	if a, b := n.Direction != "", kept.Direction != ""; a != b {
		return a
	}
	if n.Amount.Sign() != kept.Amount.Sign() {
		return n.Amount.Sign() > 0
	}
	if a, b := n.Merchant != "", kept.Merchant != ""; a != b {
		return a
	}
	if a, b := n.Note != "", kept.Note != ""; a != b {
		return a
	}
	if a, b := n.Category != "", kept.Category != ""; a != b {
		return a
	}
	return n.SourceChunk > kept.SourceChunk
}

// refundAligned reports whether the row carries refund vocabulary in its
// merchant or note and the negative sign that wording calls for. On a
// sign conflict such a member is the one to keep.
func refundAligned(e *CandidateExpense) bool {
	return IsRefundLike(e.Merchant+" "+e.Note) && e.Amount.Sign() < 0
}
