package ingest

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalization runs after extraction and before deduplication. Amounts
// come back from the model as positive magnitudes; the resolved sign makes
// debits positive and credits negative so downstream totals just sum.

var (
	refundRe     = regexp.MustCompile(`(?i)\b(refund(ed)?|credit(ed)?|reversal|reversed|chargeback|cash ?back|return(ed)?|rebate|reimburse(d|ment)?)\b`)
	investmentRe = regexp.MustCompile(`(?i)\b(investment|invest(ed)?|savings|rrsp|tfsa|401k|ira|sip|mutual funds?|stocks?|bonds?|etfs?|brokerage)\b`)
	isoDateRe    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	currencyRe   = regexp.MustCompile(`^[A-Z]{3}$`)
)

var currencySymbols = map[string]string{
	"₹":   "INR",
	"rs":  "INR",
	"rs.": "INR",
	"inr": "INR",
	"$":   "USD",
	"us$": "USD",
	"€":   "EUR",
	"£":   "GBP",
	"c$":  "CAD",
	"ca$": "CAD",
	"a$":  "AUD",
	"¥":   "JPY",
}

var titleCaser = cases.Title(language.English)

// Normalize rewrites one candidate in place: sign, currency code, date
// shape, merchant casing, and a category guess when the model gave none.
// The caller still owns deduplication.
func Normalize(c *CandidateExpense) {
	resolveSign(c)
	c.Currency = normalizeCurrency(c.Currency)
	c.OccurredOn = normalizeDate(c.OccurredOn)
	c.Merchant = normalizeMerchant(c.Merchant)
	if c.Category == "" {
		c.Category = suggestCategory(c.Merchant, c.Note)
	}
}

// resolveSign fixes the amount's sign. An explicit direction always wins.
// Without one, refund vocabulary in the merchant or note flips the row to
// a credit, unless the row also reads like an investment transfer, where
// "deposit" wording still describes money leaving the spending account.
// Failing both, whatever sign the model reported stands.
func resolveSign(c *CandidateExpense) {
	switch c.Direction {
	case DirectionDebit:
		c.Amount = c.Amount.Abs()
		return
	case DirectionCredit:
		c.Amount = c.Amount.Abs().Neg()
		return
	}
	if IsRefundLike(c.Merchant+" "+c.Note) && !investmentRe.MatchString(c.Merchant+" "+c.Note) {
		c.Amount = c.Amount.Abs().Neg()
		return
	}
	// Keep the reported sign.
}

// IsRefundLike reports whether the text carries refund vocabulary.
func IsRefundLike(text string) bool {
	return refundRe.MatchString(text)
}

// normalizeCurrency maps symbols and aliases to ISO 4217 codes. Anything
// unrecognized that is not already a three-letter code becomes empty
// rather than propagating junk.
func normalizeCurrency(cur string) string {
	trimmed := strings.TrimSpace(cur)
	if code, ok := currencySymbols[strings.ToLower(trimmed)]; ok {
		return code
	}
	upper := strings.ToUpper(trimmed)
	if currencyRe.MatchString(upper) {
		return upper
	}
	return ""
}

// normalizeDate reduces timestamps to a bare YYYY-MM-DD and re-parses
// other shapes the model occasionally emits. A value matching no known
// layout becomes empty rather than propagating junk downstream.
func normalizeDate(d string) string {
	d = strings.TrimSpace(d)
	if isoDateRe.MatchString(d) {
		return d[:10]
	}
	for _, layout := range []string{"02/01/2006", "01/02/2006", "02-01-2006", "2 Jan 2006", "Jan 2, 2006", "02 Jan 06"} {
		if t, err := time.Parse(layout, d); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// normalizeMerchant strips trailing reference clutter and title-cases
// names the model returned in all caps.
func normalizeMerchant(m string) string {
	m = strings.TrimSpace(m)
	m = strings.Trim(m, "-*#| ")
	if m == "" {
		return m
	}
	if m == strings.ToUpper(m) && strings.ContainsAny(m, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		m = titleCaser.String(strings.ToLower(m))
	}
	return m
}

var categoryHints = []struct {
	re       *regexp.Regexp
	category string
}{
	{regexp.MustCompile(`(?i)\b(uber|lyft|ola|metro|transit|rail|airlines?|airways)\b`), "transport"},
	{regexp.MustCompile(`(?i)\b(grocer|supermarket|walmart|costco|aldi|bigbasket)\b`), "groceries"},
	{regexp.MustCompile(`(?i)\b(restaurant|cafe|coffee|pizza|doordash|swiggy|zomato|ubereats)\b`), "dining"},
	{regexp.MustCompile(`(?i)\b(netflix|spotify|prime|hulu|disney|subscription)\b`), "entertainment"},
	{regexp.MustCompile(`(?i)\b(pharmacy|hospital|clinic|dental|medical)\b`), "health"},
	{regexp.MustCompile(`(?i)\b(electric|hydro|water|gas bill|internet|broadband|mobile recharge)\b`), "utilities"},
	{regexp.MustCompile(`(?i)\b(amazon|flipkart|ebay|shop|store)\b`), "shopping"},
}

func suggestCategory(merchant, note string) string {
	haystack := merchant + " " + note
	for _, hint := range categoryHints {
		if hint.re.MatchString(haystack) {
			return hint.category
		}
	}
	return ""
}
