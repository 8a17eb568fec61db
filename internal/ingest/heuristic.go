package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HeuristicParser extracts expenses from prepared statement lines without
// any network call. It trades recall for privacy: only lines carrying
// both a recognizable date and a plausible amount produce a row.
type HeuristicParser struct {
	now func() time.Time
}

// NewHeuristicParser returns a parser using the wall clock to complete
// dates with no year.
func NewHeuristicParser() *HeuristicParser {
	return &HeuristicParser{now: time.Now}
}

var (
	dateTokenRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{1,2}[/-]\d{1,2}|\d{1,2}\s+[A-Za-z]{3,9}(?:\s+\d{2,4})?|[A-Za-z]{3,9}\s+\d{1,2},?\s*\d{0,4})\b`)
	amountRe    = regexp.MustCompile(`\(?-?(?:₹|\$|€|£|Rs\.?\s*|INR\s*|USD\s*|CAD\s*|AUD\s*|EUR\s*|GBP\s*)?\d{1,3}(?:,\d{2,3})*(?:\.\d{1,2})?\)?(?:\s*(?:CR|DR|Cr|Dr))?`)
	fxMarkerRe  = regexp.MustCompile(`(?i)(exchange rate|conversion rate|fx rate|@\s*\d)`)
	balanceRe   = regexp.MustCompile(`(?i)\b(balance|bal\.?|total due|closing|opening)\b`)
	skipLineRe  = regexp.MustCompile(`(?i)\b(statement period|page \d+|account number|minimum (amount )?due|credit limit|interest charged|payment due date|previous balance)\b`)
)

const maxMerchantLen = 64

var currencyMarkers = []struct {
	re   *regexp.Regexp
	code string
}{
	{regexp.MustCompile(`₹|(?i)\bRs\.?\s|\bINR\b|(?i)\b(upi|imps|neft)\b`), "INR"},
	{regexp.MustCompile(`€|\bEUR\b`), "EUR"},
	{regexp.MustCompile(`£|\bGBP\b`), "GBP"},
	{regexp.MustCompile(`\bCAD\b|C\$|(?i)\binterac\b`), "CAD"},
	{regexp.MustCompile(`\bAUD\b|A\$`), "AUD"},
	{regexp.MustCompile(`\bUSD\b|US\$|\$`), "USD"},
}

// DetectCurrency scores currency markers across the whole corpus and
// returns the dominant code, defaulting to USD when nothing matches. A
// bare dollar sign is the weakest signal, so USD scores last.
func DetectCurrency(text string) string {
	best := "USD"
	bestScore := 0
	for _, m := range currencyMarkers {
		score := len(m.re.FindAllStringIndex(text, -1))
		if score > bestScore {
			best = m.code
			bestScore = score
		}
	}
	return best
}

// Parse walks the prepared document line by line and returns the rows
// that look like transactions.
func (h *HeuristicParser) Parse(doc PreparedDocument) []CandidateExpense {
	var corpus strings.Builder
	for _, page := range doc.Pages {
		corpus.WriteString(page.Corpus())
		corpus.WriteByte('\n')
	}
	currency := DetectCurrency(corpus.String())

	var expenses []CandidateExpense
	for _, page := range doc.Pages {
		for _, line := range page.Lines {
			if e, ok := h.parseLine(line, currency); ok {
				expenses = append(expenses, e)
			}
		}
	}
	return expenses
}

func (h *HeuristicParser) parseLine(line NumberedLine, currency string) (CandidateExpense, bool) {
	text := line.Text
	if skipLineRe.MatchString(text) {
		return CandidateExpense{}, false
	}

	dateLoc := dateTokenRe.FindStringIndex(text)
	if dateLoc == nil {
		return CandidateExpense{}, false
	}
	date, ok := h.parseFlexibleDate(text[dateLoc[0]:dateLoc[1]])
	if !ok {
		return CandidateExpense{}, false
	}

	amountTok, amountLoc, ok := pickAmount(text, dateLoc)
	if !ok {
		return CandidateExpense{}, false
	}
	amount, negative, ok := parseAmount(amountTok)
	if !ok || amount.IsZero() {
		return CandidateExpense{}, false
	}
	if !negative && IsRefundLike(text) && !investmentRe.MatchString(text) {
		negative = true
	}
	if negative {
		amount = amount.Neg()
	}

	// A line that is nothing but a date and an amount still describes a
	// transaction; merchant stays empty.
	merchant := merchantFrom(text, dateLoc, amountLoc)

	return CandidateExpense{
		Amount:     amount,
		Currency:   currency,
		Merchant:   merchant,
		OccurredOn: date,
		LineIndex:  line.Index,
	}, true
}

// pickAmount chooses the transaction amount among the line's numeric
// tokens. Tokens right after an exchange-rate marker are rates, and on
// lines mentioning a balance the last token is the running balance, so
// both are passed over.
func pickAmount(text string, dateLoc []int) (string, []int, bool) {
	locs := amountRe.FindAllStringIndex(text, -1)
	var candidates [][]int
	for _, loc := range locs {
		if loc[0] >= dateLoc[0] && loc[1] <= dateLoc[1] {
			continue // the date itself
		}
		if !strings.ContainsAny(text[loc[0]:loc[1]], "0123456789") {
			continue
		}
		prefix := text[:loc[0]]
		if m := fxMarkerRe.FindStringIndex(prefix); m != nil && loc[0]-m[1] < 20 {
			continue
		}
		candidates = append(candidates, loc)
	}
	if len(candidates) == 0 {
		return "", nil, false
	}
	pick := candidates[len(candidates)-1]
	if len(candidates) > 1 && balanceRe.MatchString(text) {
		pick = candidates[len(candidates)-2]
	}
	return text[pick[0]:pick[1]], pick, true
}

// parseAmount converts a token like "₹1,234.56", "(45.00)" or "45.00 CR"
// into a magnitude and a credit flag.
func parseAmount(tok string) (decimal.Decimal, bool, bool) {
	negative := false
	t := strings.TrimSpace(tok)
	if strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")") {
		negative = true
		t = strings.Trim(t, "()")
	}
	upper := strings.ToUpper(t)
	if strings.HasSuffix(upper, "CR") {
		negative = true
		t = strings.TrimSpace(t[:len(t)-2])
	} else if strings.HasSuffix(upper, "DR") {
		t = strings.TrimSpace(t[:len(t)-2])
	}
	if strings.HasPrefix(t, "-") {
		negative = true
		t = t[1:]
	}
	t = strings.TrimLeft(t, "₹$€£ ")
	for _, prefix := range []string{"Rs.", "Rs", "INR", "USD", "CAD", "AUD", "EUR", "GBP"} {
		t = strings.TrimSpace(strings.TrimPrefix(t, prefix))
	}
	t = strings.ReplaceAll(t, ",", "")

	d, err := decimal.NewFromString(t)
	if err != nil {
		return decimal.Zero, false, false
	}
	return d, negative, true
}

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var (
	dayMonthNoYearRe = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})$`)
	dayNamedMonthRe  = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]{3,9})$`)
	namedMonthDayRe  = regexp.MustCompile(`^([A-Za-z]{3,9})\s+(\d{1,2})$`)
	slashDateFullRe  = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})$`)
)

var dateFormats = []string{
	"2006-01-02",
	"02/01/2006", "02-01-2006",
	"01/02/2006", "01-02-2006",
	"02/01/06", "02-01-06",
	"2 Jan 2006", "2 Jan 06", "2 January 2006",
	"Jan 2, 2006", "Jan 2 2006", "January 2, 2006",
}

// parseFlexibleDate handles the date shapes statements actually use.
// Ambiguous slash dates resolve day-first when the first figure exceeds
// twelve; a missing year completes from the current year.
func (h *HeuristicParser) parseFlexibleDate(tok string) (string, bool) {
	tok = strings.TrimSpace(tok)

	// dd/mm or dd-mm with no year
	if m := dayMonthNoYearRe.FindStringSubmatch(tok); m != nil {
		day, mon := atoiSafe(m[1]), atoiSafe(m[2])
		if day <= 12 && mon > 12 {
			day, mon = mon, day
		}
		if mon < 1 || mon > 12 || day < 1 || day > 31 {
			return "", false
		}
		return fmt.Sprintf("%04d-%02d-%02d", h.now().Year(), mon, day), true
	}

	// "12 Aug" with no year
	if m := dayNamedMonthRe.FindStringSubmatch(tok); m != nil {
		mon, ok := monthNames[strings.ToLower(m[2][:3])]
		if !ok {
			return "", false
		}
		day := atoiSafe(m[1])
		if day < 1 || day > 31 {
			return "", false
		}
		return fmt.Sprintf("%04d-%02d-%02d", h.now().Year(), mon, day), true
	}

	// "JUN 28" with no year
	if m := namedMonthDayRe.FindStringSubmatch(tok); m != nil {
		mon, ok := monthNames[strings.ToLower(m[1][:3])]
		if !ok {
			return "", false
		}
		day := atoiSafe(m[2])
		if day < 1 || day > 31 {
			return "", false
		}
		return fmt.Sprintf("%04d-%02d-%02d", h.now().Year(), mon, day), true
	}

	// Full slash dates: try day-first unless the layout can't fit.
	if m := slashDateFullRe.FindStringSubmatch(tok); m != nil {
		first, second := atoiSafe(m[1]), atoiSafe(m[2])
		layouts := []string{"02/01/2006", "02/01/06"}
		if first <= 12 && second > 12 {
			layouts = []string{"01/02/2006", "01/02/06"}
		}
		norm := strings.ReplaceAll(tok, "-", "/")
		for _, layout := range layouts {
			if t, err := time.Parse(layout, norm); err == nil {
				return t.Format("2006-01-02"), true
			}
		}
		return "", false
	}

	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, tok); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// merchantFrom strips the date and amount tokens out of the line and
// keeps what remains as the merchant, clipped to a sane length.
func merchantFrom(text string, dateLoc, amountLoc []int) string {
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		if (i >= dateLoc[0] && i < dateLoc[1]) || (i >= amountLoc[0] && i < amountLoc[1]) {
			continue
		}
		b.WriteByte(text[i])
	}
	m := collapse(b.String())
	m = strings.Trim(m, "-*#|:,. ")
	if len(m) > maxMerchantLen {
		m = strings.TrimSpace(m[:maxMerchantLen])
	}
	return m
}

func atoiSafe(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
