package ingest

import (
	"regexp"
	"strings"
)

// Sanitizer masks personally identifying strings before statement text
// leaves the process. Masking happens on prepared lines, after numbering,
// so placeholders never disturb line indices.
type Sanitizer struct {
	extra []*regexp.Regexp
}

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	cardRe  = regexp.MustCompile(`\b(?:\d[ \-]?){15}\d\b`)
	longNum = regexp.MustCompile(`\b\d(?:[ \-]?\d){7,}\b`)
	dateRun = regexp.MustCompile(`^(?:\d{1,2}-\d{1,2}-\d{2,4}|\d{4}-\d{1,2}-\d{1,2})$`)
	phoneRe = regexp.MustCompile(`(?:\+?\d{1,3}[ \-]?)?(?:\(\d{2,4}\)[ \-]?)?\d{3,4}[ \-]\d{3,4}(?:[ \-]\d{2,4})?`)
	labelRe = regexp.MustCompile(`(?i)\b(name|customer|holder|owner)\s*:\s*[^\n,;|]{1,60}`)
)

// NewSanitizer builds a sanitizer that additionally masks the given
// caller-supplied terms. Each term is interpreted as a case-insensitive
// regular expression; terms that fail to compile fall back to literal
// matching rather than being dropped.
func NewSanitizer(extraTerms []string) *Sanitizer {
	s := &Sanitizer{}
	for _, term := range extraTerms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)` + term)
		if err != nil {
			re = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term))
		}
		s.extra = append(s.extra, re)
	}
	return s
}

// Mask replaces identifying substrings with fixed placeholders. The pass
// order is fixed: card numbers must be consumed before the generic long
// digit rule sees them.
func (s *Sanitizer) Mask(text string) string {
	text = emailRe.ReplaceAllString(text, "[EMAIL]")
	text = cardRe.ReplaceAllString(text, "[CARD]")
	text = longNum.ReplaceAllStringFunc(text, func(m string) string {
		// Hyphenated dates carry eight digits but at most four in a run;
		// leave them readable for extraction.
		if dateRun.MatchString(m) {
			return m
		}
		return "[NUM]"
	})
	text = phoneRe.ReplaceAllStringFunc(text, func(m string) string {
		// Keep short grouped figures like "1 234" that are likely amounts.
		digits := strings.Map(keepDigit, m)
		if len(digits) < 7 {
			return m
		}
		return "[PHONE]"
	})
	text = labelRe.ReplaceAllStringFunc(text, func(m string) string {
		colon := strings.Index(m, ":")
		return m[:colon+1] + " [REDACTED]"
	})
	for _, re := range s.extra {
		text = re.ReplaceAllString(text, "[REDACTED]")
	}
	return text
}

// MaskLines applies Mask to each prepared line of a document in place.
func (s *Sanitizer) MaskLines(doc *PreparedDocument) {
	for pi := range doc.Pages {
		for li := range doc.Pages[pi].Lines {
			doc.Pages[pi].Lines[li].Text = s.Mask(doc.Pages[pi].Lines[li].Text)
		}
	}
}

func keepDigit(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}
