package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	// maxPageChars is the largest corpus a single model call will carry.
	// Larger pages split into chunks at line boundaries.
	maxPageChars = 20000
	// chunkChars is the target size of each chunk of an oversized page.
	chunkChars = 6000

	defaultModel       = "gemini-2.0-flash"
	defaultBaseURL     = "https://generativelanguage.googleapis.com"
	defaultCallTimeout = 30 * time.Second
)

// LLMClient calls the Gemini generateContent endpoint to pull candidate
// expenses out of prepared statement pages. Calls are rate limited and
// bounded by a per-call timeout. Failed chunks are reported as warnings
// and never retried: a second identical call costs money and usually
// fails the same way.
type LLMClient struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	limiter     *rate.Limiter
	callTimeout time.Duration
	log         *slog.Logger
}

// LLMOption customizes an LLMClient.
type LLMOption func(*LLMClient)

// WithBaseURL overrides the API endpoint, used by tests to point the
// client at a local fake.
func WithBaseURL(u string) LLMOption {
	return func(c *LLMClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithModel overrides the model identifier.
func WithModel(m string) LLMOption {
	return func(c *LLMClient) { c.model = m }
}

// WithCallTimeout overrides the per-call deadline.
func WithCallTimeout(d time.Duration) LLMOption {
	return func(c *LLMClient) { c.callTimeout = d }
}

// NewLLMClient builds a client for the given API key. The rate limiter
// allows a small burst and then roughly one call per second, which keeps a
// large multi-page statement inside free-tier quotas.
func NewLLMClient(apiKey string, log *slog.Logger, opts ...LLMOption) *LLMClient {
	c := &LLMClient{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		model:       defaultModel,
		httpClient:  &http.Client{Timeout: 45 * time.Second},
		limiter:     rate.NewLimiter(rate.Every(time.Second), 4),
		callTimeout: defaultCallTimeout,
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExtractPage runs the model over one prepared page. Oversized pages are
// split into chunks; a chunk that fails is skipped with a warning while
// the remaining chunks still run.
func (c *LLMClient) ExtractPage(ctx context.Context, page PreparedPage) ([]CandidateExpense, []string) {
	var expenses []CandidateExpense
	var warnings []string

	for chunkIdx, corpus := range splitCorpus(page) {
		chunk, err := c.extractChunk(ctx, corpus)
		if err != nil {
			msg := fmt.Sprintf("page %d chunk %d skipped: %v", page.Page, chunkIdx+1, err)
			c.log.Warn("extraction chunk failed",
				"page", page.Page, "chunk", chunkIdx+1, "error", err)
			warnings = append(warnings, msg)
			continue
		}
		for i := range chunk {
			chunk[i].SourceChunk = chunkIdx
		}
		expenses = append(expenses, chunk...)
	}
	return expenses, warnings
}

// splitCorpus renders the page corpus and, when it exceeds the page
// threshold, splits it into chunks of whole numbered lines.
func splitCorpus(page PreparedPage) []string {
	full := page.Corpus()
	if len(full) <= maxPageChars {
		return []string{full}
	}

	var chunks []string
	var b strings.Builder
	for _, line := range page.Lines {
		rendered := fmt.Sprintf("%d. %s", line.Index, line.Text)
		if b.Len() > 0 && b.Len()+1+len(rendered) > chunkChars {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(rendered)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

func (c *LLMClient) extractChunk(ctx context.Context, corpus string) ([]CandidateExpense, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, newError(ErrExternalCallFailed, "rate limiter interrupted", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]interface{}{{"text": extractionPrompt(corpus)}}},
		},
		"generationConfig": map[string]interface{}{
			"temperature":      0.1,
			"responseMimeType": "application/json",
			"responseSchema":   expenseSchema,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, newError(ErrExternalCallFailed, "failed to encode model request", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, strings.NewReader(string(payload)))
	if err != nil {
		return nil, newError(ErrExternalCallFailed, "failed to build model request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newError(ErrExternalCallFailed, "model call failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, newError(ErrExternalCallFailed, "failed to read model response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyModelHTTPError(resp.StatusCode, raw)
	}

	text, err := candidateText(raw)
	if err != nil {
		return nil, err
	}
	return parseExpenses(text)
}

// classifyModelHTTPError maps a non-200 model response onto the ingestion
// taxonomy, marking transient statuses retryable so the caller can tell the
// user a later attempt may get further.
func classifyModelHTTPError(status int, body []byte) *IngestError {
	snippet := string(body)
	if len(snippet) > 300 {
		snippet = snippet[:300]
	}
	e := newError(ErrExternalCallFailed,
		fmt.Sprintf("model returned HTTP %d: %s", status, snippet), nil)
	switch {
	case status == http.StatusTooManyRequests, status >= 500:
		e.Retryable = true
	}
	return e
}

// candidateText digs the generated text out of the generateContent
// response envelope.
func candidateText(raw []byte) (string, error) {
	var envelope struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", newError(ErrSchemaViolation, "model response envelope is not valid JSON", err)
	}
	if len(envelope.Candidates) == 0 || len(envelope.Candidates[0].Content.Parts) == 0 {
		return "", newError(ErrSchemaViolation, "model response carried no candidates", nil)
	}
	return envelope.Candidates[0].Content.Parts[0].Text, nil
}

// wireExpense is the shape the model is asked to emit. Required fields are
// pointers so their absence is distinguishable from zero values.
type wireExpense struct {
	LineIndex     *int             `json:"line_index"`
	OccurredOn    *string          `json:"occurred_on"`
	Amount        *decimal.Decimal `json:"amount"`
	Currency      *string          `json:"currency"`
	Merchant      string           `json:"merchant"`
	PaymentMethod string           `json:"payment_method"`
	Note          string           `json:"note"`
	Direction     string           `json:"direction"`
	Category      string           `json:"category"`
}

// parseExpenses decodes the model's JSON object, tolerating prose around it
// but rejecting rows with missing required fields.
func parseExpenses(text string) ([]CandidateExpense, error) {
	jsonText := extractJSONObject(text)
	if jsonText == "" {
		return nil, newError(ErrSchemaViolation, "model output contained no JSON object", nil)
	}

	var wire struct {
		Expenses []wireExpense `json:"expenses"`
	}
	if err := json.Unmarshal([]byte(jsonText), &wire); err != nil {
		return nil, newError(ErrSchemaViolation, "model output is not a valid expenses object", err)
	}

	expenses := make([]CandidateExpense, 0, len(wire.Expenses))
	for i, w := range wire.Expenses {
		if w.LineIndex == nil || w.OccurredOn == nil || w.Amount == nil || w.Currency == nil {
			return nil, newError(ErrSchemaViolation,
				fmt.Sprintf("expense %d is missing a required field", i), nil)
		}
		expenses = append(expenses, CandidateExpense{
			Amount:        *w.Amount,
			Currency:      *w.Currency,
			Merchant:      w.Merchant,
			PaymentMethod: w.PaymentMethod,
			Note:          w.Note,
			OccurredOn:    *w.OccurredOn,
			Category:      w.Category,
			LineIndex:     *w.LineIndex,
			Direction:     w.Direction,
		})
	}
	return expenses, nil
}

// extractJSONObject returns the first balanced top-level JSON object in the
// text, stepping over braces inside string literals.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

var expenseSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"expenses": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"line_index":     map[string]interface{}{"type": "integer"},
					"occurred_on":    map[string]interface{}{"type": "string"},
					"amount":         map[string]interface{}{"type": "number"},
					"currency":       map[string]interface{}{"type": "string"},
					"merchant":       map[string]interface{}{"type": "string"},
					"payment_method": map[string]interface{}{"type": "string"},
					"note":           map[string]interface{}{"type": "string"},
					"direction":      map[string]interface{}{"type": "string"},
					"category":       map[string]interface{}{"type": "string"},
				},
				"required": []string{"line_index", "occurred_on", "amount", "currency"},
			},
		},
	},
	"required": []string{"expenses"},
}

func extractionPrompt(corpus string) string {
	return `You are reading one page of a bank or credit card statement. Each line below starts with its line number. Extract every transaction into a JSON object {"expenses": [...]}. Never include personal data, summaries or commentary.

For each transaction emit:
- "line_index": the number of the statement line the transaction appears on
- "occurred_on": the transaction date in YYYY-MM-DD form
- "amount": the signed amount as a number (no currency symbol)
- "currency": the ISO 4217 code (e.g. USD, EUR, INR)
- "merchant": the merchant or payee name, cleaned of reference codes
- "payment_method": how it was paid if stated (card, UPI, transfer), else ""
- "note": a short human-readable purpose, else ""
- "direction": "debit" if money left the account, "credit" if money came in, "" if unclear
- "category": a one-word spending category guess, else ""

Rules:
- Keep the output in the same order as the numbered lines. Do not sort or group.
- If a line shows two dates (transaction and posting), use the later posted date.
- Notes must never contain dates or statement boilerplate.
- Purchases are positive; refunds, credits, reversals and cashbacks are negative. Do not drop negative lines as noise.
- Identical-looking transactions on separate numbered lines are separate objects. Never merge or deduplicate them.
- If a transaction spans multiple lines, use the line_index of the first line.
- Skip opening/closing balances, running balance columns, totals, interest and fee summaries, and page headers or footers.
- Never invent transactions. If the page has none, return {"expenses": []}.

Statement page:
` + corpus
}
