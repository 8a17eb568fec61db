// Package fx fetches foreign exchange rates so extracted expenses in a
// foreign currency can be shown in the user's home currency.
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// Client fetches latest rates from a Frankfurter-compatible API and
// caches them, since reference rates only change once a day.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
}

// NewClient builds a rate client for the given API base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache.New(time.Hour, 10*time.Minute),
	}
}

// Rates holds the latest conversion rates out of a base currency.
type Rates struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// Latest returns the current rates for the given base currency, serving
// from cache when fresh.
func (c *Client) Latest(ctx context.Context, base string) (*Rates, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		base = "USD"
	}
	if v, ok := c.cache.Get(base); ok {
		return v.(*Rates), nil
	}

	url := fmt.Sprintf("%s/latest?from=%s", c.baseURL, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rates API returned HTTP %d: %s", resp.StatusCode, body)
	}

	var rates Rates
	if err := json.NewDecoder(resp.Body).Decode(&rates); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	c.cache.SetDefault(base, &rates)
	return &rates, nil
}

// Convert converts an amount between two currencies using the latest
// rates. Same-currency conversions return the amount unchanged.
func (c *Client) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		return amount, nil
	}

	rates, err := c.Latest(ctx, from)
	if err != nil {
		return decimal.Zero, err
	}
	rate, ok := rates.Rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate from %s to %s", from, to)
	}
	return amount.Mul(rate).Round(2), nil
}
