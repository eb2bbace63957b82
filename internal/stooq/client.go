// Package stooq fetches stock quotes from the stooq.com CSV endpoint.
package stooq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stockchat/internal/domain"
	"stockchat/internal/metrics"
)

// requestTimeout bounds a single upstream call. There is no retry; the user
// re-issues the command if the lookup fails.
const requestTimeout = 10 * time.Second

// closePriceColumn is the 0-based index of the close price in the CSV data
// row (Symbol,Date,Time,Open,High,Low,Close,Volume).
const closePriceColumn = 6

// Client implements domain.QuoteService against the stooq quote endpoint.
// All failures are encoded in the returned QuoteResult, never as an error
// crossing the component boundary.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// GetQuote issues one GET for the symbol and parses the two-line CSV reply.
func (c *Client) GetQuote(ctx context.Context, symbol string) domain.QuoteResult {
	start := time.Now()
	result := c.getQuote(ctx, symbol)
	metrics.QuoteRequestDuration.Observe(time.Since(start).Seconds())

	if result.IsSuccess {
		metrics.QuoteRequestsTotal.WithLabelValues("success").Inc()
		slog.Info("Stock quote fetched", "symbol", symbol, "price", result.Price)
	} else {
		metrics.QuoteRequestsTotal.WithLabelValues("error").Inc()
		slog.Warn("Stock quote fetch failed", "symbol", symbol, "error_detail", result.ErrorDetail)
	}
	return result
}

func (c *Client) getQuote(ctx context.Context, symbol string) domain.QuoteResult {
	quoteURL := fmt.Sprintf("%s/?s=%s&f=sd2t2ohlcv&h&e=csv", c.baseURL, url.QueryEscape(strings.ToLower(symbol)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, quoteURL, nil)
	if err != nil {
		return failure(symbol, fmt.Sprintf("network error: %v", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return failure(symbol, "request timed out")
		}
		return failure(symbol, fmt.Sprintf("network error: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure(symbol, fmt.Sprintf("provider returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(symbol, fmt.Sprintf("network error: %v", err))
	}

	return parseQuoteCSV(symbol, string(body))
}

// parseQuoteCSV extracts the close price from the two-line provider reply.
func parseQuoteCSV(symbol, csv string) domain.QuoteResult {
	if strings.TrimSpace(csv) == "" {
		return failure(symbol, "empty response from provider")
	}

	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) < 2 {
		return failure(symbol, "malformed response")
	}

	columns := strings.Split(strings.TrimSpace(lines[1]), ",")
	if len(columns) <= closePriceColumn {
		return failure(symbol, "malformed response")
	}

	priceText := strings.TrimSpace(columns[closePriceColumn])
	if priceText == "" || strings.EqualFold(priceText, "n/d") {
		return failure(symbol, "price not available")
	}

	price, err := strconv.ParseFloat(priceText, 64)
	if err != nil {
		return failure(symbol, "unable to parse price")
	}

	upper := strings.ToUpper(symbol)
	return domain.QuoteResult{
		Symbol:      upper,
		Price:       price,
		IsSuccess:   true,
		DisplayText: fmt.Sprintf("%s quote is $%.2f per share", upper, price),
	}
}

func failure(symbol, detail string) domain.QuoteResult {
	return domain.QuoteResult{
		Symbol:      strings.ToUpper(symbol),
		IsSuccess:   false,
		ErrorDetail: detail,
		DisplayText: fmt.Sprintf("%s quote is not available at this time.", strings.ToUpper(symbol)),
	}
}
