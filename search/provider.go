package search

import (
	"context"
	"errors"
	"fmt"
)

// Search depths understood by Tavily.
const (
	DepthBasic    = "basic"
	DepthAdvanced = "advanced"
)

// DefaultMaxResults is used when Request.MaxResults is zero.
const DefaultMaxResults = 5

// Sentinel errors.
var (
	// ErrEmptyQuery is returned when a request has no query text.
	ErrEmptyQuery = errors.New("search: empty query")

	// ErrNotConfigured is returned by providers lacking credentials.
	ErrNotConfigured = errors.New("search: provider not configured")

	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("search: circuit open")
)

// PharmacyDomains are the price-comparison and retail pharmacy sites used to
// scope medication price queries.
var PharmacyDomains = []string{
	"goodrx.com",
	"walgreens.com",
	"cvs.com",
	"costco.com",
	"walmart.com",
	"pharmacychecker.com",
}

// DiscountDomains are discount-card and price-aggregator sites.
var DiscountDomains = []string{
	"goodrx.com",
	"wellrx.com",
	"drugs.com",
	"rxsaver.com",
	"singlecare.com",
	"needymeds.org",
}

// Request describes one search.
type Request struct {
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth,omitempty"`
	MaxResults        int      `json:"max_results,omitempty"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
	IncludeAnswer     bool     `json:"include_answer,omitempty"`
	IncludeRawContent bool     `json:"include_raw_content,omitempty"`
}

// Validate checks the request and fills defaults.
func (r *Request) Validate() error {
	if r.Query == "" {
		return ErrEmptyQuery
	}
	if r.SearchDepth == "" {
		r.SearchDepth = DepthBasic
	}
	if r.MaxResults <= 0 {
		r.MaxResults = DefaultMaxResults
	}
	return nil
}

// Result is one hit.
type Result struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	RawContent string  `json:"raw_content,omitempty"`
	Score      float64 `json:"score"`
}

// Response is the provider's answer.
type Response struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer,omitempty"`
	Results []Result `json:"results"`
}

// Provider runs searches.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation.
type Provider interface {
	Name() string
	Search(ctx context.Context, req Request) (*Response, error)
}

// HTTPError is returned for a non-2xx response from a provider.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("search: %s returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("search: %s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}
