package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonwraymond/rxprice/observe"
)

const (
	// DefaultTavilyURL is the Tavily search endpoint.
	DefaultTavilyURL = "https://api.tavily.com/search"

	maxSearchBodySize = 512 * 1024
	maxErrorBodySize  = 256
	defaultTimeout    = 15 * time.Second
)

// TavilyProvider searches via the Tavily REST API.
type TavilyProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  observe.Logger
}

// TavilyOption configures a TavilyProvider.
type TavilyOption func(*TavilyProvider)

// WithBaseURL overrides the endpoint.
func WithBaseURL(u string) TavilyOption {
	return func(p *TavilyProvider) {
		if u != "" {
			p.baseURL = u
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) TavilyOption {
	return func(p *TavilyProvider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) TavilyOption {
	return func(p *TavilyProvider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewTavilyProvider creates a Tavily client. An empty apiKey is allowed; every
// search then fails with ErrNotConfigured.
func NewTavilyProvider(apiKey string, opts ...TavilyOption) *TavilyProvider {
	p := &TavilyProvider{
		apiKey:  apiKey,
		baseURL: DefaultTavilyURL,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *TavilyProvider) Name() string { return "tavily" }

// Configured reports whether an API key is present.
func (p *TavilyProvider) Configured() bool { return p.apiKey != "" }

type tavilyRequest struct {
	APIKey string `json:"api_key"`
	Request
}

// Search implements Provider.
func (p *TavilyProvider) Search(ctx context.Context, req Request) (*Response, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(tavilyRequest{APIKey: p.apiKey, Request: req})
	if err != nil {
		return nil, fmt.Errorf("search: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("search: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search: tavily request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &HTTPError{
			Provider:   p.Name(),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBodySize))
	if err != nil {
		return nil, fmt.Errorf("search: read response: %w", err)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("search: decode response: %w", err)
	}
	if out.Query == "" {
		out.Query = req.Query
	}

	p.logger.Debug(ctx, "tavily search completed",
		observe.F("query", req.Query),
		observe.F("results", len(out.Results)),
		observe.F("duration_ms", time.Since(start).Milliseconds()),
	)
	return &out, nil
}

var _ Provider = (*TavilyProvider)(nil)
