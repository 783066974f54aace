package search

import (
	"context"
	"strings"
	"sync"
)

// StaticProvider answers every search from a fixed result set. It backs
// offline mode and tests.
type StaticProvider struct {
	mu       sync.Mutex
	results  []Result
	answer   string
	err      error
	requests []Request
}

// NewStaticProvider returns a provider that always yields results.
func NewStaticProvider(results ...Result) *StaticProvider {
	return &StaticProvider{results: results}
}

// SetAnswer sets the synthesized answer returned with each response.
func (p *StaticProvider) SetAnswer(answer string) {
	p.mu.Lock()
	p.answer = answer
	p.mu.Unlock()
}

// SetError makes subsequent searches fail with err. Nil clears it.
func (p *StaticProvider) SetError(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// Requests returns the requests seen so far.
func (p *StaticProvider) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Request(nil), p.requests...)
}

// Name implements Provider.
func (p *StaticProvider) Name() string { return "static" }

// Search implements Provider. Results are filtered by IncludeDomains and
// truncated to MaxResults.
func (p *StaticProvider) Search(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}

	out := &Response{Query: req.Query, Answer: p.answer}
	for _, r := range p.results {
		if !matchesDomains(r.URL, req.IncludeDomains) {
			continue
		}
		out.Results = append(out.Results, r)
		if len(out.Results) == req.MaxResults {
			break
		}
	}
	return out, nil
}

func matchesDomains(url string, domains []string) bool {
	if len(domains) == 0 {
		return true
	}
	for _, d := range domains {
		if strings.Contains(url, d) {
			return true
		}
	}
	return false
}

var _ Provider = (*StaticProvider)(nil)
