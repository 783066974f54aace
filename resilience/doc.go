// Package resilience provides per-operation rate limiting and timeouts for
// named operations.
//
// # Patterns
//
//   - Token Bucket: a continuously refilled, capacity-capped pool of tokens.
//     Acquire either deducts the full cost or nothing.
//
//   - Limiter: a fixed table of token buckets keyed by operation name, with
//     a shared default bucket for names not in the table.
//
//   - Timeout: ensures operations complete within a time limit.
//
// # Usage
//
//	limiter := resilience.NewLimiter(resilience.DefaultLimits())
//
//	executor := resilience.NewExecutor(
//	    resilience.WithLimiter(limiter),
//	    resilience.WithTimeout(30*time.Second),
//	)
//
//	wrapped := executor.Middleware()(searchOperation)
//
// A rejected call returns a *RateLimitError without reaching the wrapped
// operation. It matches ErrRateLimitExceeded under errors.Is and carries a
// retry-after hint of 1/rate seconds.
package resilience
