// Package search issues web searches against an external provider.
//
// The default provider is Tavily. Providers are wrapped in a circuit breaker
// (BreakerProvider) so that a failing upstream fails fast instead of holding
// rate-limit tokens and request goroutines.
package search
