// Package cache provides deterministic result caching for named operations.
//
// It provides a Cache interface with an in-memory TTL implementation,
// SHA-256 fingerprints over canonicalized call arguments, TTL policies with
// per-operation overrides, and a tool.Middleware that serves hits without
// invoking the wrapped operation. Failed calls are never cached.
package cache
