// Package server exposes the rxprice operations over HTTP.
//
// Every operation request goes through the wrapped tool.Registry, so HTTP,
// chat and MCP traffic share one cache, one set of rate-limit buckets and one
// usage tracker. Errors are rendered as {"error": message, "type": kind}
// with kind-specific extras (see APIError).
package server
