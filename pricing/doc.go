// Package pricing implements the medication-price operations.
//
// Each operation turns typed input into one or more web searches and mines
// the free-text results with regular expressions. Extracted prices are hints
// scraped from search snippets; nothing here is authoritative.
//
// Operations are exposed as tool.Func values (see Service.Tools) so that the
// cache, rate limiter, usage tracker and observability middleware can be
// layered on uniformly.
package pricing
