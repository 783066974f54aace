// Package usage records per-operation invocation timestamps and reports
// request counts and rates over a trailing window.
//
// Samples are held in memory only. A periodic Prune bounds memory growth.
package usage
