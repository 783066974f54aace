// Package tool defines the operation model shared by the cache, rate limiter,
// usage tracker and observability middleware.
//
// An operation is any named, context-aware function of positional and keyword
// arguments. Cross-cutting behavior is layered on with Middleware and Chain:
//
//	wrapped := tool.Chain(
//	    observeMW,   // outermost
//	    usageMW,
//	    cacheMW,
//	    rateLimitMW, // innermost
//	)(upstream)
package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownOperation is returned by Registry.Invoke for unregistered names.
var ErrUnknownOperation = errors.New("tool: unknown operation")

// Call identifies one invocation of a named operation.
type Call struct {
	// Name is the logical operation name (e.g. "search_medication_price").
	Name string

	// Args are ordered positional arguments.
	Args []any

	// Kwargs are keyword arguments. Ordering is irrelevant.
	Kwargs map[string]any
}

// Kwarg returns a keyword argument, or nil when absent.
func (c Call) Kwarg(key string) any {
	if c.Kwargs == nil {
		return nil
	}
	return c.Kwargs[key]
}

// Func is the signature of an operation.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines.
// - Errors: returned unchanged by every middleware in this module.
type Func func(ctx context.Context, call Call) (any, error)

// Middleware decorates a Func.
type Middleware func(next Func) Func

// Chain composes middleware so that the first argument is the outermost
// wrapper and the last is closest to the wrapped operation.
func Chain(mws ...Middleware) Middleware {
	return func(next Func) Func {
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] == nil {
				continue
			}
			next = mws[i](next)
		}
		return next
	}
}

// Registry maps operation names to wrapped operations.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Func)}
}

// Register adds or replaces an operation.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" || fn == nil {
		return fmt.Errorf("tool: invalid registration for %q", name)
	}
	r.mu.Lock()
	r.ops[name] = fn
	r.mu.Unlock()
	return nil
}

// Lookup returns the operation registered under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	fn, ok := r.ops[name]
	r.mu.RUnlock()
	return fn, ok
}

// Names returns registered operation names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the operation named by call.Name.
func (r *Registry) Invoke(ctx context.Context, call Call) (any, error) {
	fn, ok := r.Lookup(call.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, call.Name)
	}
	return fn(ctx, call)
}
