// Package health reports the health of the rxprice components.
//
// A Checker reports one component; an Aggregator runs every registered
// checker in parallel under a deadline and folds the results into one
// status (unhealthy beats degraded beats healthy).
//
// Built-in checkers cover the search provider and its circuit breaker, the
// result cache, and the sweeper scheduler:
//
//	agg := health.NewAggregator()
//	agg.Register("search", health.NewSearchChecker(provider))
//	agg.Register("cache", health.NewCacheChecker(memCache))
//	agg.Register("sweeper", health.NewSweeperChecker(scheduler))
//	health.RegisterHandlers(mux, agg)
//
// RegisterHandlers mounts /healthz (liveness), /readyz (readiness) and
// /health (detailed JSON).
package health
