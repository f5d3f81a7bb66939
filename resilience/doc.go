// Package resilience provides the fault-tolerance primitives used by the
// generation providers.
//
//   - Retry: retries transient provider failures with exponential backoff
//   - CircuitBreaker: fails fast while a local inference server is down
//   - Bulkhead: bounds concurrent calls and doubles as the worker pool that
//     runs asynchronous and streaming completions
//   - RateLimiter: keeps cloud calls under a requests-per-minute quota
//
// Example: one guarded call
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("local"))
//	rl := resilience.NewRateLimiter(resilience.PerMinute("gemini", 15))
//
//	if err := rl.Wait(ctx); err != nil {
//	    return err
//	}
//	err := cb.Execute(func() error {
//	    _, err := client.Do(ctx, req)
//	    return err
//	})
package resilience
