// Package resilience holds the failure-handling building blocks for
// calls that leave the process: circuit breakers and retry with
// backoff. External sites and APIs fail often enough that every
// outbound call path goes through one or both.
//
// Example:
//
//	cb := circuitbreaker.New(circuitbreaker.DefaultConfig("archive"))
//	_, err := cb.Execute(func() (interface{}, error) {
//	    return fetchPage()
//	})
//
//	err = retry.WithBackoff(ctx, retry.DefaultConfig(), func() error {
//	    return fetchBody()
//	})
package resilience
