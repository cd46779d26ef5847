// Package reliability implements the retry engine used by every HAmq
// operation.
//
// Operations are retried until they succeed or fail with an error that is
// not retryable. Between attempts the calling goroutine sleeps with
// exponential backoff:
//
//	delay(1) = InitialDelay
//	delay(n) = min(delay(n-1) * DelayMultiplier, MaxDelay)
//
// An error is retryable when the policy retries everything or when
// IsNetworkError classifies it as a connection-level failure. Policies may
// carry an error hook, invoked once per retryable failure before sleeping;
// the hamq package uses it to reset channels whose transport died.
//
// There is no cancellation: the retry count is unbounded and only the
// per-attempt delay is capped.
package reliability
