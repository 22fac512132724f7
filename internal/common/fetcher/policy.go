package fetcher

import "time"

// State of one logical fetch
type State int

const (
	StateAttempting State = iota
	StateBackoff
	StateSucceeded
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateBackoff:
		return "backoff"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	}
	return "unknown"
}

// Next decides what follows an attempt. attempt is 0-based: the first
// request is attempt 0, so a fetch makes at most maxRetries+1 attempts.
// Blocked and transport failures are retried identically.
func Next(kind Kind, attempt, maxRetries int) State {
	switch kind {
	case KindSuccess:
		return StateSucceeded
	case KindBlocked, KindTransportFailure:
		if attempt < maxRetries {
			return StateBackoff
		}
		return StateExhausted
	default:
		return StateExhausted
	}
}

// BackoffDelay is linear backoff with multiplicative jitter: base*(1+r).
// r is clamped to [0,1].
func BackoffDelay(base time.Duration, r float64) time.Duration {
	if base <= 0 {
		return 0
	}
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	return base + time.Duration(float64(base)*r)
}
