package fetcher

import (
	"context"
	"time"
)

// Param is one query parameter. Params keep their order on the wire.
type Param struct {
	Name  string
	Value string
}

// Request is a fetch target: an absolute URL or a path joined against the base URL
type Request struct {
	url    string
	params []Param
}

// NewRequest builds an immutable Request
func NewRequest(rawURL string, params ...Param) Request {
	p := make([]Param, len(params))
	copy(p, params)
	return Request{url: rawURL, params: p}
}

// URL returns the unresolved target
func (r Request) URL() string { return r.url }

// Params returns a copy of the query parameters
func (r Request) Params() []Param {
	p := make([]Param, len(r.params))
	copy(p, r.params)
	return p
}

// Kind tags an Outcome
type Kind int

const (
	KindSuccess Kind = iota
	KindBlocked
	KindTransportFailure
	KindExhausted
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindBlocked:
		return "blocked"
	case KindTransportFailure:
		return "transport_failure"
	case KindExhausted:
		return "exhausted"
	}
	return "unknown"
}

// Outcome is the result of a single attempt or of a whole logical fetch.
// Fetch only ever returns KindSuccess or KindExhausted.
type Outcome struct {
	Kind       Kind
	Body       string
	StatusCode int
	// Reason describes the last failure for TransportFailure and Exhausted
	Reason string
	// Attempts is the number of HTTP attempts made
	Attempts int
}

// OK reports whether the fetch produced a usable document
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

// RetryPolicy bounds a single logical fetch
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int
	BaseDelay  time.Duration
}

// Sleeper waits between attempts; tests replace it to avoid real delays
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SystemSleeper returns a Sleeper backed by real timers that honours cancellation
func SystemSleeper() Sleeper {
	return realSleeper{}
}
