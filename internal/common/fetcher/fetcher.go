package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"

	"github.com/project-tktt/indeed-crawler/internal/common/blocker"
	"github.com/project-tktt/indeed-crawler/internal/metrics"
)

// Browser-like headers sent with every request
const (
	acceptHeader         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	acceptLanguageHeader = "en-US,en;q=0.5"
)

// Config holds fetcher settings
type Config struct {
	// BaseURL resolves relative request paths
	BaseURL   string
	UserAgent string
}

// Fetcher performs GETs with block detection and bounded retries
type Fetcher struct {
	transport Transport
	detector  *blocker.Detector
	baseURL   *url.URL
	header    http.Header
	logger    *slog.Logger
	metrics   *metrics.Metrics
	sleeper   Sleeper
	jitter    func() float64
}

// Option customizes a Fetcher
type Option func(*Fetcher)

// WithSleeper replaces the real backoff timer
func WithSleeper(s Sleeper) Option {
	return func(f *Fetcher) { f.sleeper = s }
}

// WithJitter replaces the random source for backoff jitter; fn must return values in [0,1)
func WithJitter(fn func() float64) Option {
	return func(f *Fetcher) { f.jitter = fn }
}

// WithMetrics records attempts and outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// New creates a Fetcher
func New(transport Transport, detector *blocker.Detector, cfg Config, logger *slog.Logger, opts ...Option) (*Fetcher, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", cfg.BaseURL)
	}
	if detector == nil {
		detector = blocker.NewDetector()
	}
	if logger == nil {
		logger = slog.Default()
	}

	header := make(http.Header)
	header.Set("User-Agent", cfg.UserAgent)
	header.Set("Accept", acceptHeader)
	header.Set("Accept-Language", acceptLanguageHeader)
	header.Set("Connection", "keep-alive")
	header.Set("DNT", "1")

	f := &Fetcher{
		transport: transport,
		detector:  detector,
		baseURL:   base,
		header:    header,
		logger:    logger,
		sleeper:   SystemSleeper(),
		jitter:    rand.Float64,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch retrieves req, retrying blocked and failed attempts per policy.
// The Outcome is always KindSuccess or KindExhausted. A non-nil error is
// returned only when ctx is cancelled or req cannot be resolved.
func (f *Fetcher) Fetch(ctx context.Context, req Request, policy RetryPolicy) (Outcome, error) {
	target, err := f.Resolve(req)
	if err != nil {
		return Outcome{Kind: KindExhausted, Reason: err.Error()}, err
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Outcome{Kind: KindExhausted, Reason: err.Error(), Attempts: attempt}, err
		}

		out := f.attempt(ctx, target)
		out.Attempts = attempt + 1
		if err := ctx.Err(); err != nil && out.Kind != KindSuccess {
			return Outcome{Kind: KindExhausted, Reason: err.Error(), Attempts: attempt + 1}, err
		}

		switch out.Kind {
		case KindBlocked:
			f.logger.Warn("[Fetcher] Blocked by HTML", "url", target, "retryCount", attempt+1)
		case KindTransportFailure:
			f.logger.Error("[Fetcher] Request failed", "url", target, "error", out.Reason, "retryCount", attempt+1)
		}

		switch Next(out.Kind, attempt, policy.MaxRetries) {
		case StateSucceeded:
			f.metrics.FetchOutcome(KindSuccess.String())
			return out, nil

		case StateBackoff:
			delay := BackoffDelay(policy.BaseDelay, f.jitter())
			f.logger.Debug("[Fetcher] Backing off", "url", target, "delay", delay)
			if err := f.sleeper.Sleep(ctx, delay); err != nil {
				return Outcome{Kind: KindExhausted, Reason: err.Error(), Attempts: attempt + 1}, err
			}

		default:
			f.metrics.FetchOutcome(KindExhausted.String())
			f.logger.Error("[Fetcher] Giving up", "url", target, "attempts", attempt+1, "last", out.Kind.String())
			reason := out.Reason
			if reason == "" {
				reason = out.Kind.String()
			}
			return Outcome{
				Kind:       KindExhausted,
				StatusCode: out.StatusCode,
				Reason:     reason,
				Attempts:   attempt + 1,
			}, nil
		}
	}
}

// attempt performs one GET and classifies it
func (f *Fetcher) attempt(ctx context.Context, target string) Outcome {
	resp, err := f.transport.Get(ctx, target, f.header.Clone())
	if err != nil {
		f.metrics.FetchAttempt(metrics.AttemptTransportFailure)
		return Outcome{Kind: KindTransportFailure, Reason: err.Error()}
	}

	body := string(resp.Body)
	if f.detector.IsBlocked(body) {
		f.metrics.FetchAttempt(metrics.AttemptBlocked)
		return Outcome{Kind: KindBlocked, StatusCode: resp.StatusCode, Reason: "blocked by anti-bot page"}
	}

	// Non-2xx responses are passed through; the caller decides what a 404 means
	f.metrics.FetchAttempt(metrics.AttemptSuccess)
	return Outcome{Kind: KindSuccess, Body: body, StatusCode: resp.StatusCode}
}

// Resolve turns req into the absolute URL that will be requested
func (f *Fetcher) Resolve(req Request) (string, error) {
	ref, err := url.Parse(req.URL())
	if err != nil {
		return "", fmt.Errorf("parse request url: %w", err)
	}
	u := f.baseURL.ResolveReference(ref)

	if len(req.params) > 0 {
		var b strings.Builder
		b.WriteString(u.RawQuery)
		for _, p := range req.params {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(p.Name))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(p.Value))
		}
		u.RawQuery = b.String()
	}
	return u.String(), nil
}
