package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// CollyTransport is a Transport backed by a colly collector. Retries,
// block detection and pacing stay in Fetcher; colly only moves bytes.
type CollyTransport struct {
	collector *colly.Collector
}

// NewCollyTransport creates a colly-based transport
func NewCollyTransport(userAgent string, timeout time.Duration) *CollyTransport {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(timeout)
	c.ParseHTTPErrorResponse = true

	return &CollyTransport{collector: c}
}

func (t *CollyTransport) Get(ctx context.Context, rawURL string, header http.Header) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collector := t.collector.Clone()
	collector.ParseHTTPErrorResponse = true
	// Requests are built with this context, so cancelling ctx aborts them
	collector.Context = ctx

	var resp *Response
	collector.OnResponse(func(r *colly.Response) {
		resp = &Response{StatusCode: r.StatusCode, Body: r.Body}
	})

	err := collector.Request(http.MethodGet, rawURL, nil, nil, header.Clone())
	if resp != nil {
		return resp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("visit url: %w", err)
	}
	return nil, errors.New("visit url: no response")
}
