package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Response is the raw result of one HTTP exchange
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport performs a single GET. A returned error means no response was
// received (DNS, TCP, TLS, timeout); non-2xx statuses are not errors.
type Transport interface {
	Get(ctx context.Context, rawURL string, header http.Header) (*Response, error)
}

// HTTPTransport is a Transport over a shared net/http client
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport whose client is reused across requests.
// It keeps the default dialer, TLS and pooling settings, proxies included.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
	}
}

func (t *HTTPTransport) Get(ctx context.Context, rawURL string, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
