package http

import (
	"context"
	"net/http"
)

// HTTPClient defines the interface for HTTP client operations.
type HTTPClient interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
	Get(ctx context.Context, url string) (*http.Response, error)
	DoJSON(ctx context.Context, req *http.Request, v interface{}) error
	GetJSON(ctx context.Context, url string, v interface{}) error
	PostJSON(ctx context.Context, url string, body interface{}, v interface{}) error
}

// JSONGetter is the subset used by key fetchers.
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, v interface{}) error
}

var _ HTTPClient = (*Client)(nil)
