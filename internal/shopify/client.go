package shopify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/machinebox/graphql"
	"go.uber.org/zap"
)

const (
	// AccessTokenHeader authenticates Storefront API requests.
	AccessTokenHeader = "X-Shopify-Storefront-Access-Token"

	graphQLErrorPrefix = "graphql: "
	nonOKStatusMessage = "server returned a non-200 status code"
)

type Log interface {
	Debug(string, ...zap.Field)
	Info(string, ...zap.Field)
	Warn(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// Client sends documents to a single Storefront API endpoint.
type Client struct {
	gql      *graphql.Client
	endpoint string
	token    string
	log      Log
}

type Option func(*http.Client)

// WithHTTPClient replaces the transport settings of the underlying client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *http.Client) {
		*c = *hc
	}
}

// Endpoint returns the GraphQL URL for a store domain and API version.
func Endpoint(domain, version string) string {
	return fmt.Sprintf("%s/api/%s/graphql.json", strings.TrimSuffix(domain, "/"), version)
}

// NewClient builds a client for domain. An empty domain or token is not
// rejected here; the request will simply fail upstream.
func NewClient(domain, version, token string, log Log, opts ...Option) *Client {
	return NewEndpointClient(Endpoint(domain, version), token, log, opts...)
}

// NewEndpointClient builds a client for a full GraphQL URL.
func NewEndpointClient(endpoint, token string, log Log, opts ...Option) *Client {
	hc := &http.Client{}
	for _, opt := range opts {
		opt(hc)
	}
	next := hc.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	hc.Transport = statusRecorder{next: next}

	gql := graphql.NewClient(endpoint, graphql.WithHTTPClient(hc))
	gql.Log = func(s string) {
		log.Debug(s, zap.String("endpoint", endpoint))
	}

	return &Client{
		gql:      gql,
		endpoint: endpoint,
		token:    token,
		log:      log,
	}
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Request is a single GraphQL operation.
type Request struct {
	Operation string
	Query     string
	Variables map[string]interface{}
	Headers   http.Header
}

type Body[T any] struct {
	Data T `json:"data"`
}

type Result[T any] struct {
	Status int
	Body   Body[T]
}

// Fetch posts r and decodes the data payload into T. GraphQL errors come
// back as *UpstreamError, everything else as *TransportError.
func Fetch[T any](ctx context.Context, c *Client, r Request) (*Result[T], error) {
	req := graphql.NewRequest(r.Query)
	for k, v := range r.Variables {
		req.Var(k, v)
	}
	req.Header.Set(AccessTokenHeader, c.token)
	for k, values := range r.Headers {
		// machinebox sets Content-Type itself and appends ours after it
		if http.CanonicalHeaderKey(k) == "Content-Type" {
			continue
		}
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	status := new(int)
	ctx = context.WithValue(ctx, statusKey{}, status)

	start := time.Now()
	var data T
	err := c.gql.Run(ctx, req, &data)
	fields := []zap.Field{
		zap.String("operation", r.Operation),
		zap.Int("status", *status),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		err = classify(err, r.Query, *status)
		c.log.Warn("storefront request failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	c.log.Debug("storefront request", fields...)

	return &Result[T]{
		Status: *status,
		Body:   Body[T]{Data: data},
	}, nil
}

// Query is Fetch reduced to its data payload.
func Query[T any](ctx context.Context, c *Client, r Request) (T, error) {
	res, err := Fetch[T](ctx, c, r)
	if err != nil {
		var zero T
		return zero, err
	}
	return res.Body.Data, nil
}

func classify(err error, query string, status int) error {
	msg := err.Error()
	if status == 0 || !strings.HasPrefix(msg, graphQLErrorPrefix) || strings.Contains(msg, nonOKStatusMessage) {
		return &TransportError{Err: err, Query: query}
	}
	ue := newUpstreamError(strings.TrimPrefix(msg, graphQLErrorPrefix), query)
	if status >= http.StatusBadRequest {
		ue.Status = status
	}
	return ue
}

type statusKey struct{}

// statusRecorder copies the response status into the *int carried by the
// request context.
type statusRecorder struct {
	next http.RoundTripper
}

func (s statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	res, err := s.next.RoundTrip(req)
	if err == nil {
		if p, ok := req.Context().Value(statusKey{}).(*int); ok {
			*p = res.StatusCode
		}
	}
	return res, err
}
