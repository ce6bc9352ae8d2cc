package shopify

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	// ErrNoCart is returned by cart mutations when the session holds no cart id.
	ErrNoCart = errors.New("no cart in session")
	// ErrNoCartProvided is returned when the upstream omits the cart payload.
	ErrNoCartProvided = errors.New("no cart provided")
)

// UpstreamError is the first entry of a GraphQL errors array.
type UpstreamError struct {
	Cause   string
	Status  int
	Message string
	Query   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("shopify: %s (status %d, cause %s)", e.Message, e.Status, e.Cause)
}

func newUpstreamError(message, query string) *UpstreamError {
	return &UpstreamError{
		Cause:   "unknown",
		Status:  http.StatusInternalServerError,
		Message: message,
		Query:   query,
	}
}

// TransportError wraps a failure to reach the API or read its response.
type TransportError struct {
	Err   error
	Query string
}

func (e *TransportError) Error() string {
	return "shopify: request failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
