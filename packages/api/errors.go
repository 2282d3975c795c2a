package api

import (
	"errors"
	"fmt"

	harnesshttp "github.com/uv1406/harness/packages/http"
)

// Kind classifies a request failure.
type Kind string

const (
	KindTransport     Kind = "transport"
	KindExhausted     Kind = "exhausted"
	KindIllegalMethod Kind = "illegal-method"
)

// ErrRequestFailed is matched by every RequestFailure.
var ErrRequestFailed = errors.New("request failed")

// RequestFailure reports a request that produced no usable response.
type RequestFailure struct {
	Kind     Kind
	Method   string
	Endpoint string
	Attempts int
	// Last is the final retryable response for KindExhausted.
	Last  *harnesshttp.Response
	Cause error
}

func (e *RequestFailure) Error() string {
	switch e.Kind {
	case KindIllegalMethod:
		return fmt.Sprintf("%s %s: unsupported HTTP method", e.Method, e.Endpoint)
	case KindExhausted:
		status := 0
		if e.Last != nil {
			status = e.Last.StatusCode
		}
		return fmt.Sprintf("%s %s: retries exhausted after %d attempts (last status %d)", e.Method, e.Endpoint, e.Attempts, status)
	default:
		return fmt.Sprintf("%s %s: transport failure after %d attempts: %v", e.Method, e.Endpoint, e.Attempts, e.Cause)
	}
}

func (e *RequestFailure) Unwrap() error { return e.Cause }

func (e *RequestFailure) Is(target error) bool {
	return target == ErrRequestFailed
}

// IsKind reports whether err is a RequestFailure of kind k.
func IsKind(err error, k Kind) bool {
	var f *RequestFailure
	return errors.As(err, &f) && f.Kind == k
}
