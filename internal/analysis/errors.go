package analysis

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindRateLimited   ErrorKind = "rate_limited"
	KindServer        ErrorKind = "server"
	KindTimeout       ErrorKind = "timeout"
	KindTransport     ErrorKind = "transport"
	KindAuth          ErrorKind = "auth"
	KindBadRequest    ErrorKind = "bad_request"
	KindEmptyResponse ErrorKind = "empty_response"
)

// ServiceError is a classified failure of the analysis service.
type ServiceError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("analysis service %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("analysis service %s: %v", e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed.
func (e *ServiceError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindServer, KindTimeout, KindTransport:
		return true
	default:
		return false
	}
}

// classifyStatus maps a non-2xx HTTP status to a ServiceError.
func classifyStatus(status int, body string) *ServiceError {
	err := errors.New(body)
	switch {
	case status == http.StatusTooManyRequests:
		return &ServiceError{Kind: KindRateLimited, StatusCode: status, Err: err}
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return &ServiceError{Kind: KindTimeout, StatusCode: status, Err: err}
	case status >= http.StatusInternalServerError:
		return &ServiceError{Kind: KindServer, StatusCode: status, Err: err}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &ServiceError{Kind: KindAuth, StatusCode: status, Err: err}
	default:
		return &ServiceError{Kind: KindBadRequest, StatusCode: status, Err: err}
	}
}
