package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// HTTPError is returned by the API client for any request that did not
// produce a usable 2xx response. StatusCode is 0 when no response arrived.
type HTTPError struct {
	Type       ErrorType
	StatusCode int
	URL        string
	Body       string
	Message    string
	// Err is the underlying cause, if any
	Err error
}

func (e *HTTPError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s error: %s (url: %s)", e.Type, e.Message, e.URL)
	}
	return fmt.Sprintf("%s error (code %d): %s (url: %s)", e.Type, e.StatusCode, e.Message, e.URL)
}

// Unwrap returns the underlying cause
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewStatusError builds an HTTPError for a non-success response.
func NewStatusError(statusCode int, url, body string) *HTTPError {
	return &HTTPError{
		Type:       ClassifyStatus(statusCode),
		StatusCode: statusCode,
		URL:        url,
		Body:       body,
		Message:    fmt.Sprintf("unexpected status %d %s", statusCode, http.StatusText(statusCode)),
	}
}

// NewNetworkError wraps a transport failure.
func NewNetworkError(url string, err error) *HTTPError {
	return &HTTPError{
		Type:    ErrorTypeNetwork,
		URL:     url,
		Message: err.Error(),
		Err:     err,
	}
}

// NewParsingError wraps a response decoding failure.
func NewParsingError(statusCode int, url string, err error) *HTTPError {
	return &HTTPError{
		Type:       ErrorTypeParsing,
		StatusCode: statusCode,
		URL:        url,
		Message:    fmt.Sprintf("failed to parse JSON: %v", err),
		Err:        err,
	}
}

// ClassifyStatus maps an HTTP status code to an ErrorType
func ClassifyStatus(statusCode int) ErrorType {
	switch {
	case statusCode == 0:
		return ErrorTypeNetwork
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return ErrorTypeAuth
	case statusCode == http.StatusNotFound:
		return ErrorTypeNotFound
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}

// IsSuccess reports whether a status code is in the 2xx range
func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// AsHTTPError unwraps err into an *HTTPError if one is in the chain
func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// IsAuth reports whether err is an authentication failure (401 or 403)
func IsAuth(err error) bool {
	httpErr, ok := AsHTTPError(err)
	return ok && httpErr.Type == ErrorTypeAuth
}
