package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorClass represents a classification of upstream failures.
type ErrorClass string

const (
	// ErrorClassAuth represents 401/403 responses.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassNotFound represents 404 responses.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassServer represents 500 responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassGateway represents 502/503/504 responses.
	ErrorClassGateway ErrorClass = "gateway"

	// ErrorClassGeneric represents any other non-2xx response.
	ErrorClassGeneric ErrorClass = "generic"

	// ErrorClassNetwork represents transport failures (DNS, refused, reset).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassTimeout represents a call that exceeded its deadline.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassCanceled represents a call whose caller went away.
	ErrorClassCanceled ErrorClass = "canceled"

	// ErrorClassDecode represents a 2xx response with an unusable body.
	ErrorClassDecode ErrorClass = "decode"
)

// FetchError describes why one resource could not be loaded.
type FetchError struct {
	Resource   string
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s error", e.Resource, e.Class)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// classifyStatus maps a non-2xx status code to an error class.
func classifyStatus(code int) ErrorClass {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrorClassAuth
	case http.StatusNotFound:
		return ErrorClassNotFound
	case http.StatusInternalServerError:
		return ErrorClassServer
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrorClassGateway
	default:
		return ErrorClassGeneric
	}
}

// classifyTransport maps an error returned by the HTTP client to an error class.
func classifyTransport(err error) ErrorClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrorClassCanceled
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorClassTimeout
	}
	return ErrorClassNetwork
}

// upstreamError is the error envelope the content API returns with non-2xx responses.
type upstreamError struct {
	Error struct {
		Status  int    `json:"status"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

// upstreamMessage extracts the upstream error message from body, falling
// back to the HTTP status text.
func upstreamMessage(code int, body []byte) string {
	var env upstreamError
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		if env.Error.Name != "" {
			return env.Error.Name + ": " + env.Error.Message
		}
		return env.Error.Message
	}
	if text := http.StatusText(code); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", code)
}
