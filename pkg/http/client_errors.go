package http

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed exchange.
type ErrorKind int

const (
	ErrorKindUnknown ErrorKind = iota
	// ErrorKindResponse: the server answered with a non-2xx status.
	ErrorKindResponse
	// ErrorKindNoResponse: the request went out but nothing came back.
	ErrorKindNoResponse
	// ErrorKindRequest: the request was never sent.
	ErrorKindRequest
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindResponse:
		return "response"
	case ErrorKindNoResponse:
		return "no_response"
	case ErrorKindRequest:
		return "request"
	default:
		return "unknown"
	}
}

// ResponseError is a completed exchange with a non-2xx status.
type ResponseError struct {
	Response *Response
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Response.StatusCode, http.StatusText(e.Response.StatusCode))
}

// StatusCode returns the HTTP status the server answered with.
func (e *ResponseError) StatusCode() int { return e.Response.StatusCode }

// NoResponseError is a request that was sent without a response arriving,
// including client timeouts.
type NoResponseError struct {
	Options *RequestOptions
	Request *http.Request
	Err     error
}

func (e *NoResponseError) Error() string {
	return fmt.Sprintf("no response from %s: %v", e.Request.URL.Redacted(), e.Err)
}

func (e *NoResponseError) Unwrap() error { return e.Err }

// Timeout reports whether the transport gave up waiting.
func (e *NoResponseError) Timeout() bool {
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// RequestError is a request that could not be built or was rejected by a
// request interceptor.
type RequestError struct {
	Options *RequestOptions
	Err     error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request error: %v", e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Classify returns which of the three failure kinds err is.
func Classify(err error) ErrorKind {
	var respErr *ResponseError
	var noRespErr *NoResponseError
	var reqErr *RequestError
	switch {
	case err == nil:
		return ErrorKindUnknown
	case errors.As(err, &respErr):
		return ErrorKindResponse
	case errors.As(err, &noRespErr):
		return ErrorKindNoResponse
	case errors.As(err, &reqErr):
		return ErrorKindRequest
	default:
		return ErrorKindUnknown
	}
}

// StatusCode extracts the HTTP status from a *ResponseError, or 0.
func StatusCode(err error) int {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode()
	}
	return 0
}
