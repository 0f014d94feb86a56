package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNetworkFailure matches every *NetworkFailure via errors.Is.
var ErrNetworkFailure = errors.New("network failure")

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport and timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a 2xx response whose body is not the expected JSON.
	ErrorClassDecode ErrorClass = "decode"
)

// NetworkFailure is returned for non-2xx responses, transport errors and
// undecodable bodies. No retry is attempted; the caller decides.
type NetworkFailure struct {
	Endpoint   string
	StatusCode int // 0 for transport errors
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *NetworkFailure) Error() string {
	msg := fmt.Sprintf("pokeapi %s error (status %d) on %s: %s",
		e.ErrorClass, e.StatusCode, e.Endpoint, e.Message)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Is reports ErrNetworkFailure so callers can match with errors.Is.
func (e *NetworkFailure) Is(target error) bool {
	return target == ErrNetworkFailure
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NetworkFailure) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var nf *NetworkFailure
	return errors.As(err, &nf) && nf.StatusCode == http.StatusNotFound
}

// classifyStatus categorizes a non-2xx status code.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		// 1xx and unexpected 3xx are treated as upstream misbehaviour.
		return ErrorClassServer
	}
}
