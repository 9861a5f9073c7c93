package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrInvalidConfig is returned by New for an unusable Config.
	ErrInvalidConfig = errors.New("invalid client config")
)

// ErrorClass represents a classification of transport errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// FetchError is a transport-level failure: the API was unreachable, timed
// out or answered with a non-2xx status.
type FetchError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Class      ErrorClass
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s error (status %d): %v", e.URL, e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s error: %v", e.URL, e.Class, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the API answered 404.
func (e *FetchError) NotFound() bool {
	return e.StatusCode == 404
}

// DecodeError means a payload did not match the requested resource shape.
type DecodeError struct {
	Type string
	URL  string
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s as %s: %v", e.URL, e.Type, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NoReferenceError is returned when a reference extractor finds no
// reference on the loaded source resource.
type NoReferenceError struct {
	Source string // key of the source resource
	Target string // kind that was to be loaded
}

// Error implements the error interface.
func (e *NoReferenceError) Error() string {
	return fmt.Sprintf("%s has no reference to %s", e.Source, e.Target)
}

// CacheStateError reports a cached value whose type does not match the
// requested one. It indicates a programming error, such as fetching the
// same URL as two different resource shapes.
type CacheStateError struct {
	Key  string
	Want string
	Got  string
}

// Error implements the error interface.
func (e *CacheStateError) Error() string {
	return fmt.Sprintf("cache entry %s holds %s, want %s", e.Key, e.Got, e.Want)
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// 4xx other than 429 will not change on retry
		return false
	}
}
