// Package ratelimit gates outgoing PokeAPI requests so a client stays within
// the API's fair-use policy.
package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// State is a snapshot of a Limiter.
type State struct {
	// Limit is the sustained rate in requests per second (rate.Inf when unlimited).
	Limit float64 `json:"limit"`

	// Burst is the number of requests allowed at once.
	Burst int `json:"burst"`

	// Tokens is the number of requests that can be sent right now.
	Tokens float64 `json:"tokens"`
}

// Unlimited reports whether the limiter lets every request through.
func (s State) Unlimited() bool {
	return rate.Limit(s.Limit) == rate.Inf
}

// IsThrottled returns true if the next request would have to wait.
func (s State) IsThrottled() bool {
	return !s.Unlimited() && s.Tokens < 1
}

// TimeUntilToken returns how long the next request would wait.
// Returns 0 if a token is available.
func (s State) TimeUntilToken() time.Duration {
	if !s.IsThrottled() || s.Limit <= 0 {
		return 0
	}
	return time.Duration((1 - s.Tokens) / s.Limit * float64(time.Second))
}
