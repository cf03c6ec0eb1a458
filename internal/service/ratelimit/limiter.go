// Package ratelimit implements the pluggable rate-limit pre-handler
// hook from spec.md §4.3: a no-op default, and an optional
// Redis-backed fixed-window limiter for multi-instance deployments.
package ratelimit

import "context"

// Limiter decides whether a request identified by key (e.g. a client
// IP or token prefix) may proceed. Allow returns false once the
// caller has exceeded its quota within the configured window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// NoOp never rejects. It is the default wired by cmd/relay.
type NoOp struct{}

func (NoOp) Allow(context.Context, string) (bool, error) { return true, nil }
