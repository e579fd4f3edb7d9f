// Package ratelimit defines the delivery throughput control port.
package ratelimit

import "context"

// RateLimiter controls outbound delivery throughput per channel.
type RateLimiter interface {
	Allow(ctx context.Context, channel string) (bool, error)
	Wait(ctx context.Context, channel string) error
}

// Nop is a pass-through limiter used when no backend is configured.
type Nop struct{}

func (Nop) Allow(context.Context, string) (bool, error) { return true, nil }

func (Nop) Wait(context.Context, string) error { return nil }
