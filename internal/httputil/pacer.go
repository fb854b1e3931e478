// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the scholar session.
package httputil

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// Pacer throttles requests to a single remote host. Pause applies the
// randomized delay taken before each page fetch; Wait applies the
// token-bucket gate every request goes through.
type Pacer struct {
	min     time.Duration
	jitter  time.Duration
	limiter *rate.Limiter

	// jitterFn returns a value in [0, n). Tests replace it.
	jitterFn func(n int64) int64
}

// NewPacer returns a Pacer that pauses for a random duration in
// [min, min+jitter) and admits at most perSecond requests per second with
// the given burst. perSecond <= 0 disables the gate.
func NewPacer(min, jitter time.Duration, perSecond float64, burst int) *Pacer {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Pacer{
		min:      min,
		jitter:   jitter,
		limiter:  rate.NewLimiter(limit, burst),
		jitterFn: rand.Int63n,
	}
}

// Delay returns the next randomized pause duration.
func (p *Pacer) Delay() time.Duration {
	d := p.min
	if p.jitter > 0 {
		d += time.Duration(p.jitterFn(int64(p.jitter)))
	}
	return d
}

// Pause sleeps for Delay. It returns ctx.Err() if the context ends first.
func (p *Pacer) Pause(ctx context.Context) error {
	return Sleep(ctx, p.Delay())
}

// Wait blocks until the rate gate admits one request.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
