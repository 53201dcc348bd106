package tgtg

import (
	"context"
	"time"
)

// Clock abstracts time for the client so the polling login flow can be
// exercised in tests without real delays.
type Clock interface {
	Now() time.Time
	// Sleep blocks for the given duration or until ctx is cancelled,
	// in which case it returns ctx.Err().
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
