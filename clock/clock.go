// Package clock is the time source shared by the sampling loop, the speed
// probe and the chart feed.
package clock

import (
	"context"
	"time"
)

// Clock is a view of time whose Sleep returns early with ctx.Err() when the
// context is cancelled.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type system struct{}

var System Clock = system{}

func (system) Now() time.Time {
	return time.Now()
}

func (system) Sleep(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}

func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
