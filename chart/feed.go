// Package chart feeds and draws the live bandwidth chart.
package chart

import (
	"context"
	"iter"
	"time"

	"github.com/makotom/netmon/counters"
)

const (
	DefaultInterval = 1 * time.Second
	DefaultDuration = 60 * time.Second
)

type CounterSource interface {
	Sample(ctx context.Context) (*counters.Sample, error)
}

type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Point is cumulative traffic (sent plus received) at some elapsed time.
type Point struct {
	ElapsedSeconds float64
	CumulativeMB   float64
}

type Feed struct {
	Source   CounterSource
	Clock    Clock
	Interval time.Duration
	Duration time.Duration
}

// Points samples the counters every Interval until Duration has elapsed.
// The sequence is lazy and each range over it starts a fresh run. A counter
// or context failure is yielded once as the last element.
func (f *Feed) Points(ctx context.Context) iter.Seq2[Point, error] {
	return func(yield func(Point, error) bool) {
		start := f.Clock.Now()

		for f.Clock.Now().Sub(start) < f.Duration {
			sample, err := f.Source.Sample(ctx)
			if err != nil {
				yield(Point{}, err)
				return
			}

			point := Point{
				ElapsedSeconds: f.Clock.Now().Sub(start).Seconds(),
				CumulativeMB:   sample.TotalMB(),
			}
			if !yield(point, nil) {
				return
			}

			if err := f.Clock.Sleep(ctx, f.Interval); err != nil {
				yield(Point{}, err)
				return
			}
		}
	}
}
