// Package counters reads OS network counters and interface details.
package counters

import (
	"context"
	"time"

	"github.com/pkg/errors"
	psnet "github.com/shirou/gopsutil/v4/net"
)

// Sample is a point-in-time reading of the cumulative byte counters summed
// over all interfaces.
type Sample struct {
	BytesSent     uint64
	BytesReceived uint64
	TakenAt       time.Time
}

// TotalMB is sent plus received in megabytes.
func (s *Sample) TotalMB() float64 {
	return float64(s.BytesSent+s.BytesReceived) / 1_000_000
}

// QueryError is returned when the platform counter API is unavailable.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return "querying network counters: " + e.Err.Error()
}

func (e *QueryError) Unwrap() error { return e.Err }

type Source struct {
	ioCounters func(ctx context.Context, pernic bool) ([]psnet.IOCountersStat, error)
	now        func() time.Time
}

func NewSource() *Source {
	return &Source{
		ioCounters: psnet.IOCountersWithContext,
		now:        time.Now,
	}
}

func (s *Source) Sample(ctx context.Context) (*Sample, error) {
	stats, err := s.ioCounters(ctx, false)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	if len(stats) == 0 {
		return nil, &QueryError{Err: errors.New("no counters reported")}
	}

	return &Sample{
		BytesSent:     stats[0].BytesSent,
		BytesReceived: stats[0].BytesRecv,
		TakenAt:       s.now(),
	}, nil
}
