package monitor

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/makotom/netmon/clock"
	"github.com/makotom/netmon/counters"
	"github.com/makotom/netmon/speedtest"
)

const DefaultInterval = 20 * time.Second

var logger = log.New(os.Stderr, "", 0)

type CounterSource interface {
	Sample(ctx context.Context) (*counters.Sample, error)
}

type SpeedProbe interface {
	Measure(ctx context.Context) (*speedtest.Throughput, error)
}

type RecordSink interface {
	Append(record *LogRecord) error
}

// Loop samples counters and throughput, logs a record and checks the alert
// threshold once per interval. Cycles never overlap.
type Loop struct {
	Counters  CounterSource
	Probe     SpeedProbe
	Sink      RecordSink
	Notifiers []Notifier

	Threshold float64
	Interval  time.Duration

	Clock   clock.Clock
	Printer *log.Logger
}

// Run cycles until ctx is cancelled or a cycle fails. The first cycle starts
// immediately. A cancellation during a cycle leaves that cycle unlogged.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if _, err := l.Cycle(ctx); err != nil {
			return err
		}
		if err := l.Clock.Sleep(ctx, l.Interval); err != nil {
			return err
		}
	}
}

func (l *Loop) Cycle(ctx context.Context) (*LogRecord, error) {
	sample, err := l.Counters.Sample(ctx)
	if err != nil {
		return nil, err
	}

	throughput, err := l.Probe.Measure(ctx)
	if err != nil {
		return nil, err
	}

	record := &LogRecord{
		Timestamp:     l.Clock.Now().Truncate(time.Second),
		BytesSent:     sample.BytesSent,
		BytesReceived: sample.BytesReceived,
		DownloadMbps:  throughput.DownloadMbps,
		UploadMbps:    throughput.UploadMbps,
	}

	if err := l.Sink.Append(record); err != nil {
		return nil, err
	}
	l.Printer.Printf("Logged data at %s\n", record.Timestamp.Format(TimestampLayout))

	if state := Evaluate(record.DownloadMbps, record.UploadMbps, l.Threshold); state != AlertNone {
		l.notify(ctx, &Alert{
			State:        state,
			DownloadMbps: record.DownloadMbps,
			UploadMbps:   record.UploadMbps,
			Threshold:    l.Threshold,
			At:           record.Timestamp,
		})
	}

	return record, nil
}

// notify is best effort; a failing notifier never stops the loop.
func (l *Loop) notify(ctx context.Context, alert *Alert) {
	for _, notifier := range l.Notifiers {
		if err := notifier.Notify(ctx, alert); err != nil {
			logger.Printf("Alert notification failed: %v\n", err)
		}
	}
}
