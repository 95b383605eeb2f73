package speedtest

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/makotom/netmon/clock"
)

const DefaultRetryDelay = 10 * time.Second

var logger = log.New(os.Stderr, "", 0)

// ConfigRetrievalError means the speed-test configuration could not be
// fetched. Callers retry it.
type ConfigRetrievalError struct {
	Err error
}

func (e *ConfigRetrievalError) Error() string {
	return "could not retrieve speed test configuration: " + e.Err.Error()
}

func (e *ConfigRetrievalError) Unwrap() error { return e.Err }

// FatalProbeError aborts the measurement; it is not retried.
type FatalProbeError struct {
	Err error
}

func (e *FatalProbeError) Error() string {
	return "speed test failed: " + e.Err.Error()
}

func (e *FatalProbeError) Unwrap() error { return e.Err }

func IsRetryable(err error) bool {
	var cfgErr *ConfigRetrievalError
	return errors.As(err, &cfgErr)
}

func IsFatal(err error) bool {
	var fatalErr *FatalProbeError
	return errors.As(err, &fatalErr)
}

type Backend interface {
	FetchMetadata(ctx context.Context) (*Metadata, error)
	MeasureRTT(ctx context.Context) (*Stats, error)
	MeasureSpeedAdaptive(ctx context.Context, direction Direction) (*SpeedMeasurementStats, error)
}

// Probe wraps a Backend with retry on configuration failures.
type Probe struct {
	Backend Backend

	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration
	// MaxRetries caps the retries; zero retries forever.
	MaxRetries int

	Sleep  func(ctx context.Context, d time.Duration) error
	Now    func() time.Time
	Logger *log.Logger
}

func NewProbe(backend Backend) *Probe {
	return &Probe{
		Backend:    backend,
		RetryDelay: DefaultRetryDelay,
		Sleep:      clock.Sleep,
		Now:        time.Now,
		Logger:     logger,
	}
}

// Measure returns download and upload throughput in Mbps.
func (p *Probe) Measure(ctx context.Context) (*Throughput, error) {
	report, err := p.run(ctx, false)
	if err != nil {
		return nil, err
	}

	return report.Throughput(p.Now()), nil
}

// Report runs the detailed test, including metadata and RTT.
func (p *Probe) Report(ctx context.Context) (*Report, error) {
	return p.run(ctx, true)
}

func (p *Probe) run(ctx context.Context, withRTT bool) (*Report, error) {
	for retries := 0; ; retries += 1 {
		report, err := p.attempt(ctx, withRTT)
		var cfgErr *ConfigRetrievalError
		if !errors.As(err, &cfgErr) {
			return report, err
		}

		if p.MaxRetries > 0 && retries >= p.MaxRetries {
			return nil, &FatalProbeError{Err: errors.Wrapf(err, "giving up after %d retries", retries)}
		}

		p.Logger.Printf("Error retrieving speed test configuration: %v. Retrying in %s...\n", cfgErr.Err, p.RetryDelay)
		if err := p.Sleep(ctx, p.RetryDelay); err != nil {
			return nil, err
		}
	}
}

func (p *Probe) attempt(ctx context.Context, withRTT bool) (*Report, error) {
	report := &Report{}
	var err error

	report.Metadata, err = p.Backend.FetchMetadata(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ConfigRetrievalError{Err: err}
	}

	if withRTT {
		report.RTT, err = p.Backend.MeasureRTT(ctx)
		if err != nil {
			return nil, p.fatal(ctx, errors.Wrap(err, "RTT measurement failed"))
		}
	}

	report.Downlink, err = p.Backend.MeasureSpeedAdaptive(ctx, DirectionDownlink)
	if err != nil {
		return nil, p.fatal(ctx, errors.Wrap(err, "downlink measurement failed"))
	}

	report.Uplink, err = p.Backend.MeasureSpeedAdaptive(ctx, DirectionUplink)
	if err != nil {
		return nil, p.fatal(ctx, errors.Wrap(err, "uplink measurement failed"))
	}

	return report, nil
}

func (p *Probe) fatal(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &FatalProbeError{Err: err}
}

// Throughput converts the raw bit rates of a report to Mbps.
func (r *Report) Throughput(takenAt time.Time) *Throughput {
	ret := &Throughput{TakenAt: takenAt}

	if r.Downlink != nil {
		ret.DownloadMbps = r.Downlink.BitsPerSecond / bitsPerMegabit
	}
	if r.Uplink != nil {
		ret.UploadMbps = r.Uplink.BitsPerSecond / bitsPerMegabit
	}

	return ret
}
