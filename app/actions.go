package app

import (
	"context"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/makotom/netmon/counters"
	"github.com/makotom/netmon/menu"
	"github.com/makotom/netmon/monitor"
	"github.com/makotom/netmon/ping"
	"github.com/makotom/netmon/speedtest"
)

func (a *App) ShowUsage(ctx context.Context, s *menu.Session) error {
	return a.PrintUsage(ctx, s.Printer)
}

func (a *App) PrintUsage(ctx context.Context, printer *log.Logger) error {
	sample, err := a.Counters.Sample(ctx)
	if err != nil {
		return err
	}

	printer.Printf("Bytes Sent: %d\n", sample.BytesSent)
	printer.Printf("Bytes Received: %d\n", sample.BytesReceived)
	return nil
}

func (a *App) TestSpeed(ctx context.Context, s *menu.Session) error {
	return a.RunSpeedTest(ctx, s.Printer)
}

func (a *App) RunSpeedTest(ctx context.Context, printer *log.Logger) error {
	printer.Println("Testing network speed")

	report, err := a.Probe.Report(ctx)
	if err != nil {
		return err
	}

	printer.Println()
	speedtest.PrintReport(printer, report, report.Throughput(a.Clock.Now()))
	return nil
}

func (a *App) StartLogging(ctx context.Context, s *menu.Session) error {
	return a.RunLogging(ctx, s.Printer)
}

// RunLogging runs the sampling loop until interrupted. Any failure other than
// cancellation is fatal to the session.
func (a *App) RunLogging(ctx context.Context, printer *log.Logger) error {
	sink, err := a.OpenSink(a.Config.LogFile)
	if err != nil {
		return menu.Fatal(err)
	}
	defer sink.Close()

	printer.Printf("Logging network data to %s every %s (Ctrl+C to stop)\n", a.Config.LogFile, a.Config.Interval)

	loop := &monitor.Loop{
		Counters:  a.Counters,
		Probe:     a.Probe,
		Sink:      sink,
		Notifiers: append([]monitor.Notifier{&monitor.ConsoleNotifier{Printer: printer}}, a.Notifiers...),
		Threshold: a.Config.Threshold,
		Interval:  a.Config.Interval,
		Clock:     a.Clock,
		Printer:   printer,
	}

	err = loop.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		printer.Println("Logging stopped.")
		return err
	}
	return menu.Fatal(errors.Wrap(err, "monitoring session aborted"))
}

func (a *App) ListInterfaces(ctx context.Context, s *menu.Session) error {
	return a.PrintInterfaces(ctx, s.Printer)
}

func (a *App) PrintInterfaces(ctx context.Context, printer *log.Logger) error {
	interfaces, err := a.Interfaces.Interfaces(ctx)
	if err != nil {
		return err
	}

	counters.PrintInterfaces(printer, interfaces)
	return nil
}

func (a *App) PingPrompt(ctx context.Context, s *menu.Session) error {
	host, err := s.Prompt(ctx, "Enter the host IP or domain (default: "+a.Config.PingHost+"): ")
	if err != nil {
		return err
	}

	a.RunPing(ctx, s.Printer, host)
	return nil
}

// RunPing never fails; problems are part of the printed result.
func (a *App) RunPing(ctx context.Context, printer *log.Logger, host string) *ping.Result {
	if host == "" {
		host = a.Config.PingHost
	}

	printer.Printf("Pinging %s...\n", host)
	result := a.Pinger.Ping(ctx, host)
	ping.PrintResult(printer, result)
	return result
}

func (a *App) ChartPrompt(ctx context.Context, s *menu.Session) error {
	defaultSeconds := int(a.Config.ChartDuration / time.Second)

	input, err := s.Prompt(ctx, "Enter the duration of real-time monitoring in seconds (default: "+strconv.Itoa(defaultSeconds)+"): ")
	if err != nil {
		return err
	}

	duration, err := ParseSeconds(input, a.Config.ChartDuration)
	if err != nil {
		return err
	}

	return a.RunChart(ctx, duration)
}

func (a *App) RunChart(ctx context.Context, duration time.Duration) error {
	return a.DrawChart(ctx, a.chartFeed(duration))
}

const maxSeconds = math.MaxInt64 / int64(time.Second)

// ParseSeconds reads a positive whole number of seconds; empty input yields
// fallback.
func ParseSeconds(input string, fallback time.Duration) (time.Duration, error) {
	if input == "" {
		return fallback, nil
	}

	seconds, err := strconv.ParseInt(input, 10, 64)
	if err != nil || seconds <= 0 || seconds > maxSeconds {
		return 0, errors.Errorf("invalid duration %q: enter a positive number of seconds", input)
	}

	return time.Duration(seconds) * time.Second, nil
}
