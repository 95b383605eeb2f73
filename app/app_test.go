package app

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"gotest.tools/v3/assert"

	"github.com/makotom/netmon/chart"
	"github.com/makotom/netmon/config"
	"github.com/makotom/netmon/counters"
	"github.com/makotom/netmon/menu"
	"github.com/makotom/netmon/monitor"
	"github.com/makotom/netmon/ping"
	"github.com/makotom/netmon/speedtest"
)

type fakeCounters struct {
	calls int
	err   error
}

func (c *fakeCounters) Sample(ctx context.Context) (*counters.Sample, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.calls += 1
	return &counters.Sample{BytesSent: uint64(1000 * c.calls), BytesReceived: uint64(4000 * c.calls)}, nil
}

type fakeProbe struct {
	down, up float64
	err      error
}

func (p *fakeProbe) Measure(ctx context.Context) (*speedtest.Throughput, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &speedtest.Throughput{DownloadMbps: p.down, UploadMbps: p.up}, nil
}

func (p *fakeProbe) Report(ctx context.Context) (*speedtest.Report, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &speedtest.Report{
		Metadata: &speedtest.Metadata{SrcIP: "192.0.2.1", SrcASN: "64496", SrcCity: "N/A", SrcCountry: "N/A", DstColo: "KIX"},
		Downlink: &speedtest.SpeedMeasurementStats{Direction: speedtest.DirectionDownlink, BitsPerSecond: p.down * 1e6},
		Uplink:   &speedtest.SpeedMeasurementStats{Direction: speedtest.DirectionUplink, BitsPerSecond: p.up * 1e6},
	}, nil
}

type fakeLister struct {
	interfaces []counters.Interface
}

func (l *fakeLister) Interfaces(ctx context.Context) ([]counters.Interface, error) {
	return l.interfaces, nil
}

type fakePinger struct {
	hosts []string
}

func (p *fakePinger) Ping(ctx context.Context, host string) *ping.Result {
	p.hosts = append(p.hosts, host)
	return &ping.Result{Host: host, Success: true, Output: "1 packets transmitted, 1 received"}
}

// fakeClock cancels once the next sleep would pass deadline.
type fakeClock struct {
	now      time.Time
	deadline time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if c.now.Add(d).After(c.deadline) {
		return context.Canceled
	}
	c.now = c.now.Add(d)
	return nil
}

type memorySink struct {
	records []*monitor.LogRecord
	closed  bool
}

func (s *memorySink) Append(record *monitor.LogRecord) error {
	s.records = append(s.records, record)
	return nil
}

func (s *memorySink) Close() error {
	s.closed = true
	return nil
}

type testApp struct {
	*App
	counters *fakeCounters
	probe    *fakeProbe
	pinger   *fakePinger
	sink     *memorySink
	feeds    []*chart.Feed
}

func newTestApp(runFor time.Duration) *testApp {
	start := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	ret := &testApp{
		counters: &fakeCounters{},
		probe:    &fakeProbe{down: 50, up: 10},
		pinger:   &fakePinger{},
		sink:     &memorySink{},
	}
	ret.App = &App{
		Config:   config.Default(),
		Counters: ret.counters,
		Probe:    ret.probe,
		Interfaces: &fakeLister{interfaces: []counters.Interface{
			{Name: "eth0", Up: true, SpeedMbps: 1000, Addresses: []counters.Address{{Address: "192.0.2.5", Family: counters.FamilyIPv4}}},
		}},
		Pinger: ret.pinger,
		Clock:  &fakeClock{now: start, deadline: start.Add(runFor)},
		OpenSink: func(path string) (Sink, error) {
			return ret.sink, nil
		},
		DrawChart: func(ctx context.Context, feed *chart.Feed) error {
			ret.feeds = append(ret.feeds, feed)
			return nil
		},
	}

	return ret
}

func newPrinter() (*log.Logger, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return log.New(out, "", 0), out
}

func TestCommands_Table(t *testing.T) {
	commands := newTestApp(0).Commands()

	labels := []string{}
	for i, command := range commands {
		assert.Equal(t, command.Key, string(rune('1'+i)))
		labels = append(labels, command.Label)
	}

	assert.DeepEqual(t, labels, []string{
		"View Current Network Usage",
		"Test Network Speed",
		"Start Logging",
		"View Network Interfaces and IP Addresses",
		"Run Ping Test",
		"Real-time Bandwidth Usage Graph",
	})
}

func TestPrintUsage(t *testing.T) {
	printer, out := newPrinter()

	err := newTestApp(0).PrintUsage(context.Background(), printer)

	assert.NilError(t, err)
	assert.Equal(t, out.String(), "Bytes Sent: 1000\nBytes Received: 4000\n")
}

func TestPrintUsage_CounterFailure(t *testing.T) {
	app := newTestApp(0)
	app.counters.err = errors.New("counters unavailable")
	printer, _ := newPrinter()

	err := app.PrintUsage(context.Background(), printer)

	assert.ErrorContains(t, err, "counters unavailable")
	assert.Assert(t, !menu.IsFatal(err))
}

func TestRunSpeedTest(t *testing.T) {
	printer, out := newPrinter()

	err := newTestApp(0).RunSpeedTest(context.Background(), printer)

	assert.NilError(t, err)
	assert.Assert(t, strings.HasPrefix(out.String(), "Testing network speed\n"))
	assert.Assert(t, strings.Contains(out.String(), "DstColocation: KIX"))
	assert.Assert(t, strings.Contains(out.String(), "Download Speed: 50.00 Mbps\nUpload Speed: 10.00 Mbps\n"))
}

func TestRunLogging_RecordsUntilCancelled(t *testing.T) {
	app := newTestApp(60 * time.Second)
	printer, out := newPrinter()

	err := app.RunLogging(context.Background(), printer)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Assert(t, !menu.IsFatal(err))
	assert.Equal(t, len(app.sink.records), 4)
	assert.Assert(t, app.sink.closed)
	assert.Equal(t, strings.Count(out.String(), "Logged data at "), 4)
	assert.Assert(t, strings.HasSuffix(out.String(), "Logging stopped.\n"))
}

func TestRunLogging_AlertsOnConsole(t *testing.T) {
	app := newTestApp(0)
	app.probe.down = 150
	printer, out := newPrinter()

	err := app.RunLogging(context.Background(), printer)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Assert(t, strings.Contains(out.String(), "Alert! High network usage detected. Download: 150.00 Mbps, Upload: 10.00 Mbps\n"))
}

func TestRunLogging_SinkFailureIsFatal(t *testing.T) {
	app := newTestApp(0)
	app.OpenSink = func(path string) (Sink, error) {
		return nil, errors.New("read-only file system")
	}
	printer, _ := newPrinter()

	err := app.RunLogging(context.Background(), printer)

	assert.Assert(t, menu.IsFatal(err))
	assert.ErrorContains(t, err, "read-only file system")
}

func TestRunLogging_ProbeFailureIsFatal(t *testing.T) {
	app := newTestApp(time.Hour)
	app.probe.err = &speedtest.FatalProbeError{Err: errors.New("connection reset")}
	printer, _ := newPrinter()

	err := app.RunLogging(context.Background(), printer)

	assert.Assert(t, menu.IsFatal(err))
	assert.Assert(t, speedtest.IsFatal(err))
	assert.Equal(t, len(app.sink.records), 0)
}

func TestRunPing_DefaultsHost(t *testing.T) {
	app := newTestApp(0)
	printer, out := newPrinter()

	result := app.RunPing(context.Background(), printer, "")

	assert.Assert(t, result.Success)
	assert.DeepEqual(t, app.pinger.hosts, []string{"8.8.8.8"})
	assert.Assert(t, strings.Contains(out.String(), "Ping to 8.8.8.8 successful"))
}

func TestParseSeconds(t *testing.T) {
	d, err := ParseSeconds("", time.Minute)
	assert.NilError(t, err)
	assert.Equal(t, d, time.Minute)

	d, err = ParseSeconds("5", time.Minute)
	assert.NilError(t, err)
	assert.Equal(t, d, 5*time.Second)

	d, err = ParseSeconds("9223372036", time.Minute)
	assert.NilError(t, err)
	assert.Assert(t, d > 0)

	for _, input := range []string{"abc", "0", "-3", "1.5", "9223372037", "99999999999999999999"} {
		_, err := ParseSeconds(input, time.Minute)
		assert.ErrorContains(t, err, "invalid duration", "input %q", input)
	}
}

func TestMenu_SessionFlow(t *testing.T) {
	app := newTestApp(0)
	input := strings.Join([]string{
		"5", "example.com", "y",
		"6", "", "y",
		"6", "ten", "y",
		"4", "n",
	}, "\n") + "\n"
	out := &bytes.Buffer{}

	err := app.Menu().Run(context.Background(), menu.NewSession(strings.NewReader(input), out))

	assert.NilError(t, err)
	assert.DeepEqual(t, app.pinger.hosts, []string{"example.com"})
	assert.Equal(t, len(app.feeds), 1)
	assert.Equal(t, app.feeds[0].Duration, 60*time.Second)
	assert.Equal(t, app.feeds[0].Interval, time.Second)
	assert.Assert(t, strings.Contains(out.String(), "Error: invalid duration \"ten\""))
	assert.Assert(t, strings.Contains(out.String(), "Interface: eth0\n"))
	assert.Assert(t, strings.HasSuffix(out.String(), "Goodbye.\n"))
}

func TestMenu_FatalLoggingEndsSession(t *testing.T) {
	app := newTestApp(time.Hour)
	app.counters.err = errors.New("counters unavailable")

	err := app.Menu().Run(context.Background(), menu.NewSession(strings.NewReader("3\ny\n1\n"), &bytes.Buffer{}))

	assert.Assert(t, menu.IsFatal(err))
	assert.ErrorContains(t, err, "counters unavailable")
}
