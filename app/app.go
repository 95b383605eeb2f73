// Package app wires the monitor's collaborators to operator actions.
package app

import (
	"context"
	"time"

	"github.com/makotom/netmon/chart"
	"github.com/makotom/netmon/clock"
	"github.com/makotom/netmon/config"
	"github.com/makotom/netmon/counters"
	"github.com/makotom/netmon/menu"
	"github.com/makotom/netmon/monitor"
	"github.com/makotom/netmon/ping"
	"github.com/makotom/netmon/speedtest"
)

const Title = "Network Monitoring Tool"

type Prober interface {
	Measure(ctx context.Context) (*speedtest.Throughput, error)
	Report(ctx context.Context) (*speedtest.Report, error)
}

type InterfaceLister interface {
	Interfaces(ctx context.Context) ([]counters.Interface, error)
}

type Pinger interface {
	Ping(ctx context.Context, host string) *ping.Result
}

type Sink interface {
	monitor.RecordSink
	Close() error
}

type App struct {
	Config     *config.Config
	Counters   monitor.CounterSource
	Probe      Prober
	Interfaces InterfaceLister
	Pinger     Pinger
	Clock      clock.Clock

	// Notifiers receive alerts in addition to the console notice.
	Notifiers []monitor.Notifier

	OpenSink  func(path string) (Sink, error)
	DrawChart func(ctx context.Context, feed *chart.Feed) error
}

func New(cfg *config.Config) (*App, error) {
	httpClient, err := speedtest.NewHTTPClient(cfg.Transport, cfg.DialTimeout)
	if err != nil {
		return nil, err
	}

	probe := speedtest.NewProbe(speedtest.NewClient(httpClient, cfg.SpeedTestURL))
	probe.RetryDelay = cfg.RetryDelay
	probe.MaxRetries = cfg.MaxRetries

	pinger := ping.NewProber()
	pinger.Timeout = cfg.PingTimeout

	notifiers := []monitor.Notifier{}
	if cfg.SMTPEnabled() {
		notifiers = append(notifiers, monitor.NewEmailNotifier(monitor.SMTPSettings{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			To:       cfg.SMTP.To,
		}))
	}

	return &App{
		Config:     cfg,
		Counters:   counters.NewSource(),
		Probe:      probe,
		Interfaces: counters.NewInspector(),
		Pinger:     pinger,
		Clock:      clock.System,
		Notifiers:  notifiers,
		OpenSink: func(path string) (Sink, error) {
			return monitor.OpenLogSink(path)
		},
		DrawChart: chart.Render,
	}, nil
}

func (a *App) Commands() []menu.Command {
	return []menu.Command{
		{Key: "1", Label: "View Current Network Usage", Run: a.ShowUsage},
		{Key: "2", Label: "Test Network Speed", Run: a.TestSpeed},
		{Key: "3", Label: "Start Logging", Run: a.StartLogging},
		{Key: "4", Label: "View Network Interfaces and IP Addresses", Run: a.ListInterfaces},
		{Key: "5", Label: "Run Ping Test", Run: a.PingPrompt},
		{Key: "6", Label: "Real-time Bandwidth Usage Graph", Run: a.ChartPrompt},
	}
}

func (a *App) Menu() *menu.Menu {
	return menu.New(Title, a.Commands())
}

func (a *App) chartFeed(duration time.Duration) *chart.Feed {
	return &chart.Feed{
		Source:   a.Counters,
		Clock:    a.Clock,
		Interval: a.Config.ChartInterval,
		Duration: duration,
	}
}
