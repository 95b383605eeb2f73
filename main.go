package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/makotom/netmon/app"
	"github.com/makotom/netmon/config"
	"github.com/makotom/netmon/menu"
)

var (
	BuildName       = "\b"
	BuildAnnotation = "git"
)

var logger = log.New(os.Stderr, "", 0)

type CmdOpts struct {
	configPath    string
	logFile       string
	interval      time.Duration
	threshold     float64
	retryDelay    time.Duration
	maxRetries    int
	testIP4       bool
	testIP6       bool
	dialTimeout   time.Duration
	pingTimeout   time.Duration
	chartDuration time.Duration
}

func (o *CmdOpts) register(flags *pflag.FlagSet) {
	flags.StringVar(&o.configPath, "config", "", "Path to a YAML configuration file")
	flags.StringVar(&o.logFile, "log-file", "", "CSV file to append records to (default network_log.csv)")
	flags.DurationVar(&o.interval, "interval", 0, "Time between logging cycles (default 20s)")
	flags.Float64Var(&o.threshold, "threshold", 0, "Alert when download or upload exceeds this many Mbps (default 100)")
	flags.DurationVar(&o.retryDelay, "retry-delay", 0, "Delay before retrying a failed speed test configuration fetch (default 10s)")
	flags.IntVar(&o.maxRetries, "max-retries", 0, "Give up after this many configuration retries, 0 retries forever")
	flags.BoolVarP(&o.testIP4, "ip4", "4", false, "Ensure measurements over IPv4")
	flags.BoolVarP(&o.testIP6, "ip6", "6", false, "Ensure measurements over IPv6")
	flags.DurationVar(&o.dialTimeout, "dial-timeout", 0, "Connection timeout for speed test requests (default 10s)")
	flags.DurationVar(&o.pingTimeout, "ping-timeout", 0, "Time limit for a ping (default 10s)")
	flags.DurationVar(&o.chartDuration, "duration", 0, "How long the bandwidth chart runs (default 60s)")
}

// transports lists the forced protocols in the order they run.
func (o *CmdOpts) transports() []string {
	ret := []string{}

	if o.testIP4 {
		ret = append(ret, "tcp4")
	}
	if o.testIP6 {
		ret = append(ret, "tcp6")
	}

	return ret
}

// loadConfig layers flags that were set explicitly over the loaded config.
func (o *CmdOpts) loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	transports := o.transports()

	switch len(transports) {
	case 0:
		return o.loadConfigFor(flags, "")
	case 1:
		return o.loadConfigFor(flags, transports[0])
	default:
		return nil, errors.New("--ip4 and --ip6 together are only supported by the speedtest command")
	}
}

// loadConfigFor is loadConfig with the transport forced unless it is empty.
func (o *CmdOpts) loadConfigFor(flags *pflag.FlagSet, transport string) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	if flags.Changed("log-file") {
		cfg.LogFile = o.logFile
	}
	if flags.Changed("interval") {
		cfg.Interval = o.interval
	}
	if flags.Changed("threshold") {
		cfg.Threshold = o.threshold
	}
	if flags.Changed("retry-delay") {
		cfg.RetryDelay = o.retryDelay
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries = o.maxRetries
	}
	if flags.Changed("dial-timeout") {
		cfg.DialTimeout = o.dialTimeout
	}
	if flags.Changed("ping-timeout") {
		cfg.PingTimeout = o.pingTimeout
	}
	if flags.Changed("duration") {
		cfg.ChartDuration = o.chartDuration
	}

	if transport != "" {
		cfg.Transport = transport
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return cfg, nil
}

func printTimestamp(printer *log.Logger) {
	printer.Println()
	printer.Printf("At: %s\n", time.Now().Format(time.RFC1123Z))
	printer.Println()
}

func newRootCmd() *cobra.Command {
	opts := &CmdOpts{}
	printer := log.New(os.Stdout, "", 0)

	// withApp builds the App from the effective configuration before running fn.
	withApp := func(fn func(ctx context.Context, a *app.App, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}

			a, err := app.New(cfg)
			if err != nil {
				return err
			}

			return fn(cmd.Context(), a, args)
		}
	}

	root := &cobra.Command{
		Use:           "netmon",
		Short:         "Monitor local network usage, speed and reachability",
		Version:       fmt.Sprintf("%s (%s)", BuildName, BuildAnnotation),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
			return a.Menu().Run(ctx, menu.NewSession(os.Stdin, os.Stdout))
		}),
	}
	root.SetVersionTemplate("netmon {{.Version}}\n")
	opts.register(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "usage",
			Short: "Print the current byte counters",
			Args:  cobra.NoArgs,
			RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
				return a.PrintUsage(ctx, printer)
			}),
		},
		&cobra.Command{
			Use:   "speedtest",
			Short: "Run a speed test per forced transport and print the reports",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				transports := opts.transports()
				if len(transports) == 0 {
					transports = []string{""}
				}

				// these options are not mutually exclusive
				for _, transport := range transports {
					cfg, err := opts.loadConfigFor(cmd.Flags(), transport)
					if err != nil {
						return err
					}

					a, err := app.New(cfg)
					if err != nil {
						return err
					}

					printTimestamp(printer)
					if err := a.RunSpeedTest(cmd.Context(), printer); err != nil {
						return err
					}
				}

				return nil
			},
		},
		&cobra.Command{
			Use:   "log",
			Short: "Log usage and throughput to CSV until interrupted",
			Args:  cobra.NoArgs,
			RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
				return a.RunLogging(ctx, printer)
			}),
		},
		&cobra.Command{
			Use:   "interfaces",
			Short: "List network interfaces and their addresses",
			Args:  cobra.NoArgs,
			RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
				return a.PrintInterfaces(ctx, printer)
			}),
		},
		&cobra.Command{
			Use:   "ping [host]",
			Short: "Send a single ping to host",
			Args:  cobra.MaximumNArgs(1),
			RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
				host := ""
				if len(args) > 0 {
					host = args[0]
				}

				result := a.RunPing(ctx, printer, host)
				if !result.Success {
					return errors.Errorf("ping to %s failed", result.Host)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "chart",
			Short: "Draw the live bandwidth chart",
			Args:  cobra.NoArgs,
			RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
				return a.RunChart(ctx, a.Config.ChartDuration)
			}),
		},
	)

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
