// Package ping runs single-packet reachability checks through the system
// ping utility.
package ping

import (
	"bytes"
	"context"
	"log"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultHost    = "8.8.8.8"
	DefaultTimeout = 10 * time.Second
)

// Result never carries a fatal condition; a ping that could not run at all is
// reported through Err with Success false.
type Result struct {
	Host    string
	Success bool
	Output  string
	Err     error
}

// Runner executes a command and returns its captured stdout and stderr.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

type Prober struct {
	Timeout time.Duration

	run  Runner
	goos string
}

func NewProber() *Prober {
	return &Prober{
		Timeout: DefaultTimeout,
		run:     execRunner,
		goos:    runtime.GOOS,
	}
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	return stdout.Bytes(), stderr.Bytes(), err
}

// countFlag is the single-packet flag for the platform's ping.
func countFlag(goos string) string {
	if goos == "windows" {
		return "-n"
	}
	return "-c"
}

func (p *Prober) Ping(ctx context.Context, host string) *Result {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultHost
	}
	ret := &Result{Host: host}

	if strings.HasPrefix(host, "-") {
		ret.Err = errors.Errorf("invalid host %q", host)
		return ret
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	stdout, stderr, err := p.run(ctx, "ping", countFlag(p.goos), "1", host)
	if err == nil {
		ret.Success = true
		ret.Output = string(stdout)
		return ret
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		ret.Output = string(stderr)
		if ret.Output == "" {
			ret.Output = string(stdout)
		}
		return ret
	}

	ret.Err = errors.Wrap(err, "executing ping")
	return ret
}

func PrintResult(printer *log.Logger, result *Result) {
	switch {
	case result.Err != nil:
		printer.Printf("Error executing ping: %v\n", result.Err)
	case result.Success:
		printer.Printf("Ping to %s successful\n%s\n", result.Host, result.Output)
	default:
		printer.Printf("Ping to %s failed\n%s\n", result.Host, result.Output)
	}
}
