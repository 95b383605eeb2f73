package speedtest

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const DefaultDialTimeout = 10 * time.Second

// NewHTTPClient builds a client whose dialer is pinned to protocol, which is
// one of "tcp", "tcp4" or "tcp6".
func NewHTTPClient(protocol string, dialTimeout time.Duration) (*http.Client, error) {
	switch protocol {
	case "tcp", "tcp4", "tcp6":
	default:
		return nil, errors.Errorf("unsupported transport protocol %q", protocol)
	}
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}

	// cf. https://go.googlesource.com/go/+/refs/tags/go1.22.1/src/net/http/transport.go#43
	// cf. https://go.googlesource.com/go/+/refs/tags/go1.22.1/src/net/http/transport.go#140
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext(ctx, protocol, addr)
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{Transport: transport}, nil
}
