// Package diag provides the auxiliary internet-reachability signals that
// accompany a check run: one DNS resolution and one HTTPS HEAD request
// against configured diagnostic endpoints.
package diag

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
)

// Checker runs the diagnostic lookups. Resolver and Client are injectable
// for tests; nil fields fall back to the defaults.
type Checker struct {
	Timeout  time.Duration
	Resolver *net.Resolver
	Client   *http.Client
	Logger   hclog.Logger
}

// Run performs both signals concurrently. A nil pointer in the result means
// the corresponding signal was disabled (empty input); the signals are
// informational and never abort the run.
func (c *Checker) Run(ctx context.Context, dnsHost, httpsURL string) (dnsOK, httpsOK *bool) {
	g, ctx := errgroup.WithContext(ctx)

	if dnsHost != "" {
		g.Go(func() error {
			ok := c.resolve(ctx, dnsHost)
			dnsOK = &ok
			return nil
		})
	}
	if httpsURL != "" {
		g.Go(func() error {
			ok := c.head(ctx, httpsURL)
			httpsOK = &ok
			return nil
		})
	}

	_ = g.Wait()
	return dnsOK, httpsOK
}

func (c *Checker) resolve(ctx context.Context, host string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	resolver := c.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupHost(ctx, host)
	if err != nil || len(addrs) == 0 {
		c.logger().Debug("dns signal failed", "host", host, "error", err)
		return false
	}
	return true
}

// head counts any HTTP response as reachability; only transport failures
// fail the signal.
func (c *Checker) head(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		c.logger().Debug("https signal failed", "url", url, "error", err)
		return false
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		c.logger().Debug("https signal failed", "url", url, "error", err)
		return false
	}
	defer resp.Body.Close()
	return true
}

func (c *Checker) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 5 * time.Second
}

func (c *Checker) logger() hclog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return hclog.NewNullLogger()
}
