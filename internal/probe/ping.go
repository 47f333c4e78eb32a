package probe

import (
	"context"
	"errors"
	"strings"
	"syscall"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"netcheck/internal/models"
)

// PingProber checks reachability with a single ICMP echo. It defaults to
// unprivileged UDP datagram sockets, which work without root on Linux when
// net.ipv4.ping_group_range allows it; Privileged switches to raw sockets.
type PingProber struct {
	Privileged bool
}

func (p *PingProber) Probe(ctx context.Context, task models.CheckTask, timeout time.Duration) (time.Duration, error) {
	pinger, err := probing.NewPinger(task.Host)
	if err != nil {
		return 0, classifyNetError(err)
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(p.Privileged)

	start := time.Now()
	if err := pinger.RunWithContext(ctx); err != nil {
		return time.Since(start), classifyPingError(err)
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		// The pinger ran to its deadline without a reply.
		return time.Since(start), ErrTimeout
	}
	return stats.AvgRtt, nil
}

// classifyPingError recognises the platform refusing to hand out an ICMP
// socket at all, which must surface as CapabilityUnavailable rather than a
// generic network failure.
func classifyPingError(err error) error {
	if errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES) {
		return wrapKind(ErrCapabilityUnavailable, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "permission denied") || strings.Contains(msg, "operation not permitted") {
		return wrapKind(ErrCapabilityUnavailable, err)
	}
	return classifyNetError(err)
}
