// Package probe performs single reachability attempts against one target.
// Backends implement the Prober interface so the scheduler stays agnostic
// of how a method reaches the host.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"netcheck/internal/models"
)

// Failure kinds. Probes collapse every failure to a non-nil error wrapping
// one of these sentinels where the cause is recognisable; anything else
// passes through unchanged as the catch-all.
var (
	ErrTimeout               = errors.New("timeout")
	ErrConnectionRefused     = errors.New("connection refused")
	ErrHostUnreachable       = errors.New("host unreachable")
	ErrNameResolution        = errors.New("name resolution failed")
	ErrCapabilityUnavailable = errors.New("ping capability unavailable")
)

// Prober performs one reachability attempt against one task, bounded by a
// hard wall-clock timeout. A nil error means the target was reachable; the
// returned duration is the latency of the attempt, measured start to
// resolution whether it succeeded or not.
type Prober interface {
	Probe(ctx context.Context, task models.CheckTask, timeout time.Duration) (time.Duration, error)
}

// New returns the backend for a method. privileged only affects ping and
// selects raw ICMP sockets over unprivileged UDP ones.
func New(method models.Method, privileged bool) Prober {
	if method == models.MethodPing {
		return &PingProber{Privileged: privileged}
	}
	return &TCPProber{}
}

// classifyNetError maps transport errors onto the failure kinds shared by
// both backends. DNS errors are checked first: a failed lookup also reports
// Timeout() on some platforms and would otherwise be misfiled.
func classifyNetError(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return wrapKind(ErrNameResolution, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrConnectionRefused
	}
	if errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return wrapKind(ErrHostUnreachable, err)
	}
	return err
}

func wrapKind(kind, cause error) error {
	return fmt.Errorf("%w: %v", kind, cause)
}
