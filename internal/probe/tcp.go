package probe

import (
	"context"
	"net"
	"time"

	"netcheck/internal/models"
)

// TCPProber checks reachability by completing a TCP handshake against
// (host, port). The connection is closed as soon as it is established; no
// payload is exchanged.
type TCPProber struct{}

func (p *TCPProber) Probe(ctx context.Context, task models.CheckTask, timeout time.Duration) (time.Duration, error) {
	dialer := net.Dialer{Timeout: timeout}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", task.Addr())
	elapsed := time.Since(start)
	if err != nil {
		return elapsed, classifyNetError(err)
	}
	_ = conn.Close()
	return elapsed, nil
}
