package models

import (
	"fmt"
	"net"
	"strconv"
)

// Method selects the probe backend used for a check.
type Method string

const (
	MethodTCP  Method = "tcp"
	MethodPing Method = "ping"
)

// ParseMethod validates a method name from configuration or flags.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodTCP:
		return MethodTCP, nil
	case MethodPing:
		return MethodPing, nil
	default:
		return "", fmt.Errorf("unknown method %q (want %q or %q)", s, MethodTCP, MethodPing)
	}
}

// CheckTask is the atomic unit of scheduled work: one host for ping,
// one (host, port) pair for TCP.
type CheckTask struct {
	Host   string
	Port   int // ignored when Method is ping
	Method Method
}

// Addr returns the dial address for a TCP task.
func (t CheckTask) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Label identifies the task in human-readable output.
func (t CheckTask) Label() string {
	if t.Method == MethodTCP {
		return t.Addr()
	}
	return t.Host
}

// CheckResult captures the outcome of the retry-wrapped execution of one task.
type CheckResult struct {
	Host      string  `json:"host"`
	Port      *int    `json:"port"`
	Method    Method  `json:"method"`
	Success   bool    `json:"success"`
	Attempts  int     `json:"attempts"`
	LatencyMS float64 `json:"latency_ms"`
	Error     *string `json:"error"`
}

// Label identifies the checked target in human-readable output.
func (r CheckResult) Label() string {
	if r.Port != nil {
		return net.JoinHostPort(r.Host, strconv.Itoa(*r.Port))
	}
	return r.Host
}

// HostSummary groups the results for a single host. OK is true only when
// every check against the host succeeded.
type HostSummary struct {
	Host   string        `json:"host"`
	OK     bool          `json:"ok"`
	Checks []CheckResult `json:"checks"`
}

// RunSummary is the complete, aggregated outcome of one invocation.
// DNSOK and HTTPSOK are nil when the corresponding diagnostic is disabled;
// they are informational and do not influence AllOK.
type RunSummary struct {
	Hosts   []HostSummary `json:"hosts"`
	DNSOK   *bool         `json:"dns_ok"`
	HTTPSOK *bool         `json:"https_ok"`
	AllOK   bool          `json:"all_ok"`
}
