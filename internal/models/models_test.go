package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMethod(t *testing.T) {
	t.Parallel()

	m, err := ParseMethod("tcp")
	require.NoError(t, err)
	require.Equal(t, MethodTCP, m)

	m, err = ParseMethod("ping")
	require.NoError(t, err)
	require.Equal(t, MethodPing, m)

	_, err = ParseMethod("udp")
	require.Error(t, err)
	_, err = ParseMethod("")
	require.Error(t, err)
}

func TestTaskLabels(t *testing.T) {
	t.Parallel()

	tcp := CheckTask{Host: "example.com", Port: 443, Method: MethodTCP}
	require.Equal(t, "example.com:443", tcp.Addr())
	require.Equal(t, "example.com:443", tcp.Label())

	ping := CheckTask{Host: "example.com", Method: MethodPing}
	require.Equal(t, "example.com", ping.Label())

	// IPv6 hosts get bracketed by JoinHostPort
	v6 := CheckTask{Host: "::1", Port: 22, Method: MethodTCP}
	require.Equal(t, "[::1]:22", v6.Addr())
}

func TestResultLabel(t *testing.T) {
	t.Parallel()

	port := 80
	withPort := CheckResult{Host: "a.example", Port: &port}
	require.Equal(t, "a.example:80", withPort.Label())

	noPort := CheckResult{Host: "a.example"}
	require.Equal(t, "a.example", noPort.Label())
}
