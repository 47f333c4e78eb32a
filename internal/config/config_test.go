package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
	require.Equal(t, 5*time.Second, cfg.Check.Timeout())
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
check:
  hosts: [gateway.local, nas.local]
  method: ping
  timeout_seconds: 2
  retries: 3
  concurrency: 8
  dns_host: one.one.one.one
expense:
  addr: ":9000"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"gateway.local", "nas.local"}, cfg.Check.Hosts)
	require.Equal(t, "ping", cfg.Check.Method)
	require.Equal(t, 2*time.Second, cfg.Check.Timeout())
	require.Equal(t, 3, cfg.Check.Retries)
	require.Equal(t, 8, cfg.Check.Concurrency)
	require.Equal(t, "one.one.one.one", cfg.Check.DNSHost)
	require.Equal(t, ":9000", cfg.Expense.Addr)

	// untouched sections keep their defaults
	require.Equal(t, "22,80,443", cfg.Check.Ports)
	require.Equal(t, DefaultConfig().Expense.DataDirectory, cfg.Expense.DataDirectory)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown method", content: "check:\n  method: udp\n"},
		{name: "zero timeout", content: "check:\n  timeout_seconds: 0\n"},
		{name: "negative retries", content: "check:\n  retries: -1\n"},
		{name: "zero concurrency", content: "check:\n  concurrency: 0\n"},
		{name: "empty expense addr", content: "expense:\n  addr: \"\"\n"},
		{name: "not yaml", content: "{{{"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
		})
	}
}

func TestExpenseDatabasePath(t *testing.T) {
	t.Parallel()

	e := Expense{DataDirectory: filepath.Join("some", "dir")}
	require.Equal(t, filepath.Join("some", "dir", "expenses.db"), e.DatabasePath())
}
