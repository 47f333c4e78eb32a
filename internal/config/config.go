package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"netcheck/internal/models"
)

// Config holds the settings for both binaries, loaded from a shared YAML
// file. Flags override whatever the file provides.
type Config struct {
	Check   Check   `yaml:"check"`
	Expense Expense `yaml:"expense"`
}

// Check configures the reachability prober.
type Check struct {
	Hosts           []string `yaml:"hosts"`
	HostsFile       string   `yaml:"hosts_file"`
	Method          string   `yaml:"method"`
	Ports           string   `yaml:"ports"`
	TimeoutSeconds  int      `yaml:"timeout_seconds"`
	Retries         int      `yaml:"retries"`
	Concurrency     int      `yaml:"concurrency"`
	DNSHost         string   `yaml:"dns_host"`
	HTTPSURL        string   `yaml:"https_url"`
	GateDiagnostics bool     `yaml:"gate_diagnostics"`
	PrivilegedPing  bool     `yaml:"privileged_ping"`
}

// Timeout returns the per-attempt probe timeout.
func (c Check) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Expense configures the companion expense-tracker web app.
type Expense struct {
	Addr          string `yaml:"addr"`
	DataDirectory string `yaml:"data_directory"`
}

// DatabasePath is the SQLite file inside the data directory.
func (e Expense) DatabasePath() string {
	return filepath.Join(e.DataDirectory, "expenses.db")
}

// DefaultConfig returns sensible defaults in case no configuration file is
// provided.
func DefaultConfig() Config {
	return Config{
		Check: Check{
			Method:         string(models.MethodTCP),
			Ports:          "22,80,443",
			TimeoutSeconds: 5,
			Retries:        1,
			Concurrency:    16,
			DNSHost:        "example.com",
			HTTPSURL:       "https://example.com",
		},
		Expense: Expense{
			Addr:          ":8000",
			DataDirectory: filepath.Join(".dist", "data"),
		},
	}
}

// Load reads configuration from a yaml file. Missing files fall back to
// defaults; malformed or out-of-range values are rejected before any work
// starts.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the prober cannot schedule with.
func (c Config) Validate() error {
	if _, err := models.ParseMethod(c.Check.Method); err != nil {
		return err
	}
	if c.Check.TimeoutSeconds <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.Check.Retries < 0 {
		return errors.New("retries must be non-negative")
	}
	if c.Check.Concurrency <= 0 {
		return errors.New("concurrency must be positive")
	}
	if c.Expense.Addr == "" {
		return errors.New("expense server address must not be empty")
	}
	if c.Expense.DataDirectory == "" {
		return errors.New("expense data directory must not be empty")
	}
	return nil
}
