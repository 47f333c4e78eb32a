package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"netcheck/internal/config"
	"netcheck/internal/diag"
	"netcheck/internal/models"
	"netcheck/internal/portspec"
	"netcheck/internal/probe"
	"netcheck/internal/report"
	"netcheck/internal/runner"
)

type options struct {
	configPath      string
	hostsFile       string
	method          string
	ports           string
	timeout         time.Duration
	retries         int
	concurrency     int
	dnsHost         string
	httpsURL        string
	gateDiagnostics bool
	privileged      bool
	jsonOut         bool
	quiet           bool
	logLevel        string
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	exitCode := 0
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "netcheck [flags] [host ...]",
		Short:         "Check TCP or ping reachability of a set of hosts",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := runCheck(cmd, args, opts)
			exitCode = code
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to configuration file (YAML)")
	flags.StringVar(&opts.hostsFile, "hosts-file", "", "file with one host per line ('#' starts a comment)")
	flags.StringVarP(&opts.method, "method", "m", "", "probe method: tcp or ping")
	flags.StringVarP(&opts.ports, "ports", "p", "", "port selector for tcp, e.g. 22,80,443 or 20-25,80")
	flags.DurationVarP(&opts.timeout, "timeout", "t", 0, "per-attempt timeout")
	flags.IntVarP(&opts.retries, "retries", "r", -1, "extra attempts per target beyond the first")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "maximum simultaneous probes")
	flags.StringVar(&opts.dnsHost, "dns-host", "", "hostname for the auxiliary DNS signal (empty disables)")
	flags.StringVar(&opts.httpsURL, "https-url", "", "URL for the auxiliary HTTPS HEAD signal (empty disables)")
	flags.BoolVar(&opts.gateDiagnostics, "gate-diagnostics", false, "fail the run when an auxiliary signal fails")
	flags.BoolVar(&opts.privileged, "privileged", false, "use raw ICMP sockets for ping")
	flags.BoolVar(&opts.jsonOut, "json", false, "emit the run summary as JSON")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress per-check text output")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")

	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "netcheck: %v\n", err)
		return 2
	}
	return exitCode
}

func runCheck(cmd *cobra.Command, args []string, opts *options) (int, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return 2, err
	}
	check := mergeFlags(cmd, cfg.Check, opts)
	cfg.Check = check
	if err := cfg.Validate(); err != nil {
		return 2, err
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "netcheck",
		Level:  hclog.LevelFromString(opts.logLevel),
		Output: os.Stderr,
	})

	hosts := append([]string(nil), check.Hosts...)
	hosts = append(hosts, args...)
	if check.HostsFile != "" {
		fromFile, err := readHostsFile(check.HostsFile)
		if err != nil {
			return 2, err
		}
		hosts = append(hosts, fromFile...)
	}
	if len(hosts) == 0 {
		return 2, fmt.Errorf("no hosts given (positional arguments, --hosts-file, or config)")
	}

	method, err := models.ParseMethod(check.Method)
	if err != nil {
		return 2, err
	}

	var ports []int
	if method == models.MethodTCP {
		ports, err = portspec.Parse(check.Ports)
		if err != nil {
			return 2, err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tasks := runner.BuildTasks(hosts, ports, method)
	logger.Debug("task set built", "tasks", len(tasks), "method", method, "concurrency", check.Concurrency)

	r := &runner.Runner{
		Prober:      probe.New(method, check.PrivilegedPing),
		Timeout:     check.Timeout(),
		Retries:     check.Retries,
		Concurrency: check.Concurrency,
		Logger:      logger.Named("runner"),
	}
	results := r.Run(ctx, tasks)

	checker := &diag.Checker{Timeout: check.Timeout(), Logger: logger.Named("diag")}
	dnsOK, httpsOK := checker.Run(ctx, check.DNSHost, check.HTTPSURL)

	summary := report.Aggregate(hosts, results, dnsOK, httpsOK)

	if !opts.quiet && !opts.jsonOut {
		report.WriteText(os.Stdout, summary)
	}
	if opts.jsonOut {
		if err := report.WriteJSON(os.Stdout, summary); err != nil {
			return 2, fmt.Errorf("encode summary: %w", err)
		}
	}

	return report.ExitCode(summary, check.GateDiagnostics), nil
}

// mergeFlags applies explicitly set flags over the loaded configuration.
func mergeFlags(cmd *cobra.Command, check config.Check, opts *options) config.Check {
	flags := cmd.Flags()
	if flags.Changed("hosts-file") {
		check.HostsFile = opts.hostsFile
	}
	if flags.Changed("method") {
		check.Method = opts.method
	}
	if flags.Changed("ports") {
		check.Ports = opts.ports
	}
	if flags.Changed("timeout") {
		check.TimeoutSeconds = int(opts.timeout / time.Second)
		if check.TimeoutSeconds < 1 && opts.timeout > 0 {
			check.TimeoutSeconds = 1
		}
	}
	if flags.Changed("retries") {
		check.Retries = opts.retries
	}
	if flags.Changed("concurrency") {
		check.Concurrency = opts.concurrency
	}
	if flags.Changed("dns-host") {
		check.DNSHost = opts.dnsHost
	}
	if flags.Changed("https-url") {
		check.HTTPSURL = opts.httpsURL
	}
	if flags.Changed("gate-diagnostics") {
		check.GateDiagnostics = opts.gateDiagnostics
	}
	if flags.Changed("privileged") {
		check.PrivilegedPing = opts.privileged
	}
	return check
}

func readHostsFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open hosts file: %w", err)
	}
	defer file.Close()

	var hosts []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		hosts = append(hosts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read hosts file: %w", err)
	}
	return hosts, nil
}
