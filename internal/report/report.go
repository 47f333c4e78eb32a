// Package report reduces check results into the run summary and renders it
// for humans or machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"netcheck/internal/models"
)

// Aggregate groups results by host into the run summary. It is a pure
// function of its inputs: hosts keep their list order, checks within a host
// are presented in ascending port order, and AllOK is the AND across every
// host's OK. The diagnostic booleans are carried through untouched.
func Aggregate(hosts []string, results []models.CheckResult, dnsOK, httpsOK *bool) models.RunSummary {
	byHost := make(map[string][]models.CheckResult, len(hosts))
	for _, res := range results {
		byHost[res.Host] = append(byHost[res.Host], res)
	}

	summary := models.RunSummary{
		Hosts:   make([]models.HostSummary, 0, len(hosts)),
		DNSOK:   dnsOK,
		HTTPSOK: httpsOK,
		AllOK:   true,
	}
	for _, host := range hosts {
		checks := byHost[host]
		sort.SliceStable(checks, func(i, j int) bool {
			pi, pj := checks[i].Port, checks[j].Port
			if pi == nil || pj == nil {
				return pi != nil
			}
			return *pi < *pj
		})

		hs := models.HostSummary{Host: host, OK: true, Checks: checks}
		for _, c := range checks {
			if !c.Success {
				hs.OK = false
			}
		}
		summary.Hosts = append(summary.Hosts, hs)
		if !hs.OK {
			summary.AllOK = false
		}
	}
	return summary
}

// WriteText emits one line per check plus the diagnostic and overall lines.
func WriteText(w io.Writer, summary models.RunSummary) {
	for _, hs := range summary.Hosts {
		for _, c := range hs.Checks {
			if c.Success {
				fmt.Fprintf(w, "%-28s ok    %.1fms (attempts %d)\n", c.Label(), c.LatencyMS, c.Attempts)
				continue
			}
			reason := "unknown error"
			if c.Error != nil {
				reason = *c.Error
			}
			fmt.Fprintf(w, "%-28s FAIL  %s (attempts %d)\n", c.Label(), reason, c.Attempts)
		}
	}
	if summary.DNSOK != nil {
		fmt.Fprintf(w, "dns:   %s\n", okString(*summary.DNSOK))
	}
	if summary.HTTPSOK != nil {
		fmt.Fprintf(w, "https: %s\n", okString(*summary.HTTPSOK))
	}
	fmt.Fprintf(w, "overall: %s\n", okString(summary.AllOK))
}

// WriteJSON emits the full summary as a single indented JSON document.
func WriteJSON(w io.Writer, summary models.RunSummary) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// ExitCode derives the process exit status: 0 only when every check passed.
// Gating on the diagnostic signals is the caller's policy choice; when
// enabled, a present-and-false signal also fails the run.
func ExitCode(summary models.RunSummary, gateDiagnostics bool) int {
	ok := summary.AllOK
	if gateDiagnostics {
		if summary.DNSOK != nil && !*summary.DNSOK {
			ok = false
		}
		if summary.HTTPSOK != nil && !*summary.HTTPSOK {
			ok = false
		}
	}
	if ok {
		return 0
	}
	return 1
}

func okString(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}
