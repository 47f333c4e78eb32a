// Package portspec parses port selector strings such as "22,80,443" or
// "20-25,8000-8010" into a normalized set of ports.
package portspec

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidSpec is wrapped by every parse failure so callers can abort the
// run with errors.Is before any probing starts.
var ErrInvalidSpec = errors.New("invalid port spec")

// Parse splits a comma-separated selector into individual ports. Each token
// is a single port or an inclusive low-high range; whitespace around tokens
// is ignored. Duplicates are collapsed and the result is sorted ascending,
// regardless of input order.
func Parse(spec string) ([]int, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSpec)
	}

	seen := make(map[int]struct{})
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, fmt.Errorf("%w: empty token", ErrInvalidSpec)
		}

		low, high, err := parseToken(token)
		if err != nil {
			return nil, err
		}
		for p := low; p <= high; p++ {
			seen[p] = struct{}{}
		}
	}

	ports := make([]int, 0, len(seen))
	for p := range seen {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports, nil
}

func parseToken(token string) (low, high int, err error) {
	if before, after, found := strings.Cut(token, "-"); found {
		low, err = parsePort(strings.TrimSpace(before))
		if err != nil {
			return 0, 0, fmt.Errorf("%w: range %q: %v", ErrInvalidSpec, token, err)
		}
		high, err = parsePort(strings.TrimSpace(after))
		if err != nil {
			return 0, 0, fmt.Errorf("%w: range %q: %v", ErrInvalidSpec, token, err)
		}
		if low > high {
			return 0, 0, fmt.Errorf("%w: range %q is reversed", ErrInvalidSpec, token)
		}
		return low, high, nil
	}

	p, err := parsePort(token)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	return p, p, nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("port %q is not a number", s)
	}
	if p < 1 || p > 65535 {
		return 0, fmt.Errorf("port %d out of range [1, 65535]", p)
	}
	return p, nil
}
