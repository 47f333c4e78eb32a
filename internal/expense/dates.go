package expense

import (
	"errors"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// errBadDate is returned for inputs that match none of the accepted layouts.
var errBadDate = errors.New("invalid date format, use YYYY-MM-DD")

// acceptedLayouts covers ISO dates plus the common regional forms users
// paste into the date field.
var acceptedLayouts = []string{isoDate, "02-01-2006", "02/01/2006", "2006/01/02"}

// normalizeDate converts user input to YYYY-MM-DD; empty input means today.
func normalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now().Format(isoDate), nil
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate), nil
		}
	}
	return "", errBadDate
}

// monthBounds returns the inclusive first and last day of the month
// containing date, plus a label like "October 2025".
func monthBounds(date string) (start, end, label string, err error) {
	t, err := time.Parse(isoDate, date)
	if err != nil {
		return "", "", "", errBadDate
	}
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(isoDate), last.Format(isoDate), first.Format("January 2006"), nil
}
