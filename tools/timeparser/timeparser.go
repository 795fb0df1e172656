package timeparser

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DisplayLayout is used for reading dates in detail views
const DisplayLayout = "02/01/2006 15:04"

// ParseDueDate parses an operator-entered due date. Accepted inputs are
// YYYY-MM-DD, DD/MM/YYYY, RFC3339 and a relative "+Nd" offset from now.
// Date-only inputs resolve to midnight in now's location.
func ParseDueDate(raw string, now time.Time) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("due date is empty")
	}

	if strings.HasPrefix(value, "+") && strings.HasSuffix(value, "d") {
		days, err := strconv.Atoi(value[1 : len(value)-1])
		if err != nil || days < 0 {
			return time.Time{}, fmt.Errorf("failed to parse relative due date '%s'", raw)
		}
		return StartOfDay(now).AddDate(0, 0, days), nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	formats := []string{
		"2006-01-02", // YYYY-MM-DD
		"02/01/2006", // DD/MM/YYYY
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.ParseInLocation(format, value, now.Location())
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse due date '%s': %w", raw, lastErr)
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DueIn returns midnight of the day that is days after now
func DueIn(now time.Time, days int) time.Time {
	return StartOfDay(now).AddDate(0, 0, days)
}

// FormatReadingDate renders a reading date for detail views
func FormatReadingDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(DisplayLayout)
}
