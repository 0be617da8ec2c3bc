package timeseries

import (
	"fmt"
	"strings"
	"time"
)

// MonthLayouts lists the accepted month-resolution date formats, tried in order.
var MonthLayouts = []string{
	"2006-01",
	"2006-01-02",
	"2006M01",
	"2006/01",
	"01/2006",
	"Jan 2006",
	"2006-01-02T15:04:05Z07:00",
}

// ParseMonth parses a month-resolution date and returns the month start in UTC.
func ParseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(strings.Trim(s, "\""))
	for _, layout := range MonthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthStart(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized month %q", s)
}

// FormatMonth renders a month start as YYYY-MM.
func FormatMonth(t time.Time) string {
	return t.Format("2006-01")
}
