package domain

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// dateLayouts lists the day-first formats seen in bank messages, plus ISO dates.
var dateLayouts = []string{
	"02-01-2006",
	"02/01/2006",
	"2006-01-02",
	"02-01-06",
	"02/01/06",
	"02-Jan-2006",
	"02-Jan-06",
	"2-1-2006",
	"2/1/2006",
	"2-1-06",
	"2/1/06",
	"2-Jan-2006",
	"2-Jan-06",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// ParseDate parses a calendar date in any of the supported layouts.
func ParseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("ParseDate: unsupported date %q", s)
}

// ResolveDate parses s and falls back to the message receipt time, then to now.
func ResolveDate(s string, msg RawMessage, now time.Time) civil.Date {
	if s != "" {
		if d, err := ParseDate(s); err == nil {
			return d
		}
	}
	if msg.ReceivedAt != nil && !msg.ReceivedAt.IsZero() {
		return civil.DateOf(*msg.ReceivedAt)
	}
	return civil.DateOf(now)
}
