// Package timeparse resolves the listing API's heterogeneous start/end
// strings into absolute instants.
package timeparse

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrUnknownFormat is returned when a raw value matches none of the
// known encodings. Callers exclude such contests from time-based logic.
var ErrUnknownFormat = errors.New("unknown time format")

// millisThreshold separates epoch seconds from epoch milliseconds.
// Anything above 10^12 is milliseconds.
const millisThreshold = int64(1_000_000_000_000)

// formatSpec describes one calendar layout the provider is known to
// emit. inferYear marks the short "dd.MM EEE HH:mm" family, which
// carries no year and needs one resolved against the reference time.
type formatSpec struct {
	layout    string
	inferYear bool
}

// Layouts are tried in priority order; the first match wins. Offsetless
// layouts are interpreted as UTC. Go's parser accepts unpadded day and
// month with the "2.1" layout and tolerates fractional seconds after
// the seconds field, so the provider's single-digit and millisecond
// variants all collapse into this short list. The weekday token in the
// short form is decorative and never checked against the date.
var formats = []formatSpec{
	{layout: "2.1 Mon 15:04", inferYear: true},
	{layout: "2006-01-02T15:04:05"},
	{layout: "2006-01-02T15:04:05Z07:00"},
	{layout: "2006-01-02 15:04:05"},
	{layout: "2006-01-02 15:04:05Z07:00"},
}

// Parser resolves raw provider time strings into UTC instants.
type Parser struct{}

func New() *Parser {
	return &Parser{}
}

// Parse resolves raw into an absolute instant. Numeric values are
// treated as Unix time (seconds, or milliseconds above the 10^12
// threshold). Calendar values are tried against the known layouts in
// order. For yearless layouts the year is the smallest one >= the
// current year for which the instant is not strictly before now:
// listings only contain upcoming events, so a date that already passed
// this year must mean next year.
func (p *Parser) Parse(raw string, now time.Time) (time.Time, error) {
	if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if ts > millisThreshold {
			return time.UnixMilli(ts).UTC(), nil
		}
		return time.Unix(ts, 0).UTC(), nil
	}

	for _, f := range formats {
		t, err := time.ParseInLocation(f.layout, raw, time.UTC)
		if err != nil {
			continue
		}
		if f.inferYear {
			t = resolveYear(t, now)
		}
		return t.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
}

// resolveYear pins a yearless instant to the current year, rolling
// forward one year if that would place it strictly before now.
func resolveYear(t, now time.Time) time.Time {
	resolved := time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, t.Location())
	if resolved.Before(now) {
		resolved = resolved.AddDate(1, 0, 0)
	}
	return resolved
}
