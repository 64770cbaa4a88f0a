package timeutil

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// ZoneName is the IANA zone every user-facing date is rendered in.
const ZoneName = "America/Caracas"

// Caracas is the America/Caracas location (UTC-4, no DST)
var Caracas *time.Location

func init() {
	var err error
	Caracas, err = time.LoadLocation(ZoneName)
	if err != nil {
		// Fallback: fixed zone if the tz database is unavailable
		Caracas = time.FixedZone("VET", -4*60*60)
	}
}

// Common layouts
const (
	DateLayout      = "2006-01-02"
	ClockLayout     = "15:04"
	ISOMillisLayout = "2006-01-02T15:04:05.000Z"
	displayDate     = "02/01/2006"
	displayClock    = "03:04"
)

// Layouts without a zone designator; time.Parse reads them as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
}

// Now returns the current time in Caracas
func Now() time.Time {
	return time.Now().In(Caracas)
}

// ToCaracas converts any time to the Caracas zone
func ToCaracas(t time.Time) time.Time {
	return t.In(Caracas)
}

// offsetLayouts cover Postgres text output (space separator, short offset)
// and the other offset spellings clients send.
var offsetLayouts = []string{
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999Z0700",
}

// ParseUTC parses a stored timestamp. Values without a zone designator
// (a missing trailing "Z") are read as UTC, never as local time.
func ParseUTC(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// FormatDate renders "dd/mm/yyyy hh:mm a. m." in Caracas time.
func FormatDate(t time.Time) string {
	local := t.In(Caracas)
	return local.Format(displayDate) + " " + local.Format(displayClock) + " " + meridiem(local)
}

// FormatTime renders "hh:mm a. m." in Caracas time.
func FormatTime(t time.Time) string {
	local := t.In(Caracas)
	return local.Format(displayClock) + " " + meridiem(local)
}

// FormatDateOnly renders "dd/mm/yyyy" in Caracas time.
func FormatDateOnly(t time.Time) string {
	return t.In(Caracas).Format(displayDate)
}

// FormatStored parses a stored timestamp with ParseUTC and applies format.
func FormatStored(s string, format func(time.Time) string) (string, error) {
	t, err := ParseUTC(s)
	if err != nil {
		return "", err
	}
	return format(t), nil
}

// LocalToUTC combines a Caracas calendar date ("2006-01-02") and wall clock
// ("15:04") into the corresponding UTC instant.
func LocalToUTC(date, clock string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+ClockLayout, strings.TrimSpace(date)+" "+strings.TrimSpace(clock), Caracas)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid local date/time %q %q: %w", date, clock, err)
	}
	return t.UTC(), nil
}

// ISOMillis formats t as a UTC ISO-8601 instant with millisecond precision.
func ISOMillis(t time.Time) string {
	return t.UTC().Format(ISOMillisLayout)
}

// StartOfDay returns 00:00 Caracas time for the day containing t
func StartOfDay(t time.Time) time.Time {
	local := t.In(Caracas)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Caracas)
}

func meridiem(t time.Time) string {
	if t.Hour() < 12 {
		return "a. m."
	}
	return "p. m."
}
