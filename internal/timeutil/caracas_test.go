package timeutil

import (
	"testing"
	"time"
)

func TestLocalToUTC(t *testing.T) {
	got, err := LocalToUTC("2025-01-15", "09:55")
	if err != nil {
		t.Fatalf("LocalToUTC: %v", err)
	}
	if iso := ISOMillis(got); iso != "2025-01-15T13:55:00.000Z" {
		t.Fatalf("expected 2025-01-15T13:55:00.000Z, got %s", iso)
	}
}

func TestLocalToUTC_CrossesMidnight(t *testing.T) {
	got, err := LocalToUTC("2025-01-15", "22:30")
	if err != nil {
		t.Fatalf("LocalToUTC: %v", err)
	}
	if iso := ISOMillis(got); iso != "2025-01-16T02:30:00.000Z" {
		t.Fatalf("unexpected instant %s", iso)
	}
}

func TestLocalToUTC_Invalid(t *testing.T) {
	for _, tc := range []struct{ date, clock string }{
		{"", "09:55"},
		{"2025-01-15", ""},
		{"15/01/2025", "09:55"},
		{"2025-01-15", "25:00"},
	} {
		if _, err := LocalToUTC(tc.date, tc.clock); err == nil {
			t.Errorf("expected error for %q %q", tc.date, tc.clock)
		}
	}
}

func TestParseUTC_MissingZoneIsUTC(t *testing.T) {
	withZ, err := ParseUTC("2025-01-15T13:55:00Z")
	if err != nil {
		t.Fatalf("parse with Z: %v", err)
	}
	tests := []string{
		"2025-01-15T13:55:00",
		"2025-01-15T13:55:00.000",
		"2025-01-15 13:55:00",
		"2025-01-15 13:55:00+00",
		"2025-01-15T09:55:00-04:00",
		"2025-01-15 13:55:00+00:00",
		"2025-01-15 09:55:00-04:00",
		"2025-01-15 09:55:00-0400",
		"2025-01-15T13:55:00+0000",
		"2025-01-15T09:55:00-04",
		"2025-01-15 13:55:00Z",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			got, err := ParseUTC(in)
			if err != nil {
				t.Fatalf("ParseUTC(%q): %v", in, err)
			}
			if !got.Equal(withZ) {
				t.Fatalf("ParseUTC(%q) = %s, want %s", in, got, withZ)
			}
		})
	}
}

func TestParseUTC_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "yesterday", "2025-13-45T00:00:00"} {
		if _, err := ParseUTC(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestFormatters(t *testing.T) {
	tests := []struct {
		name   string
		stored string
		format func(time.Time) string
		want   string
	}{
		{"date morning", "2025-01-15T13:55:00", FormatDate, "15/01/2025 09:55 a. m."},
		{"date afternoon", "2025-01-15T20:05:00Z", FormatDate, "15/01/2025 04:05 p. m."},
		{"time noon", "2025-01-15T16:00:00", FormatTime, "12:00 p. m."},
		{"time midnight", "2025-01-16T04:00:00", FormatTime, "12:00 a. m."},
		{"date only previous day", "2025-01-16T02:30:00", FormatDateOnly, "15/01/2025"},
		{"date only", "2025-01-15T13:55:00.000Z", FormatDateOnly, "15/01/2025"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FormatStored(tc.stored, tc.format)
			if err != nil {
				t.Fatalf("FormatStored: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCaracasOffset(t *testing.T) {
	_, offset := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC).In(Caracas).Zone()
	if offset != -4*60*60 {
		t.Fatalf("expected UTC-4, got %d seconds", offset)
	}
}

func TestStartOfDay(t *testing.T) {
	in := time.Date(2025, 1, 16, 2, 30, 0, 0, time.UTC)
	got := StartOfDay(in)
	if got.Day() != 15 || got.Hour() != 0 || got.Location() != Caracas {
		t.Fatalf("unexpected start of day %s", got)
	}
}
