package models

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"0:30", 30 * time.Second},
		{"5:07", 5*time.Minute + 7*time.Second},
		{"30:00", 30 * time.Minute},
		{"1:30:00", 90 * time.Minute},
		{"12:00:05", 12*time.Hour + 5*time.Second},
		{" 4:20 ", 4*time.Minute + 20*time.Second},
	}

	for _, c := range cases {
		got, err := ParseClock(c.in)
		if err != nil {
			t.Fatalf("ParseClock(%q) failed: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseClock(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseClockRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "Unknown", "90", "1:99", "1:2:3:4", "-1:00", "1:234", "abc:def"} {
		if _, err := ParseClock(in); err == nil {
			t.Errorf("ParseClock(%q) should have failed", in)
		}
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{30 * time.Second, "0:30"},
		{90 * time.Minute, "1:30:00"},
		{5*time.Minute + 7*time.Second, "5:07"},
		{time.Hour, "1:00:00"},
	}

	for _, c := range cases {
		if got := FormatClock(c.in); got != c.want {
			t.Errorf("FormatClock(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatClockRoundTrips(t *testing.T) {
	for _, d := range []time.Duration{45 * time.Second, 10 * time.Minute, 2 * time.Hour} {
		parsed, err := ParseClock(FormatClock(d))
		if err != nil {
			t.Fatalf("round trip of %v failed: %v", d, err)
		}
		if parsed != d {
			t.Errorf("round trip of %v = %v", d, parsed)
		}
	}
}

func TestNormalizeQuery(t *testing.T) {
	if got := NormalizeQuery("  learn go  "); got != "learn go" {
		t.Errorf("NormalizeQuery = %q", got)
	}
	if IsQueryLine("") || IsQueryLine("# a comment") {
		t.Error("blank and comment lines must not be query lines")
	}
	if !IsQueryLine("learn go") {
		t.Error("plain line should be a query line")
	}
}
