package eval

import (
	"errors"
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}

	return t
}

func TestParseDatePart(t *testing.T) {
	tests := []struct {
		name     string
		expected DatePart
	}{
		{"year", DatePartYear},
		{"yy", DatePartYear},
		{"YYYY", DatePartYear},
		{"quarter", DatePartQuarter},
		{"q", DatePartQuarter},
		{"mm", DatePartMonth},
		{"dd", DatePartDay},
		{"dy", DatePartDayOfYear},
		{"ww", DatePartWeek},
		{"hh", DatePartHour},
		{"n", DatePartMinute},
		{"ss", DatePartSecond},
		{"ms", DatePartMillisecond},
	}

	for _, tt := range tests {
		part, err := ParseDatePart(tt.name)
		if err != nil {
			t.Fatalf("ParseDatePart(%q) failed: %v", tt.name, err)
		}

		if part != tt.expected {
			t.Errorf("ParseDatePart(%q): expected=%q, got=%q", tt.name, tt.expected, part)
		}
	}

	if _, err := ParseDatePart("fortnight"); !errors.Is(err, ErrInvalidDatePart) {
		t.Errorf("expected ErrInvalidDatePart, got %v", err)
	}
}

func TestDateAdd(t *testing.T) {
	tests := []struct {
		part     DatePart
		n        int64
		input    string
		expected string
	}{
		{DatePartDay, 10, "2024-01-01 00:00:00", "2024-01-11 00:00:00"},
		{DatePartDay, -1, "2024-03-01 00:00:00", "2024-02-29 00:00:00"},
		{DatePartWeek, 2, "2024-01-01 00:00:00", "2024-01-15 00:00:00"},
		// month arithmetic clamps to the last day of the target month
		{DatePartMonth, 1, "2024-01-31 00:00:00", "2024-02-29 00:00:00"},
		{DatePartMonth, 1, "2023-01-31 00:00:00", "2023-02-28 00:00:00"},
		{DatePartMonth, -2, "2024-03-31 00:00:00", "2024-01-31 00:00:00"},
		{DatePartMonth, 13, "2024-01-31 00:00:00", "2025-02-28 00:00:00"},
		{DatePartQuarter, 1, "2024-11-30 00:00:00", "2025-02-28 00:00:00"},
		{DatePartYear, 1, "2024-02-29 00:00:00", "2025-02-28 00:00:00"},
		{DatePartHour, 25, "2024-01-01 00:00:00", "2024-01-02 01:00:00"},
		{DatePartMinute, 90, "2024-01-01 00:00:00", "2024-01-01 01:30:00"},
		{DatePartSecond, -30, "2024-01-01 00:00:15", "2023-12-31 23:59:45"},
	}

	for _, tt := range tests {
		got := dateAdd(tt.part, tt.n, date(tt.input))

		if formatted := got.Format("2006-01-02 15:04:05"); formatted != tt.expected {
			t.Errorf("dateAdd(%s, %d, %s): expected=%q, got=%q",
				tt.part, tt.n, tt.input, tt.expected, formatted)
		}
	}
}

func TestDateDiff(t *testing.T) {
	tests := []struct {
		part     DatePart
		a        string
		b        string
		expected int64
	}{
		{DatePartDay, "2024-01-01 00:00:00", "2024-01-31 00:00:00", 30},
		// boundary crossings, not elapsed duration
		{DatePartDay, "2024-01-01 23:59:59", "2024-01-02 00:00:01", 1},
		{DatePartDay, "2024-01-31 00:00:00", "2024-01-01 00:00:00", -30},
		{DatePartMonth, "2024-01-31 00:00:00", "2024-02-01 00:00:00", 1},
		{DatePartMonth, "2023-12-15 00:00:00", "2024-02-15 00:00:00", 2},
		{DatePartQuarter, "2024-03-31 00:00:00", "2024-04-01 00:00:00", 1},
		{DatePartYear, "2023-12-31 00:00:00", "2024-01-01 00:00:00", 1},
		{DatePartHour, "2024-01-01 10:59:00", "2024-01-01 11:01:00", 1},
		{DatePartMinute, "2024-01-01 10:00:59", "2024-01-01 10:01:01", 1},
		{DatePartSecond, "2024-01-01 10:00:00", "2024-01-01 10:00:42", 42},
		{DatePartMillisecond, "2024-01-01 10:00:00", "2024-01-01 10:00:01", 1000},
	}

	for _, tt := range tests {
		got, err := dateDiff(tt.part, date(tt.a), date(tt.b))
		if err != nil {
			t.Fatalf("dateDiff(%s, %s, %s) failed: %v", tt.part, tt.a, tt.b, err)
		}

		if got != tt.expected {
			t.Errorf("dateDiff(%s, %s, %s): expected=%d, got=%d",
				tt.part, tt.a, tt.b, tt.expected, got)
		}
	}
}

func TestDateDiffMillisecondOverflow(t *testing.T) {
	a := time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(300000000, time.January, 1, 0, 0, 0, 0, time.UTC)

	_, err := dateDiff(DatePartMillisecond, a, b)
	if !errors.Is(err, ErrNumericOverflow) {
		t.Fatalf("expected ErrNumericOverflow, got %v", err)
	}
}

func TestDatePartOf(t *testing.T) {
	at := date("2024-05-15 13:45:30")

	tests := []struct {
		part     DatePart
		expected int64
	}{
		{DatePartYear, 2024},
		{DatePartQuarter, 2},
		{DatePartMonth, 5},
		{DatePartDay, 15},
		{DatePartDayOfYear, 136},
		{DatePartHour, 13},
		{DatePartMinute, 45},
		{DatePartSecond, 30},
	}

	for _, tt := range tests {
		if got := datePartOf(tt.part, at); got != tt.expected {
			t.Errorf("datePartOf(%s): expected=%d, got=%d", tt.part, tt.expected, got)
		}
	}
}

func TestDateTrunc(t *testing.T) {
	at := date("2024-05-15 13:45:30")

	tests := []struct {
		part     DatePart
		expected string
	}{
		{DatePartYear, "2024-01-01 00:00:00"},
		{DatePartQuarter, "2024-04-01 00:00:00"},
		{DatePartMonth, "2024-05-01 00:00:00"},
		{DatePartDay, "2024-05-15 00:00:00"},
		{DatePartWeek, "2024-05-12 00:00:00"},
		{DatePartHour, "2024-05-15 13:00:00"},
		{DatePartMinute, "2024-05-15 13:45:00"},
	}

	for _, tt := range tests {
		got := dateTrunc(tt.part, at)

		if formatted := got.Format("2006-01-02 15:04:05"); formatted != tt.expected {
			t.Errorf("dateTrunc(%s): expected=%q, got=%q", tt.part, tt.expected, formatted)
		}
	}
}
