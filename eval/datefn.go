package eval

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DatePart is a canonical date granularity
type DatePart string

// Canonical dateparts
const (
	DatePartYear        DatePart = "year"
	DatePartQuarter     DatePart = "quarter"
	DatePartMonth       DatePart = "month"
	DatePartDay         DatePart = "day"
	DatePartDayOfYear   DatePart = "dayofyear"
	DatePartWeek        DatePart = "week"
	DatePartHour        DatePart = "hour"
	DatePartMinute      DatePart = "minute"
	DatePartSecond      DatePart = "second"
	DatePartMillisecond DatePart = "millisecond"
)

// datePartSynonyms normalizes T-SQL datepart spellings to the canonical set
var datePartSynonyms = map[string]DatePart{
	"year":        DatePartYear,
	"yy":          DatePartYear,
	"yyyy":        DatePartYear,
	"quarter":     DatePartQuarter,
	"qq":          DatePartQuarter,
	"q":           DatePartQuarter,
	"month":       DatePartMonth,
	"mm":          DatePartMonth,
	"m":           DatePartMonth,
	"day":         DatePartDay,
	"dd":          DatePartDay,
	"d":           DatePartDay,
	"dayofyear":   DatePartDayOfYear,
	"dy":          DatePartDayOfYear,
	"doy":         DatePartDayOfYear,
	"week":        DatePartWeek,
	"wk":          DatePartWeek,
	"ww":          DatePartWeek,
	"hour":        DatePartHour,
	"hh":          DatePartHour,
	"minute":      DatePartMinute,
	"mi":          DatePartMinute,
	"n":           DatePartMinute,
	"second":      DatePartSecond,
	"ss":          DatePartSecond,
	"s":           DatePartSecond,
	"millisecond": DatePartMillisecond,
	"ms":          DatePartMillisecond,
}

// ParseDatePart normalizes a datepart keyword. Unrecognized spellings are a
// hard error, never a silent default.
func ParseDatePart(name string) (DatePart, error) {
	if part, ok := datePartSynonyms[strings.ToLower(name)]; ok {
		return part, nil
	}

	return "", fmt.Errorf("%q: %w", name, ErrInvalidDatePart)
}

// dateAdd adds n units to t with calendar-correct month/quarter/year math:
// adding a month to Jan 31 lands on the last day of February, never March.
func dateAdd(part DatePart, n int64, t time.Time) time.Time {
	switch part {
	case DatePartYear:
		return addMonthsClamped(t, n*12)
	case DatePartQuarter:
		return addMonthsClamped(t, n*3)
	case DatePartMonth:
		return addMonthsClamped(t, n)
	case DatePartDay, DatePartDayOfYear:
		return t.AddDate(0, 0, int(n))
	case DatePartWeek:
		return t.AddDate(0, 0, int(n)*7)
	case DatePartHour:
		return t.Add(time.Duration(n) * time.Hour)
	case DatePartMinute:
		return t.Add(time.Duration(n) * time.Minute)
	case DatePartSecond:
		return t.Add(time.Duration(n) * time.Second)
	case DatePartMillisecond:
		return t.Add(time.Duration(n) * time.Millisecond)
	}

	return t
}

func addMonthsClamped(t time.Time, months int64) time.Time {
	year, month, day := t.Date()

	total := int64(year)*12 + int64(month-1) + months
	targetYear := int(total / 12)
	targetMonth := time.Month(total%12) + 1

	if total < 0 && total%12 != 0 {
		targetYear--
		targetMonth += 12
	}

	if last := daysInMonth(targetYear, targetMonth); day > last {
		day = last
	}

	return time.Date(targetYear, targetMonth, day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// dateDiff counts datepart boundary crossings between a and b, not elapsed
// duration: DATEDIFF(day, ...) is the difference of the two dates' day
// components regardless of time of day.
func dateDiff(part DatePart, a, b time.Time) (int64, error) {
	switch part {
	case DatePartYear:
		return int64(b.Year() - a.Year()), nil
	case DatePartQuarter:
		return int64(b.Year()-a.Year())*4 + int64(quarterOf(b)-quarterOf(a)), nil
	case DatePartMonth:
		return int64(b.Year()-a.Year())*12 + int64(b.Month()-a.Month()), nil
	case DatePartDay, DatePartDayOfYear:
		return dayNumber(b) - dayNumber(a), nil
	case DatePartWeek:
		return floorDiv(dayNumber(b)+4, 7) - floorDiv(dayNumber(a)+4, 7), nil
	case DatePartHour:
		return floorDiv(b.Unix(), 3600) - floorDiv(a.Unix(), 3600), nil
	case DatePartMinute:
		return floorDiv(b.Unix(), 60) - floorDiv(a.Unix(), 60), nil
	case DatePartSecond:
		return b.Unix() - a.Unix(), nil
	case DatePartMillisecond:
		return millisecondDiff(a, b)
	}

	return 0, fmt.Errorf("%q: %w", part, ErrInvalidDatePart)
}

func millisecondDiff(a, b time.Time) (int64, error) {
	secs := b.Unix() - a.Unix()
	if secs > math.MaxInt64/1000 || secs < math.MinInt64/1000 {
		return 0, fmt.Errorf("millisecond difference: %w", ErrNumericOverflow)
	}

	return secs*1000 + int64(b.Nanosecond()/1e6) - int64(a.Nanosecond()/1e6), nil
}

// dayNumber returns the number of days since the Unix epoch for the date
// component of t.
func dayNumber(t time.Time) int64 {
	return floorDiv(t.Unix(), 86400)
}

// floorDiv divides rounding toward negative infinity
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}

	return q
}

// datePartOf extracts the datepart component of t
func datePartOf(part DatePart, t time.Time) int64 {
	switch part {
	case DatePartYear:
		return int64(t.Year())
	case DatePartQuarter:
		return int64(quarterOf(t))
	case DatePartMonth:
		return int64(t.Month())
	case DatePartDay:
		return int64(t.Day())
	case DatePartDayOfYear:
		return int64(t.YearDay())
	case DatePartWeek:
		return int64(weekOf(t))
	case DatePartHour:
		return int64(t.Hour())
	case DatePartMinute:
		return int64(t.Minute())
	case DatePartSecond:
		return int64(t.Second())
	case DatePartMillisecond:
		return int64(t.Nanosecond() / 1e6)
	}

	return 0
}

func quarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// weekOf counts Sunday-started weeks from January 1st
func weekOf(t time.Time) int {
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	return (t.YearDay() - 1 + int(jan1.Weekday())) / 7 + 1
}

// dateTrunc truncates t to the start of the datepart
func dateTrunc(part DatePart, t time.Time) time.Time {
	switch part {
	case DatePartYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	case DatePartQuarter:
		month := time.Month((quarterOf(t)-1)*3 + 1)
		return time.Date(t.Year(), month, 1, 0, 0, 0, 0, t.Location())
	case DatePartMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case DatePartDay, DatePartDayOfYear:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	case DatePartWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		return day.AddDate(0, 0, -int(day.Weekday()))
	case DatePartHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	case DatePartMinute:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	case DatePartSecond:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, t.Location())
	case DatePartMillisecond:
		return t.Truncate(time.Millisecond)
	}

	return t
}
