package record

import (
	"errors"
	"fmt"
)

var ErrOutOfRange = errors.New("calendar field out of range")

// Timestamp is a wall-clock date and time. It carries no zone: the fields
// are the ones written in the source cell, never converted.
type Timestamp struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// NewTimestamp is the only way a valid Timestamp is built. Any field outside
// its calendar range yields ErrOutOfRange.
func NewTimestamp(year, month, day, hour, minute, second int) (Timestamp, error) {
	switch {
	case year < 1 || year > 9999:
		return Timestamp{}, fmt.Errorf("year %d: %w", year, ErrOutOfRange)
	case month < 1 || month > 12:
		return Timestamp{}, fmt.Errorf("month %d: %w", month, ErrOutOfRange)
	case day < 1 || day > DaysIn(year, month):
		return Timestamp{}, fmt.Errorf("day %d: %w", day, ErrOutOfRange)
	case hour < 0 || hour > 23:
		return Timestamp{}, fmt.Errorf("hour %d: %w", hour, ErrOutOfRange)
	case minute < 0 || minute > 59:
		return Timestamp{}, fmt.Errorf("minute %d: %w", minute, ErrOutOfRange)
	case second < 0 || second > 59:
		return Timestamp{}, fmt.Errorf("second %d: %w", second, ErrOutOfRange)
	}
	return Timestamp{year, month, day, hour, minute, second}, nil
}

// DaysIn returns the number of days in month of year, or 0 for an invalid month.
func DaysIn(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if isLeap(year) {
			return 29
		}
		return 28
	}
	return 0
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func (t Timestamp) IsZero() bool {
	return t == Timestamp{}
}

func (t Timestamp) Before(other Timestamp) bool {
	a := [...]int{t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second}
	b := [...]int{other.Year, other.Month, other.Day, other.Hour, other.Minute, other.Second}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d", t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second)
}
