package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical wire format for civil dates.
const DateLayout = "2006-01-02"

// FormatError reports malformed date or wall-clock input.
type FormatError struct {
	Input string
	Want  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid time value %q, want %s", e.Input, e.Want)
}

// Clock anchors every calendar computation to one civil timezone so a "day"
// means the same thing across attendance, leave and the cron sweep. The now
// function is swappable for tests.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

func New(timezone string) (*Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// NewWithNow builds a clock with a fixed now function.
func NewWithNow(timezone string, now func() time.Time) (*Clock, error) {
	c, err := New(timezone)
	if err != nil {
		return nil, err
	}
	c.now = now
	return c, nil
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today is today's civil date key.
func (c *Clock) Today() string {
	return c.Now().Format(DateLayout)
}

// TodayDate is today's civil midnight.
func (c *Clock) TodayDate() time.Time {
	return c.DateOnly(c.Now())
}

// DateOnly truncates an instant to its civil midnight.
func (c *Clock) DateOnly(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
}

// DateKey is the canonical string key of an instant's civil date.
func (c *Clock) DateKey(t time.Time) string {
	return t.In(c.loc).Format(DateLayout)
}

// ParseDate parses a civil date key into midnight in the clock's timezone.
func (c *Clock) ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, c.loc)
	if err != nil {
		return time.Time{}, &FormatError{Input: s, Want: DateLayout}
	}
	return t, nil
}

// ShiftInstant combines a civil date with an HH:MM wall-clock time, yielding
// the instant the shift boundary falls on that date.
func (c *Clock) ShiftInstant(date time.Time, hhmm string) (time.Time, error) {
	hour, minute, err := parseWallClock(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	local := date.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, c.loc), nil
}

// SameDay reports whether two instants fall on the same civil date.
func (c *Clock) SameDay(a, b time.Time) bool {
	return c.DateKey(a) == c.DateKey(b)
}

func parseWallClock(hhmm string) (hour, minute int, err error) {
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 {
		return 0, 0, &FormatError{Input: hhmm, Want: "HH:MM"}
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, &FormatError{Input: hhmm, Want: "HH:MM"}
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, &FormatError{Input: hhmm, Want: "HH:MM"}
	}
	return hour, minute, nil
}
