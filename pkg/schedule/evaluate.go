package schedule

import (
	"fmt"
	"time"
)

const clockLayout = "15:04:05"

// Evaluation is the result of checking the schedule at a point in time.
// Exactly one of IsHoliday, IsPartialDay, IsRegularDay is set; precedence is
// holiday > partial day > regular weekday hours.
type Evaluation struct {
	IsHoliday    bool
	IsPartialDay bool
	IsRegularDay bool
	IsOpen       bool
	Description  string
}

// WithinRange reports whether now falls inside [begin, end) with both clock
// strings anchored to today's calendar date in the given timezone. Anchoring
// uses the zone's offset for today, so the check stays correct across DST
// transitions. Empty begin or end means closed and returns false without
// error. A range whose end precedes its begin is treated as never open; the
// upstream data has no meaningful midnight-crossing shifts.
func WithinRange(now time.Time, begin, end, timezone string) (bool, error) {
	if begin == "" || end == "" {
		return false, nil
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return false, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}
	local := now.In(loc)

	beginAt, err := anchorClock(begin, local, loc)
	if err != nil {
		return false, err
	}
	endAt, err := anchorClock(end, local, loc)
	if err != nil {
		return false, err
	}

	if !endAt.After(beginAt) {
		return false, nil
	}
	return !local.Before(beginAt) && local.Before(endAt), nil
}

// anchorClock places an HH:MM:SS clock string on the local calendar date.
func anchorClock(clock string, local time.Time, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(clockLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad clock value %q: %w", clock, err)
	}
	return time.Date(local.Year(), local.Month(), local.Day(),
		t.Hour(), t.Minute(), t.Second(), 0, loc), nil
}

// Evaluate checks the full schedule for the given instant. It is a pure
// function of the schedule data and now.
func Evaluate(s *Schedule, timezone string, now time.Time) (Evaluation, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Evaluation{}, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}
	local := now.In(loc)
	date := local.Format(dateLayout)

	if holiday, ok := s.Holidays[date]; ok {
		return Evaluation{IsHoliday: true, Description: holiday.Description}, nil
	}

	if partial, ok := s.PartialDays[date]; ok {
		open, err := WithinRange(now, clockOrEmpty(partial.Begin), clockOrEmpty(partial.End), timezone)
		if err != nil {
			return Evaluation{}, err
		}
		return Evaluation{IsPartialDay: true, IsOpen: open, Description: partial.Description}, nil
	}

	hours := s.RegularHours[local.Weekday().String()]
	open, err := WithinRange(now, clockOrEmpty(hours.Begin), clockOrEmpty(hours.End), timezone)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{IsRegularDay: true, IsOpen: open}, nil
}

// EvaluateLanguage is Evaluate restricted to a single language's weekday
// hours. Holidays and partial days still take precedence over the language
// sub-schedule. An unknown language is closed.
func EvaluateLanguage(s *Schedule, language, timezone string, now time.Time) (Evaluation, error) {
	days, ok := s.Languages[language]
	if !ok {
		return Evaluation{IsRegularDay: true}, nil
	}

	restricted := Schedule{
		Holidays:     s.Holidays,
		PartialDays:  s.PartialDays,
		RegularHours: days,
	}
	return Evaluate(&restricted, timezone, now)
}

func clockOrEmpty(clock *string) string {
	if clock == nil {
		return ""
	}
	return *clock
}
