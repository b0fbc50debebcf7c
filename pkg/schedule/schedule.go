// Package schedule decides whether the hotline (or a single language) is
// staffed right now. The schedule document maps holiday and partial-day
// dates plus regular weekday hours to half-open local time ranges.
package schedule

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Hours is a half-open [begin, end) range of local 24-hour clock strings
// ("HH:MM:SS"). Nil begin and end mean closed for the day.
type Hours struct {
	Begin *string `yaml:"begin"`
	End   *string `yaml:"end"`
}

// Holiday marks a fully closed date.
type Holiday struct {
	Description string `yaml:"description"`
}

// PartialDay overrides regular hours for a single date.
type PartialDay struct {
	Begin       *string `yaml:"begin"`
	End         *string `yaml:"end"`
	Description string  `yaml:"description"`
}

// Schedule is the full hotline schedule. Dates are keyed as MM/DD/YYYY,
// weekdays by their English names. Languages holds optional per-language
// weekday hours that further restrict when a language is staffed.
type Schedule struct {
	Holidays     map[string]Holiday          `yaml:"holidays"`
	PartialDays  map[string]PartialDay       `yaml:"partialDays"`
	RegularHours map[string]Hours            `yaml:"regularHours"`
	Languages    map[string]map[string]Hours `yaml:"languages"`
}

const dateLayout = "01/02/2006"

// Load reads and validates a schedule document from a YAML file. The parsed
// schedule is threaded through the evaluator explicitly; nothing is loaded
// by name at evaluation time.
func Load(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule file: %w", err)
	}

	var s Schedule
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schedule file: %w", err)
	}

	if err := validate(&s); err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}

	return &s, nil
}

func validate(s *Schedule) error {
	for date := range s.Holidays {
		if _, err := time.Parse(dateLayout, date); err != nil {
			return fmt.Errorf("bad holiday date %q: %w", date, err)
		}
	}
	for date, day := range s.PartialDays {
		if _, err := time.Parse(dateLayout, date); err != nil {
			return fmt.Errorf("bad partial day date %q: %w", date, err)
		}
		if err := validateHours(day.Begin, day.End); err != nil {
			return fmt.Errorf("partial day %s: %w", date, err)
		}
	}
	for weekday, hours := range s.RegularHours {
		if !validWeekday(weekday) {
			return fmt.Errorf("unknown weekday %q", weekday)
		}
		if err := validateHours(hours.Begin, hours.End); err != nil {
			return fmt.Errorf("regular hours %s: %w", weekday, err)
		}
	}
	for language, days := range s.Languages {
		for weekday, hours := range days {
			if !validWeekday(weekday) {
				return fmt.Errorf("language %s: unknown weekday %q", language, weekday)
			}
			if err := validateHours(hours.Begin, hours.End); err != nil {
				return fmt.Errorf("language %s %s: %w", language, weekday, err)
			}
		}
	}
	return nil
}

func validateHours(begin, end *string) error {
	for _, clock := range []*string{begin, end} {
		if clock == nil {
			continue
		}
		if _, err := time.Parse(clockLayout, *clock); err != nil {
			return fmt.Errorf("bad clock value %q: %w", *clock, err)
		}
	}
	return nil
}

func validWeekday(name string) bool {
	switch name {
	case "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday":
		return true
	}
	return false
}
