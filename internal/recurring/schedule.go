package recurring

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// maxOccurrences bounds a single expansion so FREQ=SECONDLY style rules
// cannot flood the transactions table.
const maxOccurrences = 366

// NormalizeRule trims the rule and drops an optional "RRULE:" prefix.
func NormalizeRule(rule string) string {
	rule = strings.TrimSpace(rule)
	if len(rule) >= 6 && strings.EqualFold(rule[:6], "RRULE:") {
		rule = rule[6:]
	}
	return strings.ToUpper(rule)
}

// Schedule builds the recurrence anchored at start and bounded by end.
// DTSTART and UNTIL inside rule are overridden by start and end.
func Schedule(rule string, start time.Time, end *time.Time) (*rrule.RRule, error) {
	opt, err := rrule.StrToROption(NormalizeRule(rule))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if opt.Freq > rrule.DAILY {
		return nil, fmt.Errorf("%w: frequency must be daily or coarser", ErrInvalidRule)
	}
	opt.Dtstart = day(start)
	if end != nil {
		opt.Until = day(*end)
	}

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return r, nil
}

// Occurrences lists the dates of rec between from and to, both inclusive.
func Occurrences(rec Recurring, from, to time.Time) ([]time.Time, error) {
	r, err := Schedule(rec.RRule, rec.StartDate, rec.EndDate)
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, 0)
	for _, t := range r.Between(day(from), day(to), true) {
		if len(out) == maxOccurrences {
			break
		}
		out = append(out, day(t))
	}
	return out, nil
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthBounds returns the first and last day of month.
func MonthBounds(month time.Time) (time.Time, time.Time) {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}
