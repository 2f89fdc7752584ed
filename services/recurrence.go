package services

import (
	"strconv"
	"strings"
	"time"
)

// Occurrence is the computed due/unlock pair for the next instance of a
// recurring duty.
type Occurrence struct {
	DueAt    time.Time
	UnlockAt time.Time
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

// NextOccurrence computes the next due/unlock timestamps for a recurrence
// rule. All math is done in UTC so results are timezone-stable.
//
// Two grammars are accepted:
//
//	"7"            due 7 days after base
//	"weekly:mon,thu"  earliest listed weekday strictly after base
//	"monthly:15"   earliest 15th strictly after base (clamped to month length)
//
// The occurrence keeps base's time of day. UnlockAt is DueAt minus the lead
// time, clamped so it never precedes base.
func NextOccurrence(rule string, base time.Time, leadTimeHours int) (Occurrence, error) {
	base = base.UTC()
	rule = strings.TrimSpace(strings.ToLower(rule))
	if rule == "" {
		return Occurrence{}, validationf("empty recurrence rule")
	}

	var due time.Time
	if n, err := strconv.Atoi(rule); err == nil {
		if n <= 0 {
			return Occurrence{}, validationf("interval must be positive, got %d", n)
		}
		due = base.AddDate(0, 0, n)
	} else {
		freq, sel, ok := strings.Cut(rule, ":")
		if !ok {
			return Occurrence{}, validationf("unrecognized recurrence rule %q", rule)
		}
		switch freq {
		case "weekly":
			days, err := parseWeekdays(sel)
			if err != nil {
				return Occurrence{}, err
			}
			due = nextWeekday(base, days)
		case "monthly":
			day, err := strconv.Atoi(strings.TrimSpace(sel))
			if err != nil || day < 1 || day > 31 {
				return Occurrence{}, validationf("invalid day of month %q", sel)
			}
			due = nextMonthDay(base, day)
		default:
			return Occurrence{}, validationf("unrecognized recurrence frequency %q", freq)
		}
	}

	unlock := due.Add(-time.Duration(leadTimeHours) * time.Hour)
	if unlock.Before(base) {
		unlock = base
	}
	return Occurrence{DueAt: due, UnlockAt: unlock}, nil
}

func parseWeekdays(sel string) (map[time.Weekday]bool, error) {
	days := make(map[time.Weekday]bool)
	for _, part := range strings.Split(sel, ",") {
		part = strings.TrimSpace(part)
		if len(part) < 3 {
			return nil, validationf("invalid weekday %q", part)
		}
		wd, ok := weekdayNames[part[:3]]
		if !ok {
			return nil, validationf("invalid weekday %q", part)
		}
		days[wd] = true
	}
	if len(days) == 0 {
		return nil, validationf("weekly rule selects no days")
	}
	return days, nil
}

// nextWeekday finds the earliest selected weekday strictly after base,
// preserving base's time of day.
func nextWeekday(base time.Time, days map[time.Weekday]bool) time.Time {
	for d := 1; d <= 7; d++ {
		cand := base.AddDate(0, 0, d)
		if days[cand.Weekday()] {
			return cand
		}
	}
	return base.AddDate(0, 0, 7) // unreachable; days is non-empty
}

// nextMonthDay finds the earliest occurrence of the given day of month
// strictly after base. Days past the end of a month clamp to its last day.
func nextMonthDay(base time.Time, day int) time.Time {
	for m := 0; ; m++ {
		// first-of-month anchor avoids AddDate overflow on short months
		y, mo, _ := time.Date(base.Year(), base.Month()+time.Month(m), 1, 0, 0, 0, 0, time.UTC).Date()
		d := day
		if last := daysIn(y, mo); d > last {
			d = last
		}
		cand := time.Date(y, mo, d, base.Hour(), base.Minute(), base.Second(), base.Nanosecond(), time.UTC)
		if cand.After(base) {
			return cand
		}
	}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
