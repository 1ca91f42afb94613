// Package scheduler decides when each auto-submitting project posts next and
// schedules the submission jobs.
package scheduler

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rotisserie/eris"
)

// MonthDays is the month length used for cadence. Calendar months are not
// used, so four posts a month are always 7.5 days apart.
const MonthDays = 30

// FirstPostDelay is how long a project without a preferred time waits for
// its first post
const FirstPostDelay = 5 * time.Minute

// TimeOfDay is a wall clock time in the project's time zone
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay parses HH:MM or HH:MM:SS
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return TimeOfDay{}, eris.Errorf("invalid time of day %q", s)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// on returns the time of day on the calendar date of day, in loc
func (t TimeOfDay) on(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, t.Second, 0, loc)
}

// Interval is the time between two posts at the given frequency
func Interval(postsPerMonth int) time.Duration {
	if postsPerMonth <= 0 {
		postsPerMonth = 1
	}
	return MonthDays * 24 * time.Hour / time.Duration(postsPerMonth)
}

// ResolveLocation loads an IANA zone. Empty names are UTC; unknown names are
// UTC with ok set to false.
func ResolveLocation(name *string) (loc *time.Location, ok bool) {
	if name == nil || strings.TrimSpace(*name) == "" {
		return time.UTC, true
	}
	loc, err := time.LoadLocation(strings.TrimSpace(*name))
	if err != nil {
		return time.UTC, false
	}
	return loc, true
}

// NextPostTime computes when the next post of a project is due.
//
// Without a prior post it is today at the preferred time, or tomorrow when
// that time has passed, or FirstPostDelay from now without a preferred time.
// With a prior post it is lastPosted plus the interval, moved to the
// preferred time of that day when one is set.
func NextPostTime(now time.Time, lastPosted *time.Time, postsPerMonth int, loc *time.Location, preferred *TimeOfDay) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	nowLocal := now.In(loc)

	if lastPosted == nil {
		if preferred == nil {
			return nowLocal.Add(FirstPostDelay)
		}
		next := preferred.on(nowLocal, loc)
		if next.Before(nowLocal) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}

	next := lastPosted.In(loc).Add(Interval(postsPerMonth))
	if preferred != nil {
		next = preferred.on(next, loc)
	}
	return next
}
