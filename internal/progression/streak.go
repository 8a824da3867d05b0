package progression

import "time"

// StreakState is the part of an account the streak calculator reads and writes.
type StreakState struct {
	Days         int
	LastReadDate *time.Time // midnight UTC of the local calendar day
}

// CalendarDay maps an instant to its calendar day in loc, expressed as
// midnight UTC so days can be compared without zone arithmetic.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// NextStreak applies one activity to the streak.
//
// Same day leaves the streak alone, the next day extends it, a gap of two or
// more days restarts it at 1. Activity dated before the last recorded day is
// ignored: the streak only follows the most recent day processed.
func NextStreak(prev StreakState, activityAt time.Time, loc *time.Location) StreakState {
	day := CalendarDay(activityAt, loc)
	if prev.LastReadDate == nil {
		return StreakState{Days: 1, LastReadDate: &day}
	}

	gap := daysBetween(*prev.LastReadDate, day)
	switch {
	case gap < 0:
		return prev
	case gap == 0:
		if prev.Days < 1 {
			return StreakState{Days: 1, LastReadDate: prev.LastReadDate}
		}
		return prev
	case gap == 1:
		return StreakState{Days: prev.Days + 1, LastReadDate: &day}
	default:
		return StreakState{Days: 1, LastReadDate: &day}
	}
}

// EffectiveStreak is the streak as of now: a stored streak whose last day is
// older than yesterday has already been broken.
func EffectiveStreak(state StreakState, now time.Time, loc *time.Location) int {
	if state.LastReadDate == nil {
		return 0
	}
	if daysBetween(*state.LastReadDate, CalendarDay(now, loc)) > 1 {
		return 0
	}
	return state.Days
}

func (e *Engine) location(timezone string) *time.Location {
	name := timezone
	if name == "" {
		name = e.rules.DefaultTimezone
	}
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		e.log.Warn("unknown timezone, falling back to UTC", "timezone", name)
		return time.UTC
	}
	return loc
}
