package engine

import (
	"time"

	"finquest/core"
)

// StreakTransition classifies a session mount relative to the last login.
type StreakTransition int

const (
	// StreakFresh: no prior login; nothing happens until an explicit UPDATE_STREAK.
	StreakFresh StreakTransition = iota
	// StreakSameDay: already counted today.
	StreakSameDay
	// StreakConsecutive: last login was yesterday; the streak grows by one.
	StreakConsecutive
	// StreakBroken: a gap of two or more days, or a last login in the future.
	StreakBroken
)

func (t StreakTransition) String() string {
	switch t {
	case StreakFresh:
		return "fresh"
	case StreakSameDay:
		return "same_day"
	case StreakConsecutive:
		return "consecutive"
	case StreakBroken:
		return "broken"
	}
	return "unknown"
}

// ClassifyLogin compares calendar dates of lastLogin and now in loc.
func ClassifyLogin(lastLogin *time.Time, now time.Time, loc *time.Location) StreakTransition {
	if lastLogin == nil || lastLogin.IsZero() {
		return StreakFresh
	}
	if loc == nil {
		loc = time.UTC
	}
	today := civilDate(now.In(loc))
	last := civilDate(lastLogin.In(loc))
	switch {
	case last.Equal(today):
		return StreakSameDay
	case last.Equal(today.AddDate(0, 0, -1)):
		return StreakConsecutive
	default:
		return StreakBroken
	}
}

// StreakCheck returns the UPDATE_STREAK action the session policy requires on
// mount, or false when none is needed. Running it again the same day after its
// action has been applied yields false.
func StreakCheck(u core.UserProfile, now time.Time, loc *time.Location) (UpdateStreak, bool) {
	switch ClassifyLogin(u.LastLogin, now, loc) {
	case StreakConsecutive:
		return UpdateStreak{Streak: u.Streak + 1, At: now}, true
	case StreakBroken:
		return UpdateStreak{Streak: 1, At: now}, true
	}
	return UpdateStreak{}, false
}

// civilDate maps the calendar date of t to UTC midnight so dates compare across DST shifts.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
