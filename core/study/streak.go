package study

import (
	"time"

	"github.com/BlackishOne/StudySync/core"
)

// LevelForXP is the only source of a profile's level; level is never stored
// independently of xp.
func LevelForXP(xp int) int {
	return xp/1000 + 1
}

// HabitStreak counts the maximal run of consecutive completed days ending at
// today (or at yesterday when today is not yet completed). Re-derived in full
// from the completed set on every call, never tracked incrementally. Days are
// compared on the UTC calendar, matching the stored day strings.
func HabitStreak(completedDates []string, now time.Time) int {
	if len(completedDates) == 0 {
		return 0
	}
	completed := make(map[string]struct{}, len(completedDates))
	for _, d := range completedDates {
		completed[d] = struct{}{}
	}

	day := now.UTC()
	if _, ok := completed[core.Day(day)]; !ok {
		day = day.AddDate(0, 0, -1)
	}

	var streak int
	for {
		if _, ok := completed[core.Day(day)]; !ok {
			return streak
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}

// nextStudyStreak applies the profile-level study streak rule: no change when
// already logged today, +1 when the last study day was exactly yesterday,
// reset to 1 otherwise. Deliberately parallel to (not unified with) HabitStreak.
func nextStudyStreak(lastStudyDate string, current int, now time.Time) int {
	now = now.UTC() // lastStudyDate is stored as a UTC timestamp
	last := lastStudyDate
	if len(last) >= len(core.DayFormat) {
		last = last[:len(core.DayFormat)]
	}
	today := core.Day(now)
	if last == today {
		return current
	}
	if last == core.Day(now.AddDate(0, 0, -1)) {
		return current + 1
	}
	return 1
}
