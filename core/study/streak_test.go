package study

import (
	"testing"
	"time"
)

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{999, 1},
		{1000, 2},
		{1999, 2},
		{2500, 3},
		{10000, 11},
	}
	for _, tt := range tests {
		if got := LevelForXP(tt.xp); got != tt.want {
			t.Errorf("LevelForXP(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestHabitStreak(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		dates []string
		want  int
	}{
		{name: "empty", dates: nil, want: 0},
		{name: "today only", dates: []string{"2024-01-10"}, want: 1},
		{name: "today and yesterday", dates: []string{"2024-01-10", "2024-01-09"}, want: 2},
		{name: "today not yet done, run ends yesterday", dates: []string{"2024-01-09", "2024-01-08"}, want: 2},
		{name: "gap breaks the run", dates: []string{"2024-01-10", "2024-01-08", "2024-01-07"}, want: 1},
		{name: "stale history", dates: []string{"2024-01-05", "2024-01-04"}, want: 0},
		{name: "order does not matter", dates: []string{"2024-01-08", "2024-01-10", "2024-01-09"}, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HabitStreak(tt.dates, now); got != tt.want {
				t.Errorf("HabitStreak(%v) = %d, want %d", tt.dates, got, tt.want)
			}
		})
	}
}

func TestHabitStreak_zonedClock(t *testing.T) {
	// 01:00 +02:00 is still 23:00 on the previous day in UTC; the walk starts
	// from the UTC day, so the "2024-01-10" entry is not counted yet.
	now := time.Date(2024, 1, 10, 1, 0, 0, 0, time.FixedZone("EET", 2*3600))
	dates := []string{"2024-01-10", "2024-01-09"}
	if got := HabitStreak(dates, now); got != 1 {
		t.Errorf("HabitStreak(%v) = %d, want 1", dates, got)
	}
}

func Test_nextStudyStreak(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		last    string
		current int
		want    int
	}{
		{name: "never studied", last: "", current: 0, want: 1},
		{name: "already logged today", last: "2024-01-10T08:00:00Z", current: 4, want: 4},
		{name: "studied yesterday", last: "2024-01-09T22:30:00Z", current: 4, want: 5},
		{name: "missed a day", last: "2024-01-08T10:00:00Z", current: 9, want: 1},
		{name: "bare day string", last: "2024-01-09", current: 1, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextStudyStreak(tt.last, tt.current, now); got != tt.want {
				t.Errorf("nextStudyStreak(%q, %d) = %d, want %d", tt.last, tt.current, got, tt.want)
			}
		})
	}
}

func Test_nextStudyStreak_zonedClock(t *testing.T) {
	// A UTC lastStudyDate written moments earlier must still read as "today"
	// when the local clock has already crossed midnight.
	now := time.Date(2024, 1, 10, 1, 0, 0, 0, time.FixedZone("EET", 2*3600))
	if got := nextStudyStreak("2024-01-09T23:00:00Z", 3, now); got != 3 {
		t.Errorf("nextStudyStreak() = %d, want 3", got)
	}
}
