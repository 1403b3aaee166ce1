package gamification

import (
	"testing"
	"time"
)

func day(offset int, hour int) time.Time {
	return time.Date(2024, 3, 15+offset, hour, 0, 0, 0, time.UTC)
}

func TestCalculateStreak(t *testing.T) {
	now := day(0, 18)
	tests := []struct {
		name   string
		events []time.Time
		want   Streak
	}{
		{"empty", nil, Streak{}},
		{"today only", []time.Time{day(0, 8)}, Streak{Current: 1, Longest: 1}},
		{"three consecutive days", []time.Time{day(-2, 9), day(-1, 9), day(0, 9)}, Streak{Current: 3, Longest: 3}},
		{"same day counts once", []time.Time{day(0, 7), day(0, 12), day(0, 17)}, Streak{Current: 1, Longest: 1}},
		{"no grace day", []time.Time{day(-3, 9), day(-2, 9), day(-1, 9)}, Streak{Current: 0, Longest: 3}},
		{
			"longest run before a gap",
			[]time.Time{day(-10, 9), day(-9, 9), day(-8, 9), day(-7, 9), day(-1, 9), day(0, 9)},
			Streak{Current: 2, Longest: 4},
		},
		{"unordered input", []time.Time{day(0, 9), day(-2, 9), day(-1, 9)}, Streak{Current: 3, Longest: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateStreak(tt.events, now); got != tt.want {
				t.Errorf("CalculateStreak() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCalculateStreakUsesLocalCalendar(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, loc)
	// 20:00 UTC on the 14th is already the 15th in UTC+8.
	events := []time.Time{time.Date(2024, 3, 14, 20, 0, 0, 0, time.UTC)}
	if got := CalculateStreak(events, now); got.Current != 1 {
		t.Errorf("current = %d, want 1", got.Current)
	}
}

func TestCurrentNeverExceedsLongest(t *testing.T) {
	now := day(0, 12)
	var events []time.Time
	for i := 0; i < 40; i++ {
		if i%5 == 3 {
			continue
		}
		events = append(events, day(-i, 10))
		s := CalculateStreak(events, now)
		if s.Current > s.Longest {
			t.Fatalf("after %d events: current %d > longest %d", len(events), s.Current, s.Longest)
		}
	}
}
