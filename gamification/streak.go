package gamification

import (
	"sort"
	"time"
)

// Streak holds consecutive calendar-day counts.
type Streak struct {
	Current int `json:"current_streak"`
	Longest int `json:"longest_streak"`
}

// CalculateStreak computes the current and longest streak over event times.
// Events are bucketed by calendar date in now's location; several events
// on one day count once. The current streak walks back from today and is
// zero when today has no event: there is no grace day.
func CalculateStreak(events []time.Time, now time.Time) Streak {
	if len(events) == 0 {
		return Streak{}
	}
	loc := now.Location()

	seen := make(map[time.Time]struct{}, len(events))
	days := make([]time.Time, 0, len(events))
	for _, t := range events {
		d := calendarDay(t, loc)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}

	current := 0
	for d := calendarDay(now, loc); ; d = d.AddDate(0, 0, -1) {
		if _, ok := seen[d]; !ok {
			break
		}
		current++
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	return Streak{Current: current, Longest: longest}
}

// calendarDay returns the date of t in loc as midnight UTC, so that
// consecutive days are exactly 24h apart regardless of DST.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
