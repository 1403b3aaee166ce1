package gamification

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cppla/lifetrack/models"
)

const (
	activityDays = 7
	dateLayout   = "2006-01-02"
)

type Activity struct {
	ID          string            `json:"id"`
	SourceType  models.SourceType `json:"source_type"`
	SourceID    string            `json:"source_id"`
	Description string            `json:"description"`
	Points      int64             `json:"points"`
	Time        string            `json:"time"`
	CreatedAt   time.Time         `json:"created_at"`
}

type DailyActivity struct {
	Date       string     `json:"date"`
	Weekday    string     `json:"weekday"`
	CheckIns   int        `json:"check_ins"`
	Workouts   int        `json:"workouts"`
	Exercises  int        `json:"exercises"`
	Points     int64      `json:"points"`
	Activities []Activity `json:"activities"`
}

type ActivitySummary struct {
	TotalCheckIns  int   `json:"total_check_ins"`
	TotalWorkouts  int   `json:"total_workouts"`
	TotalExercises int   `json:"total_exercises"`
	TotalPoints    int64 `json:"total_points"`
	ActiveDays     int   `json:"active_days"`
}

type ActivityPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeeklyActivity covers the last seven local days, today included, oldest first.
type WeeklyActivity struct {
	Period        ActivityPeriod  `json:"period"`
	DailyActivity []DailyActivity `json:"daily_activity"`
	Summary       ActivitySummary `json:"summary"`
}

func (e *Engine) GetWeeklyActivity(ctx context.Context, userID, unitID string) (WeeklyActivity, error) {
	userID = strings.TrimSpace(userID)
	unitID = strings.TrimSpace(unitID)
	if userID == "" {
		return WeeklyActivity{}, validationError("user id is required")
	}

	now := e.clock.Now()
	today := startOfDay(now)
	first := today.AddDate(0, 0, -(activityDays - 1))

	txs, err := e.ledger.Query(ctx, TransactionFilter{
		UserID: userID,
		UnitID: &unitID,
		From:   first,
		To:     today.AddDate(0, 0, 1),
	}, QueryOptions{Ascending: true})
	if err != nil {
		return WeeklyActivity{}, fmt.Errorf("query weekly transactions: %w", err)
	}

	days := make([]DailyActivity, activityDays)
	index := make(map[string]int, activityDays)
	for i := range days {
		d := first.AddDate(0, 0, i)
		key := d.Format(dateLayout)
		days[i] = DailyActivity{Date: key, Weekday: d.Weekday().String(), Activities: []Activity{}}
		index[key] = i
	}

	loc := now.Location()
	for _, tx := range txs {
		at := tx.CreatedAt.In(loc)
		i, ok := index[at.Format(dateLayout)]
		if !ok {
			continue
		}
		day := &days[i]
		switch tx.SourceType {
		case models.SourceCheckIn:
			day.CheckIns++
		case models.SourceWorkoutCompletion:
			day.Workouts++
		case models.SourceExerciseCompletion:
			day.Exercises++
		}
		day.Points += tx.Points
		day.Activities = append(day.Activities, Activity{
			ID:          tx.ID,
			SourceType:  tx.SourceType,
			SourceID:    tx.SourceID,
			Description: tx.Description,
			Points:      tx.Points,
			Time:        at.Format("15:04"),
			CreatedAt:   at,
		})
	}

	var summary ActivitySummary
	for i := range days {
		day := &days[i]
		sort.SliceStable(day.Activities, func(a, b int) bool {
			return day.Activities[a].CreatedAt.Before(day.Activities[b].CreatedAt)
		})
		summary.TotalCheckIns += day.CheckIns
		summary.TotalWorkouts += day.Workouts
		summary.TotalExercises += day.Exercises
		summary.TotalPoints += day.Points
		if len(day.Activities) > 0 {
			summary.ActiveDays++
		}
	}

	return WeeklyActivity{
		Period:        ActivityPeriod{Start: first.Format(dateLayout), End: today.Format(dateLayout)},
		DailyActivity: days,
		Summary:       summary,
	}, nil
}
