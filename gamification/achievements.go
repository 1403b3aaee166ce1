package gamification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/lifetrack/models"
)

// Stats is the live snapshot achievements are evaluated against.
type Stats struct {
	TotalPoints       int64 `json:"total_points"`
	Streak            int   `json:"streak"`
	HabitsCompleted   int64 `json:"habits_completed"`
	RoutinesCompleted int64 `json:"routines_completed"`
}

func (s Stats) metric(t models.CriteriaType) (int64, bool) {
	switch t {
	case models.CriteriaStreak:
		return int64(s.Streak), true
	case models.CriteriaPoints:
		return s.TotalPoints, true
	case models.CriteriaHabitCount:
		return s.HabitsCompleted, true
	case models.CriteriaRoutineCount:
		return s.RoutinesCompleted, true
	}
	return 0, false
}

// AchievementStatus is a catalog entry annotated for one user.
type AchievementStatus struct {
	models.Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// DefaultAchievements is the fixed catalog seeded by CreateDefaultAchievements.
func DefaultAchievements() []models.Achievement {
	return []models.Achievement{
		{AchievementID: "first_checkin", Name: "First Step", Description: "Complete your first check-in.", Icon: "👣", CriteriaType: models.CriteriaStreak, CriteriaValue: 1},
		{AchievementID: "streak_3", Name: "On a Roll", Description: "Check in three days in a row.", Icon: "🔥", CriteriaType: models.CriteriaStreak, CriteriaValue: 3},
		{AchievementID: "streak_7", Name: "Week Warrior", Description: "Check in seven days in a row.", Icon: "📅", CriteriaType: models.CriteriaStreak, CriteriaValue: 7},
		{AchievementID: "streak_30", Name: "Monthly Machine", Description: "Check in thirty days in a row.", Icon: "💪", CriteriaType: models.CriteriaStreak, CriteriaValue: 30},
		{AchievementID: "points_100", Name: "Century", Description: "Earn 100 points.", Icon: "💯", CriteriaType: models.CriteriaPoints, CriteriaValue: 100},
		{AchievementID: "points_1000", Name: "Point Collector", Description: "Earn 1000 points.", Icon: "💰", CriteriaType: models.CriteriaPoints, CriteriaValue: 1000},
		{AchievementID: "points_10000", Name: "Legend", Description: "Earn 10000 points.", Icon: "👑", CriteriaType: models.CriteriaPoints, CriteriaValue: 10000},
		{AchievementID: "habit_1", Name: "Habit Starter", Description: "Complete your first habit.", Icon: "🌱", CriteriaType: models.CriteriaHabitCount, CriteriaValue: 1},
		{AchievementID: "habit_50", Name: "Habit Builder", Description: "Complete 50 habits.", Icon: "🌳", CriteriaType: models.CriteriaHabitCount, CriteriaValue: 50},
		{AchievementID: "routine_1", Name: "Routine Rookie", Description: "Complete your first routine.", Icon: "⏰", CriteriaType: models.CriteriaRoutineCount, CriteriaValue: 1},
		{AchievementID: "routine_25", Name: "Routine Master", Description: "Complete 25 routines.", Icon: "🏆", CriteriaType: models.CriteriaRoutineCount, CriteriaValue: 25},
	}
}

// CreateDefaultAchievements seeds the default catalog, skipping entries
// that already exist. It returns how many entries were inserted.
func (e *Engine) CreateDefaultAchievements(ctx context.Context) (int, error) {
	created := 0
	for _, a := range DefaultAchievements() {
		ok, err := e.achievements.UpsertCatalog(ctx, a)
		if err != nil {
			return created, fmt.Errorf("seed achievement %s: %w", a.AchievementID, err)
		}
		if ok {
			created++
		}
	}
	e.logger.Info("achievement catalog seeded", zap.Int("created", created))
	return created, nil
}

// CheckAndUnlock unlocks every catalog achievement whose criterion holds
// for stats and that the user does not hold yet. Re-running with the same
// stats unlocks nothing. Unknown criteria types never unlock.
func (e *Engine) CheckAndUnlock(ctx context.Context, userID string, stats Stats) ([]models.Achievement, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, validationError("user id is required")
	}

	catalog, err := e.achievements.ListCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("list achievement catalog: %w", err)
	}
	held, err := e.achievements.ListUnlocked(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list unlocked achievements: %w", err)
	}
	unlocked := make(map[string]struct{}, len(held))
	for _, ua := range held {
		unlocked[ua.AchievementID] = struct{}{}
	}

	var newly []models.Achievement
	now := e.clock.Now()
	for _, a := range catalog {
		if _, ok := unlocked[a.AchievementID]; ok {
			continue
		}
		value, known := stats.metric(a.CriteriaType)
		if !known || value < a.CriteriaValue {
			continue
		}
		err := e.achievements.Unlock(ctx, &models.UserAchievement{
			UserID:        userID,
			AchievementID: a.AchievementID,
			UnlockedAt:    now,
		})
		if errors.Is(err, ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return newly, fmt.Errorf("unlock achievement %s: %w", a.AchievementID, err)
		}
		e.logger.Info("achievement unlocked",
			zap.String("user_id", userID),
			zap.String("achievement_id", a.AchievementID),
		)
		newly = append(newly, a)
	}
	return newly, nil
}

// UserStats derives the achievement stats of a user across all units.
func (e *Engine) UserStats(ctx context.Context, userID string) (Stats, error) {
	profiles, err := e.profiles.List(ctx, ProfileFilter{UserID: userID})
	if err != nil {
		return Stats{}, fmt.Errorf("list profiles: %w", err)
	}
	stats := Stats{TotalPoints: totalPoints(profiles)}

	streak, err := e.checkInStreak(ctx, TransactionFilter{UserID: userID})
	if err != nil {
		return Stats{}, err
	}
	stats.Streak = streak.Current

	if stats.HabitsCompleted, err = e.ledger.Count(ctx, TransactionFilter{
		UserID:      userID,
		SourceTypes: []models.SourceType{models.SourceHabitCompletion},
	}); err != nil {
		return Stats{}, fmt.Errorf("count habits: %w", err)
	}
	if stats.RoutinesCompleted, err = e.ledger.Count(ctx, TransactionFilter{
		UserID:      userID,
		SourceTypes: []models.SourceType{models.SourceRoutineCompletion},
	}); err != nil {
		return Stats{}, fmt.Errorf("count routines: %w", err)
	}
	return stats, nil
}

// RefreshAchievements evaluates the catalog against the user's live stats.
func (e *Engine) RefreshAchievements(ctx context.Context, userID string) ([]models.Achievement, error) {
	stats, err := e.UserStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.CheckAndUnlock(ctx, userID, stats)
}

// ListAchievements returns the catalog with the user's unlock state.
func (e *Engine) ListAchievements(ctx context.Context, userID string) ([]AchievementStatus, error) {
	catalog, err := e.achievements.ListCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("list achievement catalog: %w", err)
	}
	held, err := e.achievements.ListUnlocked(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list unlocked achievements: %w", err)
	}
	at := make(map[string]time.Time, len(held))
	for _, ua := range held {
		at[ua.AchievementID] = ua.UnlockedAt
	}

	out := make([]AchievementStatus, 0, len(catalog))
	for _, a := range catalog {
		status := AchievementStatus{Achievement: a}
		if t, ok := at[a.AchievementID]; ok {
			t := t
			status.Unlocked = true
			status.UnlockedAt = &t
		}
		out = append(out, status)
	}
	return out, nil
}

// checkInStreak computes the CHECK_IN streak for the transactions matching base.
func (e *Engine) checkInStreak(ctx context.Context, base TransactionFilter) (Streak, error) {
	base.SourceTypes = []models.SourceType{models.SourceCheckIn}
	txs, err := e.ledger.Query(ctx, base, QueryOptions{Ascending: true})
	if err != nil {
		return Streak{}, fmt.Errorf("query check-ins: %w", err)
	}
	times := make([]time.Time, len(txs))
	for i, tx := range txs {
		times[i] = tx.CreatedAt
	}
	return CalculateStreak(times, e.clock.Now()), nil
}
