package gamification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cppla/lifetrack/models"
)

// ProfileStats summarises one (user, unit) profile.
type ProfileStats struct {
	UserID            string `json:"user_id"`
	UnitID            string `json:"unit_id,omitempty"`
	TotalPoints       int64  `json:"total_points"`
	Level             int    `json:"level"`
	XPToNextLevel     int64  `json:"xp_to_next_level"`
	LevelingPolicy    string `json:"leveling_policy"`
	HasProfile        bool   `json:"has_profile"`
	TotalTransactions int64  `json:"total_transactions"`
	PointsEarnedToday int64  `json:"points_earned_today"`
}

// GetProfileStats reports the profile of (userID, unitID). A missing
// profile yields policy defaults with HasProfile false.
func (e *Engine) GetProfileStats(ctx context.Context, userID, unitID string) (ProfileStats, error) {
	userID = strings.TrimSpace(userID)
	unitID = strings.TrimSpace(unitID)
	if userID == "" {
		return ProfileStats{}, validationError("user id is required")
	}

	stats := ProfileStats{
		UserID:         userID,
		UnitID:         unitID,
		Level:          e.leveling.Level(0),
		XPToNextLevel:  e.leveling.ToNextLevel(0),
		LevelingPolicy: e.leveling.Name(),
	}
	profile, err := e.profiles.Get(ctx, userID, unitID)
	switch {
	case err == nil:
		stats.HasProfile = true
		stats.TotalPoints = profile.TotalPoints
		stats.Level = profile.Level
		stats.XPToNextLevel = profile.XPToNextLevel
	case !errors.Is(err, ErrNotFound):
		return ProfileStats{}, fmt.Errorf("get profile: %w", err)
	}

	filter := TransactionFilter{UserID: userID, UnitID: &unitID}
	if stats.TotalTransactions, err = e.ledger.Count(ctx, filter); err != nil {
		return ProfileStats{}, fmt.Errorf("count transactions: %w", err)
	}

	dayStart := startOfDay(e.clock.Now())
	filter.From, filter.To = dayStart, dayStart.AddDate(0, 0, 1)
	today, err := e.ledger.Query(ctx, filter, QueryOptions{})
	if err != nil {
		return ProfileStats{}, fmt.Errorf("query today's transactions: %w", err)
	}
	for _, tx := range today {
		stats.PointsEarnedToday += tx.Points
	}
	return stats, nil
}

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 365
)

// HistoryQuery selects check-ins of a unit in [Start, End). Zero bounds are open.
type HistoryQuery struct {
	UserID string
	UnitID string
	Start  time.Time
	End    time.Time
	Limit  int
}

// CheckInHistory lists check-ins newest first. Total counts every
// check-in in the window; streaks cover the whole history of the unit.
type CheckInHistory struct {
	CheckIns      []models.PointTransaction `json:"check_ins"`
	Total         int64                     `json:"total"`
	CurrentStreak int                       `json:"current_streak"`
	LongestStreak int                       `json:"longest_streak"`
}

func (e *Engine) GetCheckInHistory(ctx context.Context, q HistoryQuery) (CheckInHistory, error) {
	q.UserID = strings.TrimSpace(q.UserID)
	q.UnitID = strings.TrimSpace(q.UnitID)
	if q.UserID == "" || q.UnitID == "" {
		return CheckInHistory{}, validationError("user id and unit id are required")
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return CheckInHistory{}, validationError("end date is before start date")
	}

	unit := q.UnitID
	filter := TransactionFilter{
		UserID:      q.UserID,
		UnitID:      &unit,
		SourceTypes: []models.SourceType{models.SourceCheckIn},
		From:        q.Start,
		To:          q.End,
	}
	checkIns, err := e.ledger.Query(ctx, filter, QueryOptions{
		Limit: clampLimit(q.Limit, defaultHistoryLimit, maxHistoryLimit),
	})
	if err != nil {
		return CheckInHistory{}, fmt.Errorf("query check-ins: %w", err)
	}
	total, err := e.ledger.Count(ctx, filter)
	if err != nil {
		return CheckInHistory{}, fmt.Errorf("count check-ins: %w", err)
	}
	streak, err := e.checkInStreak(ctx, TransactionFilter{UserID: q.UserID, UnitID: &unit})
	if err != nil {
		return CheckInHistory{}, err
	}

	if checkIns == nil {
		checkIns = []models.PointTransaction{}
	}
	return CheckInHistory{
		CheckIns:      checkIns,
		Total:         total,
		CurrentStreak: streak.Current,
		LongestStreak: streak.Longest,
	}, nil
}

// GamificationData is everything the profile screen shows for one unit.
type GamificationData struct {
	Profile      ProfileStats        `json:"profile"`
	Streak       Streak              `json:"streak"`
	Achievements []AchievementStatus `json:"achievements"`
	Rank         RankingEntry        `json:"rank"`
}

func (e *Engine) GetGamificationData(ctx context.Context, userID, unitID, authToken string) (GamificationData, error) {
	profile, err := e.GetProfileStats(ctx, userID, unitID)
	if err != nil {
		return GamificationData{}, err
	}
	unit := profile.UnitID
	streak, err := e.checkInStreak(ctx, TransactionFilter{UserID: profile.UserID, UnitID: &unit})
	if err != nil {
		return GamificationData{}, err
	}
	achievements, err := e.ListAchievements(ctx, profile.UserID)
	if err != nil {
		return GamificationData{}, err
	}
	scope := RankingScope{UnitID: unit, Period: PeriodAll}
	rank, err := e.GetUserRank(ctx, scope, profile.UserID, authToken)
	if err != nil {
		return GamificationData{}, err
	}
	return GamificationData{
		Profile:      profile,
		Streak:       streak,
		Achievements: achievements,
		Rank:         rank,
	}, nil
}
