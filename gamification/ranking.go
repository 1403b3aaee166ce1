package gamification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cppla/lifetrack/models"
)

// Period bounds the global ranking by profile recency.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAll     Period = "all"
)

const (
	defaultRankingLimit = 10
	maxRankingLimit     = 100
)

// ParsePeriod accepts daily, weekly, monthly or all. Empty means all.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAll:
		return p, nil
	case "":
		return PeriodAll, nil
	}
	return "", validationError("unknown ranking period %q", s)
}

// Start returns the lower bound of the period, zero for PeriodAll.
func (p Period) Start(now time.Time) time.Time {
	switch p {
	case PeriodDaily:
		return startOfDay(now)
	case PeriodWeekly:
		return now.AddDate(0, 0, -7)
	case PeriodMonthly:
		y, m, _ := now.Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	}
	return time.Time{}
}

// RankingScope selects a unit ranking when UnitID is set, otherwise the
// global ranking over Period.
type RankingScope struct {
	UnitID string
	Period Period
}

// RankingEntry is one leaderboard row.
type RankingEntry struct {
	Position    int    `json:"position"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	TotalPoints int64  `json:"total_points"`
	Level       int    `json:"level"`
	UnitID      string `json:"unit_id,omitempty"`
	UnitName    string `json:"unit_name,omitempty"`
}

type rankRow struct {
	userID string
	points int64
	level  int
}

// GetRanking returns the top limit rows of the scope with names resolved.
func (e *Engine) GetRanking(ctx context.Context, scope RankingScope, limit int, authToken string) ([]RankingEntry, error) {
	rows, err := e.rankedRows(ctx, scope)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit, defaultRankingLimit, maxRankingLimit)
	if len(rows) > limit {
		rows = rows[:limit]
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.userID
	}
	names := e.directory.ResolveUserNames(ctx, ids, authToken)
	unitName := ""
	if scope.UnitID != "" {
		unitName = e.directory.ResolveUnitName(ctx, scope.UnitID, authToken)
	}

	entries := make([]RankingEntry, len(rows))
	for i, r := range rows {
		entries[i] = RankingEntry{
			Position:    i + 1,
			UserID:      r.userID,
			UserName:    nameOr(names[r.userID], UnknownUserName),
			TotalPoints: r.points,
			Level:       r.level,
			UnitID:      scope.UnitID,
			UnitName:    unitName,
		}
	}
	return entries, nil
}

// GetUserRank locates userID in the unbounded ranking of scope. A user
// missing from it is placed at len+1 with their own profile values.
func (e *Engine) GetUserRank(ctx context.Context, scope RankingScope, userID, authToken string) (RankingEntry, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return RankingEntry{}, validationError("user id is required")
	}
	rows, err := e.rankedRows(ctx, scope)
	if err != nil {
		return RankingEntry{}, err
	}

	entry := RankingEntry{UserID: userID, UnitID: scope.UnitID, Position: len(rows) + 1}
	found := false
	for i, r := range rows {
		if r.userID == userID {
			entry.Position = i + 1
			entry.TotalPoints = r.points
			entry.Level = r.level
			found = true
			break
		}
	}
	if !found {
		if entry.TotalPoints, entry.Level, err = e.fallbackStanding(ctx, scope, userID); err != nil {
			return RankingEntry{}, err
		}
	}

	entry.UserName = nameOr(e.directory.ResolveUserNames(ctx, []string{userID}, authToken)[userID], UnknownUserName)
	if scope.UnitID != "" {
		entry.UnitName = e.directory.ResolveUnitName(ctx, scope.UnitID, authToken)
	}
	return entry, nil
}

func (e *Engine) fallbackStanding(ctx context.Context, scope RankingScope, userID string) (int64, int, error) {
	if scope.UnitID != "" {
		p, err := e.profiles.Get(ctx, userID, scope.UnitID)
		if errors.Is(err, ErrNotFound) {
			return 0, e.leveling.Level(0), nil
		}
		if err != nil {
			return 0, 0, fmt.Errorf("get profile: %w", err)
		}
		return p.TotalPoints, p.Level, nil
	}
	profiles, err := e.profiles.List(ctx, ProfileFilter{UserID: userID})
	if err != nil {
		return 0, 0, fmt.Errorf("list profiles: %w", err)
	}
	var xp int64
	for _, p := range profiles {
		xp += p.XP
	}
	return totalPoints(profiles), e.leveling.Level(xp), nil
}

// rankedRows loads and sorts the rows of scope. Unit scope ranks profiles
// of that unit; global scope folds each user's profiles into one row.
func (e *Engine) rankedRows(ctx context.Context, scope RankingScope) ([]rankRow, error) {
	filter := ProfileFilter{UpdatedSince: scope.Period.Start(e.clock.Now())}
	if scope.UnitID != "" {
		unit := scope.UnitID
		filter.UnitID = &unit
	}
	profiles, err := e.profiles.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	var rows []rankRow
	if scope.UnitID != "" {
		rows = make([]rankRow, 0, len(profiles))
		for _, p := range profiles {
			rows = append(rows, rankRow{userID: p.UserID, points: p.TotalPoints, level: p.Level})
		}
	} else {
		rows = e.foldByUser(profiles)
	}
	sortRanking(rows)
	return rows, nil
}

func (e *Engine) foldByUser(profiles []models.GamificationProfile) []rankRow {
	index := make(map[string]int)
	rows := make([]rankRow, 0, len(profiles))
	xp := make([]int64, 0, len(profiles))
	for _, p := range profiles {
		i, ok := index[p.UserID]
		if !ok {
			i = len(rows)
			index[p.UserID] = i
			rows = append(rows, rankRow{userID: p.UserID})
			xp = append(xp, 0)
		}
		rows[i].points += p.TotalPoints
		xp[i] += p.XP
	}
	for i := range rows {
		rows[i].level = e.leveling.Level(xp[i])
	}
	return rows
}

// sortRanking orders by points desc, then level desc, then user id.
func sortRanking(rows []rankRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].points != rows[j].points {
			return rows[i].points > rows[j].points
		}
		if rows[i].level != rows[j].level {
			return rows[i].level > rows[j].level
		}
		return rows[i].userID < rows[j].userID
	})
}

func totalPoints(profiles []models.GamificationProfile) int64 {
	var sum int64
	for _, p := range profiles {
		sum += p.TotalPoints
	}
	return sum
}

func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func nameOr(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}
