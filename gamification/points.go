package gamification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cppla/lifetrack/models"
)

// AwardInput describes one scoring event.
type AwardInput struct {
	UserID      string
	UnitID      string
	Points      int64
	SourceType  models.SourceType
	SourceID    string
	Description string
	Metadata    map[string]any
}

// AwardResult is the outcome of AwardPoints. Unlocked lists achievements
// that became true as a consequence of the award.
type AwardResult struct {
	Profile     models.GamificationProfile `json:"profile"`
	Transaction models.PointTransaction    `json:"transaction"`
	Unlocked    []models.Achievement       `json:"unlocked_achievements"`
}

// AwardPoints adds points to the (user, unit) profile, appends the ledger
// entry and re-evaluates achievements, in that order. The profile update
// and the append are not atomic as a pair.
func (e *Engine) AwardPoints(ctx context.Context, in AwardInput) (AwardResult, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.UnitID = strings.TrimSpace(in.UnitID)
	if in.UserID == "" {
		return AwardResult{}, validationError("user id is required")
	}
	if in.Points <= 0 {
		return AwardResult{}, validationError("points must be a positive integer, got %d", in.Points)
	}
	if !in.SourceType.Valid() {
		return AwardResult{}, validationError("unknown source type %q", in.SourceType)
	}

	now := e.clock.Now()
	profile, err := e.addToProfile(ctx, in.UserID, in.UnitID, in.Points, now)
	if err != nil {
		return AwardResult{}, err
	}

	tx := models.PointTransaction{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		UnitID:      in.UnitID,
		Points:      in.Points,
		SourceType:  in.SourceType,
		SourceID:    strings.TrimSpace(in.SourceID),
		Description: strings.TrimSpace(in.Description),
		Metadata:    in.Metadata,
		CreatedAt:   now,
	}
	if _, err := e.ledger.Append(ctx, &tx); err != nil {
		e.logger.Error("ledger append failed after profile update",
			zap.String("user_id", in.UserID),
			zap.String("unit_id", in.UnitID),
			zap.Int64("points", in.Points),
			zap.Error(err),
		)
		return AwardResult{}, fmt.Errorf("append point transaction: %w", err)
	}

	unlocked, err := e.RefreshAchievements(ctx, in.UserID)
	if err != nil {
		e.logger.Warn("achievement evaluation failed",
			zap.String("user_id", in.UserID),
			zap.Error(err),
		)
	}

	e.logger.Info("points awarded",
		zap.String("user_id", in.UserID),
		zap.String("unit_id", in.UnitID),
		zap.String("source_type", string(in.SourceType)),
		zap.Int64("points", in.Points),
		zap.Int64("total_points", profile.TotalPoints),
		zap.Int("level", profile.Level),
		zap.Int("unlocked", len(unlocked)),
	)
	return AwardResult{Profile: *profile, Transaction: tx, Unlocked: unlocked}, nil
}

// addToProfile applies an optimistic read-modify-write to the profile,
// retrying when a concurrent writer bumped the version.
func (e *Engine) addToProfile(ctx context.Context, userID, unitID string, points int64, now time.Time) (*models.GamificationProfile, error) {
	for attempt := 1; attempt <= e.maxUpdateAttempts; attempt++ {
		profile, err := e.fetchOrCreateProfile(ctx, userID, unitID, now)
		if err != nil {
			return nil, err
		}

		expected := profile.Version
		profile.TotalPoints += points
		profile.XP += points
		applyLevel(e.leveling, profile)
		profile.Version = expected + 1
		profile.UpdatedAt = now

		err = e.profiles.Update(ctx, profile, expected)
		if err == nil {
			return profile, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, fmt.Errorf("update profile: %w", err)
		}
		e.logger.Debug("profile version conflict",
			zap.String("user_id", userID),
			zap.String("unit_id", unitID),
			zap.Int("attempt", attempt),
		)
	}
	return nil, fmt.Errorf("update profile %s/%s after %d attempts: %w", userID, unitID, e.maxUpdateAttempts, ErrVersionConflict)
}

// fetchOrCreateProfile lazily creates the profile. A duplicate key on
// create means a concurrent first event won the race; the existing row is
// re-fetched and used.
func (e *Engine) fetchOrCreateProfile(ctx context.Context, userID, unitID string, now time.Time) (*models.GamificationProfile, error) {
	profile, err := e.profiles.Get(ctx, userID, unitID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	profile = e.newProfile(userID, unitID, now)
	err = e.profiles.Create(ctx, profile)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ErrDuplicateKey) {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	e.logger.Debug("concurrent profile creation, re-fetching",
		zap.String("user_id", userID),
		zap.String("unit_id", unitID),
	)
	profile, err = e.profiles.Get(ctx, userID, unitID)
	if err != nil {
		return nil, fmt.Errorf("get profile after duplicate key: %w", err)
	}
	return profile, nil
}

func (e *Engine) newProfile(userID, unitID string, now time.Time) *models.GamificationProfile {
	p := &models.GamificationProfile{
		UserID:    userID,
		UnitID:    unitID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyLevel(e.leveling, p)
	return p
}
