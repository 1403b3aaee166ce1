package gamification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/lifetrack/models"
)

const checkInLockTTL = 30 * time.Second

// CheckInInput is a check-in request for one unit.
type CheckInInput struct {
	UserID   string
	UnitID   string
	Location *Location
}

// CreateCheckIn admits at most one check-in per (user, unit, local day)
// and awards the check-in points. Guards run in order and fail fast:
// daily uniqueness, location, training in progress.
func (e *Engine) CreateCheckIn(ctx context.Context, in CheckInInput) (AwardResult, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.UnitID = strings.TrimSpace(in.UnitID)
	if in.UserID == "" || in.UnitID == "" {
		return AwardResult{}, validationError("user id and unit id are required")
	}

	now := e.clock.Now()
	dayStart := startOfDay(now)
	dayEnd := dayStart.AddDate(0, 0, 1)

	unit := in.UnitID
	countToday := func() (int64, error) {
		n, err := e.ledger.Count(ctx, TransactionFilter{
			UserID:      in.UserID,
			UnitID:      &unit,
			SourceTypes: []models.SourceType{models.SourceCheckIn},
			From:        dayStart,
			To:          dayEnd,
		})
		if err != nil {
			return 0, fmt.Errorf("count today's check-ins: %w", err)
		}
		return n, nil
	}

	lockKey := fmt.Sprintf("checkin:lock:%s:%s:%s", in.UserID, in.UnitID, dayStart.Format("2006-01-02"))
	acquired, err := e.lock.Acquire(ctx, lockKey, checkInLockTTL)
	if err != nil {
		return AwardResult{}, fmt.Errorf("acquire check-in lock: %w", err)
	}
	if !acquired {
		// The holder may still fail eligibility, so only a recorded
		// check-in counts as done.
		done, err := countToday()
		if err != nil {
			return AwardResult{}, err
		}
		if done > 0 {
			return AwardResult{}, ErrCheckInAlreadyDone
		}
		return AwardResult{}, ErrCheckInInProgress
	}
	defer func() {
		if err := e.lock.Release(context.WithoutCancel(ctx), lockKey); err != nil {
			e.logger.Warn("release check-in lock failed", zap.String("key", lockKey), zap.Error(err))
		}
	}()

	done, err := countToday()
	if err != nil {
		return AwardResult{}, err
	}
	if done > 0 {
		return AwardResult{}, ErrCheckInAlreadyDone
	}

	if err := e.location.CheckLocation(ctx, in.UserID, in.UnitID, in.Location); err != nil {
		return AwardResult{}, err
	}
	if err := e.training.CheckTraining(ctx, in.UserID, in.UnitID); err != nil {
		return AwardResult{}, err
	}

	var metadata map[string]any
	if in.Location != nil {
		metadata = map[string]any{
			"location": map[string]any{
				"latitude":  in.Location.Latitude,
				"longitude": in.Location.Longitude,
			},
		}
	}
	return e.AwardPoints(ctx, AwardInput{
		UserID:      in.UserID,
		UnitID:      in.UnitID,
		Points:      e.checkInPoints,
		SourceType:  models.SourceCheckIn,
		SourceID:    "checkin_" + e.ids.Generate().String(),
		Description: "Daily check-in",
		Metadata:    metadata,
	})
}
