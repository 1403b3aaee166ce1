package gamification

import (
	"context"
	"time"

	"github.com/cppla/lifetrack/models"
)

// TransactionFilter selects ledger entries. A nil UnitID matches every unit,
// a zero From or To leaves that side of the [From, To) window open.
type TransactionFilter struct {
	UserID      string
	UnitID      *string
	SourceTypes []models.SourceType
	From        time.Time
	To          time.Time
}

// QueryOptions orders results by created_at. Limit <= 0 means no limit.
type QueryOptions struct {
	Ascending bool
	Limit     int
}

// Ledger is the append-only store of point transactions.
type Ledger interface {
	Append(ctx context.Context, tx *models.PointTransaction) (string, error)
	Query(ctx context.Context, filter TransactionFilter, opts QueryOptions) ([]models.PointTransaction, error)
	Count(ctx context.Context, filter TransactionFilter) (int64, error)
}

// ProfileFilter selects profiles. Empty or nil fields do not filter.
type ProfileFilter struct {
	UserID       string
	UnitID       *string
	UpdatedSince time.Time
}

// Profiles stores one GamificationProfile per (user, unit).
//
// Create returns ErrDuplicateKey when the key exists. Update writes the
// profile only if the stored Version equals expectedVersion, otherwise it
// returns ErrVersionConflict. Get returns ErrNotFound for unknown keys.
type Profiles interface {
	Get(ctx context.Context, userID, unitID string) (*models.GamificationProfile, error)
	Create(ctx context.Context, profile *models.GamificationProfile) error
	Update(ctx context.Context, profile *models.GamificationProfile, expectedVersion int64) error
	List(ctx context.Context, filter ProfileFilter) ([]models.GamificationProfile, error)
}

// Achievements stores the catalog and the per-user unlock records.
// Unlock returns ErrDuplicateKey if the user already holds the achievement.
type Achievements interface {
	ListCatalog(ctx context.Context) ([]models.Achievement, error)
	UpsertCatalog(ctx context.Context, achievement models.Achievement) (bool, error)
	ListUnlocked(ctx context.Context, userID string) ([]models.UserAchievement, error)
	Unlock(ctx context.Context, record *models.UserAchievement) error
}

// DailyLock serializes check-in admission for one key.
type DailyLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Directory resolves display names. Implementations never fail: unknown or
// unreachable entries map to UnknownUserName / UnknownUnitName.
type Directory interface {
	ResolveUserNames(ctx context.Context, userIDs []string, authToken string) map[string]string
	ResolveUnitName(ctx context.Context, unitID, authToken string) string
}

// Clock supplies the local server time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{ loc *time.Location }

func (c systemClock) Now() time.Time { return time.Now().In(c.loc) }

// SystemClock reads wall time in loc, time.Local when loc is nil.
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return systemClock{loc: loc}
}

const (
	UnknownUserName = "Unknown user"
	UnknownUnitName = "Unknown unit"
)

// PlaceholderDirectory resolves every id to the placeholder names.
type PlaceholderDirectory struct{}

func (PlaceholderDirectory) ResolveUserNames(_ context.Context, userIDs []string, _ string) map[string]string {
	names := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		names[id] = UnknownUserName
	}
	return names
}

func (PlaceholderDirectory) ResolveUnitName(context.Context, string, string) string {
	return UnknownUnitName
}
