// Package memory is an in-process implementation of the gamification
// stores. It backs the tests and single-node deployments without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cppla/lifetrack/gamification"
	"github.com/cppla/lifetrack/models"
)

// Store implements gamification.Ledger, Profiles and Achievements.
// Values are copied on the way in and out.
type Store struct {
	mu           sync.RWMutex
	transactions []models.PointTransaction
	profiles     map[profileKey]models.GamificationProfile
	nextID       uint
	catalog      []models.Achievement
	unlocked     map[string][]models.UserAchievement
}

type profileKey struct{ user, unit string }

func New() *Store {
	return &Store{
		profiles: make(map[profileKey]models.GamificationProfile),
		unlocked: make(map[string][]models.UserAchievement),
	}
}

var (
	_ gamification.Ledger       = (*Store)(nil)
	_ gamification.Profiles     = (*Store)(nil)
	_ gamification.Achievements = (*Store)(nil)
)

func (s *Store) Append(_ context.Context, tx *models.PointTransaction) (string, error) {
	if tx.ID == "" {
		return "", fmt.Errorf("%w: transaction id is required", gamification.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.transactions {
		if existing.ID == tx.ID {
			return "", fmt.Errorf("transaction %s: %w", tx.ID, gamification.ErrDuplicateKey)
		}
	}
	s.transactions = append(s.transactions, cloneTx(*tx))
	return tx.ID, nil
}

func (s *Store) Query(_ context.Context, f gamification.TransactionFilter, opts gamification.QueryOptions) ([]models.PointTransaction, error) {
	s.mu.RLock()
	out := make([]models.PointTransaction, 0)
	for _, tx := range s.transactions {
		if matches(tx, f) {
			out = append(out, cloneTx(tx))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if opts.Ascending {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *Store) Count(_ context.Context, f gamification.TransactionFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, tx := range s.transactions {
		if matches(tx, f) {
			n++
		}
	}
	return n, nil
}

func matches(tx models.PointTransaction, f gamification.TransactionFilter) bool {
	if f.UserID != "" && tx.UserID != f.UserID {
		return false
	}
	if f.UnitID != nil && tx.UnitID != *f.UnitID {
		return false
	}
	if len(f.SourceTypes) > 0 {
		ok := false
		for _, st := range f.SourceTypes {
			if tx.SourceType == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if !f.From.IsZero() && tx.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !tx.CreatedAt.Before(f.To) {
		return false
	}
	return true
}

func cloneTx(tx models.PointTransaction) models.PointTransaction {
	if tx.Metadata != nil {
		m := make(map[string]any, len(tx.Metadata))
		for k, v := range tx.Metadata {
			m[k] = v
		}
		tx.Metadata = m
	}
	return tx
}

func (s *Store) Get(_ context.Context, userID, unitID string) (*models.GamificationProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[profileKey{userID, unitID}]
	if !ok {
		return nil, fmt.Errorf("profile %s/%s: %w", userID, unitID, gamification.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) Create(_ context.Context, profile *models.GamificationProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := profileKey{profile.UserID, profile.UnitID}
	if _, ok := s.profiles[key]; ok {
		return fmt.Errorf("profile %s/%s: %w", profile.UserID, profile.UnitID, gamification.ErrDuplicateKey)
	}
	s.nextID++
	profile.ID = s.nextID
	s.profiles[key] = *profile
	return nil
}

func (s *Store) Update(_ context.Context, profile *models.GamificationProfile, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := profileKey{profile.UserID, profile.UnitID}
	stored, ok := s.profiles[key]
	if !ok {
		return fmt.Errorf("profile %s/%s: %w", profile.UserID, profile.UnitID, gamification.ErrNotFound)
	}
	if stored.Version != expectedVersion {
		return gamification.ErrVersionConflict
	}
	profile.ID = stored.ID
	profile.CreatedAt = stored.CreatedAt
	s.profiles[key] = *profile
	return nil
}

func (s *Store) List(_ context.Context, f gamification.ProfileFilter) ([]models.GamificationProfile, error) {
	s.mu.RLock()
	out := make([]models.GamificationProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		if f.UserID != "" && p.UserID != f.UserID {
			continue
		}
		if f.UnitID != nil && p.UnitID != *f.UnitID {
			continue
		}
		if !f.UpdatedSince.IsZero() && p.UpdatedAt.Before(f.UpdatedSince) {
			continue
		}
		out = append(out, p)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListCatalog(context.Context) ([]models.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Achievement(nil), s.catalog...), nil
}

func (s *Store) UpsertCatalog(_ context.Context, a models.Achievement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.catalog {
		if existing.AchievementID == a.AchievementID {
			return false, nil
		}
	}
	a.ID = uint(len(s.catalog) + 1)
	s.catalog = append(s.catalog, a)
	return true, nil
}

func (s *Store) ListUnlocked(_ context.Context, userID string) ([]models.UserAchievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.UserAchievement(nil), s.unlocked[userID]...), nil
}

func (s *Store) Unlock(_ context.Context, record *models.UserAchievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ua := range s.unlocked[record.UserID] {
		if ua.AchievementID == record.AchievementID {
			return fmt.Errorf("achievement %s for %s: %w", record.AchievementID, record.UserID, gamification.ErrDuplicateKey)
		}
	}
	s.unlocked[record.UserID] = append(s.unlocked[record.UserID], *record)
	return nil
}
