// Package gormstore persists the gamification ledger, profiles and
// achievements through gorm on MySQL or Postgres.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/lifetrack/gamification"
	"github.com/cppla/lifetrack/models"
)

const (
	mysqlDuplicateEntry     = 1062
	postgresUniqueViolation = "23505"
)

type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

func New(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

var (
	_ gamification.Ledger       = (*Store)(nil)
	_ gamification.Profiles     = (*Store)(nil)
	_ gamification.Achievements = (*Store)(nil)
)

// Models lists the tables owned by this store, in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.PointTransaction{},
		&models.GamificationProfile{},
		&models.Achievement{},
		&models.UserAchievement{},
	}
}

func (s *Store) Append(ctx context.Context, tx *models.PointTransaction) (string, error) {
	if err := s.db.WithContext(ctx).Create(tx).Error; err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("transaction %s: %w", tx.ID, gamification.ErrDuplicateKey)
		}
		return "", s.logError("ledger append failed", err, zap.String("user_id", tx.UserID))
	}
	return tx.ID, nil
}

func (s *Store) Query(ctx context.Context, f gamification.TransactionFilter, opts gamification.QueryOptions) ([]models.PointTransaction, error) {
	order := "created_at DESC"
	if opts.Ascending {
		order = "created_at ASC"
	}
	q := transactionScope(s.db.WithContext(ctx).Model(&models.PointTransaction{}), f).Order(order)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	var rows []models.PointTransaction
	if err := q.Find(&rows).Error; err != nil {
		return nil, s.logError("ledger query failed", err, zap.String("user_id", f.UserID))
	}
	return rows, nil
}

func (s *Store) Count(ctx context.Context, f gamification.TransactionFilter) (int64, error) {
	var n int64
	if err := transactionScope(s.db.WithContext(ctx).Model(&models.PointTransaction{}), f).Count(&n).Error; err != nil {
		return 0, s.logError("ledger count failed", err, zap.String("user_id", f.UserID))
	}
	return n, nil
}

func transactionScope(q *gorm.DB, f gamification.TransactionFilter) *gorm.DB {
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.UnitID != nil {
		q = q.Where("unit_id = ?", *f.UnitID)
	}
	if len(f.SourceTypes) > 0 {
		q = q.Where("source_type IN ?", f.SourceTypes)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}
	return q
}

func (s *Store) Get(ctx context.Context, userID, unitID string) (*models.GamificationProfile, error) {
	var p models.GamificationProfile
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND unit_id = ?", userID, unitID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("profile %s/%s: %w", userID, unitID, gamification.ErrNotFound)
		}
		return nil, s.logError("get profile failed", err, zap.String("user_id", userID), zap.String("unit_id", unitID))
	}
	return &p, nil
}

func (s *Store) Create(ctx context.Context, profile *models.GamificationProfile) error {
	if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("profile %s/%s: %w", profile.UserID, profile.UnitID, gamification.ErrDuplicateKey)
		}
		return s.logError("create profile failed", err, zap.String("user_id", profile.UserID), zap.String("unit_id", profile.UnitID))
	}
	return nil
}

// Update is a compare-and-swap on the version column.
func (s *Store) Update(ctx context.Context, profile *models.GamificationProfile, expectedVersion int64) error {
	res := s.db.WithContext(ctx).
		Model(&models.GamificationProfile{}).
		Where("user_id = ? AND unit_id = ? AND version = ?", profile.UserID, profile.UnitID, expectedVersion).
		Updates(map[string]any{
			"total_points":     profile.TotalPoints,
			"level":            profile.Level,
			"xp":               profile.XP,
			"xp_to_next_level": profile.XPToNextLevel,
			"version":          profile.Version,
			"updated_at":       profile.UpdatedAt,
		})
	if res.Error != nil {
		return s.logError("update profile failed", res.Error, zap.String("user_id", profile.UserID), zap.String("unit_id", profile.UnitID))
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&models.GamificationProfile{}).
		Where("user_id = ? AND unit_id = ?", profile.UserID, profile.UnitID).
		Count(&n).Error; err != nil {
		return s.logError("update profile failed", err, zap.String("user_id", profile.UserID))
	}
	if n == 0 {
		return fmt.Errorf("profile %s/%s: %w", profile.UserID, profile.UnitID, gamification.ErrNotFound)
	}
	return gamification.ErrVersionConflict
}

func (s *Store) List(ctx context.Context, f gamification.ProfileFilter) ([]models.GamificationProfile, error) {
	q := s.db.WithContext(ctx).Model(&models.GamificationProfile{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.UnitID != nil {
		q = q.Where("unit_id = ?", *f.UnitID)
	}
	if !f.UpdatedSince.IsZero() {
		q = q.Where("updated_at >= ?", f.UpdatedSince)
	}
	var rows []models.GamificationProfile
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, s.logError("list profiles failed", err)
	}
	return rows, nil
}

func (s *Store) ListCatalog(ctx context.Context) ([]models.Achievement, error) {
	var rows []models.Achievement
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, s.logError("list achievements failed", err)
	}
	return rows, nil
}

// UpsertCatalog inserts a when its achievement id is new and reports whether it did.
func (s *Store) UpsertCatalog(ctx context.Context, a models.Achievement) (bool, error) {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "achievement_id"}},
		DoNothing: true,
	}).Create(&a)
	if res.Error != nil {
		return false, s.logError("seed achievement failed", res.Error, zap.String("achievement_id", a.AchievementID))
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) ListUnlocked(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	var rows []models.UserAchievement
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("unlocked_at ASC").Find(&rows).Error; err != nil {
		return nil, s.logError("list unlocked achievements failed", err, zap.String("user_id", userID))
	}
	return rows, nil
}

func (s *Store) Unlock(ctx context.Context, record *models.UserAchievement) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("achievement %s for %s: %w", record.AchievementID, record.UserID, gamification.ErrDuplicateKey)
		}
		return s.logError("unlock achievement failed", err, zap.String("user_id", record.UserID), zap.String("achievement_id", record.AchievementID))
	}
	return nil
}

func (s *Store) logError(msg string, err error, fields ...zap.Field) error {
	s.logger.Error(msg, append(fields, zap.Error(err))...)
	return fmt.Errorf("%s: %w", strings.TrimSuffix(msg, " failed"), err)
}

// isUniqueViolation recognises duplicate keys from gorm's translated
// error and from the raw MySQL and Postgres driver errors.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == postgresUniqueViolation
}
