package gormstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/lifetrack/gamification"
	"github.com/cppla/lifetrack/models"
)

// newTestStore opens a migrated sqlite file database. One connection keeps
// sqlite from reporting SQLITE_BUSY under concurrent writers.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "lifetrack.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatal(err)
	}
	return New(db, zaptest.NewLogger(t))
}

func TestProfileCreateAndCompareAndSwap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	p := &models.GamificationProfile{UserID: "u1", UnitID: "gym", Level: 1, CreatedAt: now, UpdatedAt: now}
	if err := s.Create(ctx, p); err != nil {
		t.Fatal(err)
	}
	dup := &models.GamificationProfile{UserID: "u1", UnitID: "gym", Level: 1, CreatedAt: now, UpdatedAt: now}
	if err := s.Create(ctx, dup); !errors.Is(err, gamification.ErrDuplicateKey) {
		t.Fatalf("duplicate create err = %v, want ErrDuplicateKey", err)
	}

	p.TotalPoints, p.XP, p.Version = 10, 10, 1
	if err := s.Update(ctx, p, 0); err != nil {
		t.Fatalf("update at current version: %v", err)
	}
	stale := *p
	stale.TotalPoints, stale.Version = 99, 1
	if err := s.Update(ctx, &stale, 0); !errors.Is(err, gamification.ErrVersionConflict) {
		t.Fatalf("stale update err = %v, want ErrVersionConflict", err)
	}
	missing := &models.GamificationProfile{UserID: "nobody", UnitID: "gym", Version: 1}
	if err := s.Update(ctx, missing, 0); !errors.Is(err, gamification.ErrNotFound) {
		t.Fatalf("missing update err = %v, want ErrNotFound", err)
	}

	got, err := s.Get(ctx, "u1", "gym")
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalPoints != 10 || got.Version != 1 {
		t.Errorf("stored profile = %+v, want 10 points at version 1", got)
	}
	if _, err := s.Get(ctx, "u1", "pool"); !errors.Is(err, gamification.ErrNotFound) {
		t.Errorf("get missing err = %v, want ErrNotFound", err)
	}
}

func TestLedgerWindowIsHalfOpen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	for i, at := range []time.Time{
		start.Add(-time.Second),
		start,
		start.Add(12 * time.Hour),
		start.Add(24 * time.Hour),
	} {
		tx := &models.PointTransaction{
			ID:         fmt.Sprintf("tx-%d", i),
			UserID:     "u1",
			UnitID:     "gym",
			Points:     10,
			SourceType: models.SourceCheckIn,
			CreatedAt:  at,
		}
		if _, err := s.Append(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}
	unit := "gym"
	f := gamification.TransactionFilter{
		UserID:      "u1",
		UnitID:      &unit,
		SourceTypes: []models.SourceType{models.SourceCheckIn},
		From:        start,
		To:          start.Add(24 * time.Hour),
	}
	n, err := s.Count(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("count in [start, start+24h) = %d, want 2", n)
	}

	rows, err := s.Query(ctx, f, gamification.QueryOptions{Ascending: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || !rows[0].CreatedAt.Equal(start) {
		t.Errorf("rows = %+v", rows)
	}

	if _, err := s.Append(ctx, &models.PointTransaction{ID: "tx-0", UserID: "u1", Points: 1, SourceType: models.SourceBonus, CreatedAt: start}); !errors.Is(err, gamification.ErrDuplicateKey) {
		t.Errorf("duplicate transaction id err = %v, want ErrDuplicateKey", err)
	}
}

func TestCatalogSeedAndUnlockAreIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := models.Achievement{AchievementID: "streak_3", Name: "On a Roll", CriteriaType: models.CriteriaStreak, CriteriaValue: 3}

	inserted, err := s.UpsertCatalog(ctx, a)
	if err != nil || !inserted {
		t.Fatalf("first seed = %v, %v", inserted, err)
	}
	inserted, err = s.UpsertCatalog(ctx, a)
	if err != nil || inserted {
		t.Fatalf("second seed = %v, %v; want false, nil", inserted, err)
	}
	catalog, err := s.ListCatalog(ctx)
	if err != nil || len(catalog) != 1 {
		t.Fatalf("catalog = %d entries, %v", len(catalog), err)
	}

	rec := &models.UserAchievement{UserID: "u1", AchievementID: "streak_3", UnlockedAt: time.Now().UTC()}
	if err := s.Unlock(ctx, rec); err != nil {
		t.Fatal(err)
	}
	again := &models.UserAchievement{UserID: "u1", AchievementID: "streak_3", UnlockedAt: time.Now().UTC()}
	if err := s.Unlock(ctx, again); !errors.Is(err, gamification.ErrDuplicateKey) {
		t.Fatalf("second unlock err = %v, want ErrDuplicateKey", err)
	}
	held, err := s.ListUnlocked(ctx, "u1")
	if err != nil || len(held) != 1 {
		t.Errorf("unlocked = %d, %v; want 1", len(held), err)
	}
}

func TestConcurrentAwardsOnGormStore(t *testing.T) {
	s := newTestStore(t)
	engine, err := gamification.New(gamification.Dependencies{
		Ledger:       s,
		Profiles:     s,
		Achievements: s,
		Clock:        gamification.SystemClock(time.UTC),
		Logger:       zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := engine.CreateDefaultAchievements(ctx); err != nil {
		t.Fatal(err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.AwardPoints(ctx, gamification.AwardInput{
				UserID: "racer", UnitID: "gym", Points: 5, SourceType: models.SourceBonus,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("award: %v", err)
		}
	}

	profiles, err := s.List(ctx, gamification.ProfileFilter{UserID: "racer"})
	if err != nil {
		t.Fatal(err)
	}
	if len(profiles) != 1 || profiles[0].TotalPoints != workers*5 {
		t.Fatalf("profiles = %+v, want one profile with %d points", profiles, workers*5)
	}
	if profiles[0].Version != workers {
		t.Errorf("version = %d, want %d", profiles[0].Version, workers)
	}
	if n, _ := s.Count(ctx, gamification.TransactionFilter{UserID: "racer"}); n != workers {
		t.Errorf("ledger entries = %d, want %d", n, workers)
	}
}
