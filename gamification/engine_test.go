package gamification_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/cppla/lifetrack/gamification"
	"github.com/cppla/lifetrack/models"
	"github.com/cppla/lifetrack/store/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	engine *gamification.Engine
	store  *memory.Store
	clock  *fakeClock
}

func newFixture(t *testing.T, mutate ...func(*gamification.Dependencies)) fixture {
	t.Helper()
	store := memory.New()
	clock := newClock()
	deps := gamification.Dependencies{
		Ledger:       store,
		Profiles:     store,
		Achievements: store,
		Clock:        clock,
		Logger:       zaptest.NewLogger(t),
	}
	for _, m := range mutate {
		m(&deps)
	}
	engine, err := gamification.New(deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return fixture{engine: engine, store: store, clock: clock}
}

func (f fixture) award(t *testing.T, user, unit string, points int64, source models.SourceType) gamification.AwardResult {
	t.Helper()
	res, err := f.engine.AwardPoints(context.Background(), gamification.AwardInput{
		UserID: user, UnitID: unit, Points: points, SourceType: source,
	})
	if err != nil {
		t.Fatalf("AwardPoints(%s, %s, %d): %v", user, unit, points, err)
	}
	return res
}

func TestNewRequiresStores(t *testing.T) {
	if _, err := gamification.New(gamification.Dependencies{}); err == nil {
		t.Fatal("New without stores succeeded")
	}
}

func TestAwardPointsUpdatesProfileAndLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.award(t, "alice", "gym", 60, models.SourceBonus)
	res := f.award(t, "alice", "gym", 60, models.SourceBonus)

	p := res.Profile
	if p.TotalPoints != 120 || p.XP != 120 {
		t.Errorf("points = %d, xp = %d, want 120", p.TotalPoints, p.XP)
	}
	if p.Level != 2 || p.XPToNextLevel != 280 {
		t.Errorf("level = %d, to next = %d, want 2 and 280", p.Level, p.XPToNextLevel)
	}

	unit := "gym"
	n, err := f.store.Count(ctx, gamification.TransactionFilter{UserID: "alice", UnitID: &unit})
	if err != nil || n != 2 {
		t.Fatalf("ledger count = %d, %v; want 2", n, err)
	}
	if res.Transaction.ID == "" || res.Transaction.CreatedAt.IsZero() {
		t.Errorf("transaction not filled: %+v", res.Transaction)
	}
}

func TestAwardPointsValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inputs := []gamification.AwardInput{
		{UserID: "", Points: 10, SourceType: models.SourceBonus},
		{UserID: "alice", Points: 0, SourceType: models.SourceBonus},
		{UserID: "alice", Points: -5, SourceType: models.SourceBonus},
		{UserID: "alice", Points: 10, SourceType: "LOTTERY"},
	}
	for _, in := range inputs {
		if _, err := f.engine.AwardPoints(ctx, in); !errors.Is(err, gamification.ErrValidation) {
			t.Errorf("AwardPoints(%+v) err = %v, want ErrValidation", in, err)
		}
	}
	profiles, _ := f.store.List(ctx, gamification.ProfileFilter{})
	if len(profiles) != 0 {
		t.Errorf("rejected awards created %d profiles", len(profiles))
	}
}

func TestConcurrentAwardsOnNewProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const workers = 16

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.AwardPoints(ctx, gamification.AwardInput{
				UserID: "bob", UnitID: "pool", Points: 10, SourceType: models.SourceBonus,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent award: %v", err)
		}
	}

	profiles, _ := f.store.List(ctx, gamification.ProfileFilter{UserID: "bob"})
	if len(profiles) != 1 {
		t.Fatalf("profiles = %d, want 1", len(profiles))
	}
	if got := profiles[0].TotalPoints; got != workers*10 {
		t.Errorf("total points = %d, want %d", got, workers*10)
	}
	n, _ := f.store.Count(ctx, gamification.TransactionFilter{UserID: "bob"})
	if n != workers {
		t.Errorf("ledger entries = %d, want %d", n, workers)
	}
}

func TestAchievementsUnlockOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.engine.CreateDefaultAchievements(ctx)
	if err != nil || created != len(gamification.DefaultAchievements()) {
		t.Fatalf("seeded %d, %v", created, err)
	}
	if again, _ := f.engine.CreateDefaultAchievements(ctx); again != 0 {
		t.Errorf("second seed created %d", again)
	}

	res := f.award(t, "carol", "", 100, models.SourceBonus)
	if len(res.Unlocked) != 1 || res.Unlocked[0].AchievementID != "points_100" {
		t.Fatalf("unlocked = %+v, want points_100", res.Unlocked)
	}

	stats, err := f.engine.UserStats(ctx, "carol")
	if err != nil {
		t.Fatal(err)
	}
	again, err := f.engine.CheckAndUnlock(ctx, "carol", stats)
	if err != nil || len(again) != 0 {
		t.Errorf("re-evaluation unlocked %+v, %v", again, err)
	}

	list, err := f.engine.ListAchievements(ctx, "carol")
	if err != nil {
		t.Fatal(err)
	}
	unlocked := 0
	for _, a := range list {
		if a.Unlocked {
			unlocked++
			if a.UnlockedAt == nil {
				t.Errorf("%s unlocked without timestamp", a.AchievementID)
			}
		}
	}
	if unlocked != 1 {
		t.Errorf("unlocked in listing = %d, want 1", unlocked)
	}
}

func TestHabitAchievementFromDomainEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.engine.CreateDefaultAchievements(ctx); err != nil {
		t.Fatal(err)
	}

	res, err := f.engine.HandleDomainEvent(ctx, gamification.DomainEvent{
		Type: gamification.EventHabitCompleted, UserID: "dave", EntityID: "habit-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Transaction.Points != 10 || res.Transaction.SourceType != models.SourceHabitCompletion {
		t.Errorf("transaction = %+v", res.Transaction)
	}
	if len(res.Unlocked) != 1 || res.Unlocked[0].AchievementID != "habit_1" {
		t.Errorf("unlocked = %+v, want habit_1", res.Unlocked)
	}

	if _, err := f.engine.HandleDomainEvent(ctx, gamification.DomainEvent{Type: "SLEPT", UserID: "dave"}); !errors.Is(err, gamification.ErrValidation) {
		t.Errorf("unknown event err = %v", err)
	}
}

func TestEventPointsOverride(t *testing.T) {
	f := newFixture(t, func(d *gamification.Dependencies) {
		d.EventPoints = map[gamification.EventType]int64{gamification.EventWorkoutCompleted: 75}
	})
	ctx := context.Background()

	res, err := f.engine.HandleDomainEvent(ctx, gamification.DomainEvent{
		Type: gamification.EventWorkoutCompleted, UserID: "erin", UnitID: "gym",
	})
	if err != nil || res.Transaction.Points != 75 {
		t.Fatalf("workout points = %d, %v; want 75", res.Transaction.Points, err)
	}
	res, err = f.engine.HandleDomainEvent(ctx, gamification.DomainEvent{
		Type: gamification.EventRoutineCompleted, UserID: "erin", UnitID: "gym", Points: 3,
	})
	if err != nil || res.Transaction.Points != 3 {
		t.Fatalf("explicit points = %d, %v; want 3", res.Transaction.Points, err)
	}

	_, err = f.engine.HandleDomainEvent(ctx, gamification.DomainEvent{
		Type: gamification.EventHabitCompleted, UserID: "erin", UnitID: "gym", Points: -50,
	})
	if !errors.Is(err, gamification.ErrValidation) {
		t.Fatalf("negative points err = %v, want ErrValidation", err)
	}
	if n, _ := f.store.Count(ctx, gamification.TransactionFilter{UserID: "erin"}); n != 2 {
		t.Errorf("transactions = %d, want 2", n)
	}
}
