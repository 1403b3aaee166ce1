package cli

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cppla/lifetrack/config"
	"github.com/cppla/lifetrack/directory"
	"github.com/cppla/lifetrack/gamification"
	"github.com/cppla/lifetrack/store/gormstore"
	"github.com/cppla/lifetrack/store/memory"
	"github.com/cppla/lifetrack/store/redisstore"
	"github.com/cppla/lifetrack/utils"
)

// stores is the persistence an Engine needs. Both gormstore and memory
// implement all three.
type stores interface {
	gamification.Ledger
	gamification.Profiles
	gamification.Achievements
}

type app struct {
	cfg    config.AppConfig
	logger *zap.Logger
	rdb    *redis.Client
	engine *gamification.Engine
}

// bootstrap connects logging, Redis and storage and builds the engine.
// With inMemory set no database is opened.
func bootstrap(cfg config.AppConfig, inMemory bool) (*app, error) {
	if err := utils.InitLogger(cfg); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &app{cfg: cfg, logger: utils.Logger}

	rdb, err := utils.InitRedis(cfg)
	if err != nil {
		return nil, err
	}
	a.rdb = rdb
	if rdb == nil {
		a.logger.Warn("redis disabled, using process-local locks and no response cache")
	}

	var st stores
	if inMemory {
		a.logger.Warn("using in-memory storage, data is lost on exit")
		st = memory.New()
	} else {
		db, err := config.InitDatabase(gormstore.Models()...)
		if err != nil {
			a.Close()
			return nil, err
		}
		st = gormstore.New(db, a.logger.Named("gormstore"))
	}

	deps, err := engineDependencies(cfg, st, rdb, a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.engine, err = gamification.New(deps); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
		utils.SetRedis(nil)
	}
	_ = a.logger.Sync()
}

// engineDependencies translates configuration into engine wiring.
func engineDependencies(cfg config.AppConfig, st stores, rdb *redis.Client, logger *zap.Logger) (gamification.Dependencies, error) {
	deps := gamification.Dependencies{
		Ledger:        st,
		Profiles:      st,
		Achievements:  st,
		Logger:        logger.Named("gamification"),
		CheckInPoints: int64(cfg.CheckInRewardPoints),
		NodeID:        cfg.NodeID,
	}

	policy, err := gamification.PolicyByName(cfg.LevelingPolicy)
	if err != nil {
		return deps, err
	}
	deps.Leveling = policy

	if cfg.TimeZone != "" {
		loc, err := time.LoadLocation(cfg.TimeZone)
		if err != nil {
			return deps, fmt.Errorf("load time zone %q: %w", cfg.TimeZone, err)
		}
		deps.Clock = gamification.SystemClock(loc)
	}

	if rdb != nil {
		deps.Lock = redisstore.NewLock(rdb)
	}

	if cfg.UserDirectoryURL != "" {
		deps.Directory = directory.New(directory.Options{
			BaseURL:     cfg.UserDirectoryURL,
			Timeout:     time.Duration(cfg.DirectoryTimeoutSec) * time.Second,
			CacheTTL:    time.Duration(cfg.DirectoryCacheTTLSec) * time.Second,
			Concurrency: cfg.DirectoryConcurrency,
		}, rdb, logger.Named("directory"))
	}

	if len(cfg.UnitLocations) > 0 {
		units := make(gamification.StaticUnits, len(cfg.UnitLocations))
		for id, l := range cfg.UnitLocations {
			units[id] = gamification.Location{Latitude: l.Latitude, Longitude: l.Longitude}
		}
		deps.Location = gamification.RadiusPolicy{Units: units, RadiusMeters: cfg.CheckInRadiusMeters}
	}

	if len(cfg.EventPoints) > 0 {
		deps.EventPoints = make(map[gamification.EventType]int64, len(cfg.EventPoints))
		for name, pts := range cfg.EventPoints {
			deps.EventPoints[gamification.EventType(name)] = pts
		}
	}
	return deps, nil
}
