// Package gamification implements the points ledger, leveling, streaks,
// achievements, rankings and check-in admission of the life tracker.
package gamification

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

const (
	DefaultCheckInPoints     = 10
	defaultMaxUpdateAttempts = 50
)

// Dependencies wires an Engine. Ledger, Profiles and Achievements are
// required; every other field has a working default.
type Dependencies struct {
	Ledger       Ledger
	Profiles     Profiles
	Achievements Achievements

	Directory Directory
	Lock      DailyLock
	Clock     Clock
	Leveling  LevelingPolicy
	Location  LocationPolicy
	Training  TrainingPolicy
	Logger    *zap.Logger

	CheckInPoints int64
	EventPoints   map[EventType]int64
	// NodeID seeds the snowflake generator used for check-in source ids (0-1023).
	NodeID int64
	// MaxUpdateAttempts bounds optimistic retries of a profile update.
	MaxUpdateAttempts int
}

// Engine is the gamification core. It is safe for concurrent use.
type Engine struct {
	ledger       Ledger
	profiles     Profiles
	achievements Achievements
	directory    Directory
	lock         DailyLock
	clock        Clock
	leveling     LevelingPolicy
	location     LocationPolicy
	training     TrainingPolicy
	logger       *zap.Logger
	ids          *snowflake.Node

	checkInPoints     int64
	eventPoints       map[EventType]int64
	maxUpdateAttempts int
}

// New validates deps and returns an Engine.
func New(deps Dependencies) (*Engine, error) {
	if deps.Ledger == nil || deps.Profiles == nil || deps.Achievements == nil {
		return nil, errors.New("gamification: ledger, profiles and achievements stores are required")
	}
	node, err := snowflake.NewNode(deps.NodeID)
	if err != nil {
		return nil, fmt.Errorf("gamification: snowflake node: %w", err)
	}

	e := &Engine{
		ledger:            deps.Ledger,
		profiles:          deps.Profiles,
		achievements:      deps.Achievements,
		directory:         deps.Directory,
		lock:              deps.Lock,
		clock:             deps.Clock,
		leveling:          deps.Leveling,
		location:          deps.Location,
		training:          deps.Training,
		logger:            deps.Logger,
		ids:               node,
		checkInPoints:     deps.CheckInPoints,
		eventPoints:       DefaultEventPoints(),
		maxUpdateAttempts: deps.MaxUpdateAttempts,
	}
	if e.directory == nil {
		e.directory = PlaceholderDirectory{}
	}
	if e.lock == nil {
		e.lock = NewLocalLock()
	}
	if e.clock == nil {
		e.clock = SystemClock(nil)
	}
	if e.leveling == nil {
		e.leveling = SqrtPolicy{}
	}
	if e.location == nil {
		e.location = AllowAll{}
	}
	if e.training == nil {
		e.training = AllowAll{}
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.checkInPoints <= 0 {
		e.checkInPoints = DefaultCheckInPoints
	}
	for k, v := range deps.EventPoints {
		if v > 0 {
			e.eventPoints[k] = v
		}
	}
	if e.maxUpdateAttempts <= 0 {
		e.maxUpdateAttempts = defaultMaxUpdateAttempts
	}
	return e, nil
}

// Now is the engine's current local time.
func (e *Engine) Now() time.Time { return e.clock.Now() }

// Leveling returns the policy this engine applies.
func (e *Engine) Leveling() LevelingPolicy { return e.leveling }
