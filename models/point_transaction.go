package models

import (
	"time"

	"gorm.io/datatypes"
)

// SourceType identifies the kind of event that produced a point transaction.
type SourceType string

const (
	SourceCheckIn            SourceType = "CHECK_IN"
	SourceHabitCompletion    SourceType = "HABIT_COMPLETION"
	SourceRoutineCompletion  SourceType = "ROUTINE_COMPLETION"
	SourceWorkoutCompletion  SourceType = "WORKOUT_COMPLETION"
	SourceExerciseCompletion SourceType = "EXERCISE_COMPLETION"
	SourceAchievement        SourceType = "ACHIEVEMENT"
	SourceBonus              SourceType = "BONUS"
)

// Valid reports whether s is one of the known source types.
func (s SourceType) Valid() bool {
	switch s {
	case SourceCheckIn, SourceHabitCompletion, SourceRoutineCompletion,
		SourceWorkoutCompletion, SourceExerciseCompletion, SourceAchievement, SourceBonus:
		return true
	}
	return false
}

// PointTransaction is an immutable ledger entry, one per scoring event.
// CreatedAt is the authoritative event time for streaks and ranking windows.
type PointTransaction struct {
	ID          string            `gorm:"primaryKey;size:36" json:"id"`
	UserID      string            `gorm:"size:64;not null;index:idx_tx_scope,priority:1" json:"user_id"`
	UnitID      string            `gorm:"size:64;not null;default:'';index:idx_tx_scope,priority:2" json:"unit_id,omitempty"`
	Points      int64             `gorm:"not null" json:"points"`
	SourceType  SourceType        `gorm:"size:32;not null;index:idx_tx_scope,priority:3" json:"source_type"`
	SourceID    string            `gorm:"size:128" json:"source_id"`
	Description string            `gorm:"size:512" json:"description"`
	Metadata    datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;index:idx_tx_scope,priority:4" json:"created_at"`
}
