package models

import "time"

// CriteriaType names the user statistic an achievement threshold applies to.
type CriteriaType string

const (
	CriteriaStreak       CriteriaType = "STREAK"
	CriteriaPoints       CriteriaType = "POINTS"
	CriteriaHabitCount   CriteriaType = "HABIT_COUNT"
	CriteriaRoutineCount CriteriaType = "ROUTINE_COUNT"
)

// Achievement is a catalog entry. Seeded once and read-only afterwards.
type Achievement struct {
	ID            uint         `gorm:"primaryKey" json:"-"`
	AchievementID string       `gorm:"size:64;not null;uniqueIndex" json:"achievement_id"`
	Name          string       `gorm:"size:128;not null" json:"name"`
	Description   string       `gorm:"size:512" json:"description"`
	Icon          string       `gorm:"size:64" json:"icon"`
	CriteriaType  CriteriaType `gorm:"size:32;not null" json:"criteria_type"`
	CriteriaValue int64        `gorm:"not null" json:"criteria_value"`
	CreatedAt     time.Time    `json:"-"`
}

// UserAchievement records that a user unlocked an achievement. At most one
// row exists per (user, achievement).
type UserAchievement struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	UserID        string    `gorm:"size:64;not null;uniqueIndex:idx_user_achievement,priority:1" json:"user_id"`
	AchievementID string    `gorm:"size:64;not null;uniqueIndex:idx_user_achievement,priority:2" json:"achievement_id"`
	UnlockedAt    time.Time `gorm:"not null" json:"unlocked_at"`
}
