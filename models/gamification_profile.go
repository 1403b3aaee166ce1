package models

import "time"

// GamificationProfile is the aggregate of a user's ledger within one unit.
// An empty UnitID is the unit-less profile. Level and XPToNextLevel are
// derived from XP by the configured leveling policy and never set on their own.
type GamificationProfile struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        string    `gorm:"size:64;not null;uniqueIndex:idx_profile_user_unit,priority:1" json:"user_id"`
	UnitID        string    `gorm:"size:64;not null;default:'';uniqueIndex:idx_profile_user_unit,priority:2;index" json:"unit_id,omitempty"`
	TotalPoints   int64     `gorm:"not null;default:0;index" json:"total_points"`
	Level         int       `gorm:"not null;default:1" json:"level"`
	XP            int64     `gorm:"not null;default:0" json:"xp"`
	XPToNextLevel int64     `gorm:"not null;default:0" json:"xp_to_next_level"`
	Version       int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `gorm:"index" json:"updated_at"`
}
