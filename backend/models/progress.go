package models

import (
	"time"

	"gorm.io/gorm"
)

// UserProgress is the per-user gamification state. XP only ever grows and
// OnboardingCompleted flips once.
type UserProgress struct {
	gorm.Model
	UserID              uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	XP                  int64     `gorm:"column:xp;not null;default:0" json:"xp"`
	OnboardingCompleted bool      `gorm:"not null;default:false" json:"onboarding_completed"`
	StartingTierID      string    `json:"starting_tier_id,omitempty"`
	StreakDays          int       `gorm:"default:0" json:"streak_days"`
	LastActive          time.Time `json:"last_active"`
}
