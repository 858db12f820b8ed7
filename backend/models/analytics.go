package models

import "gorm.io/gorm"

// ActivityType names the award events written to the activity log.
type ActivityType string

const (
	ActivityEnroll             ActivityType = "enroll"
	ActivityLessonComplete     ActivityType = "lesson_complete"
	ActivityCourseComplete     ActivityType = "course_complete"
	ActivityOnboardingComplete ActivityType = "onboarding_complete"
)

// UserActivity is both the activity feed and the award ledger: each
// (user, action, target) is recorded at most once.
type UserActivity struct {
	gorm.Model
	UserID     uint         `gorm:"uniqueIndex:idx_user_activity_once" json:"user_id"`
	ActionType ActivityType `gorm:"type:varchar(32);uniqueIndex:idx_user_activity_once" json:"action_type"`
	TargetID   uint         `gorm:"uniqueIndex:idx_user_activity_once" json:"target_id"` // course_id or lesson_id
	XPAwarded  int64        `json:"xp_awarded"`
}
