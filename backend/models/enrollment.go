package models

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// LessonIDSet holds stringified lesson IDs. It is stored as text[] on
// Postgres and as a Postgres array literal in a text column elsewhere.
type LessonIDSet []string

func (s LessonIDSet) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	return pq.StringArray(s).Value()
}

func (s *LessonIDSet) Scan(src interface{}) error {
	var a pq.StringArray
	if err := a.Scan(src); err != nil {
		return err
	}
	*s = LessonIDSet(a)
	return nil
}

func (LessonIDSet) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// Enrollment links one user to one course. CompletedLessonIDs only grows.
type Enrollment struct {
	gorm.Model
	UserID             uint        `gorm:"uniqueIndex:idx_enrollment_user_course;not null" json:"user_id"`
	CourseID           uint        `gorm:"uniqueIndex:idx_enrollment_user_course;not null" json:"course_id"`
	CompletedLessonIDs LessonIDSet `gorm:"not null;default:'{}'" json:"completed_lesson_ids"`
	CompletedAt        *time.Time  `json:"completed_at,omitempty"`
}

// Payment records a successful checkout reported by the payment widget.
type Payment struct {
	gorm.Model
	PaymentID   string `gorm:"uniqueIndex;not null" json:"payment_id"`
	UserID      uint   `gorm:"index;not null" json:"user_id"`
	CourseID    uint   `gorm:"index;not null" json:"course_id"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `gorm:"type:varchar(3)" json:"currency"`
}
