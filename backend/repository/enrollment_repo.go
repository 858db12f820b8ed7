package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/models"
)

// EnrollmentRepository persists enrollments and their completed lesson sets.
type EnrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (r *EnrollmentRepository) FindByUserAndCourse(ctx context.Context, userID, courseID uint) (*models.Enrollment, error) {
	var e models.Enrollment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &e, nil
}

func (r *EnrollmentRepository) FindByID(ctx context.Context, id uint) (*models.Enrollment, error) {
	var e models.Enrollment
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("find enrollment by id: %w", err)
	}
	return &e, nil
}

// CreateIfAbsent inserts the (user, course) row unless it already exists and
// returns the stored row either way. created is false when the row existed.
func (r *EnrollmentRepository) CreateIfAbsent(ctx context.Context, userID, courseID uint) (*models.Enrollment, bool, error) {
	e := models.Enrollment{
		UserID:             userID,
		CourseID:           courseID,
		CompletedLessonIDs: models.LessonIDSet{},
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(&e)
	if res.Error != nil {
		return nil, false, fmt.Errorf("create enrollment: %w", res.Error)
	}

	stored, err := r.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return nil, false, err
	}
	return stored, res.RowsAffected == 1, nil
}

// AddCompletedLesson appends lessonID to the completed set unless it is
// already there. On Postgres this is a single conditional UPDATE; other
// dialects fall back to a read-modify-write inside a transaction.
func (r *EnrollmentRepository) AddCompletedLesson(ctx context.Context, enrollmentID uint, lessonID string) (bool, error) {
	db := r.db.WithContext(ctx)

	if db.Dialector.Name() == dialectPostgres {
		res := db.Exec(`
			UPDATE enrollments
			SET completed_lesson_ids = array_append(completed_lesson_ids, ?), updated_at = ?
			WHERE id = ? AND deleted_at IS NULL AND NOT (? = ANY(completed_lesson_ids))`,
			lessonID, time.Now(), enrollmentID, lessonID,
		)
		if res.Error != nil {
			return false, fmt.Errorf("append completed lesson: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			return true, nil
		}
		// either already present or the enrollment is gone
		if _, err := r.FindByID(ctx, enrollmentID); err != nil {
			return false, err
		}
		return false, nil
	}

	var added bool
	err := db.Transaction(func(tx *gorm.DB) error {
		var e models.Enrollment
		if err := tx.First(&e, enrollmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEnrollmentNotFound
			}
			return err
		}
		if slices.Contains(e.CompletedLessonIDs, lessonID) {
			return nil
		}

		ids := append(models.LessonIDSet{}, e.CompletedLessonIDs...)
		ids = append(ids, lessonID)
		if err := tx.Model(&e).Update("completed_lesson_ids", ids).Error; err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEnrollmentNotFound) {
			return false, err
		}
		return false, fmt.Errorf("append completed lesson: %w", err)
	}

	return added, nil
}

// MarkCourseCompleted stamps completed_at once. It reports whether this call
// was the one that stamped it.
func (r *EnrollmentRepository) MarkCourseCompleted(ctx context.Context, enrollmentID uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ? AND completed_at IS NULL", enrollmentID).
		Update("completed_at", at)
	if res.Error != nil {
		return false, fmt.Errorf("mark course completed: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID uint) ([]models.Enrollment, error) {
	var out []models.Enrollment
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list enrollments by user: %w", err)
	}
	return out, nil
}

func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Enrollment, error) {
	var out []models.Enrollment
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list enrollments by course: %w", err)
	}
	return out, nil
}
