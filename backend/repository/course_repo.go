package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/models"
)

// CourseRepository reads courses and their current lesson sets.
type CourseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// LessonIDs returns the IDs of the lessons currently in the course, in
// sequence order. A missing course yields ErrCourseNotFound.
func (r *CourseRepository) LessonIDs(ctx context.Context, courseID uint) ([]uint, error) {
	if _, err := r.Get(ctx, courseID); err != nil {
		return nil, err
	}

	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Lesson{}).
		Where("course_id = ?", courseID).
		Order("sequence_order, id").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list lesson ids: %w", err)
	}
	return ids, nil
}

func (r *CourseRepository) Get(ctx context.Context, courseID uint) (*models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return &course, nil
}

// GetWithLessons loads a course with its lessons ordered for display.
func (r *CourseRepository) GetWithLessons(ctx context.Context, courseID uint) (*models.Course, error) {
	var course models.Course
	err := r.db.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order, id")
		}).
		First(&course, courseID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("get course with lessons: %w", err)
	}
	return &course, nil
}

// LessonCounts returns the number of live lessons per course. Courses without
// lessons are absent from the map.
func (r *CourseRepository) LessonCounts(ctx context.Context, courseIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(courseIDs))
	if len(courseIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		CourseID uint
		Lessons  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Lesson{}).
		Select("course_id, COUNT(*) AS lessons").
		Where("course_id IN ?", courseIDs).
		Group("course_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count lessons: %w", err)
	}
	for _, row := range rows {
		counts[row.CourseID] = row.Lessons
	}
	return counts, nil
}
