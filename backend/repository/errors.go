package repository

import (
	"fmt"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/apperr"
)

var (
	ErrEnrollmentNotFound = fmt.Errorf("enrollment %w", apperr.ErrNotFound)
	ErrCourseNotFound     = fmt.Errorf("course %w", apperr.ErrNotFound)
	ErrLessonNotFound     = fmt.Errorf("lesson %w", apperr.ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("user %w", apperr.ErrNotFound)
	ErrPostNotFound       = fmt.Errorf("post %w", apperr.ErrNotFound)
	ErrAlreadyOnboarded   = fmt.Errorf("onboarding already completed: %w", apperr.ErrConflict)
)

const dialectPostgres = "postgres"
