// Package enrollment tracks course enrollments and lesson completion.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/apperr"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/models"
)

type Repository interface {
	FindByUserAndCourse(ctx context.Context, userID, courseID uint) (*models.Enrollment, error)
	FindByID(ctx context.Context, id uint) (*models.Enrollment, error)
	CreateIfAbsent(ctx context.Context, userID, courseID uint) (*models.Enrollment, bool, error)
	AddCompletedLesson(ctx context.Context, enrollmentID uint, lessonID string) (bool, error)
	MarkCourseCompleted(ctx context.Context, enrollmentID uint, at time.Time) (bool, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Enrollment, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.Enrollment, error)
}

// LessonSource reports the lessons that currently belong to a course.
// It must return an apperr.ErrNotFound kind for unknown courses.
type LessonSource interface {
	LessonIDs(ctx context.Context, courseID uint) ([]uint, error)
}

type PaymentRecorder interface {
	CreateIfAbsent(ctx context.Context, p *models.Payment) (*models.Payment, error)
}

// Tracker implements enrollment and lesson completion bookkeeping.
type Tracker struct {
	repo     Repository
	lessons  LessonSource
	payments PaymentRecorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewTracker(repo Repository, lessons LessonSource, payments PaymentRecorder, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		repo:     repo,
		lessons:  lessons,
		payments: payments,
		logger:   logger,
		now:      time.Now,
	}
}

// Enroll creates the enrollment for (userID, courseID) or returns the existing
// one. created reports whether a new row was written.
func (t *Tracker) Enroll(ctx context.Context, userID, courseID uint) (e *models.Enrollment, created bool, err error) {
	if userID == 0 || courseID == 0 {
		return nil, false, apperr.InvalidInput("user and course are required")
	}
	if _, err := t.lessons.LessonIDs(ctx, courseID); err != nil {
		return nil, false, fmt.Errorf("enroll: %w", err)
	}

	e, created, err = t.repo.CreateIfAbsent(ctx, userID, courseID)
	if err != nil {
		return nil, false, fmt.Errorf("enroll: %w", err)
	}
	if created {
		t.logger.Info("user enrolled",
			zap.Uint("user_id", userID),
			zap.Uint("course_id", courseID),
			zap.Uint("enrollment_id", e.ID),
		)
	}
	return e, created, nil
}

// GetEnrollment looks up an enrollment. Absence is (nil, nil).
func (t *Tracker) GetEnrollment(ctx context.Context, userID, courseID uint) (*models.Enrollment, error) {
	e, err := t.repo.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// EnsureEnrolled is the auto-enroll path used when a course's content is opened.
func (t *Tracker) EnsureEnrolled(ctx context.Context, userID, courseID uint) (*models.Enrollment, bool, error) {
	e, err := t.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return nil, false, err
	}
	if e != nil {
		return e, false, nil
	}
	return t.Enroll(ctx, userID, courseID)
}

// Completion is the outcome of marking a lesson complete.
type Completion struct {
	Enrollment      *models.Enrollment `json:"enrollment"`
	LessonAdded     bool               `json:"lesson_added"`
	CourseCompleted bool               `json:"course_completed"`
	Percent         float64            `json:"percent"`
}

// MarkLessonComplete adds lessonID to the enrollment's completed set. Repeated
// calls do not change the set. CourseCompleted is true only for the call that
// stamps completed_at.
func (t *Tracker) MarkLessonComplete(ctx context.Context, userID, enrollmentID, lessonID uint) (*Completion, error) {
	e, err := t.repo.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("mark lesson complete: %w", err)
	}
	if e.UserID != userID {
		// someone else's enrollment looks the same as a missing one
		return nil, fmt.Errorf("mark lesson complete: %w", apperr.NotFound("enrollment"))
	}

	lessonIDs, err := t.lessons.LessonIDs(ctx, e.CourseID)
	if err != nil {
		return nil, fmt.Errorf("mark lesson complete: %w", err)
	}
	if !containsUint(lessonIDs, lessonID) {
		return nil, fmt.Errorf("mark lesson complete: %w", apperr.NotFound("lesson"))
	}

	added, err := t.repo.AddCompletedLesson(ctx, e.ID, strconv.FormatUint(uint64(lessonID), 10))
	if err != nil {
		return nil, fmt.Errorf("mark lesson complete: %w", err)
	}

	e, err = t.repo.FindByID(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("mark lesson complete: %w", err)
	}

	c := &Completion{
		Enrollment:  e,
		LessonAdded: added,
		Percent:     ComputeProgressPercent(e.CompletedLessonIDs, lessonIDs),
	}

	if err := t.stampIfComplete(ctx, c, lessonIDs); err != nil {
		return nil, fmt.Errorf("mark lesson complete: %w", err)
	}
	return c, nil
}

// Settle recomputes the enrollment's progress against the course's current
// lessons and stamps completed_at when every remaining lesson is done. This
// catches courses that reach 100% because their last open lesson was removed.
func (t *Tracker) Settle(ctx context.Context, e *models.Enrollment) (*Completion, error) {
	lessonIDs, err := t.lessons.LessonIDs(ctx, e.CourseID)
	if err != nil {
		return nil, fmt.Errorf("settle enrollment: %w", err)
	}

	c := &Completion{
		Enrollment: e,
		Percent:    ComputeProgressPercent(e.CompletedLessonIDs, lessonIDs),
	}
	if err := t.stampIfComplete(ctx, c, lessonIDs); err != nil {
		return nil, fmt.Errorf("settle enrollment: %w", err)
	}
	return c, nil
}

// stampIfComplete sets completed_at once. A course without lessons is never complete.
func (t *Tracker) stampIfComplete(ctx context.Context, c *Completion, lessonIDs []uint) error {
	e := c.Enrollment
	if e.CompletedAt != nil || len(lessonIDs) == 0 {
		return nil
	}
	if effectiveCount(e.CompletedLessonIDs, lessonIDs) < len(lessonIDs) {
		return nil
	}

	now := t.now()
	first, err := t.repo.MarkCourseCompleted(ctx, e.ID, now)
	if err != nil {
		return err
	}
	if first {
		e.CompletedAt = &now
		c.CourseCompleted = true
		t.logger.Info("course completed",
			zap.Uint("user_id", e.UserID),
			zap.Uint("course_id", e.CourseID),
		)
	}
	return nil
}

// CompleteLessonInCourse auto-enrolls the user and marks the lesson complete.
func (t *Tracker) CompleteLessonInCourse(ctx context.Context, userID, courseID, lessonID uint) (*Completion, error) {
	e, _, err := t.EnsureEnrolled(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	return t.MarkLessonComplete(ctx, userID, e.ID, lessonID)
}

// Progress computes the enrollment's percentage against the course's current lessons.
func (t *Tracker) Progress(ctx context.Context, e *models.Enrollment) (float64, error) {
	lessonIDs, err := t.lessons.LessonIDs(ctx, e.CourseID)
	if err != nil {
		return 0, fmt.Errorf("enrollment progress: %w", err)
	}
	return ComputeProgressPercent(e.CompletedLessonIDs, lessonIDs), nil
}

// Summary is an enrollment with its derived counters.
type Summary struct {
	Enrollment       models.Enrollment `json:"enrollment"`
	LessonCount      int               `json:"lesson_count"`
	CompletedLessons int               `json:"completed_lessons"`
	Percent          float64           `json:"percent"`
}

// ListForUser summarises every enrollment of a user.
func (t *Tracker) ListForUser(ctx context.Context, userID uint) ([]Summary, error) {
	enrollments, err := t.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return t.summarise(ctx, enrollments)
}

// ListForCourse summarises every enrollment in a course.
func (t *Tracker) ListForCourse(ctx context.Context, courseID uint) ([]Summary, error) {
	lessonIDs, err := t.lessons.LessonIDs(ctx, courseID)
	if err != nil {
		return nil, err
	}
	enrollments, err := t.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(enrollments))
	for _, e := range enrollments {
		out = append(out, summary(e, lessonIDs))
	}
	return out, nil
}

func (t *Tracker) summarise(ctx context.Context, enrollments []models.Enrollment) ([]Summary, error) {
	lessonsByCourse := make(map[uint][]uint)
	out := make([]Summary, 0, len(enrollments))

	for _, e := range enrollments {
		lessonIDs, ok := lessonsByCourse[e.CourseID]
		if !ok {
			var err error
			lessonIDs, err = t.lessons.LessonIDs(ctx, e.CourseID)
			if errors.Is(err, apperr.ErrNotFound) {
				// course deleted after enrollment
				continue
			}
			if err != nil {
				return nil, err
			}
			lessonsByCourse[e.CourseID] = lessonIDs
		}
		out = append(out, summary(e, lessonIDs))
	}
	return out, nil
}

func summary(e models.Enrollment, lessonIDs []uint) Summary {
	return Summary{
		Enrollment:       e,
		LessonCount:      len(lessonIDs),
		CompletedLessons: effectiveCount(e.CompletedLessonIDs, lessonIDs),
		Percent:          ComputeProgressPercent(e.CompletedLessonIDs, lessonIDs),
	}
}

// PaymentInput is what the checkout widget reports on success.
type PaymentInput struct {
	PaymentID   string
	AmountMinor int64
	Currency    string
}

// GrantFromPayment records a successful payment and grants course access by
// enrolling the payer. Replaying the same payment ID is harmless; reusing it
// for another user or course is a conflict.
func (t *Tracker) GrantFromPayment(ctx context.Context, userID, courseID uint, in PaymentInput) (*models.Enrollment, error) {
	in.PaymentID = strings.TrimSpace(in.PaymentID)
	if in.PaymentID == "" {
		return nil, apperr.InvalidInput("payment_id is required")
	}
	if in.AmountMinor < 0 {
		return nil, apperr.InvalidInput("amount must not be negative")
	}

	e, _, err := t.Enroll(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	stored, err := t.payments.CreateIfAbsent(ctx, &models.Payment{
		PaymentID:   in.PaymentID,
		UserID:      userID,
		CourseID:    courseID,
		AmountMinor: in.AmountMinor,
		Currency:    strings.ToUpper(in.Currency),
	})
	if err != nil {
		return nil, fmt.Errorf("grant from payment: %w", err)
	}
	if stored.UserID != userID || stored.CourseID != courseID {
		return nil, fmt.Errorf("payment %s already used: %w", in.PaymentID, apperr.ErrConflict)
	}

	t.logger.Info("payment recorded",
		zap.String("payment_id", stored.PaymentID),
		zap.Uint("user_id", userID),
		zap.Uint("course_id", courseID),
	)
	return e, nil
}

func containsUint(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
