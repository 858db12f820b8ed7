// Package xp keeps the per-user XP total and answers level queries against
// the tier table.
package xp

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/apperr"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/models"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/leveling"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/onboarding"
)

type Repository interface {
	Get(ctx context.Context, userID uint) (*models.UserProgress, error)
	// AwardOnce stores the activity and adds its XP atomically. It reports
	// false when the same (user, action, target) was awarded before.
	AwardOnce(ctx context.Context, a *models.UserActivity) (bool, error)
	CompleteOnboarding(ctx context.Context, userID uint, delta int64, tierID string) error
	RecordActivity(ctx context.Context, a *models.UserActivity) error
}

// Awards holds the fixed XP amounts granted for course events.
type Awards struct {
	Lesson int64
	Course int64
}

type Service struct {
	repo   Repository
	table  *leveling.Table
	scorer onboarding.Scorer
	quiz   []onboarding.Question
	awards Awards
	logger *zap.Logger
}

func NewService(repo Repository, table *leveling.Table, scorer onboarding.Scorer, quiz []onboarding.Question, awards Awards, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		table:  table,
		scorer: scorer,
		quiz:   quiz,
		awards: awards,
		logger: logger,
	}
}

// Level is a user's stored progress together with the derived tier progress.
type Level struct {
	XP                  int64             `json:"xp"`
	OnboardingCompleted bool              `json:"onboarding_completed"`
	StreakDays          int               `json:"streak_days"`
	Progress            leveling.Progress `json:"level"`
}

func (s *Service) Level(ctx context.Context, userID uint) (*Level, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("level: %w", err)
	}
	return &Level{
		XP:                  p.XP,
		OnboardingCompleted: p.OnboardingCompleted,
		StreakDays:          p.StreakDays,
		Progress:            s.table.Progress(p.XP),
	}, nil
}

func (s *Service) Tiers() []leveling.Tier {
	return s.table.Tiers()
}

// Quiz returns the onboarding questions with the answers stripped.
func (s *Service) Quiz() []onboarding.PublicQuestion {
	return onboarding.PublicQuestions(s.quiz)
}

// AwardLesson grants the per-lesson award unless this lesson was already
// awarded to the user. It is safe to call on every completion request.
func (s *Service) AwardLesson(ctx context.Context, userID, lessonID uint) (bool, error) {
	return s.award(ctx, userID, models.ActivityLessonComplete, lessonID, s.awards.Lesson)
}

// AwardCourse grants the course completion award once per user and course.
func (s *Service) AwardCourse(ctx context.Context, userID, courseID uint) (bool, error) {
	return s.award(ctx, userID, models.ActivityCourseComplete, courseID, s.awards.Course)
}

// RecordEnrollment logs a new enrollment in the activity feed. No XP is awarded.
func (s *Service) RecordEnrollment(ctx context.Context, userID, courseID uint) error {
	return s.repo.RecordActivity(ctx, &models.UserActivity{
		UserID:     userID,
		ActionType: models.ActivityEnroll,
		TargetID:   courseID,
	})
}

func (s *Service) award(ctx context.Context, userID uint, kind models.ActivityType, targetID uint, amount int64) (bool, error) {
	awarded, err := s.repo.AwardOnce(ctx, &models.UserActivity{
		UserID:     userID,
		ActionType: kind,
		TargetID:   targetID,
		XPAwarded:  amount,
	})
	if err != nil {
		return false, fmt.Errorf("award %s: %w", kind, err)
	}

	if awarded {
		s.logger.Debug("xp awarded",
			zap.Uint("user_id", userID),
			zap.String("kind", string(kind)),
			zap.Int64("amount", amount),
		)
	}
	return awarded, nil
}

// OnboardingOutcome is the scored quiz plus the user's level after the award.
type OnboardingOutcome struct {
	Result onboarding.Result `json:"result"`
	Level  *Level            `json:"progress"`
}

// CompleteOnboarding scores the answers and applies the award exactly once.
// A second submission fails with an apperr.ErrConflict kind.
func (s *Service) CompleteOnboarding(ctx context.Context, userID uint, answers map[string]int) (*OnboardingOutcome, error) {
	if len(answers) == 0 {
		return nil, apperr.InvalidInput("answers are required")
	}

	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("complete onboarding: %w", err)
	}
	if p.OnboardingCompleted {
		return nil, fmt.Errorf("complete onboarding: %w", apperr.ErrConflict)
	}

	res := s.scorer.Score(answers, s.quiz)
	if err := s.repo.CompleteOnboarding(ctx, userID, res.FinalXP, res.AssignedTierID); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, fmt.Errorf("complete onboarding: %w", apperr.ErrConflict)
		}
		return nil, fmt.Errorf("complete onboarding: %w", err)
	}

	if err := s.repo.RecordActivity(ctx, &models.UserActivity{
		UserID:     userID,
		ActionType: models.ActivityOnboardingComplete,
		XPAwarded:  res.FinalXP,
	}); err != nil {
		s.logger.Warn("failed to record activity", zap.Error(err), zap.Uint("user_id", userID))
	}

	lvl, err := s.Level(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("onboarding completed",
		zap.Uint("user_id", userID),
		zap.Int("correct", res.CorrectCount),
		zap.String("tier", res.AssignedTierID),
	)
	return &OnboardingOutcome{Result: res, Level: lvl}, nil
}
