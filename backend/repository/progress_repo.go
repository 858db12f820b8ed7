package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/models"
)

// ProgressRepository owns the per-user XP state and the activity log.
// XP is only changed with in-database increments.
type ProgressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Ensure creates the zero progress row for userID if it does not exist yet.
func (r *ProgressRepository) Ensure(ctx context.Context, userID uint) error {
	return ensureProgress(r.db.WithContext(ctx), userID)
}

func ensureProgress(db *gorm.DB, userID uint) error {
	p := models.UserProgress{UserID: userID, LastActive: time.Now()}
	err := db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&p).Error
	if err != nil {
		return fmt.Errorf("ensure progress: %w", err)
	}
	return nil
}

// Get returns the progress row, creating it on first access.
func (r *ProgressRepository) Get(ctx context.Context, userID uint) (*models.UserProgress, error) {
	var p models.UserProgress
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	if err := r.Ensure(ctx, userID); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return &p, nil
}

// AwardOnce writes the activity row and adds its XP in one transaction.
// The unique (user, action, target) index turns a repeated award into a
// no-op, and a failed increment leaves no activity row behind, so the award
// is granted by the next call instead of being lost.
func (r *ProgressRepository) AwardOnce(ctx context.Context, a *models.UserActivity) (bool, error) {
	if a.XPAwarded < 0 {
		return false, fmt.Errorf("award xp: negative amount %d", a.XPAwarded)
	}

	var awarded bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureProgress(tx, a.UserID); err != nil {
			return err
		}

		res := tx.Clauses(clause.OnConflict{
			Columns:   activityKey,
			DoNothing: true,
		}).Create(a)
		if res.Error != nil {
			return fmt.Errorf("record award: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if a.XPAwarded > 0 {
			if err := tx.Model(&models.UserProgress{}).
				Where("user_id = ?", a.UserID).
				UpdateColumn("xp", gorm.Expr("xp + ?", a.XPAwarded)).Error; err != nil {
				return fmt.Errorf("increment xp: %w", err)
			}
		}
		awarded = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("award xp: %w", err)
	}
	return awarded, nil
}

// CompleteOnboarding adds the onboarding award and flips the flag in one
// conditional statement, so only the first call for a user wins.
func (r *ProgressRepository) CompleteOnboarding(ctx context.Context, userID uint, delta int64, tierID string) error {
	if err := r.Ensure(ctx, userID); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).
		Model(&models.UserProgress{}).
		Where("user_id = ? AND onboarding_completed = ?", userID, false).
		UpdateColumns(map[string]any{
			"xp":                   gorm.Expr("xp + ?", delta),
			"onboarding_completed": true,
			"starting_tier_id":     tierID,
			"updated_at":           time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("complete onboarding: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyOnboarded
	}
	return nil
}

// RecordLogin appends to the login history and keeps the daily streak: a
// login within 48h of the last one extends it, otherwise it restarts at 1.
func (r *ProgressRepository) RecordLogin(ctx context.Context, userID uint, at time.Time) (*models.UserProgress, error) {
	if err := r.db.WithContext(ctx).Create(&models.LoginHistory{UserID: userID, LoginTime: at}).Error; err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	p, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	streak := 1
	if p.StreakDays > 0 && at.Sub(p.LastActive) < 48*time.Hour {
		streak = p.StreakDays + 1
	}

	err = r.db.WithContext(ctx).
		Model(&models.UserProgress{}).
		Where("user_id = ?", userID).
		UpdateColumns(map[string]any{"streak_days": streak, "last_active": at}).Error
	if err != nil {
		return nil, fmt.Errorf("update streak: %w", err)
	}

	p.StreakDays = streak
	p.LastActive = at
	return p, nil
}

var activityKey = []clause.Column{{Name: "user_id"}, {Name: "action_type"}, {Name: "target_id"}}

// RecordActivity appends a feed entry without XP. An entry that already
// exists is kept as is.
func (r *ProgressRepository) RecordActivity(ctx context.Context, a *models.UserActivity) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: activityKey, DoNothing: true}).
		Create(a).Error
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

func (r *ProgressRepository) RecentActivity(ctx context.Context, userID uint, limit int) ([]models.UserActivity, error) {
	var out []models.UserActivity
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	return out, nil
}
