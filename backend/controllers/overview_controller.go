package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/middleware"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/models"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/repository"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/enrollment"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/xp"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/utils"
)

type OverviewController struct {
	DB       *gorm.DB
	XP       *xp.Service
	Tracker  *enrollment.Tracker
	Progress *repository.ProgressRepository
}

func NewOverviewController(db *gorm.DB, xpService *xp.Service, tracker *enrollment.Tracker, progress *repository.ProgressRepository) *OverviewController {
	return &OverviewController{DB: db, XP: xpService, Tracker: tracker, Progress: progress}
}

// GetUserOverview godoc
// @Summary Dashboard
// @Description Level, active and completed courses, recent XP events and recommendations
// @Tags overview
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /overview [get]
func (oc *OverviewController) GetUserOverview(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)
	ctx := c.UserContext()

	level, err := oc.XP.Level(ctx, userID)
	if err != nil {
		return utils.FromError(c, err)
	}

	summaries, err := oc.Tracker.ListForUser(ctx, userID)
	if err != nil {
		return utils.FromError(c, err)
	}
	cards, err := courseCards(oc.DB, summaries)
	if err != nil {
		return utils.FromError(c, err)
	}

	active := make([]fiber.Map, 0, len(cards))
	completed := 0
	for _, card := range cards {
		if at, _ := card["completed_at"].(*time.Time); at != nil {
			completed++
			continue
		}
		active = append(active, card)
	}

	activity, err := oc.Progress.RecentActivity(ctx, userID, 10)
	if err != nil {
		return utils.FromError(c, err)
	}

	enrolledIDs := make([]uint, 0, len(summaries))
	for _, s := range summaries {
		enrolledIDs = append(enrolledIDs, s.Enrollment.CourseID)
	}
	recommendations, err := oc.getRecommendedCourses(enrolledIDs)
	if err != nil {
		return utils.FromError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"level":             level,
		"streak_days":       level.StreakDays,
		"courses_completed": completed,
		"active_courses":    active,
		"recent_activity":   activity,
		"recommendations":   recommendations,
	})
}

// getRecommendedCourses returns up to three published courses the user is
// not enrolled in, most enrolled first.
func (oc *OverviewController) getRecommendedCourses(enrolledIDs []uint) ([]fiber.Map, error) {
	query := oc.DB.Model(&models.Course{}).Where("published = ?", true)
	if len(enrolledIDs) > 0 {
		query = query.Where("id NOT IN ?", enrolledIDs)
	}

	var courses []models.Course
	if err := query.
		Order("(SELECT COUNT(*) FROM enrollments WHERE enrollments.course_id = courses.id AND enrollments.deleted_at IS NULL) DESC").
		Order("id").
		Limit(3).
		Find(&courses).Error; err != nil {
		return nil, err
	}

	out := make([]fiber.Map, 0, len(courses))
	for _, course := range courses {
		out = append(out, fiber.Map{
			"id":         course.ID,
			"title":      course.Title,
			"short_desc": course.ShortDesc,
			"topic":      course.Topic,
			"logo_url":   course.LogoURL,
		})
	}
	return out, nil
}
