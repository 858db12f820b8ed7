package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/models"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/repository"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/enrollment"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/utils"
)

type AnalyticsController struct {
	DB      *gorm.DB
	Courses *repository.CourseRepository
	Tracker *enrollment.Tracker
}

func NewAnalyticsController(db *gorm.DB, courses *repository.CourseRepository, tracker *enrollment.Tracker) *AnalyticsController {
	return &AnalyticsController{DB: db, Courses: courses, Tracker: tracker}
}

type lessonStat struct {
	LessonID    uint   `json:"lesson_id"`
	LessonTitle string `json:"lesson_title"`
	Completed   int    `json:"completed"`
	Total       int    `json:"total"`
}

// GetCourseAnalytics godoc
// @Summary Course analytics
// @Description Admin only. Per-student progress, per-lesson completion and enrollment trend
// @Tags admin
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/courses/{id}/analytics [get]
func (ac *AnalyticsController) GetCourseAnalytics(c *fiber.Ctx) error {
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.FromError(c, err)
	}

	course, err := ac.Courses.GetWithLessons(c.UserContext(), courseID)
	if err != nil {
		return utils.FromError(c, err)
	}

	summaries, err := ac.Tracker.ListForCourse(c.UserContext(), courseID)
	if err != nil {
		return utils.FromError(c, err)
	}

	userIDs := make([]uint, 0, len(summaries))
	for _, s := range summaries {
		userIDs = append(userIDs, s.Enrollment.UserID)
	}
	usernames := make(map[uint]string, len(userIDs))
	if len(userIDs) > 0 {
		var users []models.User
		if err := ac.DB.Select("id", "username").Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return utils.FromError(c, err)
		}
		for _, u := range users {
			usernames[u.ID] = u.Username
		}
	}

	var stats struct {
		TotalEnrollments  int     `json:"total_enrollments"`
		Completed         int     `json:"completed"`
		AvgCompletionRate float64 `json:"avg_completion_rate"`
	}
	completedBy := make(map[string]int)
	students := make([]fiber.Map, 0, len(summaries))

	for _, s := range summaries {
		stats.TotalEnrollments++
		stats.AvgCompletionRate += s.Percent
		if s.Enrollment.CompletedAt != nil {
			stats.Completed++
		}
		for _, id := range s.Enrollment.CompletedLessonIDs {
			completedBy[id]++
		}

		students = append(students, fiber.Map{
			"user_id":           s.Enrollment.UserID,
			"username":          usernames[s.Enrollment.UserID],
			"lessons_completed": s.CompletedLessons,
			"completion_rate":   s.Percent,
			"completed_at":      s.Enrollment.CompletedAt,
			"enrolled_at":       s.Enrollment.CreatedAt,
		})
	}
	if stats.TotalEnrollments > 0 {
		stats.AvgCompletionRate /= float64(stats.TotalEnrollments)
	}

	lessonStats := make([]lessonStat, 0, len(course.Lessons))
	for _, l := range course.Lessons {
		lessonStats = append(lessonStats, lessonStat{
			LessonID:    l.ID,
			LessonTitle: l.Title,
			Completed:   completedBy[strconv.FormatUint(uint64(l.ID), 10)],
			Total:       stats.TotalEnrollments,
		})
	}

	trends, err := getEnrollmentTrends(ac.DB.WithContext(c.UserContext()), course.ID)
	if err != nil {
		return utils.FromError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"course_id":    course.ID,
		"course_title": course.Title,
		"stats":        stats,
		"lesson_stats": lessonStats,
		"students":     students,
		"enrollments":  trends,
	})
}

// getEnrollmentTrends returns enrollments per day for a course.
func getEnrollmentTrends(db *gorm.DB, courseID uint) ([]map[string]interface{}, error) {
	var trends []map[string]interface{}

	err := db.Raw(`
		SELECT
			DATE(created_at) as date,
			COUNT(*) as enrollments
		FROM enrollments
		WHERE course_id = ? AND deleted_at IS NULL
		GROUP BY DATE(created_at)
		ORDER BY date
	`, courseID).Scan(&trends).Error

	return trends, err
}

// GetPlatformAnalytics godoc
// @Summary Platform analytics
// @Description Admin only. Headline numbers and the most enrolled courses
// @Tags admin
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /admin/analytics [get]
func (ac *AnalyticsController) GetPlatformAnalytics(c *fiber.Ctx) error {
	var metrics struct {
		TotalUsers          int64 `json:"total_users"`
		ActiveUsers         int64 `json:"active_users"`
		NewUsers            int64 `json:"new_users"`
		OnboardedUsers      int64 `json:"onboarded_users"`
		TotalCourses        int64 `json:"total_courses"`
		PublishedCourses    int64 `json:"published_courses"`
		TotalEnrollments    int64 `json:"total_enrollments"`
		CompletedEnrollment int64 `json:"completed_enrollments"`
		Payments            int64 `json:"payments"`
	}

	now := time.Now()
	db := ac.DB.WithContext(c.UserContext())
	counts := []struct {
		query *gorm.DB
		dst   *int64
	}{
		{db.Model(&models.User{}), &metrics.TotalUsers},
		{db.Model(&models.UserProgress{}).Where("last_active > ?", now.AddDate(0, 0, -30)), &metrics.ActiveUsers},
		{db.Model(&models.User{}).Where("created_at > ?", now.AddDate(0, 0, -7)), &metrics.NewUsers},
		{db.Model(&models.UserProgress{}).Where("onboarding_completed = ?", true), &metrics.OnboardedUsers},
		{db.Model(&models.Course{}), &metrics.TotalCourses},
		{db.Model(&models.Course{}).Where("published = ?", true), &metrics.PublishedCourses},
		{db.Model(&models.Enrollment{}), &metrics.TotalEnrollments},
		{db.Model(&models.Enrollment{}).Where("completed_at IS NOT NULL"), &metrics.CompletedEnrollment},
		{db.Model(&models.Payment{}), &metrics.Payments},
	}
	for _, m := range counts {
		if err := m.query.Count(m.dst).Error; err != nil {
			return utils.FromError(c, err)
		}
	}

	var popularCourses []map[string]interface{}
	err := db.Raw(`
		SELECT
			c.id,
			c.title,
			COUNT(e.id) as enrollments
		FROM courses c
		LEFT JOIN enrollments e ON e.course_id = c.id AND e.deleted_at IS NULL
		WHERE c.deleted_at IS NULL
		GROUP BY c.id, c.title
		ORDER BY enrollments DESC
		LIMIT 5
	`).Scan(&popularCourses).Error
	if err != nil {
		return utils.FromError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"metrics":         metrics,
		"popular_courses": popularCourses,
		"timestamp":       now.Format(time.RFC3339),
	})
}
