package controllers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/apperr"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/middleware"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/models"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/repository"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/enrollment"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/xp"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/utils"
)

type CoursesController struct {
	DB      *gorm.DB
	Courses *repository.CourseRepository
	Tracker *enrollment.Tracker
	XP      *xp.Service
	Logger  *zap.Logger
}

func NewCoursesController(db *gorm.DB, courses *repository.CourseRepository, tracker *enrollment.Tracker, xpService *xp.Service, logger *zap.Logger) *CoursesController {
	return &CoursesController{DB: db, Courses: courses, Tracker: tracker, XP: xpService, Logger: logger}
}

type lessonSummary struct {
	ID            uint   `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	SequenceOrder int    `json:"sequence_order"`
}

func summarizeLessons(lessons []models.Lesson) []lessonSummary {
	out := make([]lessonSummary, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, lessonSummary{
			ID:            l.ID,
			Title:         l.Title,
			Description:   l.Description,
			SequenceOrder: l.SequenceOrder,
		})
	}
	return out
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.InvalidInput("invalid %s", name)
	}
	return uint(id), nil
}

// visibleCourse loads a course with lessons. Drafts are only visible to admins.
func (cc *CoursesController) visibleCourse(c *fiber.Ctx, courseID uint) (*models.Course, error) {
	course, err := cc.Courses.GetWithLessons(c.UserContext(), courseID)
	if err != nil {
		return nil, err
	}
	if !course.Published && middleware.CurrentRole(c) != models.RoleAdmin {
		return nil, repository.ErrCourseNotFound
	}
	return course, nil
}

// ListCourses godoc
// @Summary Course catalog
// @Description Published courses filtered by search term and topic
// @Tags courses
// @Produce json
// @Param search query string false "Search in title and descriptions"
// @Param topic query string false "Topic"
// @Param sort query string false "newest|popularity" default(popularity)
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /courses [get]
func (cc *CoursesController) ListCourses(c *fiber.Ctx) error {
	search := strings.ToLower(strings.TrimSpace(c.Query("search")))
	topic := strings.TrimSpace(c.Query("topic"))

	query := cc.DB.Model(&models.Course{}).Where("published = ?", true)
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(short_desc) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
	}
	if topic != "" {
		query = query.Where("topic = ?", topic)
	}

	switch c.Query("sort", "popularity") {
	case "newest":
		query = query.Order("created_at DESC")
	default:
		query = query.Order("(SELECT COUNT(*) FROM enrollments WHERE enrollments.course_id = courses.id AND enrollments.deleted_at IS NULL) DESC").
			Order("id")
	}

	var courses []models.Course
	if err := query.Find(&courses).Error; err != nil {
		return utils.FromError(c, err)
	}

	ids := make([]uint, 0, len(courses))
	for _, course := range courses {
		ids = append(ids, course.ID)
	}
	lessonCounts, err := cc.Courses.LessonCounts(c.UserContext(), ids)
	if err != nil {
		return utils.FromError(c, err)
	}

	result := make([]fiber.Map, 0, len(courses))
	for _, course := range courses {
		result = append(result, fiber.Map{
			"id":          course.ID,
			"title":       course.Title,
			"short_desc":  course.ShortDesc,
			"difficulty":  course.Difficulty,
			"topic":       course.Topic,
			"logo_url":    course.LogoURL,
			"price_minor": course.PriceMinor,
			"currency":    course.Currency,
			"lessons":     lessonCounts[course.ID],
		})
	}

	return utils.Success(c, fiber.StatusOK, result)
}

// GetMyCourses godoc
// @Summary Enrolled courses
// @Description Courses the caller is enrolled in with completion percent
// @Tags courses
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /courses/mine [get]
func (cc *CoursesController) GetMyCourses(c *fiber.Ctx) error {
	summaries, err := cc.Tracker.ListForUser(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return utils.FromError(c, err)
	}
	result, err := courseCards(cc.DB, summaries)
	if err != nil {
		return utils.FromError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, result)
}

// courseCards joins enrollment summaries with their courses for display.
func courseCards(db *gorm.DB, summaries []enrollment.Summary) ([]fiber.Map, error) {
	result := make([]fiber.Map, 0, len(summaries))
	if len(summaries) == 0 {
		return result, nil
	}

	ids := make([]uint, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.Enrollment.CourseID)
	}
	var courses []models.Course
	if err := db.Where("id IN ?", ids).Find(&courses).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Course, len(courses))
	for _, course := range courses {
		byID[course.ID] = course
	}

	for _, s := range summaries {
		course, ok := byID[s.Enrollment.CourseID]
		if !ok {
			continue
		}
		result = append(result, fiber.Map{
			"id":            course.ID,
			"title":         course.Title,
			"short_desc":    course.ShortDesc,
			"logo_url":      course.LogoURL,
			"enrollment_id": s.Enrollment.ID,
			"progress":      s.Percent,
			"lessons":       s.LessonCount,
			"completed":     s.CompletedLessons,
			"completed_at":  s.Enrollment.CompletedAt,
			"last_accessed": s.Enrollment.UpdatedAt,
		})
	}
	return result, nil
}

// GetCourseDetails godoc
// @Summary Course details
// @Description Course with its lesson outline. Does not enroll the caller
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id} [get]
func (cc *CoursesController) GetCourseDetails(c *fiber.Ctx) error {
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.FromError(c, err)
	}

	course, err := cc.visibleCourse(c, courseID)
	if err != nil {
		return utils.FromError(c, err)
	}

	e, err := cc.Tracker.GetEnrollment(c.UserContext(), middleware.CurrentUserID(c), courseID)
	if err != nil {
		return utils.FromError(c, err)
	}

	resp := fiber.Map{
		"course": fiber.Map{
			"id":          course.ID,
			"title":       course.Title,
			"short_desc":  course.ShortDesc,
			"description": course.Description,
			"difficulty":  course.Difficulty,
			"topic":       course.Topic,
			"logo_url":    course.LogoURL,
			"author":      course.AuthorID,
			"price_minor": course.PriceMinor,
			"currency":    course.Currency,
			"published":   course.Published,
			"lessons":     summarizeLessons(course.Lessons),
		},
		"enrollment": nil,
	}
	if e != nil {
		resp["enrollment"] = e
		resp["progress"] = percentFor(e, course.Lessons)
	}
	return utils.Success(c, fiber.StatusOK, resp)
}

func percentFor(e *models.Enrollment, lessons []models.Lesson) float64 {
	ids := make([]uint, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	return enrollment.ComputeProgressPercent(e.CompletedLessonIDs, ids)
}

// GetEnrollment godoc
// @Summary Enrollment lookup
// @Description Returns the caller's enrollment or a null enrollment when absent
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/enrollment [get]
func (cc *CoursesController) GetEnrollment(c *fiber.Ctx) error {
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.FromError(c, err)
	}

	e, err := cc.Tracker.GetEnrollment(c.UserContext(), middleware.CurrentUserID(c), courseID)
	if err != nil {
		return utils.FromError(c, err)
	}
	if e == nil {
		return utils.Success(c, fiber.StatusOK, fiber.Map{"enrollment": nil})
	}

	percent, err := cc.Tracker.Progress(c.UserContext(), e)
	if err != nil {
		return utils.FromError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"enrollment": e, "progress": percent})
}

// Enroll godoc
// @Summary Enroll in a course
// @Description Idempotent: enrolling again returns the existing enrollment
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} utils.SuccessResponse
// @Success 201 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/enroll [post]
func (cc *CoursesController) Enroll(c *fiber.Ctx) error {
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.FromError(c, err)
	}
	if _, err := cc.visibleCourse(c, courseID); err != nil {
		return utils.FromError(c, err)
	}

	userID := middleware.CurrentUserID(c)
	e, created, err := cc.Tracker.Enroll(c.UserContext(), userID, courseID)
	if err != nil {
		return utils.FromError(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
		cc.recordEnrollment(c.UserContext(), userID, courseID)
	}
	return utils.Success(c, status, fiber.Map{"enrollment": e, "created": created})
}

func (cc *CoursesController) recordEnrollment(ctx context.Context, userID, courseID uint) {
	if err := cc.XP.RecordEnrollment(ctx, userID, courseID); err != nil {
		cc.Logger.Warn("could not record enrollment activity", zap.Error(err), zap.Uint("user_id", userID))
	}
}

// GetCourseContent godoc
// @Summary Course content
// @Description Lessons with content. Enrolls the caller first when needed
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/content [get]
func (cc *CoursesController) GetCourseContent(c *fiber.Ctx) error {
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.FromError(c, err)
	}

	course, err := cc.visibleCourse(c, courseID)
	if err != nil {
		return utils.FromError(c, err)
	}

	userID := middleware.CurrentUserID(c)
	e, created, err := cc.Tracker.EnsureEnrolled(c.UserContext(), userID, courseID)
	if err != nil {
		return utils.FromError(c, err)
	}
	if created {
		cc.recordEnrollment(c.UserContext(), userID, courseID)
	}

	completion, err := cc.Tracker.Settle(c.UserContext(), e)
	if err != nil {
		return utils.FromError(c, err)
	}
	if err := cc.awardCourse(c.UserContext(), userID, completion); err != nil {
		return utils.FromError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"course":     course,
		"enrollment": completion.Enrollment,
		"progress":   completion.Percent,
	})
}

// CompleteLesson godoc
// @Summary Complete a lesson
// @Description Marks a lesson complete for the caller, enrolling first when needed. Repeating is a no-op
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Param lessonId path int true "Lesson ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/lessons/{lessonId}/complete [post]
func (cc *CoursesController) CompleteLesson(c *fiber.Ctx) error {
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.FromError(c, err)
	}
	lessonID, err := paramID(c, "lessonId")
	if err != nil {
		return utils.FromError(c, err)
	}
	if _, err := cc.visibleCourse(c, courseID); err != nil {
		return utils.FromError(c, err)
	}

	userID := middleware.CurrentUserID(c)
	completion, err := cc.Tracker.CompleteLessonInCourse(c.UserContext(), userID, courseID, lessonID)
	if err != nil {
		return utils.FromError(c, err)
	}
	return cc.respondCompletion(c, userID, lessonID, completion)
}

// CompleteEnrollmentLesson godoc
// @Summary Complete a lesson by enrollment
// @Tags courses
// @Produce json
// @Param id path int true "Enrollment ID"
// @Param lessonId path int true "Lesson ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /enrollments/{id}/lessons/{lessonId}/complete [post]
func (cc *CoursesController) CompleteEnrollmentLesson(c *fiber.Ctx) error {
	enrollmentID, err := paramID(c, "id")
	if err != nil {
		return utils.FromError(c, err)
	}
	lessonID, err := paramID(c, "lessonId")
	if err != nil {
		return utils.FromError(c, err)
	}

	userID := middleware.CurrentUserID(c)
	completion, err := cc.Tracker.MarkLessonComplete(c.UserContext(), userID, enrollmentID, lessonID)
	if err != nil {
		return utils.FromError(c, err)
	}
	return cc.respondCompletion(c, userID, lessonID, completion)
}

// respondCompletion applies the XP awards for a completion. The awards are
// idempotent, so a request retried after a failed award still grants them.
func (cc *CoursesController) respondCompletion(c *fiber.Ctx, userID, lessonID uint, completion *enrollment.Completion) error {
	ctx := c.UserContext()
	if _, err := cc.XP.AwardLesson(ctx, userID, lessonID); err != nil {
		return utils.FromError(c, err)
	}
	if err := cc.awardCourse(ctx, userID, completion); err != nil {
		return utils.FromError(c, err)
	}

	level, err := cc.XP.Level(ctx, userID)
	if err != nil {
		return utils.FromError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"completion": completion,
		"level":      level,
	})
}

func (cc *CoursesController) awardCourse(ctx context.Context, userID uint, completion *enrollment.Completion) error {
	if completion.Enrollment.CompletedAt == nil {
		return nil
	}
	_, err := cc.XP.AwardCourse(ctx, userID, completion.Enrollment.CourseID)
	return err
}

type PaymentRequest struct {
	PaymentID   string `json:"payment_id" validate:"required,notblank,max=128"`
	AmountMinor int64  `json:"amount" validate:"gte=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3,alpha"`
}

// RecordPayment godoc
// @Summary Record a checkout
// @Description Stores a successful payment reported by the checkout widget and grants course access
// @Tags courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param input body PaymentRequest true "Payment"
// @Success 200 {object} utils.SuccessResponse
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/payments [post]
func (cc *CoursesController) RecordPayment(c *fiber.Ctx) error {
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.FromError(c, err)
	}

	var input PaymentRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	course, err := cc.visibleCourse(c, courseID)
	if err != nil {
		return utils.FromError(c, err)
	}
	if input.Currency == "" {
		input.Currency = course.Currency
	}

	userID := middleware.CurrentUserID(c)
	e, err := cc.Tracker.GrantFromPayment(c.UserContext(), userID, courseID, enrollment.PaymentInput{
		PaymentID:   input.PaymentID,
		AmountMinor: input.AmountMinor,
		Currency:    input.Currency,
	})
	if err != nil {
		return utils.FromError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"message":    "Payment recorded",
		"enrollment": e,
	})
}

type CourseRequest struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	ShortDesc   string `json:"short_desc" validate:"max=500"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Topic       string `json:"topic" validate:"max=100"`
	LogoURL     string `json:"logo_url" validate:"omitempty,url"`
	Published   bool   `json:"published"`
	PriceMinor  int64  `json:"price_minor" validate:"gte=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3,alpha"`
}

// CreateCourse godoc
// @Summary Create course
// @Tags admin
// @Accept json
// @Produce json
// @Param input body CourseRequest true "Course"
// @Success 201 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/courses [post]
func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	var input CourseRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	course := models.Course{
		Title:       strings.TrimSpace(input.Title),
		ShortDesc:   input.ShortDesc,
		Description: input.Description,
		Difficulty:  input.Difficulty,
		Topic:       input.Topic,
		LogoURL:     input.LogoURL,
		AuthorID:    middleware.CurrentUserID(c),
		Published:   input.Published,
		PriceMinor:  input.PriceMinor,
		Currency:    strings.ToUpper(input.Currency),
	}
	if course.Currency == "" {
		course.Currency = "INR"
	}

	if err := cc.DB.Create(&course).Error; err != nil {
		return utils.InternalServerError(c, "Could not create course")
	}

	return utils.Created(c, fiber.Map{
		"message": "Course created",
		"course":  course,
	})
}

type UpdateCourseRequest struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
	ShortDesc   *string `json:"short_desc" validate:"omitempty,max=500"`
	Description *string `json:"description"`
	Difficulty  *string `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Topic       *string `json:"topic" validate:"omitempty,max=100"`
	LogoURL     *string `json:"logo_url" validate:"omitempty,url"`
	Published   *bool   `json:"published"`
	PriceMinor  *int64  `json:"price_minor" validate:"omitempty,gte=0"`
	Currency    *string `json:"currency" validate:"omitempty,len=3,alpha"`
}

// UpdateCourse godoc
// @Summary Update course
// @Description Only fields present in the body change
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param input body UpdateCourseRequest true "Fields to change"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/courses/{id} [put]
func (cc *CoursesController) UpdateCourse(c *fiber.Ctx) error {
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.FromError(c, err)
	}

	var input UpdateCourseRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	course, err := cc.Courses.Get(c.UserContext(), courseID)
	if err != nil {
		return utils.FromError(c, err)
	}

	if input.Title != nil {
		course.Title = strings.TrimSpace(*input.Title)
	}
	if input.ShortDesc != nil {
		course.ShortDesc = *input.ShortDesc
	}
	if input.Description != nil {
		course.Description = *input.Description
	}
	if input.Difficulty != nil {
		course.Difficulty = *input.Difficulty
	}
	if input.Topic != nil {
		course.Topic = *input.Topic
	}
	if input.LogoURL != nil {
		course.LogoURL = *input.LogoURL
	}
	if input.Published != nil {
		course.Published = *input.Published
	}
	if input.PriceMinor != nil {
		course.PriceMinor = *input.PriceMinor
	}
	if input.Currency != nil {
		course.Currency = strings.ToUpper(*input.Currency)
	}

	if err := cc.DB.Save(course).Error; err != nil {
		return utils.InternalServerError(c, "Could not update course")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"message": "Course updated",
		"course":  course,
	})
}

// DeleteCourse godoc
// @Summary Delete course
// @Description Removes the course and its lessons. Enrollments stay for history
// @Tags admin
// @Param id path int true "Course ID"
// @Success 204
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/courses/{id} [delete]
func (cc *CoursesController) DeleteCourse(c *fiber.Ctx) error {
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.FromError(c, err)
	}
	if _, err := cc.Courses.Get(c.UserContext(), courseID); err != nil {
		return utils.FromError(c, err)
	}

	err = cc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", courseID).Delete(&models.Lesson{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Course{}, courseID).Error
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not delete course")
	}

	cc.Logger.Info("course deleted", zap.Uint("course_id", courseID), zap.Uint("by", middleware.CurrentUserID(c)))
	return utils.NoContent(c)
}

type LessonRequest struct {
	Title         string `json:"title" validate:"required,notblank,max=200"`
	Description   string `json:"description"`
	Content       string `json:"content"`
	SequenceOrder int    `json:"sequence_order" validate:"gte=0"`
}

// AddLesson godoc
// @Summary Add lesson
// @Description Appends a lesson. Without sequence_order it goes last
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param input body LessonRequest true "Lesson"
// @Success 201 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/courses/{id}/lessons [post]
func (cc *CoursesController) AddLesson(c *fiber.Ctx) error {
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.FromError(c, err)
	}

	var input LessonRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	if _, err := cc.Courses.Get(c.UserContext(), courseID); err != nil {
		return utils.FromError(c, err)
	}

	order := input.SequenceOrder
	if order == 0 {
		var lessonCount int64
		if err := cc.DB.Model(&models.Lesson{}).Where("course_id = ?", courseID).Count(&lessonCount).Error; err != nil {
			return utils.FromError(c, err)
		}
		order = int(lessonCount) + 1
	}

	lesson := models.Lesson{
		CourseID:      courseID,
		Title:         strings.TrimSpace(input.Title),
		Description:   input.Description,
		Content:       input.Content,
		SequenceOrder: order,
	}
	if err := cc.DB.Create(&lesson).Error; err != nil {
		return utils.InternalServerError(c, "Could not create lesson")
	}

	return utils.Created(c, fiber.Map{
		"message": "Lesson added",
		"lesson":  lesson,
	})
}

func (cc *CoursesController) findLesson(c *fiber.Ctx) (*models.Lesson, error) {
	courseID, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	lessonID, err := paramID(c, "lessonId")
	if err != nil {
		return nil, err
	}

	var lesson models.Lesson
	if err := cc.DB.Where("id = ? AND course_id = ?", lessonID, courseID).First(&lesson).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrLessonNotFound
		}
		return nil, err
	}
	return &lesson, nil
}

// UpdateLesson godoc
// @Summary Update lesson
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param lessonId path int true "Lesson ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/courses/{id}/lessons/{lessonId} [put]
func (cc *CoursesController) UpdateLesson(c *fiber.Ctx) error {
	var input struct {
		Title         string `json:"title" validate:"max=200"`
		Description   string `json:"description"`
		Content       string `json:"content"`
		SequenceOrder int    `json:"sequence_order" validate:"gte=0"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	lesson, err := cc.findLesson(c)
	if err != nil {
		return utils.FromError(c, err)
	}

	if strings.TrimSpace(input.Title) != "" {
		lesson.Title = strings.TrimSpace(input.Title)
	}
	if input.Description != "" {
		lesson.Description = input.Description
	}
	if input.Content != "" {
		lesson.Content = input.Content
	}
	if input.SequenceOrder != 0 {
		lesson.SequenceOrder = input.SequenceOrder
	}

	if err := cc.DB.Save(lesson).Error; err != nil {
		return utils.InternalServerError(c, "Could not update lesson")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"message": "Lesson updated",
		"lesson":  lesson,
	})
}

// DeleteLesson godoc
// @Summary Delete lesson
// @Description Completed IDs of deleted lessons stop counting towards progress
// @Tags admin
// @Param id path int true "Course ID"
// @Param lessonId path int true "Lesson ID"
// @Success 204
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/courses/{id}/lessons/{lessonId} [delete]
func (cc *CoursesController) DeleteLesson(c *fiber.Ctx) error {
	lesson, err := cc.findLesson(c)
	if err != nil {
		return utils.FromError(c, err)
	}
	if err := cc.DB.Delete(lesson).Error; err != nil {
		return utils.InternalServerError(c, "Could not delete lesson")
	}
	return utils.NoContent(c)
}
