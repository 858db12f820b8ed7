package routes

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/config"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/controllers"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/middleware"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/models"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/repository"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/enrollment"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/modules"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/xp"
)

// Dependencies are built once in main and shared by every controller.
type Dependencies struct {
	DB        *gorm.DB
	Cfg       *config.Config
	Logger    *zap.Logger
	Courses   *repository.CourseRepository
	Progress  *repository.ProgressRepository
	Tracker   *enrollment.Tracker
	XP        *xp.Service
	FounderOS *modules.Aggregator
	Chat      controllers.Sender
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	authMiddleware := middleware.AuthMiddleware(deps.Cfg)
	adminMiddleware := middleware.RequireRole(repository.NewUserRepository(deps.DB), models.RoleAdmin)

	// Auth routes
	authController := controllers.NewAuthController(deps.DB, deps.Cfg, deps.Progress, logger)
	auth := app.Group("/api/auth")
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)
	auth.Get("/session", authController.Session)
	auth.Post("/logout", authController.Logout)

	// Blog routes are public
	blogController := controllers.NewBlogController(deps.DB)
	app.Get("/api/blog", blogController.ListPosts)
	app.Get("/api/blog/:slug", blogController.GetPost)

	// User routes
	userController := controllers.NewUserController(deps.DB, deps.Cfg, deps.XP, deps.Progress, logger)
	user := app.Group("/api/user", authMiddleware)
	user.Get("/profile", userController.GetProfile)
	user.Put("/profile", userController.UpdateProfile)
	user.Get("/activity", userController.GetUserActivity)

	// Progress and Founder OS routes
	progressController := controllers.NewProgressController(deps.XP, deps.FounderOS)
	app.Get("/api/progress", authMiddleware, progressController.GetProgress)
	app.Get("/api/progress/tiers", progressController.GetTiers)
	founderOS := app.Group("/api/founder-os", authMiddleware)
	founderOS.Get("/", progressController.GetFounderOS)
	founderOS.Post("/modules/:moduleId/complete", progressController.CompleteFounderModule)

	// Overview routes
	overviewController := controllers.NewOverviewController(deps.DB, deps.XP, deps.Tracker, deps.Progress)
	app.Get("/api/overview", authMiddleware, overviewController.GetUserOverview)

	// Onboarding routes
	onboardingController := controllers.NewOnboardingController(deps.XP)
	onboarding := app.Group("/api/onboarding", authMiddleware)
	onboarding.Get("/quiz", onboardingController.GetQuiz)
	onboarding.Post("/submit", onboardingController.SubmitQuiz)

	// Courses routes
	coursesController := controllers.NewCoursesController(deps.DB, deps.Courses, deps.Tracker, deps.XP, logger)
	courses := app.Group("/api/courses", authMiddleware)
	courses.Get("/", coursesController.ListCourses)
	courses.Get("/mine", coursesController.GetMyCourses)
	courses.Get("/:id", coursesController.GetCourseDetails)
	courses.Get("/:id/enrollment", coursesController.GetEnrollment)
	courses.Post("/:id/enroll", coursesController.Enroll)
	courses.Get("/:id/content", coursesController.GetCourseContent)
	courses.Post("/:id/lessons/:lessonId/complete", coursesController.CompleteLesson)
	courses.Post("/:id/payments", coursesController.RecordPayment)
	app.Post("/api/enrollments/:id/lessons/:lessonId/complete", authMiddleware, coursesController.CompleteEnrollmentLesson)

	// Chat routes, limited per user
	chatController := controllers.NewChatController(deps.Chat, logger)
	chatLimit := deps.Cfg.Chat.RateLimit
	if chatLimit <= 0 {
		chatLimit = 20
	}
	app.Post("/api/chat", authMiddleware, limiter.New(limiter.Config{
		Max:        chatLimit,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "chat:" + strconv.FormatUint(uint64(middleware.CurrentUserID(c)), 10)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "Too many requests. Please try again later.",
			})
		},
	}), chatController.SendMessage)

	// Admin routes
	analyticsController := controllers.NewAnalyticsController(deps.DB, deps.Courses, deps.Tracker)
	admin := app.Group("/api/admin", authMiddleware, adminMiddleware)
	admin.Get("/analytics", analyticsController.GetPlatformAnalytics)

	adminCourses := admin.Group("/courses")
	adminCourses.Post("/", coursesController.CreateCourse)
	adminCourses.Put("/:id", coursesController.UpdateCourse)
	adminCourses.Delete("/:id", coursesController.DeleteCourse)
	adminCourses.Post("/:id/lessons", coursesController.AddLesson)
	adminCourses.Put("/:id/lessons/:lessonId", coursesController.UpdateLesson)
	adminCourses.Delete("/:id/lessons/:lessonId", coursesController.DeleteLesson)
	adminCourses.Get("/:id/analytics", analyticsController.GetCourseAnalytics)

	adminBlog := admin.Group("/blog")
	adminBlog.Get("/", blogController.ListAllPosts)
	adminBlog.Post("/", blogController.CreatePost)
	adminBlog.Put("/:id", blogController.UpdatePost)
	adminBlog.Delete("/:id", blogController.DeletePost)

	admin.Get("/users", userController.ListUsers)
	admin.Put("/users/:id/role", userController.UpdateUserRole)
}
