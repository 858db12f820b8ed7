package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/apperr"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/config"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/controllers"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/models"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/repository"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/chat"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/enrollment"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/leveling"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/modules"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/onboarding"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/xp"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/utils"
)

const adminEmail = "admin@example.com"

type fakeSender struct {
	reply string
	err   error
	calls int
}

func (f *fakeSender) SendMessage(_ context.Context, text string) (string, error) {
	f.calls++
	if text == "" {
		return "", apperr.InvalidInput("message must not be empty")
	}
	return f.reply, f.err
}

type testEnv struct {
	app  *fiber.App
	db   *gorm.DB
	chat *fakeSender
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Env: "test",
		DB: config.DB{
			Driver:     config.DriverSQLite,
			SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		},
		JWT:         config.JWT{Secret: "testsecret", TTL: time.Hour},
		Onboarding:  config.Onboarding{BaseAward: 100, ElevatedThreshold: 4, BaseTier: "novice", ElevatedTier: "apprentice"},
		XP:          config.XP{LessonAward: 10, CourseAward: 200},
		Chat:        config.Chat{RateLimit: 100},
		AdminEmails: []string{adminEmail},
	}

	db, err := utils.InitDB(cfg)
	require.NoError(t, err)
	require.NoError(t, utils.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	logger := zap.NewNop()
	courseRepo := repository.NewCourseRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	tracker := enrollment.NewTracker(repository.NewEnrollmentRepository(db), courseRepo, repository.NewPaymentRepository(db), logger)
	xpService := xp.NewService(progressRepo, leveling.DefaultTable(), onboarding.Scorer{
		BaseAward:         cfg.Onboarding.BaseAward,
		ElevatedThreshold: cfg.Onboarding.ElevatedThreshold,
		BaseTierID:        cfg.Onboarding.BaseTier,
		ElevatedTierID:    cfg.Onboarding.ElevatedTier,
	}, onboarding.DefaultQuiz(), xp.Awards{Lesson: cfg.XP.LessonAward, Course: cfg.XP.CourseAward}, logger)

	sender := &fakeSender{reply: "Start with a problem."}
	app := fiber.New()
	SetupRoutes(app, Dependencies{
		DB:        db,
		Cfg:       cfg,
		Logger:    logger,
		Courses:   courseRepo,
		Progress:  progressRepo,
		Tracker:   tracker,
		XP:        xpService,
		FounderOS: modules.NewAggregator(modules.NewMemoryStore(), modules.DefaultModules()),
		Chat:      sender,
	})

	return &testEnv{app: app, db: db, chat: sender}
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}, headers ...string) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v), string(raw))
}

func (e *testEnv) register(t *testing.T, username, email string) string {
	t.Helper()
	resp, env := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)

	var data struct {
		Token string `json:"token"`
	}
	decode(t, env.Data, &data)
	require.NotEmpty(t, data.Token)
	return data.Token
}

// seedCourse creates a published course with n lessons through the admin API.
func (e *testEnv) seedCourse(t *testing.T, adminToken string, n int) (uint, []uint) {
	t.Helper()

	resp, env := e.do(t, http.MethodPost, "/api/admin/courses", adminToken, map[string]interface{}{
		"title":      "Idea to MVP",
		"short_desc": "Build your first product",
		"topic":      "startups",
		"published":  true,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)
	var created struct {
		Course models.Course `json:"course"`
	}
	decode(t, env.Data, &created)

	lessonIDs := make([]uint, 0, n)
	for i := 0; i < n; i++ {
		resp, env := e.do(t, http.MethodPost, fmt.Sprintf("/api/admin/courses/%d/lessons", created.Course.ID), adminToken,
			map[string]interface{}{"title": fmt.Sprintf("Lesson %d", i+1), "content": "# Hello"})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)
		var lesson struct {
			Lesson models.Lesson `json:"lesson"`
		}
		decode(t, env.Data, &lesson)
		lessonIDs = append(lessonIDs, lesson.Lesson.ID)
	}
	return created.Course.ID, lessonIDs
}

func (e *testEnv) xp(t *testing.T, token string) int64 {
	t.Helper()
	resp, env := e.do(t, http.MethodGet, "/api/progress", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var level xp.Level
	decode(t, env.Data, &level)
	return level.XP
}

func (e *testEnv) userID(t *testing.T, username string) uint {
	t.Helper()
	var user models.User
	require.NoError(t, e.db.Where("username = ?", username).First(&user).Error)
	return user.ID
}

// failOnce makes the next statement of the given kind against table fail.
func failOnce(t *testing.T, cb interface {
	Register(name string, fn func(*gorm.DB)) error
}, table string) {
	t.Helper()
	armed := true
	require.NoError(t, cb.Register("fail_once_"+table, func(tx *gorm.DB) {
		if armed && tx.Statement.Table == table {
			armed = false
			_ = tx.AddError(errors.New(table + " write failed"))
		}
	}))
}

func TestRegisterAndLogin(t *testing.T) {
	e := setup(t)
	e.register(t, "newuser", "newuser@example.com")

	resp, _ := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "newuser",
		"email":    "other@example.com",
		"password": "password123",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "x",
		"email":    "not-an-email",
		"password": "short",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp, env := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "newuser",
		"password": "password123",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var login struct {
		Token string `json:"token"`
		User  struct {
			Username string      `json:"username"`
			Role     models.Role `json:"role"`
		} `json:"user"`
		StreakDays int `json:"streak_days"`
	}
	decode(t, env.Data, &login)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, "newuser", login.User.Username)
	assert.Equal(t, models.RoleStudent, login.User.Role)
	assert.Equal(t, 1, login.StreakDays)

	resp, _ = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "newuser",
		"password": "wrongpassword",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSession(t *testing.T) {
	e := setup(t)
	token := e.register(t, "sessionuser", "session@example.com")

	resp, env := e.do(t, http.MethodGet, "/api/auth/session", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"session":null}`, string(env.Data))

	resp, env = e.do(t, http.MethodGet, "/api/auth/session", "garbage", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"session":null}`, string(env.Data))

	resp, env = e.do(t, http.MethodGet, "/api/auth/session", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var data struct {
		Session struct {
			User struct {
				Username string `json:"username"`
			} `json:"user"`
		} `json:"session"`
	}
	decode(t, env.Data, &data)
	assert.Equal(t, "sessionuser", data.Session.User.Username)

	resp, _ = e.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	e := setup(t)
	student := e.register(t, "student", "student@example.com")
	admin := e.register(t, "admin", adminEmail)

	course := map[string]interface{}{"title": "Pitching"}

	resp, _ := e.do(t, http.MethodPost, "/api/admin/courses", "", course)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/admin/courses", student, course)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/admin/users", student, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/admin/courses", admin, course)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestDraftCoursesAreHiddenFromStudents(t *testing.T) {
	e := setup(t)
	student := e.register(t, "student", "student@example.com")
	admin := e.register(t, "admin", adminEmail)

	resp, env := e.do(t, http.MethodPost, "/api/admin/courses", admin, map[string]interface{}{"title": "Draft"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created struct {
		Course models.Course `json:"course"`
	}
	decode(t, env.Data, &created)

	resp, _ = e.do(t, http.MethodGet, fmt.Sprintf("/api/courses/%d", created.Course.ID), student, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, fmt.Sprintf("/api/courses/%d", created.Course.ID), admin, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestEnrollmentLookupAndAutoEnroll(t *testing.T) {
	e := setup(t)
	admin := e.register(t, "admin", adminEmail)
	student := e.register(t, "student", "student@example.com")
	courseID, _ := e.seedCourse(t, admin, 2)

	resp, env := e.do(t, http.MethodGet, fmt.Sprintf("/api/courses/%d/enrollment", courseID), student, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"enrollment":null}`, string(env.Data))

	// Viewing details never enrolls.
	resp, _ = e.do(t, http.MethodGet, fmt.Sprintf("/api/courses/%d", courseID), student, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	for i := 0; i < 2; i++ {
		resp, env = e.do(t, http.MethodGet, fmt.Sprintf("/api/courses/%d/content", courseID), student, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	}

	var count int64
	require.NoError(t, e.db.Model(&models.Enrollment{}).Where("course_id = ?", courseID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	resp, env = e.do(t, http.MethodGet, fmt.Sprintf("/api/courses/%d/enrollment", courseID), student, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var lookup struct {
		Enrollment *models.Enrollment `json:"enrollment"`
		Progress   float64            `json:"progress"`
	}
	decode(t, env.Data, &lookup)
	require.NotNil(t, lookup.Enrollment)
	assert.Zero(t, lookup.Progress)

	resp, env = e.do(t, http.MethodPost, fmt.Sprintf("/api/courses/%d/enroll", courseID), student, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var enrolled struct {
		Created bool `json:"created"`
	}
	decode(t, env.Data, &enrolled)
	assert.False(t, enrolled.Created)

	resp, _ = e.do(t, http.MethodGet, "/api/courses/9999/content", student, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestLessonCompletionAwardsOnce(t *testing.T) {
	e := setup(t)
	admin := e.register(t, "admin", adminEmail)
	student := e.register(t, "student", "student@example.com")
	courseID, lessons := e.seedCourse(t, admin, 2)

	complete := func(lessonID uint) enrollment.Completion {
		resp, env := e.do(t, http.MethodPost, fmt.Sprintf("/api/courses/%d/lessons/%d/complete", courseID, lessonID), student, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
		var data struct {
			Completion enrollment.Completion `json:"completion"`
		}
		decode(t, env.Data, &data)
		return data.Completion
	}

	first := complete(lessons[0])
	assert.True(t, first.LessonAdded)
	assert.False(t, first.CourseCompleted)
	assert.InDelta(t, 50.0, first.Percent, 0.001)
	assert.Equal(t, int64(10), e.xp(t, student))

	again := complete(lessons[0])
	assert.False(t, again.LessonAdded)
	assert.Equal(t, int64(10), e.xp(t, student))

	last := complete(lessons[1])
	assert.True(t, last.CourseCompleted)
	assert.InDelta(t, 100.0, last.Percent, 0.001)
	assert.Equal(t, int64(220), e.xp(t, student))

	// Repeating the final lesson does not complete the course twice.
	repeat := complete(lessons[1])
	assert.False(t, repeat.CourseCompleted)
	assert.Equal(t, int64(220), e.xp(t, student))

	resp, _ := e.do(t, http.MethodPost, fmt.Sprintf("/api/courses/%d/lessons/%d/complete", courseID, 9999), student, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCompleteByEnrollmentRejectsOtherUsers(t *testing.T) {
	e := setup(t)
	admin := e.register(t, "admin", adminEmail)
	owner := e.register(t, "owner", "owner@example.com")
	other := e.register(t, "other", "other@example.com")
	courseID, lessons := e.seedCourse(t, admin, 1)

	resp, env := e.do(t, http.MethodPost, fmt.Sprintf("/api/courses/%d/enroll", courseID), owner, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var data struct {
		Enrollment models.Enrollment `json:"enrollment"`
	}
	decode(t, env.Data, &data)

	path := fmt.Sprintf("/api/enrollments/%d/lessons/%d/complete", data.Enrollment.ID, lessons[0])
	resp, _ = e.do(t, http.MethodPost, path, other, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, path, owner, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRecordPayment(t *testing.T) {
	e := setup(t)
	admin := e.register(t, "admin", adminEmail)
	student := e.register(t, "student", "student@example.com")
	other := e.register(t, "other", "other@example.com")
	courseID, _ := e.seedCourse(t, admin, 1)

	payment := map[string]interface{}{"payment_id": "pay_123", "amount": 49900, "currency": "INR"}
	path := fmt.Sprintf("/api/courses/%d/payments", courseID)

	resp, _ := e.do(t, http.MethodPost, path, student, payment)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = e.do(t, http.MethodPost, path, student, payment)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var count int64
	require.NoError(t, e.db.Model(&models.Payment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	resp, _ = e.do(t, http.MethodPost, path, other, payment)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestOnboarding(t *testing.T) {
	e := setup(t)
	student := e.register(t, "student", "student@example.com")

	resp, env := e.do(t, http.MethodGet, "/api/onboarding/quiz", student, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(env.Data), "correct_index")

	answers := map[string]int{}
	for _, q := range onboarding.DefaultQuiz() {
		answers[q.ID] = q.CorrectIndex
	}

	resp, _ = e.do(t, http.MethodPost, "/api/onboarding/submit", student, map[string]interface{}{})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp, env = e.do(t, http.MethodPost, "/api/onboarding/submit", student, map[string]interface{}{"answers": answers})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	var outcome xp.OnboardingOutcome
	decode(t, env.Data, &outcome)
	assert.Equal(t, "apprentice", outcome.Result.AssignedTierID)
	assert.Equal(t, outcome.Result.FinalXP, e.xp(t, student))

	resp, _ = e.do(t, http.MethodPost, "/api/onboarding/submit", student, map[string]interface{}{"answers": answers})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, outcome.Result.FinalXP, e.xp(t, student))
}

func TestFounderOS(t *testing.T) {
	e := setup(t)
	student := e.register(t, "student", "student@example.com")

	resp, _ := e.do(t, http.MethodGet, "/api/founder-os", student, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	sid := resp.Header.Get(controllers.SessionHeader)
	_, err := uuid.Parse(sid)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		resp, _ = e.do(t, http.MethodPost, "/api/founder-os/modules/ideation/complete", student, nil, controllers.SessionHeader, sid)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, _ = e.do(t, http.MethodPost, "/api/founder-os/modules/time-travel/complete", student, nil, controllers.SessionHeader, sid)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, env := e.do(t, http.MethodGet, "/api/founder-os", student, nil, controllers.SessionHeader, sid)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var overview struct {
		Percent float64          `json:"percent"`
		Next    *modules.Module  `json:"next"`
		Modules []map[string]any `json:"modules"`
	}
	decode(t, env.Data, &overview)
	assert.InDelta(t, 100.0/7, overview.Percent, 0.001)
	require.NotNil(t, overview.Next)
	assert.Equal(t, "market-research", overview.Next.ID)
	assert.Len(t, overview.Modules, 7)
}

func TestChat(t *testing.T) {
	e := setup(t)
	student := e.register(t, "student", "student@example.com")

	resp, env := e.do(t, http.MethodPost, "/api/chat", student, map[string]string{"message": "How do I find customers?"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"reply":"Start with a problem.","fallback":false}`, string(env.Data))

	resp, _ = e.do(t, http.MethodPost, "/api/chat", student, map[string]string{"message": ""})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	e.chat.err = fmt.Errorf("chat: boom: %w", apperr.ErrUpstream)
	resp, env = e.do(t, http.MethodPost, "/api/chat", student, map[string]string{"message": "hi"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var fallback struct {
		Reply    string `json:"reply"`
		Fallback bool   `json:"fallback"`
	}
	decode(t, env.Data, &fallback)
	assert.True(t, fallback.Fallback)
	assert.Equal(t, chat.FallbackReply, fallback.Reply)
	assert.NotContains(t, string(env.Data), "boom")

	e.chat.err = fmt.Errorf("chat: api key not set: %w", apperr.ErrConfiguration)
	resp, env = e.do(t, http.MethodPost, "/api/chat", student, map[string]string{"message": "hi"})
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.NotContains(t, env.Message, "api key")

	resp, _ = e.do(t, http.MethodPost, "/api/chat", "", map[string]string{"message": "hi"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestBlog(t *testing.T) {
	e := setup(t)
	admin := e.register(t, "admin", adminEmail)

	resp, env := e.do(t, http.MethodPost, "/api/admin/blog", admin, map[string]interface{}{
		"title":     "Hello, Founders!",
		"body":      "First post",
		"published": true,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)
	var post models.BlogPost
	decode(t, env.Data, &post)
	assert.Equal(t, "hello-founders", post.Slug)
	assert.NotNil(t, post.PublishedAt)

	resp, env = e.do(t, http.MethodPost, "/api/admin/blog", admin, map[string]interface{}{"title": "Hello founders"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var draft models.BlogPost
	decode(t, env.Data, &draft)
	assert.Equal(t, "hello-founders-2", draft.Slug)

	resp, _ = e.do(t, http.MethodGet, "/api/blog/hello-founders", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = e.do(t, http.MethodGet, "/api/blog/hello-founders-2", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/blog", nil)
	listResp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	var page utils.PaginatedResponse
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&page))
	assert.Equal(t, int64(1), page.Total)

	resp, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/blog/%d", draft.ID), admin, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/blog/%d", draft.ID), admin, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCourseAnalytics(t *testing.T) {
	e := setup(t)
	admin := e.register(t, "admin", adminEmail)
	student := e.register(t, "student", "student@example.com")
	courseID, lessons := e.seedCourse(t, admin, 2)

	resp, _ := e.do(t, http.MethodPost, fmt.Sprintf("/api/courses/%d/lessons/%d/complete", courseID, lessons[0]), student, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, env := e.do(t, http.MethodGet, fmt.Sprintf("/api/admin/courses/%d/analytics", courseID), admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	var data struct {
		Stats struct {
			TotalEnrollments  int     `json:"total_enrollments"`
			AvgCompletionRate float64 `json:"avg_completion_rate"`
		} `json:"stats"`
		LessonStats []struct {
			LessonID  uint `json:"lesson_id"`
			Completed int  `json:"completed"`
		} `json:"lesson_stats"`
		Students []struct {
			Username string `json:"username"`
		} `json:"students"`
	}
	decode(t, env.Data, &data)
	assert.Equal(t, 1, data.Stats.TotalEnrollments)
	assert.InDelta(t, 50.0, data.Stats.AvgCompletionRate, 0.001)
	require.Len(t, data.LessonStats, 2)
	assert.Equal(t, 1, data.LessonStats[0].Completed)
	assert.Equal(t, 0, data.LessonStats[1].Completed)
	require.Len(t, data.Students, 1)
	assert.Equal(t, "student", data.Students[0].Username)

	resp, env = e.do(t, http.MethodGet, "/api/admin/analytics", admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	var platform struct {
		Metrics struct {
			TotalUsers       int64 `json:"total_users"`
			NewUsers         int64 `json:"new_users"`
			TotalCourses     int64 `json:"total_courses"`
			PublishedCourses int64 `json:"published_courses"`
			TotalEnrollments int64 `json:"total_enrollments"`
		} `json:"metrics"`
		PopularCourses []map[string]interface{} `json:"popular_courses"`
	}
	decode(t, env.Data, &platform)
	assert.Equal(t, int64(2), platform.Metrics.TotalUsers)
	assert.Equal(t, int64(2), platform.Metrics.NewUsers)
	assert.Equal(t, int64(1), platform.Metrics.TotalCourses)
	assert.Equal(t, int64(1), platform.Metrics.PublishedCourses)
	assert.Equal(t, int64(1), platform.Metrics.TotalEnrollments)
	require.Len(t, platform.PopularCourses, 1)
	assert.EqualValues(t, 1, platform.PopularCourses[0]["enrollments"])

	resp, _ = e.do(t, http.MethodGet, "/api/admin/analytics", student, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRegisterRollsBackWhenProgressFails(t *testing.T) {
	e := setup(t)
	failOnce(t, e.db.Callback().Create().Before("gorm:create"), "user_progresses")

	body := map[string]string{"username": "founder", "email": "founder@example.com", "password": "password123"}
	resp, _ := e.do(t, http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var users int64
	require.NoError(t, e.db.Model(&models.User{}).Where("username = ?", "founder").Count(&users).Error)
	assert.Zero(t, users)

	token := e.register(t, "founder", "founder@example.com")
	assert.Equal(t, int64(0), e.xp(t, token))

	var rows int64
	require.NoError(t, e.db.Model(&models.UserProgress{}).Where("user_id = ?", e.userID(t, "founder")).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestCompletionRetryGrantsXPAfterFailedAward(t *testing.T) {
	e := setup(t)
	admin := e.register(t, "admin", adminEmail)
	student := e.register(t, "student", "student@example.com")
	courseID, lessons := e.seedCourse(t, admin, 1)

	failOnce(t, e.db.Callback().Update().Before("gorm:update"), "user_progresses")

	path := fmt.Sprintf("/api/courses/%d/lessons/%d/complete", courseID, lessons[0])
	resp, _ := e.do(t, http.MethodPost, path, student, nil)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int64(0), e.xp(t, student))

	resp, env := e.do(t, http.MethodPost, path, student, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	var data struct {
		Completion enrollment.Completion `json:"completion"`
	}
	decode(t, env.Data, &data)
	assert.False(t, data.Completion.LessonAdded)
	require.NotNil(t, data.Completion.Enrollment.CompletedAt)
	assert.Equal(t, int64(210), e.xp(t, student))

	resp, _ = e.do(t, http.MethodPost, path, student, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(210), e.xp(t, student))
}

func TestDeletingLastOpenLessonCompletesCourse(t *testing.T) {
	e := setup(t)
	admin := e.register(t, "admin", adminEmail)
	student := e.register(t, "student", "student@example.com")
	courseID, lessons := e.seedCourse(t, admin, 2)

	resp, _ := e.do(t, http.MethodPost, fmt.Sprintf("/api/courses/%d/lessons/%d/complete", courseID, lessons[0]), student, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(10), e.xp(t, student))

	resp, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/courses/%d/lessons/%d", courseID, lessons[1]), admin, nil)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	for i := 0; i < 2; i++ {
		resp, env := e.do(t, http.MethodGet, fmt.Sprintf("/api/courses/%d/content", courseID), student, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
		var content struct {
			Enrollment models.Enrollment `json:"enrollment"`
			Progress   float64           `json:"progress"`
		}
		decode(t, env.Data, &content)
		assert.InDelta(t, 100.0, content.Progress, 0.001)
		assert.NotNil(t, content.Enrollment.CompletedAt)
		assert.Equal(t, int64(210), e.xp(t, student))
	}
}

func TestDeleteLessonRecomputesProgress(t *testing.T) {
	e := setup(t)
	admin := e.register(t, "admin", adminEmail)
	student := e.register(t, "student", "student@example.com")
	courseID, lessons := e.seedCourse(t, admin, 4)

	for _, id := range lessons[:2] {
		resp, _ := e.do(t, http.MethodPost, fmt.Sprintf("/api/courses/%d/lessons/%d/complete", courseID, id), student, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	progress := func() float64 {
		resp, env := e.do(t, http.MethodGet, fmt.Sprintf("/api/courses/%d/enrollment", courseID), student, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var data struct {
			Progress float64 `json:"progress"`
		}
		decode(t, env.Data, &data)
		return data.Progress
	}
	assert.InDelta(t, 50.0, progress(), 0.001)

	resp, _ := e.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/courses/%d/lessons/%d", courseID, lessons[0]), admin, nil)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.InDelta(t, 100.0/3, progress(), 0.001)

	resp, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/courses/%d/lessons/%d", courseID, lessons[0]), admin, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestOverview(t *testing.T) {
	e := setup(t)
	admin := e.register(t, "admin", adminEmail)
	student := e.register(t, "student", "student@example.com")
	done, doneLessons := e.seedCourse(t, admin, 1)
	active, activeLessons := e.seedCourse(t, admin, 2)
	other, _ := e.seedCourse(t, admin, 1)

	for _, step := range []struct{ course, lesson uint }{
		{done, doneLessons[0]},
		{active, activeLessons[0]},
	} {
		resp, _ := e.do(t, http.MethodPost, fmt.Sprintf("/api/courses/%d/lessons/%d/complete", step.course, step.lesson), student, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, env := e.do(t, http.MethodGet, "/api/overview", student, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	var data struct {
		Level            xp.Level `json:"level"`
		CoursesCompleted int      `json:"courses_completed"`
		ActiveCourses    []struct {
			ID       uint    `json:"id"`
			Progress float64 `json:"progress"`
		} `json:"active_courses"`
		RecentActivity  []models.UserActivity `json:"recent_activity"`
		Recommendations []struct {
			ID uint `json:"id"`
		} `json:"recommendations"`
	}
	decode(t, env.Data, &data)

	assert.Equal(t, int64(220), data.Level.XP)
	assert.Equal(t, 1, data.CoursesCompleted)
	require.Len(t, data.ActiveCourses, 1)
	assert.Equal(t, active, data.ActiveCourses[0].ID)
	assert.InDelta(t, 50.0, data.ActiveCourses[0].Progress, 0.001)
	assert.NotEmpty(t, data.RecentActivity)
	require.Len(t, data.Recommendations, 1)
	assert.Equal(t, other, data.Recommendations[0].ID)

	resp, _ = e.do(t, http.MethodGet, "/api/overview", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestUpdateProfile(t *testing.T) {
	e := setup(t)
	alice := e.register(t, "alice", "alice@example.com")
	e.register(t, "bob", "bob@example.com")

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"username taken", map[string]string{"username": "bob"}, fiber.StatusConflict},
		{"email taken", map[string]string{"email": "BOB@example.com"}, fiber.StatusConflict},
		{"new password without old", map[string]string{"new_password": "newpassword1"}, fiber.StatusBadRequest},
		{"wrong old password", map[string]string{"old_password": "nope", "new_password": "newpassword1"}, fiber.StatusUnauthorized},
		{"short new password", map[string]string{"old_password": "password123", "new_password": "short"}, fiber.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := e.do(t, http.MethodPut, "/api/user/profile", alice, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	resp, env := e.do(t, http.MethodPut, "/api/user/profile", alice, map[string]string{
		"username":     "alice2",
		"old_password": "password123",
		"new_password": "newpassword1",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	var data struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	decode(t, env.Data, &data)
	assert.Equal(t, "alice2", data.User.Username)

	resp, _ = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice2", "password": "password123"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp, _ = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice2", "password": "newpassword1"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUpdateUserRole(t *testing.T) {
	e := setup(t)
	admin := e.register(t, "admin", adminEmail)
	student := e.register(t, "student", "student@example.com")
	adminID := e.userID(t, "admin")
	studentID := e.userID(t, "student")

	setRole := func(token string, id uint, role string) int {
		resp, _ := e.do(t, http.MethodPut, fmt.Sprintf("/api/admin/users/%d/role", id), token, map[string]string{"role": role})
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusBadRequest, setRole(admin, adminID, "student"), "admins cannot demote themselves")
	assert.Equal(t, fiber.StatusBadRequest, setRole(admin, studentID, "owner"))
	assert.Equal(t, fiber.StatusNotFound, setRole(admin, 9999, "student"))

	// the student's token still says student, the stored role decides
	require.Equal(t, fiber.StatusOK, setRole(admin, studentID, "admin"))
	resp, _ := e.do(t, http.MethodGet, "/api/admin/users", student, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Equal(t, fiber.StatusOK, setRole(student, adminID, "student"))
	resp, _ = e.do(t, http.MethodGet, "/api/admin/users", admin, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, "a demoted admin loses access before the token expires")
}

func TestAdminUpdateAndDeleteCourse(t *testing.T) {
	e := setup(t)
	admin := e.register(t, "admin", adminEmail)
	student := e.register(t, "student", "student@example.com")
	courseID, _ := e.seedCourse(t, admin, 2)
	path := fmt.Sprintf("/api/admin/courses/%d", courseID)

	resp, env := e.do(t, http.MethodPut, path, admin, map[string]interface{}{"title": "Renamed", "published": false})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	var updated struct {
		Course models.Course `json:"course"`
	}
	decode(t, env.Data, &updated)
	assert.Equal(t, "Renamed", updated.Course.Title)
	assert.Equal(t, "Build your first product", updated.Course.ShortDesc)
	assert.False(t, updated.Course.Published)

	resp, _ = e.do(t, http.MethodGet, fmt.Sprintf("/api/courses/%d", courseID), student, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPut, path, admin, map[string]interface{}{"price_minor": -1})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	resp, _ = e.do(t, http.MethodPut, "/api/admin/courses/9999", admin, map[string]interface{}{"title": "x"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = e.do(t, http.MethodPut, path, student, map[string]interface{}{"title": "x"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = e.do(t, http.MethodDelete, path, admin, nil)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp, _ = e.do(t, http.MethodDelete, path, admin, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var lessons int64
	require.NoError(t, e.db.Model(&models.Lesson{}).Where("course_id = ?", courseID).Count(&lessons).Error)
	assert.Zero(t, lessons)
	resp, _ = e.do(t, http.MethodGet, fmt.Sprintf("/api/courses/%d", courseID), admin, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCatalogLessonCounts(t *testing.T) {
	e := setup(t)
	admin := e.register(t, "admin", adminEmail)
	student := e.register(t, "student", "student@example.com")
	first, _ := e.seedCourse(t, admin, 3)
	second, _ := e.seedCourse(t, admin, 1)

	resp, env := e.do(t, http.MethodGet, "/api/courses?sort=newest", student, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	var catalog []struct {
		ID      uint  `json:"id"`
		Lessons int64 `json:"lessons"`
	}
	decode(t, env.Data, &catalog)
	counts := make(map[uint]int64, len(catalog))
	for _, course := range catalog {
		counts[course.ID] = course.Lessons
	}
	assert.Equal(t, map[uint]int64{first: 3, second: 1}, counts)
}

func TestAnalyticsSurfacesStorageErrors(t *testing.T) {
	e := setup(t)
	admin := e.register(t, "admin", adminEmail)
	courseID, _ := e.seedCourse(t, admin, 1)

	require.NoError(t, e.db.Migrator().DropTable(&models.Payment{}))
	resp, _ := e.do(t, http.MethodGet, "/api/admin/analytics", admin, nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	require.NoError(t, e.db.Migrator().DropTable(&models.Enrollment{}))
	resp, _ = e.do(t, http.MethodGet, fmt.Sprintf("/api/admin/courses/%d/analytics", courseID), admin, nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/courses", admin, nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
