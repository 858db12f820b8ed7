package controllers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/config"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/middleware"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/models"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/repository"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/xp"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/utils"
)

type UserController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	XP       *xp.Service
	Progress *repository.ProgressRepository
	Logger   *zap.Logger
}

func NewUserController(db *gorm.DB, cfg *config.Config, xpService *xp.Service, progress *repository.ProgressRepository, logger *zap.Logger) *UserController {
	return &UserController{DB: db, Cfg: cfg, XP: xpService, Progress: progress, Logger: logger}
}

type UpdateUserRequest struct {
	Username    string `json:"username" validate:"omitempty,min=3,max=32,alphanum"`
	Email       string `json:"email" validate:"omitempty,email"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password" validate:"omitempty,min=8,max=72"`
}

func (uc *UserController) findUser(id uint) (*models.User, error) {
	var user models.User
	if err := uc.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetProfile godoc
// @Summary Get user profile
// @Description Returns the authenticated user's profile with level progress
// @Tags users
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	user, err := uc.findUser(userID)
	if err != nil {
		return utils.FromError(c, err)
	}

	level, err := uc.XP.Level(c.UserContext(), userID)
	if err != nil {
		return utils.FromError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"role":       user.Role,
		"created_at": user.CreatedAt,
		"progress":   level,
	})
}

// UpdateProfile godoc
// @Summary Update user profile
// @Description Updates username, email or password of the authenticated user
// @Tags users
// @Accept json
// @Produce json
// @Param input body UpdateUserRequest true "Profile update data"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [put]
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var input UpdateUserRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	user, err := uc.findUser(userID)
	if err != nil {
		return utils.FromError(c, err)
	}

	if input.Username != "" && input.Username != user.Username {
		var existingUser models.User
		if err := uc.DB.Where("username = ?", input.Username).First(&existingUser).Error; err == nil && existingUser.ID != user.ID {
			return utils.Conflict(c, "Username already taken")
		}
		user.Username = input.Username
	}

	if input.Email != "" && input.Email != user.Email {
		var existingUser models.User
		if err := uc.DB.Where("email = ?", input.Email).First(&existingUser).Error; err == nil && existingUser.ID != user.ID {
			return utils.Conflict(c, "Email already taken")
		}
		user.Email = input.Email
	}

	if input.NewPassword != "" {
		if input.OldPassword == "" {
			return utils.BadRequest(c, "Old password is required to set new password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.OldPassword)); err != nil {
			return utils.Unauthorized(c, "Invalid old password")
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return utils.InternalServerError(c, "Could not hash password")
		}
		user.PasswordHash = string(hashedPassword)
	}

	if err := uc.DB.Save(user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update user")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"message": "Profile updated successfully",
		"user":    userResponse(user),
	})
}

// GetUserActivity godoc
// @Summary Get user activity
// @Description Returns recent logins and XP events
// @Tags users
// @Produce json
// @Param days query int false "Number of days to look back" default(7)
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /user/activity [get]
func (uc *UserController) GetUserActivity(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	days, _ := strconv.Atoi(c.Query("days", "7"))
	if days < 1 || days > 365 {
		days = 7
	}

	var logins []models.LoginHistory
	if err := uc.DB.Where("user_id = ? AND login_time >= ?", userID, time.Now().AddDate(0, 0, -days)).
		Order("login_time DESC").
		Find(&logins).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch login history")
	}

	activity, err := uc.Progress.RecentActivity(c.UserContext(), userID, 50)
	if err != nil {
		return utils.FromError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"logins":      logins,
		"activity":    activity,
		"period_days": days,
	})
}

// ListUsers godoc
// @Summary List users
// @Description Admin only. Paginated user list with optional search and role filter
// @Tags admin
// @Produce json
// @Param search query string false "Username or email fragment"
// @Param role query string false "student|admin"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} utils.PaginatedResponse
// @Security ApiKeyAuth
// @Router /admin/users [get]
func (uc *UserController) ListUsers(c *fiber.Ctx) error {
	search := strings.ToLower(strings.TrimSpace(c.Query("search")))
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := uc.DB.Model(&models.User{})
	if search != "" {
		query = query.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if roleParam := c.Query("role"); roleParam != "" {
		role, err := models.ParseRole(roleParam)
		if err != nil {
			return utils.BadRequest(c, "Invalid role")
		}
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.FromError(c, err)
	}

	var users []models.User
	if err := query.Order("id").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		return utils.FromError(c, err)
	}

	result := make([]fiber.Map, 0, len(users))
	for i := range users {
		entry := userResponse(&users[i])
		entry["created_at"] = users[i].CreatedAt
		result = append(result, entry)
	}

	return utils.Paginate(c, result, total, page, pageSize)
}

// UpdateUserRole godoc
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/users/{id}/role [put]
func (uc *UserController) UpdateUserRole(c *fiber.Ctx) error {
	targetID, err := strconv.Atoi(c.Params("id"))
	if err != nil || targetID <= 0 {
		return utils.BadRequest(c, "Invalid user ID")
	}

	var input struct {
		Role string `json:"role" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	role, err := models.ParseRole(input.Role)
	if err != nil {
		return utils.BadRequest(c, "Invalid role")
	}
	if uint(targetID) == middleware.CurrentUserID(c) && role != models.RoleAdmin {
		return utils.BadRequest(c, "Admins cannot demote themselves")
	}

	user, err := uc.findUser(uint(targetID))
	if err != nil {
		return utils.FromError(c, err)
	}

	if err := uc.DB.Model(user).Update("role", role).Error; err != nil {
		return utils.FromError(c, err)
	}
	user.Role = role

	uc.Logger.Info("role changed",
		zap.Uint("user_id", user.ID),
		zap.String("role", string(role)),
		zap.Uint("by", middleware.CurrentUserID(c)),
	)
	return utils.Success(c, fiber.StatusOK, fiber.Map{"user": userResponse(user)})
}
