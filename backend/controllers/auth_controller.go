package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/config"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/models"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/repository"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/utils"
)

type AuthController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Progress *repository.ProgressRepository
	Logger   *zap.Logger
}

func NewAuthController(db *gorm.DB, cfg *config.Config, progress *repository.ProgressRepository, logger *zap.Logger) *AuthController {
	return &AuthController{DB: db, Cfg: cfg, Progress: progress, Logger: logger}
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func userResponse(user *models.User) fiber.Map {
	return fiber.Map{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	}
}

// Register godoc
// @Summary Register a new user
// @Description Creates a student account (or an admin one for emails listed in ADMIN_EMAILS) and its progress row
// @Tags auth
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "User registration data"
// @Success 201 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input RegisterRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	var count int64
	if err := ac.DB.Model(&models.User{}).
		Where("username = ? OR email = ?", input.Username, input.Email).
		Count(&count).Error; err != nil {
		return utils.FromError(c, err)
	}
	if count > 0 {
		return utils.Conflict(c, "Username or email already taken")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}

	user := models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Role:         models.RoleStudent,
	}
	if ac.Cfg.IsAdminEmail(user.Email) {
		user.Role = models.RoleAdmin
	}

	// the user row and its progress row are created together or not at all
	err = ac.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return repository.NewProgressRepository(tx).Ensure(c.UserContext(), user.ID)
	})
	if err != nil {
		ac.Logger.Error("could not create user", zap.Error(err))
		return utils.InternalServerError(c, "Could not create user")
	}

	token, err := utils.GenerateJWTToken(user.ID, user.Role, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	ac.Logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
	return utils.Created(c, fiber.Map{
		"token": token,
		"user":  userResponse(&user),
	})
}

// Login godoc
// @Summary User login
// @Description Authenticates a user, records the login and returns a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input LoginRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	var user models.User
	if err := ac.DB.Where("username = ?", strings.TrimSpace(input.Username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Unauthorized(c, "Invalid credentials")
		}
		return utils.FromError(c, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return utils.Unauthorized(c, "Invalid credentials")
	}

	token, err := utils.GenerateJWTToken(user.ID, user.Role, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	progress, err := ac.Progress.RecordLogin(c.UserContext(), user.ID, time.Now())
	if err != nil {
		// a failed streak update must not block signing in
		ac.Logger.Warn("could not record login", zap.Error(err), zap.Uint("user_id", user.ID))
	}

	resp := fiber.Map{
		"token": token,
		"user":  userResponse(&user),
	}
	if progress != nil {
		resp["streak_days"] = progress.StreakDays
	}
	return utils.Success(c, fiber.StatusOK, resp)
}

// Session godoc
// @Summary Current session
// @Description Returns the signed in user, or a null session for a missing or invalid token
// @Tags auth
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Router /auth/session [get]
func (ac *AuthController) Session(c *fiber.Ctx) error {
	claims, err := utils.ExtractClaimsFromToken(c, ac.Cfg)
	if err != nil {
		return utils.Success(c, fiber.StatusOK, fiber.Map{"session": nil})
	}

	var user models.User
	if err := ac.DB.First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Success(c, fiber.StatusOK, fiber.Map{"session": nil})
		}
		return utils.FromError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"session": fiber.Map{"user": userResponse(&user)},
	})
}

// Logout godoc
// @Summary Sign out
// @Description Tokens are stateless; clients discard theirs
// @Tags auth
// @Success 204
// @Router /auth/logout [post]
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	return utils.NoContent(c)
}
