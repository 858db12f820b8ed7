package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/middleware"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/xp"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/utils"
)

type OnboardingController struct {
	XP *xp.Service
}

func NewOnboardingController(xpService *xp.Service) *OnboardingController {
	return &OnboardingController{XP: xpService}
}

type SubmitOnboardingRequest struct {
	Answers map[string]int `json:"answers" validate:"required,min=1"`
}

// GetQuiz godoc
// @Summary Onboarding quiz
// @Description Questions of the founder assessment without the answers
// @Tags onboarding
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /onboarding/quiz [get]
func (oc *OnboardingController) GetQuiz(c *fiber.Ctx) error {
	level, err := oc.XP.Level(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return utils.FromError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"questions":            oc.XP.Quiz(),
		"onboarding_completed": level.OnboardingCompleted,
	})
}

// SubmitQuiz godoc
// @Summary Submit onboarding answers
// @Description Scores the assessment and applies the starting XP. Accepted once per user
// @Tags onboarding
// @Accept json
// @Produce json
// @Param input body SubmitOnboardingRequest true "question id to selected option index"
// @Success 200 {object} utils.SuccessResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /onboarding/submit [post]
func (oc *OnboardingController) SubmitQuiz(c *fiber.Ctx) error {
	var input SubmitOnboardingRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	outcome, err := oc.XP.CompleteOnboarding(c.UserContext(), middleware.CurrentUserID(c), input.Answers)
	if err != nil {
		return utils.FromError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, outcome)
}
