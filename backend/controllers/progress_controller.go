package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/middleware"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/modules"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/xp"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/utils"
)

// SessionHeader carries the client-side Founder OS session.
const SessionHeader = "X-Session-ID"

type ProgressController struct {
	XP        *xp.Service
	FounderOS *modules.Aggregator
}

func NewProgressController(xpService *xp.Service, founderOS *modules.Aggregator) *ProgressController {
	return &ProgressController{XP: xpService, FounderOS: founderOS}
}

// GetProgress godoc
// @Summary Level progress
// @Description XP, current and next tier and percent towards the next tier
// @Tags progress
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /progress [get]
func (pc *ProgressController) GetProgress(c *fiber.Ctx) error {
	level, err := pc.XP.Level(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return utils.FromError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, level)
}

// GetTiers godoc
// @Summary Tier table
// @Tags progress
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Router /progress/tiers [get]
func (pc *ProgressController) GetTiers(c *fiber.Ctx) error {
	return utils.Success(c, fiber.StatusOK, pc.XP.Tiers())
}

// session returns the caller's Founder OS session, minting one when the
// client has none yet. The id is echoed back so the client can keep it.
func session(c *fiber.Ctx) string {
	id := strings.TrimSpace(c.Get(SessionHeader))
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	c.Set(SessionHeader, id)
	return id
}

// GetFounderOS godoc
// @Summary Founder OS checklist
// @Description Modules with completion flags for the session in X-Session-ID
// @Tags founder-os
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /founder-os [get]
func (pc *ProgressController) GetFounderOS(c *fiber.Ctx) error {
	sid := session(c)
	overview, err := pc.FounderOS.Overview(c.UserContext(), sid)
	if err != nil {
		return utils.FromError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"session": sid,
		"modules": overview.Modules,
		"percent": overview.Percent,
		"next":    overview.Next,
	})
}

// CompleteFounderModule godoc
// @Summary Complete a Founder OS module
// @Description Idempotent
// @Tags founder-os
// @Produce json
// @Param moduleId path string true "Module ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /founder-os/modules/{moduleId}/complete [post]
func (pc *ProgressController) CompleteFounderModule(c *fiber.Ctx) error {
	sid := session(c)
	ctx := c.UserContext()

	added, err := pc.FounderOS.Complete(ctx, sid, c.Params("moduleId"))
	if err != nil {
		return utils.FromError(c, err)
	}

	percent, err := pc.FounderOS.PercentComplete(ctx, sid, modules.IDs(pc.FounderOS.Modules()))
	if err != nil {
		return utils.FromError(c, err)
	}
	next, err := pc.FounderOS.Next(ctx, sid)
	if err != nil {
		return utils.FromError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"session": sid,
		"added":   added,
		"percent": percent,
		"next":    next,
	})
}
