package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/apperr"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/config"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/models"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/utils"
)

const (
	localUserID = "user_id"
	localRole   = "role"
)

// RoleStore reports the role a user holds right now.
type RoleStore interface {
	RoleOf(ctx context.Context, userID uint) (models.Role, error)
}

// AuthMiddleware rejects requests without a valid token and stores the
// caller's id and role in the request locals.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := utils.ExtractClaimsFromToken(c, cfg)
		if err != nil {
			return utils.FromError(c, apperr.ErrUnauthorized)
		}
		c.Locals(localUserID, claims.UserID)
		c.Locals(localRole, claims.Role)
		return c.Next()
	}
}

// RequireRole must run after AuthMiddleware. The role is read from the store
// on every request, so a demotion takes effect before the token expires.
func RequireRole(users RoleStore, role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		current, err := users.RoleOf(c.UserContext(), CurrentUserID(c))
		if errors.Is(err, apperr.ErrNotFound) {
			return utils.FromError(c, apperr.ErrUnauthorized)
		}
		if err != nil {
			return utils.FromError(c, err)
		}

		c.Locals(localRole, current)
		if current != role {
			return utils.FromError(c, fmt.Errorf("%s access required: %w", role, apperr.ErrForbidden))
		}
		return c.Next()
	}
}

// CurrentUserID returns the authenticated user's id, or 0 outside
// AuthMiddleware.
func CurrentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(localUserID).(uint)
	return id
}

// CurrentRole is the role from the token, or the stored one after RequireRole.
func CurrentRole(c *fiber.Ctx) models.Role {
	role, _ := c.Locals(localRole).(models.Role)
	return role
}
