package fiber

import (
	"github.com/gofiber/fiber/v3"

	"github.com/keralabs/passway"
	"github.com/keralabs/passway/core"
)

// Locals keys set by RequireAuth for downstream handlers.
const (
	LocalsUser  = "user"
	LocalsToken = "token"
)

// RequireAuth validates the bearer token and stores the resolved user and
// token in the request context for downstream handlers.
func RequireAuth(tokens *passway.Tokens) fiber.Handler {
	return func(c fiber.Ctx) error {
		secret := extractToken(c)
		if secret == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": core.ErrMissingAuthHeader.Error(),
			})
		}

		user, token, err := tokens.Authenticate(c.Context(), secret)
		if err != nil {
			return handleError(c, err)
		}

		c.Locals(LocalsUser, user)
		c.Locals(LocalsToken, token)

		return c.Next()
	}
}

// RequireRole gates a route on the authenticated user's role. It must run
// after RequireAuth.
func RequireRole(role core.Role) fiber.Handler {
	return func(c fiber.Ctx) error {
		user := localUser(c)
		if user == nil {
			return handleError(c, core.ErrUnauthenticated)
		}
		if user.Role != role {
			return handleError(c, core.ErrForbidden)
		}
		return c.Next()
	}
}

// extractToken pulls the bearer secret from the Authorization header.
func extractToken(c fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return ""
}

func localUser(c fiber.Ctx) *core.User {
	user, _ := c.Locals(LocalsUser).(*core.User)
	return user
}
