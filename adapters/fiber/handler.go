package fiber

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/keralabs/passway"
	"github.com/keralabs/passway/core"
)

const tokenType = "Bearer"

// authResponse is the register/login body. Token is the plaintext secret;
// it travels in the response exactly once and is never recoverable again.
type authResponse struct {
	Token     string     `json:"token"`
	TokenType string     `json:"token_type"`
	User      *core.User `json:"user"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// handleRegister returns a handler for the registration endpoint
func handleRegister(p *passway.Passway) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input passway.RegisterInput
		if err := c.Bind().Body(&input); err != nil {
			return c.Status(http.StatusBadRequest).JSON(messageResponse{
				Message: "invalid request body",
			})
		}

		user, err := p.Accounts.Register(c.Context(), input)
		if err != nil {
			return handleError(c, err)
		}

		issued, err := p.Tokens.Issue(c.Context(), user)
		if err != nil {
			return handleError(c, err)
		}

		return c.Status(http.StatusCreated).JSON(authResponse{
			Token:     issued.Secret,
			TokenType: tokenType,
			User:      user,
		})
	}
}

// handleLogin returns a handler for the login endpoint
func handleLogin(p *passway.Passway) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input passway.LoginInput
		if err := c.Bind().Body(&input); err != nil {
			return c.Status(http.StatusBadRequest).JSON(messageResponse{
				Message: "invalid request body",
			})
		}

		user, err := p.Accounts.Login(c.Context(), input)
		if err != nil {
			return handleError(c, err)
		}

		issued, err := p.Tokens.Issue(c.Context(), user)
		if err != nil {
			return handleError(c, err)
		}

		return c.Status(http.StatusOK).JSON(authResponse{
			Token:     issued.Secret,
			TokenType: tokenType,
			User:      user,
		})
	}
}

// handleCurrentUser returns the authenticated user resolved by
// RequireAuth.
func handleCurrentUser() fiber.Handler {
	return func(c fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(localUser(c))
	}
}

// handleUpdateProfile returns a handler for partial profile updates
func handleUpdateProfile(p *passway.Passway) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input passway.UpdateProfileInput
		if err := c.Bind().Body(&input); err != nil {
			return c.Status(http.StatusBadRequest).JSON(messageResponse{
				Message: "invalid request body",
			})
		}

		updated, err := p.Accounts.UpdateProfile(c.Context(), localUser(c), input)
		if err != nil {
			return handleError(c, err)
		}

		return c.Status(http.StatusOK).JSON(updated)
	}
}

// handleLogout returns a handler for the logout endpoint
func handleLogout(p *passway.Passway) fiber.Handler {
	return func(c fiber.Ctx) error {
		if err := p.Tokens.Logout(c.Context(), extractToken(c)); err != nil {
			return handleError(c, err)
		}

		return c.Status(http.StatusOK).JSON(messageResponse{
			Message: "Logged out",
		})
	}
}

// handleRefresh returns a handler for the token rotation endpoint
func handleRefresh(p *passway.Passway) fiber.Handler {
	return func(c fiber.Ctx) error {
		issued, err := p.Tokens.Refresh(c.Context(), extractToken(c), localUser(c))
		if err != nil {
			return handleError(c, err)
		}

		return c.Status(http.StatusOK).JSON(tokenResponse{
			Token:     issued.Secret,
			TokenType: tokenType,
		})
	}
}

// handleVerify returns a handler for the authenticated verify endpoint
func handleVerify(p *passway.Passway) fiber.Handler {
	return func(c fiber.Ctx) error {
		if err := p.Verification.Verify(c.Context(), localUser(c)); err != nil {
			return handleError(c, err)
		}

		return c.Status(http.StatusOK).JSON(messageResponse{
			Message: "Email verified successfully.",
		})
	}
}

// handleResendVerification returns a handler for re-sending the
// verification email
func handleResendVerification(p *passway.Passway) fiber.Handler {
	return func(c fiber.Ctx) error {
		if err := p.Verification.ResendNotification(c.Context(), localUser(c)); err != nil {
			return handleError(c, err)
		}

		return c.Status(http.StatusOK).JSON(messageResponse{
			Message: "Verification link sent.",
		})
	}
}

// handleVerifyFromLink returns a handler for the signed verification link
func handleVerifyFromLink(p *passway.Passway) fiber.Handler {
	return func(c fiber.Ctx) error {
		_, err := p.Verification.VerifyFromLink(c.Context(), c.Params("id"), c.Params("hash"))
		if err != nil {
			return handleError(c, err)
		}

		return c.Status(http.StatusOK).JSON(messageResponse{
			Message: "Email verified successfully.",
		})
	}
}

// handleListUsers returns a handler for the admin user listing
func handleListUsers(p *passway.Passway) fiber.Handler {
	return func(c fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "1"))
		perPage, _ := strconv.Atoi(c.Query("per_page", "0"))

		listing, err := p.Accounts.ListUsers(c.Context(), page, perPage, c.Query("role"))
		if err != nil {
			return handleError(c, err)
		}

		return c.Status(http.StatusOK).JSON(listing)
	}
}

// handleAdminUpdate returns a handler for the allowlisted admin update
func handleAdminUpdate(p *passway.Passway) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input passway.AdminUpdateInput
		if err := c.Bind().Body(&input); err != nil {
			return c.Status(http.StatusBadRequest).JSON(messageResponse{
				Message: "invalid request body",
			})
		}

		updated, err := p.Accounts.AdminUpdate(c.Context(), c.Params("id"), input)
		if err != nil {
			return handleError(c, err)
		}

		return c.Status(http.StatusOK).JSON(updated)
	}
}

// handleError maps service errors to HTTP responses. Validation failures
// keep their per-field structure; anything unrecognized stays a plain 500
// so internal detail never leaks.
func handleError(c fiber.Ctx, err error) error {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": verr.Error(),
			"errors":  verr.Fields,
		})
	}

	status := mapErrorToStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "server error"
	}

	return c.Status(status).JSON(messageResponse{Message: message})
}

// mapErrorToStatus maps passway error kinds to HTTP status codes
func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrUnauthenticated),
		errors.Is(err, core.ErrMissingAuthHeader),
		errors.Is(err, core.ErrInvalidAuthHeader),
		errors.Is(err, core.ErrInvalidToken),
		errors.Is(err, core.ErrTokenNotFound),
		errors.Is(err, core.ErrTokenExpired):
		return http.StatusUnauthorized

	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, core.ErrUserNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrInvalidLink),
		errors.Is(err, core.ErrAlreadyVerified):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
