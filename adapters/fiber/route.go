// Package fiber mounts the passway HTTP surface on a gofiber/v3
// application.
package fiber

import (
	"github.com/gofiber/fiber/v3"

	"github.com/keralabs/passway"
	"github.com/keralabs/passway/core"
)

type Adapter struct {
	app *fiber.App
}

var _ passway.HTTPAdapter = (*Adapter)(nil)

func New(app *fiber.App) *Adapter {
	return &Adapter{app: app}
}

// RegisterRoutes wires the account, token and verification endpoints.
// The signed verification link is the only public route besides
// register/login; the admin listing lives outside the auth prefix and is
// role-gated.
func (a *Adapter) RegisterRoutes(p *passway.Passway) error {
	auth := a.app.Group(p.BasePath)

	// Public routes
	auth.Post("/register", handleRegister(p))
	auth.Post("/login", handleLogin(p))

	// Signed link (GET so it works from an email client)
	auth.Get("/email/verify/:id/:hash", handleVerifyFromLink(p))

	// Protected routes
	session := auth.Group("", RequireAuth(p.Tokens))
	session.Get("/user", handleCurrentUser())
	session.Put("/user", handleUpdateProfile(p))
	session.Post("/logout", handleLogout(p))
	session.Post("/refresh", handleRefresh(p))
	session.Post("/email/verify", handleVerify(p))
	session.Post("/email/verification-notification", handleResendVerification(p))

	// Admin routes
	admin := a.app.Group("/users", RequireAuth(p.Tokens), RequireRole(core.RoleAdmin))
	admin.Get("", handleListUsers(p))
	admin.Put("/:id", handleAdminUpdate(p))

	return nil
}
