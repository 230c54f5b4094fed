// Package httpapi exposes the engine's use cases over HTTP using Fiber.
// Handlers translate engine errors into the stable wire shape; unexpected
// failures are logged server-side and surfaced as a fixed generic message.
package httpapi

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/helixmarkets/authcore"
)

// Server wires the engine's operations onto a Fiber router.
type Server struct {
	engine *authcore.Engine
	log    *slog.Logger
}

// New creates a [Server]. A nil logger falls back to slog.Default.
func New(engine *authcore.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: engine, log: log}
}

// RegisterRoutes mounts all endpoints onto the router.
func (s *Server) RegisterRoutes(app fiber.Router) {
	app.Post("/register", s.handleRegister)
	app.Post("/login", s.handleLogin)
	app.Post("/refresh", s.handleRefresh)
	app.Get("/verify-email/:token", s.handleVerifyEmail)
	app.Post("/resend-verification", s.handleResendVerification)
	app.Post("/forgot-password", s.handleForgotPassword)
	app.Post("/reset-password/:token", s.handleResetPassword)

	app.Post("/logout", s.RequireAuth, s.handleLogout)
	app.Post("/change-password", s.RequireAuth, s.handleChangePassword)
	app.Get("/me", s.RequireAuth, s.handleMe)
	app.Post("/2fa/setup", s.RequireAuth, s.handleTwoFactorSetup)
	app.Post("/2fa/confirm", s.RequireAuth, s.handleTwoFactorConfirm)
	app.Post("/2fa/disable", s.RequireAuth, s.handleTwoFactorDisable)

	app.Get("/metrics", s.handleMetrics)
}
