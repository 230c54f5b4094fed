package httpapi

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/helixmarkets/authcore"
)

// genericInternalMessage is the only text unexpected failures may reach the
// client with. Details go to the server log.
const genericInternalMessage = "internal error"

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeError maps an engine error onto the wire. Every expected taxonomy
// member has a fixed status and message; anything else is logged and
// returned as a 500 with the generic message.
func (s *Server) writeError(c fiber.Ctx, err error) error {
	var verr *authcore.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{
			Error:  "validation failed",
			Fields: verr.Fields,
		})
	}

	switch {
	case errors.Is(err, authcore.ErrDuplicateKey):
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "email or username already registered"})
	case errors.Is(err, authcore.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Error: "invalid credentials"})
	case errors.Is(err, authcore.ErrAccountLocked):
		return c.Status(fiber.StatusLocked).JSON(errorBody{Error: "account temporarily locked"})
	case errors.Is(err, authcore.ErrAccountNotActive):
		return c.Status(fiber.StatusForbidden).JSON(errorBody{Error: "account is not active"})
	case errors.Is(err, authcore.ErrInvalidTwoFactorCode):
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Error: "invalid two-factor code"})
	case errors.Is(err, authcore.ErrInvalidOrExpiredToken):
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid or expired token"})
	case errors.Is(err, authcore.ErrInvalidRefreshToken):
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Error: "invalid refresh token"})
	case errors.Is(err, authcore.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(errorBody{Error: "not found"})
	case errors.Is(err, authcore.ErrAlreadyVerified):
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "email already verified"})
	case errors.Is(err, authcore.ErrEmailThrottled):
		return c.Status(fiber.StatusTooManyRequests).JSON(errorBody{Error: "too many requests"})
	case errors.Is(err, authcore.ErrPasswordReuse):
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "new password must differ from the current one"})
	case errors.Is(err, authcore.ErrTwoFactorAlreadyEnabled):
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "two-factor already enabled"})
	case errors.Is(err, authcore.ErrTwoFactorNotEnabled):
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "two-factor not enabled"})
	}

	s.log.Error("unhandled engine error",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Error: genericInternalMessage})
}
