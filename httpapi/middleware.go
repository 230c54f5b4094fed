package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const accountIDLocal = "accountID"

// RequireAuth validates the bearer access token and stores the caller's
// account id in the request locals for downstream handlers.
func (s *Server) RequireAuth(c fiber.Ctx) error {
	raw := c.Get(fiber.HeaderAuthorization)
	const prefix = "Bearer "
	if !strings.HasPrefix(raw, prefix) {
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Error: "missing bearer token"})
	}

	claims, err := s.engine.ValidateAccess(strings.TrimSpace(raw[len(prefix):]))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Error: "invalid access token"})
	}

	accountID, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Error: "invalid access token"})
	}

	c.Locals(accountIDLocal, accountID)
	return c.Next()
}

func callerID(c fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(accountIDLocal).(uuid.UUID)
	return id, ok
}
