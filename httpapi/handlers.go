package httpapi

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/helixmarkets/authcore"
)

type registerRequest struct {
	Email        string `json:"email"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Phone        string `json:"phone"`
	Country      string `json:"country"`
	DateOfBirth  string `json:"dateOfBirth"`
	Address      string `json:"address"`
	ReferralCode string `json:"referralCode"`
}

type loginRequest struct {
	Identifier    string `json:"identifier"`
	Password      string `json:"password"`
	TwoFactorCode string `json:"twoFactorCode"`
}

type loginResponse struct {
	AccessToken       string                     `json:"accessToken,omitempty"`
	RefreshToken      string                     `json:"refreshToken,omitempty"`
	RequiresTwoFactor bool                       `json:"requiresTwoFactor,omitempty"`
	Account           *authcore.SanitizedAccount `json:"account,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type twoFactorCodeRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

type messageBody struct {
	Message string `json:"message"`
}

// requestContext decorates the request context with the client IP and
// user agent so audit events carry them.
func requestContext(c fiber.Ctx) context.Context {
	ctx := authcore.WithClientIP(c.Context(), c.IP())
	return authcore.WithUserAgent(ctx, c.Get(fiber.HeaderUserAgent))
}

func (s *Server) handleRegister(c fiber.Ctx) error {
	var req registerRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request body"})
	}

	account, err := s.engine.Register(requestContext(c), authcore.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Profile: authcore.Profile{
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			Phone:       req.Phone,
			Country:     req.Country,
			DateOfBirth: req.DateOfBirth,
			Address:     req.Address,
		},
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		// Registration succeeded but the verification mail did not go out.
		// The account exists and can request a resend.
		if account != nil {
			summary := authcore.Sanitize(account)
			return c.Status(fiber.StatusCreated).JSON(loginResponse{Account: &summary})
		}
		return s.writeError(c, err)
	}

	summary := authcore.Sanitize(account)
	return c.Status(fiber.StatusCreated).JSON(loginResponse{Account: &summary})
}

func (s *Server) handleLogin(c fiber.Ctx) error {
	var req loginRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request body"})
	}

	result, err := s.engine.Login(requestContext(c), req.Identifier, req.Password, req.TwoFactorCode)
	if err != nil {
		return s.writeError(c, err)
	}

	if result.TwoFactorRequired {
		return c.Status(fiber.StatusOK).JSON(loginResponse{RequiresTwoFactor: true})
	}

	summary := authcore.Sanitize(result.Account)
	return c.Status(fiber.StatusOK).JSON(loginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		Account:      &summary,
	})
}

func (s *Server) handleRefresh(c fiber.Ctx) error {
	var req refreshRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request body"})
	}

	pair, err := s.engine.Refresh(requestContext(c), req.RefreshToken)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(loginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleLogout(c fiber.Ctx) error {
	accountID, ok := callerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Error: "missing bearer token"})
	}

	if err := s.engine.Logout(requestContext(c), accountID); err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(messageBody{Message: "logged out"})
}

func (s *Server) handleVerifyEmail(c fiber.Ctx) error {
	account, err := s.engine.VerifyEmail(requestContext(c), c.Params("token"))
	if err != nil {
		return s.writeError(c, err)
	}

	summary := authcore.Sanitize(account)
	return c.Status(fiber.StatusOK).JSON(loginResponse{Account: &summary})
}

func (s *Server) handleResendVerification(c fiber.Ctx) error {
	var req emailRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request body"})
	}

	if err := s.engine.ResendVerification(requestContext(c), req.Email); err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(messageBody{Message: "verification email sent"})
}

func (s *Server) handleForgotPassword(c fiber.Ctx) error {
	var req emailRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request body"})
	}

	// Always the same response so callers cannot probe for registered
	// addresses.
	if err := s.engine.ForgotPassword(requestContext(c), req.Email); err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(messageBody{Message: "if the address is registered, a reset email has been sent"})
}

func (s *Server) handleResetPassword(c fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request body"})
	}

	if err := s.engine.ResetPassword(requestContext(c), c.Params("token"), req.Password); err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(messageBody{Message: "password reset"})
}

func (s *Server) handleChangePassword(c fiber.Ctx) error {
	accountID, ok := callerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Error: "missing bearer token"})
	}

	var req changePasswordRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request body"})
	}

	if err := s.engine.ChangePassword(requestContext(c), accountID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, authcore.ErrInvalidCredentials) {
			return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "current password is incorrect"})
		}
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(messageBody{Message: "password changed"})
}

func (s *Server) handleMe(c fiber.Ctx) error {
	accountID, ok := callerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Error: "missing bearer token"})
	}

	account, err := s.engine.Me(requestContext(c), accountID)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(account)
}

func (s *Server) handleTwoFactorSetup(c fiber.Ctx) error {
	accountID, ok := callerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Error: "missing bearer token"})
	}

	setup, err := s.engine.EnableTwoFactor(requestContext(c), accountID)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(setup)
}

func (s *Server) handleTwoFactorConfirm(c fiber.Ctx) error {
	accountID, ok := callerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Error: "missing bearer token"})
	}

	var req twoFactorCodeRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request body"})
	}

	if err := s.engine.ConfirmTwoFactor(requestContext(c), accountID, req.Code); err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(messageBody{Message: "two-factor enabled"})
}

func (s *Server) handleTwoFactorDisable(c fiber.Ctx) error {
	accountID, ok := callerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Error: "missing bearer token"})
	}

	var req twoFactorCodeRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request body"})
	}

	if err := s.engine.DisableTwoFactor(requestContext(c), accountID, req.Password, req.Code); err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(messageBody{Message: "two-factor disabled"})
}

func (s *Server) handleMetrics(c fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(s.engine.MetricsSnapshot())
}
