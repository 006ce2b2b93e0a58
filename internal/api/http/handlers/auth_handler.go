package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/attendance-service/internal/api/dto"
	"github.com/spec-kit/attendance-service/internal/auth"
	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/ratelimit"
	"github.com/spec-kit/attendance-service/internal/service"
	apperrors "github.com/spec-kit/attendance-service/pkg/util"
)

// AuthHandler exposes the session endpoints. Both credentials travel as
// HTTP-only, secure, strict-site cookies whose lifetime equals the
// credential's validity window.
type AuthHandler struct {
	sessions *service.SessionService
	limiter  ratelimit.Limiter
}

// NewAuthHandler constructs handler.
func NewAuthHandler(sessions *service.SessionService, limiter ratelimit.Limiter) *AuthHandler {
	return &AuthHandler{sessions: sessions, limiter: limiter}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.IDNumber == "" || req.Pin == "" {
		return fiber.NewError(http.StatusBadRequest, "id_number and pin required")
	}

	// The route-level limiter keys on IP; this one bounds guesses per
	// identity so a distributed attacker cannot spread attempts.
	result, err := h.limiter.Check(c.UserContext(), "id:"+req.IDNumber, ratelimit.ClassLogin)
	if err == nil && !result.Allowed {
		return apperrors.NewTooManyRequests(result.RetryAfterSeconds())
	}

	user, pair, err := h.sessions.Login(c.UserContext(), req.IDNumber, req.Pin)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		return apperrors.MapError(err)
	}

	setSessionCookies(c, pair)
	return c.JSON(fiber.Map{"data": sessionResponse(user, pair)})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	refreshToken := c.Cookies(auth.RefreshCookieName)
	if refreshToken == "" {
		var req dto.RefreshRequest
		if err := c.BodyParser(&req); err == nil {
			refreshToken = req.RefreshToken
		}
	}
	if refreshToken == "" {
		return apperrors.NewUnauthorized("missing refresh credential")
	}

	user, pair, err := h.sessions.Refresh(c.UserContext(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrReplayedRefresh),
			errors.Is(err, auth.ErrExpiredCredential),
			errors.Is(err, auth.ErrInvalidCredential):
			clearSessionCookies(c)
			return apperrors.NewUnauthorized("invalid refresh credential")
		}
		return apperrors.MapError(err)
	}

	setSessionCookies(c, pair)
	return c.JSON(fiber.Map{"data": sessionResponse(user, pair)})
}

// Logout handles POST /auth/logout: revokes the refresh credential and clears
// both cookies. The access credential simply expires.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if refreshToken := c.Cookies(auth.RefreshCookieName); refreshToken != "" {
		if err := h.sessions.EndSession(c.UserContext(), refreshToken); err != nil {
			return apperrors.MapError(err)
		}
	}
	clearSessionCookies(c)
	return c.JSON(fiber.Map{"data": fiber.Map{"logged_out": true}})
}

func sessionResponse(user *domain.User, pair *service.TokenPair) dto.SessionResponse {
	return dto.SessionResponse{
		UserID:          user.ID,
		Name:            user.Name,
		Email:           user.Email,
		Role:            string(user.Role),
		AccessExpiresAt: pair.AccessExpiresAt,
	}
}

func setSessionCookies(c *fiber.Ctx, pair *service.TokenPair) {
	now := time.Now()
	c.Cookie(sessionCookie(auth.AccessCookieName, pair.AccessToken, pair.AccessExpiresAt, now))
	c.Cookie(sessionCookie(auth.RefreshCookieName, pair.RefreshToken, pair.RefreshExpiresAt, now))
}

func clearSessionCookies(c *fiber.Ctx) {
	expired := time.Now().Add(-time.Hour)
	c.Cookie(sessionCookie(auth.AccessCookieName, "", expired, time.Now()))
	c.Cookie(sessionCookie(auth.RefreshCookieName, "", expired, time.Now()))
}

func sessionCookie(name, value string, expiresAt, now time.Time) *fiber.Cookie {
	maxAge := int(expiresAt.Sub(now) / time.Second)
	if maxAge < 0 {
		maxAge = -1
	}
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	}
}
