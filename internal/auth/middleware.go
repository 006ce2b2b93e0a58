package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/attendance-service/internal/domain"
	apperrors "github.com/spec-kit/attendance-service/pkg/util"
)

const principalKey = "auth_principal"

// AccessCookieName and RefreshCookieName are the HTTP-only cookies carrying
// the two session credentials.
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// Principal represents the authenticated caller as asserted by the access
// credential. No store lookup happens on this path.
type Principal struct {
	UserID string
	Email  string
	Role   domain.Role
	Claim  domain.SessionClaim
}

// RoleAuthorizer resolves the caller's effective role against the
// authoritative profile and answers authorization queries. Implemented by the
// permission service; declared here so this package does not depend on it.
type RoleAuthorizer interface {
	ResolveRoleByID(ctx context.Context, claim *domain.SessionClaim, userID string) (domain.Role, error)
	Authorize(ctx context.Context, userID string, role domain.Role, resource, action string) error
}

// Middleware validates access credentials and loads principals.
type Middleware struct {
	tokens     *TokenManager
	authorizer RoleAuthorizer
}

// NewMiddleware constructs middleware. A nil authorizer degrades permission
// checks to the static table, with no drift detection.
func NewMiddleware(tokens *TokenManager, authorizer RoleAuthorizer) *Middleware {
	return &Middleware{tokens: tokens, authorizer: authorizer}
}

// Handle enforces authentication for protected routes. The credential is read
// from the access cookie, or from a bearer header for non-browser callers.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	tokenStr := c.Cookies(AccessCookieName)
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			tokenStr = parts[1]
		}
	}
	if tokenStr == "" {
		return apperrors.NewUnauthorized("missing credentials")
	}

	claims, err := m.tokens.VerifyAccess(tokenStr)
	if err != nil {
		if errors.Is(err, ErrExpiredCredential) {
			return apperrors.NewUnauthorized("credential expired")
		}
		return apperrors.NewUnauthorized("invalid credential")
	}

	c.Locals(principalKey, &Principal{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
		Claim:  claims.SessionClaim(),
	})
	return c.Next()
}

// RequirePermission gates a route on a resource:action pair. The effective
// role is resolved against the authoritative profile with the presented claim,
// so a claim whose role has drifted is detected and reported; the claim still
// wins until the next rotation embeds the corrected role. Denials are
// published by the authorizer.
func (m *Middleware) RequirePermission(resource, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("missing credentials")
		}

		if m.authorizer == nil {
			if !HasPermission(principal.Role, fmt.Sprintf("%s:%s", resource, action)) {
				return apperrors.NewForbidden("insufficient permissions")
			}
			return c.Next()
		}

		role, err := m.authorizer.ResolveRoleByID(c.UserContext(), &principal.Claim, principal.UserID)
		if err != nil {
			role = principal.Role
		}
		if err := m.authorizer.Authorize(c.UserContext(), principal.UserID, role, resource, action); err != nil {
			return apperrors.NewForbidden("insufficient permissions")
		}
		return c.Next()
	}
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
