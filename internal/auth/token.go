package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/attendance-service/internal/domain"
)

var (
	// ErrInvalidCredential covers malformed tokens, bad signatures and
	// unknown key ids.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrExpiredCredential means the signature was fine but the validity
	// window has passed.
	ErrExpiredCredential = errors.New("expired credential")
	// ErrReplayedRefresh means the refresh credential was already exchanged
	// or revoked; it is terminal and can never be honored again.
	ErrReplayedRefresh = errors.New("replayed refresh credential")
)

// TokenManager issues and verifies the two session credentials. Access and
// refresh credentials are signed with disjoint keysets so compromise of one
// cannot forge the other. The clock is injectable so verification is
// deterministic under test.
type TokenManager struct {
	access     *Keyset
	refresh    *Keyset
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager builds a manager over the two keysets.
func NewTokenManager(access, refresh *Keyset, accessTTL, refreshTTL time.Duration) *TokenManager {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenManager{
		access:     access,
		refresh:    refresh,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Test use.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	tm.now = now
	return tm
}

// AccessTTL returns the fixed access validity window.
func (tm *TokenManager) AccessTTL() time.Duration { return tm.accessTTL }

// RefreshTTL returns the refresh validity window.
func (tm *TokenManager) RefreshTTL() time.Duration { return tm.refreshTTL }

// AccessClaims is the access credential payload.
type AccessClaims struct {
	UserID string      `json:"uid"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// SessionClaim converts to the domain view of the claim.
func (c *AccessClaims) SessionClaim() domain.SessionClaim {
	claim := domain.SessionClaim{
		UserID: c.UserID,
		Email:  c.Email,
		Role:   c.Role,
	}
	if c.IssuedAt != nil {
		claim.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		claim.ExpiresAt = c.ExpiresAt.Time
	}
	return claim
}

// refreshClaims carries only the token id (jti) and the user; everything else
// lives in the durable registry.
type refreshClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// IssueAccess signs a new access credential for the user.
func (tm *TokenManager) IssueAccess(user *domain.User) (string, domain.SessionClaim, error) {
	now := tm.now()
	expiresAt := now.Add(tm.accessTTL)
	claims := &AccessClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	kid, secret := tm.access.Active()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", domain.SessionClaim{}, fmt.Errorf("sign access credential: %w", err)
	}
	return signed, claims.SessionClaim(), nil
}

// VerifyAccess checks signature and expiry. Pure and stateless: valid iff the
// signature matches a known key and now < expiresAt.
func (tm *TokenManager) VerifyAccess(tokenStr string) (*AccessClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, tm.keyfunc(tm.access),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredCredential
		}
		return nil, ErrInvalidCredential
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidCredential
	}
	return claims, nil
}

// IssueRefresh signs a new refresh credential and returns the registry record
// the caller must persist.
func (tm *TokenManager) IssueRefresh(userID string) (string, domain.RefreshCredential, error) {
	now := tm.now()
	record := domain.RefreshCredential{
		TokenID:   uuid.NewString(),
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(tm.refreshTTL),
	}

	claims := &refreshClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        record.TokenID,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(record.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(record.ExpiresAt),
		},
	}

	kid, secret := tm.refresh.Active()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", domain.RefreshCredential{}, fmt.Errorf("sign refresh credential: %w", err)
	}
	return signed, record, nil
}

// VerifyRefresh checks signature and expiry and returns (tokenID, userID).
// Revocation is the registry's concern, not the token's.
func (tm *TokenManager) VerifyRefresh(tokenStr string) (string, string, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &refreshClaims{}, tm.keyfunc(tm.refresh),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", ErrExpiredCredential
		}
		return "", "", ErrInvalidCredential
	}

	claims, ok := parsed.Claims.(*refreshClaims)
	if !ok || !parsed.Valid || claims.ID == "" || claims.UserID == "" {
		return "", "", ErrInvalidCredential
	}
	return claims.ID, claims.UserID, nil
}

func (tm *TokenManager) keyfunc(keys *Keyset) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidCredential
		}
		kid, _ := token.Header["kid"].(string)
		secret, ok := keys.Lookup(kid)
		if !ok {
			return nil, ErrInvalidCredential
		}
		return secret, nil
	}
}
