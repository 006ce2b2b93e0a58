package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/attendance-service/internal/domain"
)

func testKeysets(t *testing.T) (*Keyset, *Keyset) {
	t.Helper()
	access, err := NewKeyset(map[string]string{"v1": "unit-access-secret"}, "v1")
	require.NoError(t, err)
	refresh, err := NewKeyset(map[string]string{"v1": "unit-refresh-secret"}, "v1")
	require.NoError(t, err)
	return access, refresh
}

func testUser() *domain.User {
	return &domain.User{
		ID:    "user-1",
		Email: "student@example.com",
		Role:  domain.RoleStudent,
	}
}

func TestIssueAndVerifyAccess(t *testing.T) {
	t.Parallel()

	access, refresh := testKeysets(t)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	tm := NewTokenManager(access, refresh, 15*time.Minute, 7*24*time.Hour).
		WithClock(func() time.Time { return now })

	token, claim, err := tm.IssueAccess(testUser())
	require.NoError(t, err)
	require.Equal(t, "user-1", claim.UserID)
	require.Equal(t, domain.RoleStudent, claim.Role)
	require.Equal(t, 15*time.Minute, claim.ExpiresAt.Sub(claim.IssuedAt))

	claims, err := tm.VerifyAccess(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "student@example.com", claims.Email)
	require.Equal(t, domain.RoleStudent, claims.Role)
}

func TestVerifyAccess_Expired(t *testing.T) {
	t.Parallel()

	access, refresh := testKeysets(t)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	tm := NewTokenManager(access, refresh, 15*time.Minute, 7*24*time.Hour).
		WithClock(func() time.Time { return now })

	token, _, err := tm.IssueAccess(testUser())
	require.NoError(t, err)

	// Just inside the window: still valid.
	now = now.Add(14 * time.Minute)
	_, err = tm.VerifyAccess(token)
	require.NoError(t, err)

	// Past the window: expired, not merely invalid.
	now = now.Add(2 * time.Minute)
	_, err = tm.VerifyAccess(token)
	require.ErrorIs(t, err, ErrExpiredCredential)
}

func TestVerifyAccess_Tampered(t *testing.T) {
	t.Parallel()

	access, refresh := testKeysets(t)
	tm := NewTokenManager(access, refresh, 15*time.Minute, 7*24*time.Hour)

	token, _, err := tm.IssueAccess(testUser())
	require.NoError(t, err)

	_, err = tm.VerifyAccess(token + "x")
	require.ErrorIs(t, err, ErrInvalidCredential)

	_, err = tm.VerifyAccess("not-a-token")
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestAccessValidityWindowFixed(t *testing.T) {
	t.Parallel()

	access, refresh := testKeysets(t)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	tm := NewTokenManager(access, refresh, 15*time.Minute, 7*24*time.Hour).
		WithClock(func() time.Time { return now })

	_, first, err := tm.IssueAccess(testUser())
	require.NoError(t, err)

	now = now.Add(47 * time.Minute)
	_, second, err := tm.IssueAccess(testUser())
	require.NoError(t, err)

	require.Equal(t,
		first.ExpiresAt.Sub(first.IssuedAt),
		second.ExpiresAt.Sub(second.IssuedAt))
}

func TestRefreshTokensAreDisjointFromAccess(t *testing.T) {
	t.Parallel()

	access, refresh := testKeysets(t)
	tm := NewTokenManager(access, refresh, 15*time.Minute, 7*24*time.Hour)

	refreshToken, record, err := tm.IssueRefresh("user-1")
	require.NoError(t, err)
	require.NotEmpty(t, record.TokenID)
	require.Equal(t, "user-1", record.UserID)

	// A refresh credential must not verify as an access credential.
	_, err = tm.VerifyAccess(refreshToken)
	require.ErrorIs(t, err, ErrInvalidCredential)

	tokenID, userID, err := tm.VerifyRefresh(refreshToken)
	require.NoError(t, err)
	require.Equal(t, record.TokenID, tokenID)
	require.Equal(t, "user-1", userID)
}

func TestKeyRotationKeepsOldCredentialsValid(t *testing.T) {
	t.Parallel()

	oldKeys, err := NewKeyset(map[string]string{"v1": "old-secret"}, "v1")
	require.NoError(t, err)
	refresh, err := NewKeyset(map[string]string{"v1": "refresh-secret"}, "v1")
	require.NoError(t, err)
	tmOld := NewTokenManager(oldKeys, refresh, 15*time.Minute, 7*24*time.Hour)

	token, _, err := tmOld.IssueAccess(testUser())
	require.NoError(t, err)

	// v2 becomes the signing key; v1 stays in the set for verification.
	rotated, err := NewKeyset(map[string]string{"v1": "old-secret", "v2": "new-secret"}, "v2")
	require.NoError(t, err)
	tmNew := NewTokenManager(rotated, refresh, 15*time.Minute, 7*24*time.Hour)

	_, err = tmNew.VerifyAccess(token)
	require.NoError(t, err)

	// Once v1 is removed, its credentials stop verifying.
	retired, err := NewKeyset(map[string]string{"v2": "new-secret"}, "v2")
	require.NoError(t, err)
	tmRetired := NewTokenManager(retired, refresh, 15*time.Minute, 7*24*time.Hour)

	_, err = tmRetired.VerifyAccess(token)
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestNewKeyset_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewKeyset(nil, "v1")
	require.Error(t, err)

	_, err = NewKeyset(map[string]string{"v1": "secret"}, "v2")
	require.Error(t, err)

	_, err = NewKeyset(map[string]string{"": "secret"}, "")
	require.Error(t, err)
}
