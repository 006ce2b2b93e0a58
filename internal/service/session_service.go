package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/auth"
	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/events"
	"github.com/spec-kit/attendance-service/internal/repository"
)

// ErrInvalidCredentials is the single caller-visible failure for the login
// path. Wrong PIN and unknown identity produce the same value so callers
// cannot enumerate identities.
var ErrInvalidCredentials = errors.New("invalid credentials")

// TokenPair bundles the two issued credentials with their expiries, which the
// transport uses as cookie lifetimes.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// SessionService issues, verifies and rotates session credentials, and owns
// PIN verification for the login path.
type SessionService struct {
	users       repository.UserRepository
	refresh     repository.RefreshCredentialRepository
	tokens      *auth.TokenManager
	hasher      auth.PinHasher
	permissions *PermissionService
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	dummyDigest string
}

// SessionDependencies encapsulates requirements for the session service.
type SessionDependencies struct {
	UserRepo    repository.UserRepository
	RefreshRepo repository.RefreshCredentialRepository
	Tokens      *auth.TokenManager
	Hasher      auth.PinHasher
	Permissions *PermissionService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewSessionService builds the service.
func NewSessionService(deps SessionDependencies) *SessionService {
	// Digest compared against when the identity does not exist, so both
	// login outcomes cost one hash comparison.
	dummy, err := deps.Hasher.Hash("0000")
	if err != nil {
		dummy = ""
	}
	return &SessionService{
		users:       deps.UserRepo,
		refresh:     deps.RefreshRepo,
		tokens:      deps.Tokens,
		hasher:      deps.Hasher,
		permissions: deps.Permissions,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
		dummyDigest: dummy,
	}
}

// Login verifies the PIN for the identity number and creates a session.
func (s *SessionService) Login(ctx context.Context, idNumber, pin string) (*domain.User, *TokenPair, error) {
	user, ok, err := s.verifyPin(ctx, idNumber, pin)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		s.publish(ctx, events.Event{
			Type:      events.EventLoginFailed,
			Timestamp: time.Now().UTC(),
			Payload:   events.LoginFailedPayload{Reason: "credential_mismatch"},
		})
		return nil, nil, ErrInvalidCredentials
	}
	if user.Status != domain.UserStatusActive {
		s.publish(ctx, events.Event{
			Type:      events.EventLoginFailed,
			UserID:    user.ID,
			Timestamp: time.Now().UTC(),
			Payload:   events.LoginFailedPayload{Reason: "suspended"},
		})
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.CreateSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, events.Event{
		Type:      events.EventLoginSucceeded,
		UserID:    user.ID,
		Timestamp: time.Now().UTC(),
	})
	return user, pair, nil
}

// CreateSession issues a fresh access/refresh pair for the user and records
// the refresh credential in the durable registry.
func (s *SessionService) CreateSession(ctx context.Context, user *domain.User) (*TokenPair, error) {
	accessToken, claim, err := s.tokens.IssueAccess(user)
	if err != nil {
		return nil, err
	}

	refreshToken, record, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.refresh.Save(ctx, &record); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  claim.ExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: record.ExpiresAt,
	}, nil
}

// VerifyAccess checks an access credential. Stateless: signature and expiry
// only.
func (s *SessionService) VerifyAccess(tokenStr string) (*auth.AccessClaims, error) {
	return s.tokens.VerifyAccess(tokenStr)
}

// Refresh exchanges a refresh credential for a new pair. Rotation is
// mandatory and single-use: the revoke-if-active conditional write decides
// exactly one winner among concurrent exchanges of the same credential, so a
// leaked credential is worth at most one session.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*domain.User, *TokenPair, error) {
	tokenID, userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, nil, err
	}

	revokedNow, err := s.refresh.RevokeIfActive(ctx, tokenID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, auth.ErrInvalidCredential
		}
		return nil, nil, err
	}
	if !revokedNow {
		s.publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventRefreshReplayed,
			UserID:    userID,
			Timestamp: time.Now().UTC(),
			Payload:   events.RefreshReplayedPayload{TokenID: tokenID},
		})
		return nil, nil, auth.ErrReplayedRefresh
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, auth.ErrInvalidCredential
		}
		return nil, nil, err
	}

	// The new access credential embeds the authoritative profile role, so a
	// stale role in an outstanding claim heals on the next rotation.
	user.Role = s.permissions.ResolveRole(ctx, nil, user)

	pair, err := s.CreateSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// EndSession revokes the presented refresh credential. The access credential
// is simply discarded by the caller and expires on its own.
func (s *SessionService) EndSession(ctx context.Context, refreshToken string) error {
	tokenID, _, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		// Nothing durable to revoke for an unverifiable credential.
		return nil
	}
	if _, err := s.refresh.RevokeIfActive(ctx, tokenID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	return nil
}

// Revoke marks a refresh credential revoked by its id.
func (s *SessionService) Revoke(ctx context.Context, tokenID string) error {
	_, err := s.refresh.RevokeIfActive(ctx, tokenID)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.ErrInvalidCredential
	}
	return err
}

// IsRevoked answers registry membership for a token id.
func (s *SessionService) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return s.refresh.IsRevoked(ctx, tokenID)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *SessionService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// verifyPin looks up the identity and compares the PIN against its stored
// digest. A missing identity burns a comparison against a fixed digest so the
// caller-visible outcome and timing match the wrong-PIN path.
func (s *SessionService) verifyPin(ctx context.Context, idNumber, pin string) (*domain.User, bool, error) {
	user, err := s.users.GetByIDNumber(ctx, idNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.hasher.Verify(pin, s.dummyDigest)
			return nil, false, nil
		}
		return nil, false, err
	}
	if !s.hasher.Verify(pin, user.PinHash) {
		return nil, false, nil
	}
	return user, true, nil
}

func (s *SessionService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
