package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/auth"
	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/events"
	"github.com/spec-kit/attendance-service/internal/repository"
)

// ErrPermissionDenied is raised when a resolved role lacks the required
// permission for an action.
var ErrPermissionDenied = errors.New("permission denied")

// PermissionService resolves roles and answers authorization queries. The
// permission table itself is static (see internal/auth); this service adds
// the profile-backed resolution priority and drift detection.
type PermissionService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewPermissionService builds the service.
func NewPermissionService(users repository.UserRepository, dispatcher events.Dispatcher, logger *zap.Logger) *PermissionService {
	return &PermissionService{users: users, dispatcher: dispatcher, logger: logger}
}

// ResolveRole resolves the effective role. Priority: role embedded in a
// currently valid session claim, then the authoritative profile record, then
// a narrow heuristic for legacy identities. When claim and profile diverge
// the drift is published so the next rotation embeds the corrected role; the
// claim keeps winning only until then.
func (p *PermissionService) ResolveRole(ctx context.Context, claim *domain.SessionClaim, profile *domain.User) domain.Role {
	if claim != nil && claim.Role != "" {
		if profile != nil && profile.Role != "" && profile.Role != claim.Role {
			p.publishDrift(ctx, profile.ID, claim.Role, profile.Role)
		}
		return claim.Role
	}
	if profile != nil && profile.Role != "" {
		return profile.Role
	}
	if profile != nil {
		return legacyRole(profile.Email)
	}
	return domain.RoleStudent
}

// ResolveRoleByID loads the profile and resolves against an optional claim.
func (p *PermissionService) ResolveRoleByID(ctx context.Context, claim *domain.SessionClaim, userID string) (domain.Role, error) {
	profile, err := p.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if claim != nil && claim.Role != "" {
				return claim.Role, nil
			}
			return "", err
		}
		return "", err
	}
	return p.ResolveRole(ctx, claim, profile), nil
}

// Authorize checks a resource:action pair for the role and publishes denials
// for audit.
func (p *PermissionService) Authorize(ctx context.Context, userID string, role domain.Role, resource, action string) error {
	if auth.CanPerformAction(role, resource, action) {
		return nil
	}
	if p.dispatcher != nil {
		_ = p.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventPermissionDenied,
			UserID:    userID,
			Timestamp: time.Now().UTC(),
			Payload: events.PermissionDeniedPayload{
				Role:       string(role),
				Permission: resource + ":" + action,
			},
		})
	}
	return ErrPermissionDenied
}

func (p *PermissionService) publishDrift(ctx context.Context, userID string, claimRole, profileRole domain.Role) {
	p.logger.Warn("session role drift",
		zap.String("user_id", userID),
		zap.String("claim_role", string(claimRole)),
		zap.String("profile_role", string(profileRole)))
	if p.dispatcher == nil {
		return
	}
	_ = p.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventRoleDrift,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Payload: events.RoleDriftPayload{
			ClaimRole:   string(claimRole),
			ProfileRole: string(profileRole),
		},
	})
}

// legacyRole is the fallback for profiles created before roles were stored:
// staff addresses become admins, everyone else a student.
func legacyRole(email string) domain.Role {
	if strings.Contains(strings.ToLower(email), "@staff.") {
		return domain.RoleAdmin
	}
	return domain.RoleStudent
}
