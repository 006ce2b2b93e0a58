package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/attendance-service/internal/domain"
)

// RefreshCredentialRepository is the durable revocation registry. Membership
// must survive process restarts; a revoked entry is immutable.
type RefreshCredentialRepository interface {
	Save(ctx context.Context, cred *domain.RefreshCredential) error
	GetByID(ctx context.Context, tokenID string) (*domain.RefreshCredential, error)
	// RevokeIfActive atomically revokes the credential if it has not been
	// revoked yet. Returns (true, nil) when revoked by this call,
	// (false, nil) when it was already revoked, and pgx.ErrNoRows when the
	// token id is unknown. This conditional write is the linearization
	// point for refresh rotation.
	RevokeIfActive(ctx context.Context, tokenID string) (bool, error)
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type refreshRepository struct {
	pool *pgxpool.Pool
}

// NewRefreshCredentialRepository returns a Postgres-backed implementation.
func NewRefreshCredentialRepository(pool *pgxpool.Pool) RefreshCredentialRepository {
	return &refreshRepository{pool: pool}
}

func (r *refreshRepository) Save(ctx context.Context, cred *domain.RefreshCredential) error {
	const query = `
        INSERT INTO refresh_tokens (token_id, user_id, issued_at, expires_at, revoked)
        VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		cred.TokenID,
		cred.UserID,
		cred.IssuedAt,
		cred.ExpiresAt,
		cred.Revoked,
	)
	return err
}

func (r *refreshRepository) GetByID(ctx context.Context, tokenID string) (*domain.RefreshCredential, error) {
	const query = `
        SELECT token_id, user_id, issued_at, expires_at, revoked
        FROM refresh_tokens WHERE token_id=$1`

	var cred domain.RefreshCredential
	if err := r.pool.QueryRow(ctx, query, tokenID).Scan(
		&cred.TokenID,
		&cred.UserID,
		&cred.IssuedAt,
		&cred.ExpiresAt,
		&cred.Revoked,
	); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *refreshRepository) RevokeIfActive(ctx context.Context, tokenID string) (bool, error) {
	const update = `
        UPDATE refresh_tokens SET revoked=TRUE
        WHERE token_id=$1 AND revoked=FALSE
        RETURNING user_id`

	var userID string
	err := r.pool.QueryRow(ctx, update, tokenID).Scan(&userID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	// No active row matched: distinguish already-revoked from unknown.
	const sel = `SELECT revoked FROM refresh_tokens WHERE token_id=$1`

	var revoked bool
	if err := r.pool.QueryRow(ctx, sel, tokenID).Scan(&revoked); err != nil {
		return false, err
	}
	return false, nil
}

func (r *refreshRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	const query = `SELECT revoked FROM refresh_tokens WHERE token_id=$1`

	var revoked bool
	if err := r.pool.QueryRow(ctx, query, tokenID).Scan(&revoked); err != nil {
		return false, err
	}
	return revoked, nil
}

func (r *refreshRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at <= $1`

	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
