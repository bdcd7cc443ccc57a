package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/secureweb/auth-service/internal/errs"
	"github.com/secureweb/auth-service/internal/model"
)

// RefreshRepo implements repository.RefreshTokenStore using PostgreSQL.
type RefreshRepo struct{ db *DB }

// NewRefreshRepo constructs a refresh-token ledger repository.
func NewRefreshRepo(db *DB) *RefreshRepo { return &RefreshRepo{db: db} }

// Create inserts a ledger row for a freshly issued refresh token.
func (r *RefreshRepo) Create(ctx context.Context, jti, userID uuid.UUID, expiresAt time.Time) error {
	const q = `
INSERT INTO refresh_tokens (jti, user_id, expires_at)
VALUES ($1, $2, $3)`
	_, err := r.db.Pool.Exec(ctx, q, jti, userID, expiresAt.UTC())
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// Find loads a ledger row by jti.
func (r *RefreshRepo) Find(ctx context.Context, jti uuid.UUID) (*model.RefreshTokenRecord, error) {
	const q = `
SELECT jti, user_id, expires_at, revoked, created_at
FROM refresh_tokens WHERE jti=$1`
	var rec model.RefreshTokenRecord
	err := r.db.Pool.QueryRow(ctx, q, jti).
		Scan(&rec.JTI, &rec.UserID, &rec.ExpiresAt, &rec.Revoked, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}
	return &rec, nil
}

// Revoke marks a row revoked. Idempotent; a missing row is not an error.
func (r *RefreshRepo) Revoke(ctx context.Context, jti uuid.UUID) error {
	const q = `UPDATE refresh_tokens SET revoked=TRUE WHERE jti=$1`
	if _, err := r.db.Pool.Exec(ctx, q, jti); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// DeleteStale removes up to batchSize expired or long-revoked rows.
func (r *RefreshRepo) DeleteStale(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	const q = `
DELETE FROM refresh_tokens
WHERE jti IN (
  SELECT jti FROM refresh_tokens
  WHERE expires_at < now() OR (revoked AND created_at < $1)
  LIMIT $2
)`
	tag, err := r.db.Pool.Exec(ctx, q, cutoff.UTC(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("delete stale refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
