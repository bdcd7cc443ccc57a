package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/secureweb/auth-service/internal/errs"
	"github.com/secureweb/auth-service/internal/model"
)

// TotpRepo implements repository.TotpSecretStore using PostgreSQL.
type TotpRepo struct{ db *DB }

// NewTotpRepo constructs a TOTP-secret repository.
func NewTotpRepo(db *DB) *TotpRepo { return &TotpRepo{db: db} }

// FindActive returns the newest non-revoked secret for the user.
func (r *TotpRepo) FindActive(ctx context.Context, userID uuid.UUID) (*model.TotpSecretRecord, error) {
	const q = `
SELECT id, user_id, secret, created_at, revoked_at
FROM totp_secrets
WHERE user_id=$1 AND revoked_at IS NULL
ORDER BY created_at DESC
LIMIT 1`
	var rec model.TotpSecretRecord
	err := r.db.Pool.QueryRow(ctx, q, userID).
		Scan(&rec.ID, &rec.UserID, &rec.Secret, &rec.CreatedAt, &rec.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("scan totp secret: %w", err)
	}
	return &rec, nil
}

// Create inserts a new secret record and returns it as stored.
func (r *TotpRepo) Create(ctx context.Context, userID uuid.UUID, secret string) (*model.TotpSecretRecord, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO totp_secrets (id, user_id, secret)
VALUES ($1, $2, $3)
RETURNING id, user_id, secret, created_at, revoked_at`
	var rec model.TotpSecretRecord
	err = r.db.Pool.QueryRow(ctx, q, id, userID, secret).
		Scan(&rec.ID, &rec.UserID, &rec.Secret, &rec.CreatedAt, &rec.RevokedAt)
	if err != nil {
		return nil, fmt.Errorf("insert totp secret: %w", err)
	}
	return &rec, nil
}
