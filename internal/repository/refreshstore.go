package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/secureweb/auth-service/internal/model"
)

// RefreshTokenStore is the refresh-token revocation ledger.
type RefreshTokenStore interface {
	// Create inserts a ledger row for a freshly issued refresh token.
	Create(ctx context.Context, jti, userID uuid.UUID, expiresAt time.Time) error
	// Find loads a ledger row by jti; errs.ErrNotFound when absent.
	Find(ctx context.Context, jti uuid.UUID) (*model.RefreshTokenRecord, error)
	// Revoke marks a row revoked. Idempotent; a missing row is not an error.
	Revoke(ctx context.Context, jti uuid.UUID) error
	// DeleteStale removes up to batchSize rows that are expired, or revoked
	// before cutoff, and reports how many were deleted.
	DeleteStale(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}
