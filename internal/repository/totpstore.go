package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/secureweb/auth-service/internal/model"
)

// TotpSecretStore persists TOTP shared keys. Secrets are never mutated once
// created; enrollment completion flips the user's MFA flag instead.
type TotpSecretStore interface {
	// FindActive returns the newest non-revoked secret for the user;
	// errs.ErrNotFound when none exists.
	FindActive(ctx context.Context, userID uuid.UUID) (*model.TotpSecretRecord, error)
	// Create inserts a new secret record.
	Create(ctx context.Context, userID uuid.UUID, secret string) (*model.TotpSecretRecord, error)
}
