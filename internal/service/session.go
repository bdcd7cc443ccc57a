package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/secureweb/auth-service/internal/errs"
	"github.com/secureweb/auth-service/internal/model"
	"github.com/secureweb/auth-service/internal/repository"
	"github.com/secureweb/auth-service/internal/token"
)

// SessionResolver reconstructs an identity from a presented refresh token.
type SessionResolver interface {
	// Resolve returns the caller's identity, or (nil, nil) when the token is
	// missing, invalid, revoked, or orphaned. It performs no writes and is
	// safe to call on every request. A non-nil error means the store failed
	// and the caller must fail closed, not fall back to anonymous.
	Resolve(ctx context.Context, presented string) (*model.Identity, error)
}

type SessionResolverImpl struct {
	users        repository.UserStore
	tokens       repository.RefreshTokenStore
	codec        *token.Codec
	storeTimeout time.Duration
}

// NewSessionResolver constructs a SessionResolver.
func NewSessionResolver(users repository.UserStore, tokens repository.RefreshTokenStore, codec *token.Codec) *SessionResolverImpl {
	return &SessionResolverImpl{users: users, tokens: tokens, codec: codec, storeTimeout: defaultStoreTimeout}
}

// Resolve verifies the token cryptographically, checks the revocation
// ledger by jti, and loads the user with their roles.
func (s *SessionResolverImpl) Resolve(ctx context.Context, presented string) (*model.Identity, error) {
	if presented == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	p, err := s.codec.Verify(token.Refresh, presented)
	if err != nil {
		return nil, nil
	}

	jti := uuid.Nil
	if p.JTI != "" {
		jti, err = uuid.FromString(p.JTI)
		if err != nil {
			return nil, nil
		}
		rec, err := s.tokens.Find(ctx, jti)
		if errors.Is(err, errs.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("resolve session: %w", err)
		}
		if rec.Revoked {
			return nil, nil
		}
	}

	userID, err := uuid.FromString(p.Subject)
	if err != nil {
		return nil, nil
	}
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	roles, err := s.users.ListRoleNames(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	return &model.Identity{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Roles:  roles,
		JTI:    jti,
	}, nil
}
