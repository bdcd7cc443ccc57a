// Package service contains application services for authentication and
// session resolution.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	pkgcrypto "github.com/secureweb/auth-service/internal/crypto"
	"github.com/secureweb/auth-service/internal/errs"
	"github.com/secureweb/auth-service/internal/lockout"
	"github.com/secureweb/auth-service/internal/model"
	"github.com/secureweb/auth-service/internal/repository"
	"github.com/secureweb/auth-service/internal/token"
	"github.com/secureweb/auth-service/internal/totp"
)

// casRetries bounds how often a login attempt re-reads the user after a
// concurrent lockout update won the race.
const casRetries = 3

// defaultStoreTimeout bounds every storage call made by a service method.
// A hung backend turns into an error instead of a stalled request.
const defaultStoreTimeout = 5 * time.Second

// Stale refresh-token rows are purged in batches; revoked rows are kept
// around for a while so audits can still see them.
const (
	purgeBatchSize   = 1000
	revokedRetention = 30 * 24 * time.Hour
)

// AuthService defines the authentication state machine: login, the MFA
// branch, enrollment, and logout.
type AuthService interface {
	// Login checks the password under the lockout policy and either issues
	// tokens, demands a second factor, or refuses.
	Login(ctx context.Context, email, password string) (*model.LoginResult, error)
	// CompleteMfa exchanges a valid mfa-pending token plus TOTP code for tokens.
	CompleteMfa(ctx context.Context, mfaToken, code string) (*model.Tokens, error)
	// EnrollMfaBegin returns the caller's active TOTP secret, creating one if
	// none exists. Repeated calls before confirmation reuse the same secret.
	EnrollMfaBegin(ctx context.Context, ident *model.Identity) (*model.MfaEnrollment, error)
	// EnrollMfaConfirm verifies a code against the active secret and enables MFA.
	EnrollMfaConfirm(ctx context.Context, ident *model.Identity, code string) error
	// Logout revokes the session's refresh token. Best-effort and idempotent.
	Logout(ctx context.Context, ident *model.Identity) error
	// PurgeStaleTokens deletes expired and long-revoked ledger rows.
	PurgeStaleTokens(ctx context.Context) (int64, error)
}

type AuthServiceImpl struct {
	users        repository.UserStore
	tokens       repository.RefreshTokenStore
	secrets      repository.TotpSecretStore
	codec        *token.Codec
	otp          *totp.Engine
	issuer       string
	now          func() time.Time
	storeTimeout time.Duration
}

// NewAuthService constructs AuthService with required dependencies. The
// issuer names the service in TOTP enrollment URIs. A nil now uses time.Now.
func NewAuthService(
	users repository.UserStore,
	tokens repository.RefreshTokenStore,
	secrets repository.TotpSecretStore,
	codec *token.Codec,
	otp *totp.Engine,
	issuer string,
	now func() time.Time,
) *AuthServiceImpl {
	if now == nil {
		now = time.Now
	}
	return &AuthServiceImpl{
		users:        users,
		tokens:       tokens,
		secrets:      secrets,
		codec:        codec,
		otp:          otp,
		issuer:       issuer,
		now:          now,
		storeTimeout: defaultStoreTimeout,
	}
}

// Login authenticates by email and password.
//
// An unknown email burns the same Argon2 work as a wrong password and yields
// the identical error, so callers cannot enumerate accounts. The lockout
// state write is a compare-and-swap on the failed counter; losing the race
// reloads the user and recomputes, bounded by casRetries.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*model.LoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, errs.ErrNotFound) {
		pkgcrypto.DummyVerify(password)
		return nil, errs.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	for attempt := 0; attempt < casRetries; attempt++ {
		now := s.now()
		state := lockout.State{FailedCount: u.FailedLoginCount, LockedUntil: u.LockedUntil}

		// Active lock short-circuits before any password work.
		if rem, locked := lockout.Remaining(now, state); locked {
			return nil, &errs.LockedError{Until: *u.LockedUntil, Remaining: rem}
		}

		valid := pkgcrypto.VerifyPassword(password, u.PasswordHash)
		next, outcome := lockout.Attempt(now, state, valid)

		err := s.users.UpdateLockout(ctx, u.ID, next.FailedCount, next.LockedUntil, state.FailedCount)
		if errors.Is(err, errs.ErrVersionConflict) {
			u, err = s.users.FindByID(ctx, u.ID)
			if err != nil {
				return nil, fmt.Errorf("login: reload after conflict: %w", err)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}

		switch outcome.Kind {
		case lockout.Failure:
			return nil, errs.ErrInvalidCredentials
		case lockout.Locked:
			return nil, &errs.LockedError{Until: *next.LockedUntil, Remaining: outcome.LockFor}
		}

		if u.MfaEnabled {
			mfaTok, _, err := s.codec.Sign(token.MfaPending, token.Payload{Subject: u.ID.String()})
			if err != nil {
				return nil, fmt.Errorf("login: sign mfa token: %w", err)
			}
			return &model.LoginResult{MfaRequired: true, MfaToken: mfaTok}, nil
		}

		tokens, err := s.issueTokens(ctx, u)
		if err != nil {
			return nil, err
		}
		return &model.LoginResult{Tokens: tokens}, nil
	}

	return nil, fmt.Errorf("login: lockout update contention for user %s", u.ID)
}

// CompleteMfa verifies the second factor and finishes authentication.
func (s *AuthServiceImpl) CompleteMfa(ctx context.Context, mfaToken, code string) (*model.Tokens, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	p, err := s.codec.Verify(token.MfaPending, mfaToken)
	if err != nil {
		return nil, errs.ErrInvalidToken
	}
	userID, err := uuid.FromString(p.Subject)
	if err != nil {
		return nil, errs.ErrInvalidToken
	}

	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrMfaNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("complete mfa: %w", err)
	}

	sec, err := s.secrets.FindActive(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrMfaNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("complete mfa: %w", err)
	}

	if !s.otp.Verify(code, sec.Secret) {
		return nil, errs.ErrInvalidCode
	}
	return s.issueTokens(ctx, u)
}

// EnrollMfaBegin returns the enrollment material for the authenticated caller.
func (s *AuthServiceImpl) EnrollMfaBegin(ctx context.Context, ident *model.Identity) (*model.MfaEnrollment, error) {
	if ident == nil {
		return nil, errs.ErrInvalidCredentials
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	var secret string
	sec, err := s.secrets.FindActive(ctx, ident.UserID)
	switch {
	case err == nil:
		secret = sec.Secret
	case errors.Is(err, errs.ErrNotFound):
		secret, err = s.otp.GenerateSecret()
		if err != nil {
			return nil, fmt.Errorf("enroll mfa: %w", err)
		}
		if _, err := s.secrets.Create(ctx, ident.UserID, secret); err != nil {
			return nil, fmt.Errorf("enroll mfa: %w", err)
		}
	default:
		return nil, fmt.Errorf("enroll mfa: %w", err)
	}

	return &model.MfaEnrollment{
		Secret:        secret,
		EnrollmentURI: s.otp.EnrollmentURI(ident.Email, s.issuer, secret),
	}, nil
}

// EnrollMfaConfirm enables MFA once the caller proves possession of the
// secret. A failed code leaves the secret in place so the user can retry.
func (s *AuthServiceImpl) EnrollMfaConfirm(ctx context.Context, ident *model.Identity, code string) error {
	if ident == nil {
		return errs.ErrInvalidCredentials
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	sec, err := s.secrets.FindActive(ctx, ident.UserID)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.ErrMfaNotConfigured
	}
	if err != nil {
		return fmt.Errorf("confirm mfa: %w", err)
	}

	if !s.otp.Verify(code, sec.Secret) {
		return errs.ErrInvalidCode
	}

	if err := s.users.SetMfaEnabled(ctx, ident.UserID, true); err != nil {
		return fmt.Errorf("confirm mfa: %w", err)
	}
	return nil
}

// Logout revokes the refresh token behind the session. An anonymous caller
// or a session without a jti is a no-op, and revoking an already-revoked or
// missing row succeeds.
func (s *AuthServiceImpl) Logout(ctx context.Context, ident *model.Identity) error {
	if ident == nil || ident.JTI == uuid.Nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.tokens.Revoke(ctx, ident.JTI); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// PurgeStaleTokens removes expired rows and revoked rows older than the
// retention window.
func (s *AuthServiceImpl) PurgeStaleTokens(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	cutoff := s.now().Add(-revokedRetention)
	n, err := s.tokens.DeleteStale(ctx, cutoff, purgeBatchSize)
	if err != nil {
		return 0, fmt.Errorf("purge stale tokens: %w", err)
	}
	return n, nil
}

// issueTokens mints the access/refresh pair and records the refresh jti in
// the revocation ledger.
func (s *AuthServiceImpl) issueTokens(ctx context.Context, u *model.User) (*model.Tokens, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	access, _, err := s.codec.Sign(token.Access, token.Payload{Subject: u.ID.String(), Email: u.Email})
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	refresh, refreshExp, err := s.codec.Sign(token.Refresh, token.Payload{
		Subject: u.ID.String(),
		Email:   u.Email,
		JTI:     jti.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	if err := s.tokens.Create(ctx, jti, u.ID, refreshExp); err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	return &model.Tokens{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}
