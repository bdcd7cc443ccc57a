// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// User represents an account. The lockout fields are written only through
// the conditional-update path in the user store.
type User struct {
	ID               uuid.UUID // PK
	Email            string    // unique
	Name             string    // display name, may be empty
	PasswordHash     string    // Argon2id, PHC-encoded
	MfaEnabled       bool
	FailedLoginCount int        // >= 0, reset only by a successful full login
	LockedUntil      *time.Time // nil when never locked or the lock was cleared
	CreatedAt        time.Time
}

// RefreshTokenRecord is one row of the revocation ledger. A user may hold
// several concurrent non-revoked rows (multi-device sessions).
type RefreshTokenRecord struct {
	JTI       uuid.UUID // PK, embedded in the signed refresh token
	UserID    uuid.UUID // FK -> users.id
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// TotpSecretRecord stores a shared TOTP key. At most one non-revoked record
// per user is meaningful; revoked history may be retained.
type TotpSecretRecord struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Secret    string // base32, no padding
	CreatedAt time.Time
	RevokedAt *time.Time
}

// Tokens collects the artifacts of a successful full authentication.
// RefreshExpiresAt drives the session-credential expiry at the boundary.
type Tokens struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LoginResult carries either issued tokens or an MFA challenge, never both.
type LoginResult struct {
	Tokens      *Tokens
	MfaRequired bool
	MfaToken    string
}

// MfaEnrollment is returned by enrollment begin; the URI is suitable for
// rendering as a scannable code by the caller.
type MfaEnrollment struct {
	Secret        string
	EnrollmentURI string
}

// Identity is an authenticated caller reconstructed from a refresh token.
// A nil *Identity means the caller is anonymous.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Roles  []string
	JTI    uuid.UUID // jti of the presented refresh token, uuid.Nil if absent
}
