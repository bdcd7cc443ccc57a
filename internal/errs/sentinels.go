// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials covers both unknown email and wrong password;
	// callers must render it identically to prevent account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is the uniform failure for any token that does not
	// verify, regardless of reason (signature, kind, expiry, malformed).
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidCode indicates a rejected TOTP code.
	ErrInvalidCode = errors.New("invalid code")

	// ErrMfaNotConfigured indicates a missing active TOTP secret.
	ErrMfaNotConfigured = errors.New("mfa not configured")

	// ErrVersionConflict indicates a conditional update lost a concurrent race.
	ErrVersionConflict = errors.New("version conflict")

	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")
)

// LockedError refuses an authentication attempt on a locked account.
// Unlike credential failures it is not disguised: the caller needs to know
// they are locked and for how long.
type LockedError struct {
	Until     time.Time
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked for %s", e.Remaining.Round(time.Second))
}

// AsLocked unwraps a LockedError if err carries one.
func AsLocked(err error) (*LockedError, bool) {
	var le *LockedError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
