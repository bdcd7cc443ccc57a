// Package token signs and verifies the three token kinds used by the
// authentication core. Each kind has its own secret, so a token minted for
// one kind can never verify as another.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/secureweb/auth-service/internal/errs"
)

// Kind selects a signing context.
type Kind string

const (
	// Access is the short-lived authorization proof.
	Access Kind = "access"
	// Refresh is the long-lived session token, revocable via its jti.
	Refresh Kind = "refresh"
	// MfaPending binds a password-verified identity to the second-factor step.
	MfaPending Kind = "mfa"
)

// Default TTL per kind.
const (
	DefaultAccessTTL     = 15 * time.Minute
	DefaultRefreshTTL    = 7 * 24 * time.Hour
	DefaultMfaPendingTTL = 3 * time.Minute
)

// Payload is the transient token content. It is never persisted; access and
// mfa-pending tokens carry no JTI. Subject is required: Sign refuses a
// payload without one, and Verify rejects any token missing it.
type Payload struct {
	Subject string // user id, required
	Email   string // optional
	JTI     string // refresh only
}

// Config holds the per-kind secrets and TTLs. All three secrets are required.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	MfaSecret     []byte

	AccessTTL     time.Duration // 0 = DefaultAccessTTL
	RefreshTTL    time.Duration // 0 = DefaultRefreshTTL
	MfaPendingTTL time.Duration // 0 = DefaultMfaPendingTTL

	Now func() time.Time // 0 = time.Now, injectable for tests
}

// Codec signs and verifies tokens. Pure and stateless aside from the clock.
type Codec struct {
	secrets map[Kind][]byte
	ttls    map[Kind]time.Duration
	now     func() time.Time
}

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// New validates the configuration and constructs a codec.
func New(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 || len(cfg.MfaSecret) == 0 {
		return nil, errors.New("token: all three signing secrets are required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.MfaPendingTTL <= 0 {
		cfg.MfaPendingTTL = DefaultMfaPendingTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Codec{
		secrets: map[Kind][]byte{
			Access:     cfg.AccessSecret,
			Refresh:    cfg.RefreshSecret,
			MfaPending: cfg.MfaSecret,
		},
		ttls: map[Kind]time.Duration{
			Access:     cfg.AccessTTL,
			Refresh:    cfg.RefreshTTL,
			MfaPending: cfg.MfaPendingTTL,
		},
		now: cfg.Now,
	}, nil
}

// TTL returns the configured lifetime for a kind.
func (c *Codec) TTL(kind Kind) time.Duration { return c.ttls[kind] }

// Sign mints an HS256 token of the given kind and returns it with its expiry.
func (c *Codec) Sign(kind Kind, p Payload) (string, time.Time, error) {
	secret, ok := c.secrets[kind]
	if !ok {
		return "", time.Time{}, errors.New("token: unknown kind")
	}
	if p.Subject == "" {
		return "", time.Time{}, errors.New("token: subject is required")
	}

	now := c.now()
	exp := now.Add(c.ttls[kind])
	cl := claims{
		Email: p.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			ID:        p.JTI,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses a token under the kind's key. Every failure mode (bad
// signature, wrong kind, malformed input, expiry) collapses into the single
// errs.ErrInvalidToken so callers cannot build a verification oracle.
func (c *Codec) Verify(kind Kind, tokenStr string) (Payload, error) {
	secret, ok := c.secrets[kind]
	if !ok || tokenStr == "" {
		return Payload{}, errs.ErrInvalidToken
	}

	var cl claims
	tok, err := jwt.ParseWithClaims(tokenStr, &cl, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !tok.Valid || cl.Subject == "" {
		return Payload{}, errs.ErrInvalidToken
	}

	return Payload{Subject: cl.Subject, Email: cl.Email, JTI: cl.ID}, nil
}
