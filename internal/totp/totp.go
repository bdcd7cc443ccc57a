// Package totp implements RFC 6238 time-based one-time passwords: secret
// generation, otpauth:// enrollment URIs, and code verification with a
// bounded time-skew window.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const (
	secretBytes = 20
	period      = 30 // seconds per time step
	digits      = 6
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Engine generates and verifies TOTP codes. Pure aside from the clock.
type Engine struct {
	windowSteps int
	now         func() time.Time
}

// New constructs an engine accepting codes within ±windowSteps adjacent
// 30-second steps. windowSteps < 0 falls back to 1.
func New(windowSteps int, now func() time.Time) *Engine {
	if windowSteps < 0 {
		windowSteps = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{windowSteps: windowSteps, now: now}
}

// GenerateSecret returns a fresh base32-encoded shared key.
func (e *Engine) GenerateSecret() (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return b32.EncodeToString(raw), nil
}

// EnrollmentURI builds an otpauth:// URI suitable for rendering as a
// scannable code by an authenticator app.
func (e *Engine) EnrollmentURI(account, issuer, secret string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("period", strconv.Itoa(period))
	v.Set("digits", strconv.Itoa(digits))
	v.Set("algorithm", "SHA1")

	label := url.PathEscape(issuer + ":" + account)
	return "otpauth://totp/" + label + "?" + v.Encode()
}

// Verify reports whether code matches the secret at the current step or any
// step within the skew window. Malformed codes are rejected before any
// cryptographic work.
func (e *Engine) Verify(code, secret string) bool {
	if len(code) != digits || !allDigits(code) {
		return false
	}
	key, err := b32.DecodeString(secret)
	if err != nil || len(key) == 0 {
		return false
	}

	base := e.now().Unix() / period
	for step := -e.windowSteps; step <= e.windowSteps; step++ {
		counter := base + int64(step)
		if counter < 0 {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(hotp(key, counter)), []byte(code)) == 1 {
			return true
		}
	}
	return false
}

// CodeAt computes the code for an arbitrary instant. Used by enrollment tests
// and tooling; verification goes through Verify.
func (e *Engine) CodeAt(secret string, at time.Time) (string, error) {
	key, err := b32.DecodeString(secret)
	if err != nil {
		return "", err
	}
	return hotp(key, at.Unix()/period), nil
}

// hotp is the RFC 4226 dynamic-truncation construction over HMAC-SHA1.
func hotp(key []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", digits, bin%mod)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
