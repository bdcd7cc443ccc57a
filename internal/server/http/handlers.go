package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/secureweb/auth-service/internal/errs"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type mfaVerifyRequest struct {
	MfaToken string `json:"mfaToken"`
	Code     string `json:"code"`
}

type enrollConfirmRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	body.Email = strings.TrimSpace(body.Email)
	if !emailRegex.MatchString(body.Email) {
		writeError(w, http.StatusBadRequest, "email format is invalid")
		return
	}
	if body.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	res, err := s.auth.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeAuthError(w, err, "failed to login")
		return
	}

	if res.MfaRequired {
		writeJSON(w, http.StatusOK, map[string]any{
			"mfaRequired": true,
			"mfaToken":    res.MfaToken,
		})
		return
	}

	setSessionCookie(w, res.Tokens.RefreshToken, res.Tokens.RefreshExpiresAt)
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": res.Tokens.AccessToken})
}

func (s *Server) handleMfaVerify(w http.ResponseWriter, r *http.Request) {
	var body mfaVerifyRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	body.MfaToken = strings.TrimSpace(body.MfaToken)
	body.Code = strings.TrimSpace(body.Code)
	if body.MfaToken == "" || body.Code == "" {
		writeError(w, http.StatusBadRequest, "mfaToken and code are required")
		return
	}

	tokens, err := s.auth.CompleteMfa(r.Context(), body.MfaToken, body.Code)
	if err != nil {
		s.writeAuthError(w, err, "failed to verify code")
		return
	}

	setSessionCookie(w, tokens.RefreshToken, tokens.RefreshExpiresAt)
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": tokens.AccessToken})
}

// handleLogout revokes the session's refresh token and deletes the cookie.
// The cookie goes away even when revocation fails.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())

	err := s.auth.Logout(r.Context(), ident)
	clearSessionCookie(w)
	if err != nil {
		sentry.CaptureException(err)
		s.log.Error("logout failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to logout")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEnrollBegin(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	if ident == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	enr, err := s.auth.EnrollMfaBegin(r.Context(), ident)
	if err != nil {
		s.writeAuthError(w, err, "failed to start enrollment")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"secret":        enr.Secret,
		"enrollmentUri": enr.EnrollmentURI,
	})
}

func (s *Server) handleEnrollConfirm(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	if ident == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var body enrollConfirmRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	err := s.auth.EnrollMfaConfirm(r.Context(), ident, strings.TrimSpace(body.Code))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, errs.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, "invalid code")
	case errors.Is(err, errs.ErrMfaNotConfigured):
		writeError(w, http.StatusBadRequest, "enrollment not started")
	default:
		sentry.CaptureException(err)
		s.log.Error("enrollment confirm failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to confirm enrollment")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCleanup purges stale refresh-token rows. Reachable only with the
// cron bearer secret; unset secret hides the endpoint entirely.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if s.cronSecret == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") ||
		subtle.ConstantTimeCompare([]byte(strings.TrimSpace(parts[1])), []byte(s.cronSecret)) != 1 {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	deleted, err := s.auth.PurgeStaleTokens(r.Context())
	if err != nil {
		sentry.CaptureException(err)
		s.log.Error("token cleanup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cleanup failed")
		return
	}

	s.log.Info("token cleanup completed", zap.Int64("deleted", deleted))
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// writeAuthError maps service errors to responses. Credential, token and
// missing-data failures all render the same 401 so nothing leaks; locked
// accounts are the deliberate exception.
func (s *Server) writeAuthError(w http.ResponseWriter, err error, internalMsg string) {
	if le, ok := errs.AsLocked(err); ok {
		retryAfter := int(le.Remaining.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeError(w, http.StatusForbidden, le.Error())
		return
	}

	switch {
	case errors.Is(err, errs.ErrInvalidCredentials),
		errors.Is(err, errs.ErrInvalidToken),
		errors.Is(err, errs.ErrInvalidCode),
		errors.Is(err, errs.ErrMfaNotConfigured):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	default:
		sentry.CaptureException(err)
		s.log.Error(internalMsg, zap.Error(err))
		writeError(w, http.StatusInternalServerError, internalMsg)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
