package http

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/secureweb/auth-service/internal/model"
)

type contextKey struct{ name string }

var identityKey = &contextKey{"identity"}

// IdentityFrom returns the authenticated caller stored by the session
// middleware, or nil for an anonymous request.
func IdentityFrom(ctx context.Context) *model.Identity {
	ident, _ := ctx.Value(identityKey).(*model.Identity)
	return ident
}

// withSession resolves the refresh cookie on every request and stores the
// resulting identity in the context. A missing or invalid cookie passes
// through as anonymous; a store failure does not.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var presented string
		if c, err := r.Cookie(sessionCookie); err == nil {
			presented = c.Value
		}

		ident, err := s.sessions.Resolve(r.Context(), presented)
		if err != nil {
			sentry.CaptureException(err)
			s.log.Error("session resolution failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if ident != nil {
			r = r.WithContext(context.WithValue(r.Context(), identityKey, ident))
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		)
	})
}

func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				sentry.CurrentHub().Recover(rec)
				s.log.Error("panic recovered",
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
