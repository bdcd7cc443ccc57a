// Package http exposes the authentication core over HTTP JSON endpoints.
// The refresh token travels as an http-only cookie; everything else is
// plain JSON bodies.
package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/secureweb/auth-service/internal/service"
)

// sessionCookie is the refresh-token carrier. The client cannot read it.
const sessionCookie = "refreshToken"

const maxJSONBodyBytes = 1 << 20

// Pinger reports storage connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds handler dependencies and builds the route table.
type Server struct {
	log        *zap.Logger
	auth       service.AuthService
	sessions   service.SessionResolver
	db         Pinger
	cronSecret string
}

// NewServer constructs the HTTP surface. cronSecret guards the maintenance
// endpoint; when empty the endpoint answers 404.
func NewServer(log *zap.Logger, auth service.AuthService, sessions service.SessionResolver, db Pinger, cronSecret string) *Server {
	return &Server{log: log, auth: auth, sessions: sessions, db: db, cronSecret: cronSecret}
}

// Routes returns the full handler chain: logging and panic recovery on the
// outside, session resolution inside, then the method-routed mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/mfa/verify", s.handleMfaVerify)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("POST /auth/mfa/enroll", s.handleEnrollBegin)
	mux.HandleFunc("POST /auth/mfa/enroll/confirm", s.handleEnrollConfirm)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /internal/maintenance/cleanup", s.handleCleanup)

	return s.withLogging(s.withRecovery(s.withSession(mux)))
}
