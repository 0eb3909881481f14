// Package httpapi serves the REST API used by classroom terminals and the
// admin console.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/satishskid/codegurufs/internal/admin"
	"github.com/satishskid/codegurufs/internal/auth"
	"github.com/satishskid/codegurufs/internal/progress"
	"github.com/satishskid/codegurufs/internal/terminal"
	"github.com/satishskid/codegurufs/internal/tutor"
)

// ClientKeyHeader carries a student's own provider key.
const ClientKeyHeader = "X-Gemini-Key"

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// Config holds the API's dependencies. Tutor and Store are required.
type Config struct {
	Tutor     *tutor.Service
	Store     progress.Store
	Terminals terminal.Registry // nil skips terminal checks
	Allowlist admin.Allowlist   // nil disables the admin API
	Verifier  *auth.Verifier    // nil disables bearer tokens
	// AuthRequired rejects API calls without a bearer token.
	AuthRequired bool
	// AllowClientKey lets students send their own provider key.
	AllowClientKey bool
	Checks         map[string]Check
}

// Server is the REST API.
type Server struct {
	cfg Config
}

// New creates the API server.
func New(cfg Config) *Server {
	return &Server{cfg: cfg}
}

// Register mounts the API and health routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/progress", s.handleGetProgress)
	api.HandleFunc("POST /api/progress", s.handleSaveProgress)
	api.HandleFunc("GET /api/curricula", s.handleCurricula)

	api.HandleFunc("GET /api/session", s.handleGetSession)
	api.HandleFunc("POST /api/session/grade", s.handleSelectGrade)
	api.HandleFunc("POST /api/session/messages", s.handleSendMessage)
	api.HandleFunc("POST /api/session/actions", s.handleAction)

	api.HandleFunc("POST /api/terminal", s.handleActivateTerminal)
	api.HandleFunc("GET /api/terminal", s.handleTerminalStatus)

	api.HandleFunc("GET /api/admin/users", s.requireAdmin(s.handleListUsers))
	api.HandleFunc("POST /api/admin/users", s.requireAdmin(s.handleUpsertUser))
	api.HandleFunc("DELETE /api/admin/users", s.requireAdmin(s.handleDeleteUser))
	api.HandleFunc("GET /api/admin/reports/progress", s.requireAdmin(s.handleProgressReport))

	var h http.Handler = api
	if s.cfg.Verifier != nil {
		h = s.cfg.Verifier.Middleware(s.cfg.AuthRequired)(h)
	}
	mux.Handle("/api/", h)
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

// checkTerminal writes the error response and returns false when the
// terminal may not be used.
func (s *Server) checkTerminal(w http.ResponseWriter, r *http.Request, id string) bool {
	if s.cfg.Terminals == nil {
		return true
	}
	_, err := s.cfg.Terminals.Status(r.Context(), id)
	switch {
	case err == nil:
		return true
	case errors.Is(err, terminal.ErrNotFound):
		writeMessage(w, http.StatusNotFound, msgUnknownTerminal)
	case errors.Is(err, terminal.ErrDeactivated):
		writeMessage(w, http.StatusForbidden, msgDeactivated)
	default:
		slog.Error("terminal status failed", "terminal_id", id, "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
	}
	return false
}

func queryParam(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}
