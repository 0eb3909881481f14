package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/satishskid/codegurufs/internal/admin"
	"github.com/satishskid/codegurufs/internal/auth"
	"github.com/satishskid/codegurufs/internal/progress"
	"github.com/satishskid/codegurufs/internal/report"
)

// AdminEmailHeader names the caller when no bearer token is present.
const AdminEmailHeader = "X-Admin-Email"

type upsertUserRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=admin member"`
}

// callerEmail prefers the verified token email over the header.
func callerEmail(r *http.Request) string {
	if c, ok := auth.FromContext(r.Context()); ok && c.Email != "" {
		return c.Email
	}
	return r.Header.Get(AdminEmailHeader)
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Allowlist == nil {
			writeMessage(w, http.StatusNotImplemented, "Database not configured")
			return
		}
		ok, err := admin.IsAdmin(r.Context(), s.cfg.Allowlist, callerEmail(r))
		if err != nil {
			slog.Error("admin lookup failed", "error", err)
			writeMessage(w, http.StatusInternalServerError, msgInternal)
			return
		}
		if !ok {
			writeMessage(w, http.StatusForbidden, "Forbidden")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.cfg.Allowlist.List(r.Context())
	if err != nil {
		slog.Error("failed to list users", "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if users == nil {
		users = []admin.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	var req upsertUserRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	u := admin.User{Email: req.Email, Role: admin.Role(req.Role)}
	if err := s.cfg.Allowlist.Upsert(r.Context(), u); err != nil {
		if errors.Is(err, admin.ErrInvalidRole) {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("failed to upsert user", "email", u.Email, "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}
	slog.Info("allowlist user saved", "email", admin.NormalizeEmail(u.Email), "role", u.Role, "by", callerEmail(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	email := queryParam(r, "email")
	if email == "" {
		writeMessage(w, http.StatusBadRequest, "Missing email")
		return
	}
	if err := s.cfg.Allowlist.Delete(r.Context(), email); err != nil && !errors.Is(err, admin.ErrNotFound) {
		slog.Error("failed to delete user", "email", email, "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleProgressReport streams a terminal's progress as a spreadsheet.
func (s *Server) handleProgressReport(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.cfg.Store.(progress.Lister)
	if !ok {
		writeMessage(w, http.StatusNotImplemented, "Progress store cannot list students")
		return
	}
	terminalID := queryParam(r, "terminalId")
	if terminalID == "" {
		writeMessage(w, http.StatusBadRequest, "Terminal ID is missing.")
		return
	}

	records, err := lister.List(r.Context(), terminalID)
	if err != nil {
		slog.Error("failed to list progress", "terminal_id", terminalID, "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteTerminalProgress(&buf, terminalID, records); err != nil {
		slog.Error("failed to build report", "terminal_id", terminalID, "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="progress-%s.xlsx"`, terminalID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
