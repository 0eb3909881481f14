package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/satishskid/codegurufs/internal/terminal"
)

type terminalResponse struct {
	TerminalID   string        `json:"terminalId"`
	TerminalInfo terminal.Info `json:"terminalInfo"`
}

func (s *Server) handleActivateTerminal(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Terminals == nil {
		writeMessage(w, http.StatusNotImplemented, "Terminal registry not configured")
		return
	}
	token := queryParam(r, "token")
	if token == "" {
		writeMessage(w, http.StatusBadRequest, "Activation token is missing.")
		return
	}

	t, err := s.cfg.Terminals.Activate(r.Context(), token)
	switch {
	case errors.Is(err, terminal.ErrInvalidToken):
		writeMessage(w, http.StatusNotFound, "Invalid activation token.")
		return
	case errors.Is(err, terminal.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Terminal not found for this token.")
		return
	case err != nil:
		slog.Error("terminal activation failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}
	slog.Info("terminal activated", "terminal_id", t.ID)
	writeJSON(w, http.StatusOK, terminalResponse{TerminalID: t.ID, TerminalInfo: t.Info})
}

func (s *Server) handleTerminalStatus(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Terminals == nil {
		writeMessage(w, http.StatusNotImplemented, "Terminal registry not configured")
		return
	}
	id := queryParam(r, "terminalId")
	if id == "" {
		writeMessage(w, http.StatusBadRequest, "Terminal ID is missing.")
		return
	}
	t, err := s.cfg.Terminals.Status(r.Context(), id)
	switch {
	case errors.Is(err, terminal.ErrNotFound):
		writeMessage(w, http.StatusNotFound, msgUnknownTerminal)
		return
	case errors.Is(err, terminal.ErrDeactivated):
		writeMessage(w, http.StatusForbidden, msgDeactivated)
		return
	case err != nil:
		slog.Error("terminal status failed", "terminal_id", id, "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, terminalResponse{TerminalID: t.ID, TerminalInfo: t.Info})
}
