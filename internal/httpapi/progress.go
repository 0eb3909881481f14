package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/satishskid/codegurufs/internal/progress"
)

type saveProgressRequest struct {
	TerminalID  string          `json:"terminalId" validate:"notblank"`
	StudentName string          `json:"studentName" validate:"notblank"`
	Progress    json.RawMessage `json:"progress" validate:"required"`
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	terminalID, studentName := queryParam(r, "terminalId"), queryParam(r, "studentName")
	if terminalID == "" || studentName == "" {
		writeMessage(w, http.StatusBadRequest, "Missing terminalId or studentName")
		return
	}

	p, err := s.cfg.Store.Load(r.Context(), terminalID, studentName)
	if errors.Is(err, progress.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "No progress found for this student.")
		return
	}
	if err != nil {
		slog.Error("failed to load progress", "terminal_id", terminalID, "student", studentName, "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleSaveProgress merges the payload into the stored document. A live
// session picks up the merged state once its running turn has finished.
func (s *Server) handleSaveProgress(w http.ResponseWriter, r *http.Request) {
	var req saveProgressRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := progress.ValidateDocument(req.Progress); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	var p progress.StudentProgress
	if err := json.Unmarshal(req.Progress, &p); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid progress document.")
		return
	}

	if err := s.cfg.Tutor.Save(r.Context(), req.TerminalID, req.StudentName, p); err != nil {
		slog.Error("failed to save progress", "terminal_id", req.TerminalID, "student", req.StudentName, "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCurricula(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"curricula": s.cfg.Tutor.Catalog().Entries()})
}
