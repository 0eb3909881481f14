package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/satishskid/codegurufs/internal/ai"
	"github.com/satishskid/codegurufs/internal/curriculum"
	"github.com/satishskid/codegurufs/internal/judge"
	"github.com/satishskid/codegurufs/internal/tutor"
)

type sessionRef struct {
	TerminalID  string `json:"terminalId" validate:"notblank"`
	StudentName string `json:"studentName" validate:"notblank"`
}

type gradeRequest struct {
	sessionRef
	Grade string `json:"grade" validate:"notblank"`
}

type messageRequest struct {
	sessionRef
	Text string `json:"text" validate:"notblank"`
}

type actionRequest struct {
	sessionRef
	Label string `json:"label" validate:"notblank"`
}

// openSession checks the terminal and returns the student's session, or
// writes the error response and returns nil.
func (s *Server) openSession(w http.ResponseWriter, r *http.Request, ref sessionRef) *tutor.Session {
	if !s.checkTerminal(w, r, ref.TerminalID) {
		return nil
	}
	sess, err := s.cfg.Tutor.Open(r.Context(), ref.TerminalID, ref.StudentName)
	if err != nil {
		if errors.Is(err, tutor.ErrInvalidIdentity) {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return nil
		}
		slog.Error("failed to open session", "terminal_id", ref.TerminalID, "student", ref.StudentName, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Could not load student progress.")
		return nil
	}
	if s.cfg.AllowClientKey {
		if key := r.Header.Get(ClientKeyHeader); key != "" {
			sess.SetAPIKey(key)
		}
	}
	return sess
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ref := sessionRef{TerminalID: queryParam(r, "terminalId"), StudentName: queryParam(r, "studentName")}
	if err := check(ref); err != nil {
		writeBadRequest(w, err)
		return
	}
	sess := s.openSession(w, r, ref)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot().View())
}

func (s *Server) handleSelectGrade(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	g, err := curriculum.ParseGrade(req.Grade)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	s.runTurn(w, r, req.sessionRef, func(ctx context.Context, sess *tutor.Session) error {
		return sess.SelectGrade(ctx, g)
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	s.runTurn(w, r, req.sessionRef, func(ctx context.Context, sess *tutor.Session) error {
		return sess.Send(ctx, req.Text)
	})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decode(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	s.runTurn(w, r, req.sessionRef, func(ctx context.Context, sess *tutor.Session) error {
		return sess.Act(ctx, req.Label)
	})
}

// runTurn applies fn to the session and answers with the resulting view.
func (s *Server) runTurn(w http.ResponseWriter, r *http.Request, ref sessionRef, fn func(context.Context, *tutor.Session) error) {
	sess := s.openSession(w, r, ref)
	if sess == nil {
		return
	}
	if err := fn(r.Context(), sess); err != nil {
		status, msg := turnError(err)
		if status >= http.StatusInternalServerError {
			slog.Error("session turn failed",
				"terminal_id", ref.TerminalID,
				"student", ref.StudentName,
				"error", err,
			)
		}
		writeMessage(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot().View())
}

// turnError maps a session error to a status and client message.
func turnError(err error) (int, string) {
	switch {
	case errors.Is(err, tutor.ErrSessionBusy):
		return http.StatusConflict, "The tutor is still answering. Please wait."
	case errors.Is(err, tutor.ErrGradeSelected):
		return http.StatusConflict, err.Error()
	case errors.Is(err, tutor.ErrEmptyMessage),
		errors.Is(err, tutor.ErrNoGrade),
		errors.Is(err, tutor.ErrUnknownGrade),
		errors.Is(err, tutor.ErrUnknownAction):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ai.ErrBudgetExhausted):
		return http.StatusTooManyRequests, "You have used today's tutoring allowance. Come back tomorrow!"
	case errors.Is(err, ai.ErrNoProvider):
		return http.StatusServiceUnavailable, "Server configuration error: no AI provider configured."
	case errors.Is(err, judge.ErrMalformedVerdict):
		return http.StatusBadGateway, "The code checker gave an unclear answer. Please submit again."
	default:
		return http.StatusBadGateway, "An error occurred while communicating with the AI."
	}
}
