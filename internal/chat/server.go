package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/satishskid/codegurufs/internal/ai"
	"github.com/satishskid/codegurufs/internal/curriculum"
	"github.com/satishskid/codegurufs/internal/judge"
	"github.com/satishskid/codegurufs/internal/progress"
	"github.com/satishskid/codegurufs/internal/terminal"
	"github.com/satishskid/codegurufs/internal/tutor"
)

// ClientKeyHeader carries a student's own provider key on the upgrade request.
const ClientKeyHeader = "X-Gemini-Key"

const (
	writeTimeout = 10 * time.Second
	outboxSize   = 16
)

// ErrUnknownFrame is reported for a frame type the server does not handle.
var ErrUnknownFrame = errors.New("unknown frame type")

// Config holds the WebSocket server's dependencies. Tutor is required.
type Config struct {
	Tutor          *tutor.Service
	Terminals      terminal.Registry // nil skips terminal checks
	Gateway        *Gateway          // defaults to a new gateway
	AllowClientKey bool
	// OriginPatterns are extra hosts allowed to open cross-origin sockets.
	OriginPatterns []string
}

// Server upgrades /ws requests and runs one tutor session per connection.
type Server struct {
	svc            *tutor.Service
	terminals      terminal.Registry
	gw             *Gateway
	allowClientKey bool
	origins        []string
}

// NewServer creates a WebSocket server.
func NewServer(cfg Config) *Server {
	gw := cfg.Gateway
	if gw == nil {
		gw = NewGateway()
	}
	return &Server{
		svc:            cfg.Tutor,
		terminals:      cfg.Terminals,
		gw:             gw,
		allowClientKey: cfg.AllowClientKey,
		origins:        cfg.OriginPatterns,
	}
}

// Gateway returns the connection registry.
func (s *Server) Gateway() *Gateway {
	return s.gw
}

// Register mounts the socket endpoint on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.Handle("GET /ws", s)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	terminalID := strings.TrimSpace(q.Get("terminalId"))
	studentName := strings.TrimSpace(q.Get("studentName"))
	if terminalID == "" || studentName == "" {
		reject(w, http.StatusBadRequest, "Missing terminalId or studentName")
		return
	}

	if s.terminals != nil {
		_, err := s.terminals.Status(r.Context(), terminalID)
		switch {
		case errors.Is(err, terminal.ErrNotFound):
			reject(w, http.StatusNotFound, "This terminal does not exist.")
			return
		case errors.Is(err, terminal.ErrDeactivated):
			reject(w, http.StatusForbidden, "This terminal has been deactivated by the administrator.")
			return
		case err != nil:
			slog.Error("terminal status failed", "terminal_id", terminalID, "error", err)
			reject(w, http.StatusInternalServerError, "Internal server error.")
			return
		}
	}

	sess, err := s.svc.Open(r.Context(), terminalID, studentName)
	if err != nil {
		slog.Error("failed to open session", "terminal_id", terminalID, "student", studentName, "error", err)
		reject(w, http.StatusInternalServerError, "Could not load student progress.")
		return
	}
	if s.allowClientKey {
		if key := r.Header.Get(ClientKeyHeader); key != "" {
			sess.SetAPIKey(key)
		}
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		slog.Warn("websocket upgrade failed", "terminal_id", terminalID, "error", err)
		return
	}
	defer c.CloseNow()

	release := s.gw.add(progress.Key(terminalID, studentName), c)
	defer release()

	if err := s.serve(r.Context(), c, sess); err != nil {
		slog.Error("websocket session ended", "terminal_id", terminalID, "student", studentName, "error", err)
		return
	}
	c.Close(websocket.StatusNormalClosure, "")
}

func reject(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}

// serve pumps frames until the client goes away. Each inbound frame runs
// as its own turn so a frame sent mid-turn is answered with a busy error
// instead of waiting.
func (s *Server) serve(ctx context.Context, c *websocket.Conn, sess *tutor.Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan OutboundFrame, outboxSize)
	changed, stopWatch := sess.Watch()
	defer stopWatch()

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- s.writeLoop(ctx, c, sess, changed, out)
		cancel()
	}()

	var turns sync.WaitGroup
	var readErr error
	for {
		var f InboundFrame
		if err := wsjson.Read(ctx, c, &f); err != nil {
			if !closedNormally(err) && ctx.Err() == nil {
				readErr = fmt.Errorf("read frame: %w", err)
			}
			break
		}
		turns.Add(1)
		go func() {
			defer turns.Done()
			if err := dispatch(ctx, sess, f); err != nil {
				select {
				case out <- OutboundFrame{Type: FrameError, Message: errorMessage(err)}:
				case <-ctx.Done():
				}
			}
		}()
	}

	cancel()
	turns.Wait()
	if err := <-writeErr; err != nil && readErr == nil && !closedNormally(err) && !errors.Is(err, context.Canceled) {
		return err
	}
	return readErr
}

// writeLoop sends the current snapshot, then a fresh one after every change.
// A thinking frame precedes the snapshot whenever the flag flips.
func (s *Server) writeLoop(ctx context.Context, c *websocket.Conn, sess *tutor.Session, changed <-chan struct{}, out <-chan OutboundFrame) error {
	snap := sess.Snapshot()
	thinking := snap.Thinking
	if err := write(ctx, c, snapshotFrame(snap)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-out:
			if err := write(ctx, c, f); err != nil {
				return err
			}
		case <-changed:
			snap := sess.Snapshot()
			if snap.Thinking != thinking {
				thinking = snap.Thinking
				if err := write(ctx, c, OutboundFrame{Type: FrameThinking, Thinking: thinking}); err != nil {
					return err
				}
			}
			if err := write(ctx, c, snapshotFrame(snap)); err != nil {
				return err
			}
		}
	}
}

func snapshotFrame(snap tutor.Snapshot) OutboundFrame {
	v := snap.View()
	return OutboundFrame{Type: FrameSnapshot, Session: &v, Thinking: snap.Thinking}
}

func write(ctx context.Context, c *websocket.Conn, f OutboundFrame) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, c, f); err != nil {
		return fmt.Errorf("write %s frame: %w", f.Type, err)
	}
	return nil
}

func dispatch(ctx context.Context, sess *tutor.Session, f InboundFrame) error {
	switch f.Type {
	case FrameSelectGrade:
		g, err := curriculum.ParseGrade(f.Grade)
		if err != nil {
			return fmt.Errorf("%w: %q", tutor.ErrUnknownGrade, f.Grade)
		}
		return sess.SelectGrade(ctx, g)
	case FrameMessage:
		return sess.Send(ctx, f.Text)
	case FrameAction:
		return sess.Act(ctx, f.Label)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFrame, f.Type)
	}
}

// errorMessage is the text shown to the student for a failed turn.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, tutor.ErrSessionBusy):
		return "The tutor is still answering. Please wait."
	case errors.Is(err, tutor.ErrEmptyMessage),
		errors.Is(err, tutor.ErrNoGrade),
		errors.Is(err, tutor.ErrGradeSelected),
		errors.Is(err, tutor.ErrUnknownGrade),
		errors.Is(err, tutor.ErrUnknownAction),
		errors.Is(err, ErrUnknownFrame):
		return err.Error()
	case errors.Is(err, ai.ErrBudgetExhausted):
		return "You have used today's tutoring allowance. Come back tomorrow!"
	case errors.Is(err, judge.ErrMalformedVerdict):
		return "The code checker gave an unclear answer. Please submit again."
	default:
		return "An error occurred while communicating with the AI."
	}
}

func closedNormally(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
