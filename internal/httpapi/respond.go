package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

const (
	msgInternal        = "Internal server error."
	msgUnknownTerminal = "This terminal does not exist."
	msgDeactivated     = "This terminal has been deactivated by the administrator."
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeBadRequest answers 400 for client errors and 500 otherwise.
func writeBadRequest(w http.ResponseWriter, err error) {
	var br *badRequest
	if errors.As(err, &br) {
		writeMessage(w, http.StatusBadRequest, br.msg)
		return
	}
	slog.Error("request failed", "error", err)
	writeMessage(w, http.StatusInternalServerError, msgInternal)
}
