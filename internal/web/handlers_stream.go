package web

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// handleSubscribe upgrades the connection to a Server-Sent Events stream
// of domain events for one board. It blocks until the client disconnects
// or the request context is cancelled.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	boardID := r.PathValue("id")
	identityHash := s.resolveIdentity(w, r)

	handle, ok := s.gateway.Subscribe(identityHash)
	if !ok {
		writeError(w, http.StatusUnauthorized, "identity required")
		return
	}
	defer handle.Close()

	if !handle.JoinBoard(boardID) {
		writeError(w, http.StatusBadRequest, "board id required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	events := handle.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
