package web

import "net/http"

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Alias string `json:"alias"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	identityHash := s.resolveIdentity(w, r)
	boardID := r.PathValue("id")

	if err := s.presence.Join(boardID, identityHash, req.Alias); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	identityHash := s.resolveIdentity(w, r)
	if err := s.presence.Heartbeat(r.PathValue("id"), identityHash); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpdateAlias(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Alias string `json:"alias"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	identityHash := s.resolveIdentity(w, r)
	if err := s.presence.UpdateAlias(r.PathValue("id"), identityHash, req.Alias); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleActiveUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.presence.ActiveUsers(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
