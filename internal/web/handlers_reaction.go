package web

import "net/http"

func (s *Server) handleAddReaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BoardID string `json:"board_id"`
		Kind    string `json:"kind"`
		Alias   string `json:"alias"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	identityHash := s.resolveIdentity(w, r)

	rx, err := s.reaction.AddReaction(req.BoardID, r.PathValue("id"), req.Kind, req.Alias, identityHash)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rx)
}

func (s *Server) handleRemoveReaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BoardID string `json:"board_id"`
	}
	_ = decodeJSONOptional(r, &req)
	boardID := req.BoardID
	if boardID == "" {
		boardID = r.URL.Query().Get("board_id")
	}
	identityHash := s.resolveIdentity(w, r)

	if err := s.reaction.RemoveReaction(boardID, r.PathValue("id"), identityHash); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
