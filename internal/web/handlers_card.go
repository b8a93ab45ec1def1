package web

import (
	"net/http"

	"github.com/joestump/retroboard/internal/card"
	"github.com/joestump/retroboard/internal/store"
)

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	view, err := s.card.ListCards(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	view, err := s.card.GetCard(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ColumnID    string `json:"column_id"`
		Content     string `json:"content"`
		CardType    string `json:"card_type"`
		IsAnonymous bool   `json:"is_anonymous"`
		Alias       string `json:"alias"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	identityHash := s.resolveIdentity(w, r)

	c, err := s.card.CreateCard(r.PathValue("id"), card.CreateCardInput{
		ColumnID:    req.ColumnID,
		Content:     req.Content,
		CardType:    store.CardType(req.CardType),
		IsAnonymous: req.IsAnonymous,
		Alias:       req.Alias,
	}, identityHash)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BoardID string `json:"board_id"`
		Content string `json:"content"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	identityHash := s.resolveIdentity(w, r)

	c, err := s.card.UpdateCard(req.BoardID, r.PathValue("id"), req.Content, identityHash)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleMoveCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BoardID  string `json:"board_id"`
		ColumnID string `json:"column_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	identityHash := s.resolveIdentity(w, r)

	if err := s.card.MoveCard(req.BoardID, r.PathValue("id"), req.ColumnID, identityHash); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BoardID string `json:"board_id"`
	}
	// DELETE requests may carry a body; if it's absent or malformed, fall
	// back to the query parameter.
	_ = decodeJSONOptional(r, &req)
	boardID := req.BoardID
	if boardID == "" {
		boardID = r.URL.Query().Get("board_id")
	}
	identityHash := s.resolveIdentity(w, r)

	if err := s.card.DeleteCard(boardID, r.PathValue("id"), identityHash); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLinkCards(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BoardID string `json:"board_id"`
		Target  string `json:"target_id"`
		Kind    string `json:"kind"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	identityHash := s.resolveIdentity(w, r)

	if err := s.card.LinkCards(req.BoardID, r.PathValue("id"), req.Target, store.LinkKind(req.Kind), identityHash); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUnlinkCards(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BoardID string `json:"board_id"`
		Target  string `json:"target_id"`
		Kind    string `json:"kind"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	identityHash := s.resolveIdentity(w, r)

	if err := s.card.UnlinkCards(req.BoardID, r.PathValue("id"), req.Target, store.LinkKind(req.Kind), identityHash); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
