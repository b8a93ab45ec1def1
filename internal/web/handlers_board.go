package web

import (
	"net/http"

	"github.com/joestump/retroboard/internal/board"
)

type createBoardRequest struct {
	Name          string          `json:"name"`
	Columns       []columnRequest `json:"columns"`
	CardLimit     *int            `json:"card_limit"`
	ReactionLimit *int            `json:"reaction_limit"`
}

type columnRequest struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Color *string `json:"color"`
}

func (s *Server) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	var req createBoardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	identityHash := s.resolveIdentity(w, r)

	columns := make([]board.ColumnInput, len(req.Columns))
	for i, c := range req.Columns {
		columns[i] = board.ColumnInput{ID: c.ID, Name: c.Name, Color: c.Color}
	}

	b, err := s.board.CreateBoard(board.CreateBoardInput{
		Name:          req.Name,
		Columns:       columns,
		CardLimit:     req.CardLimit,
		ReactionLimit: req.ReactionLimit,
	}, identityHash)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	view, err := s.board.GetBoard(r.PathValue("id"), s.cfg.PresenceWindowSeconds)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetBoardByLink(w http.ResponseWriter, r *http.Request) {
	view, err := s.board.GetBoardByLink(r.PathValue("link"), s.cfg.PresenceWindowSeconds)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRenameBoard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	identityHash := s.resolveIdentity(w, r)
	if err := s.board.RenameBoard(r.PathValue("id"), req.Name, identityHash); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRenameColumn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	identityHash := s.resolveIdentity(w, r)
	if err := s.board.RenameColumn(r.PathValue("id"), r.PathValue("columnID"), req.Name, identityHash); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCloseBoard(w http.ResponseWriter, r *http.Request) {
	identityHash := s.resolveIdentity(w, r)
	if err := s.board.CloseBoard(r.PathValue("id"), identityHash); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAddAdmin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IdentityHash string `json:"identity_hash"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	identityHash := s.resolveIdentity(w, r)
	if err := s.board.AddAdmin(r.PathValue("id"), req.IdentityHash, identityHash, s.cfg.PresenceWindowSeconds); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	identityHash := s.resolveIdentity(w, r)
	if err := s.board.DeleteBoard(r.PathValue("id"), identityHash, false); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
