package web

import (
	"net/http"

	"github.com/joestump/retroboard/internal/admin"
	"github.com/joestump/retroboard/internal/store"
)

const adminSecretHeader = "X-Admin-Secret"

func (s *Server) handleAdminClear(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.ClearBoardData(r.PathValue("id"), r.Header.Get(adminSecretHeader)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAdminReset(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.ResetBoard(r.PathValue("id"), r.Header.Get(adminSecretHeader)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAdminSeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cards []struct {
			ColumnID      string `json:"column_id"`
			Content       string `json:"content"`
			CardType      string `json:"card_type"`
			CreatedByHash string `json:"created_by_hash"`
		} `json:"cards"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	cards := make([]admin.SeedCard, len(req.Cards))
	for i, c := range req.Cards {
		cards[i] = admin.SeedCard{
			ColumnID:      c.ColumnID,
			Content:       c.Content,
			CardType:      store.CardType(c.CardType),
			CreatedByHash: c.CreatedByHash,
		}
	}

	if err := s.admin.SeedBoard(r.PathValue("id"), r.Header.Get(adminSecretHeader), cards); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
