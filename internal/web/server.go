// Package web wires the board, card, reaction, presence, and admin
// services plus the subscription gateway behind an HTTP+SSE surface. The
// exact routes and envelope shape are a peripheral, external concern —
// this exists so the domain core is runnable and testable end to end.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joestump/retroboard/internal/admin"
	"github.com/joestump/retroboard/internal/board"
	"github.com/joestump/retroboard/internal/card"
	"github.com/joestump/retroboard/internal/config"
	"github.com/joestump/retroboard/internal/gateway"
	"github.com/joestump/retroboard/internal/identity"
	"github.com/joestump/retroboard/internal/presence"
	"github.com/joestump/retroboard/internal/reaction"
)

// Server is the HTTP server exposing the retrospective board API.
type Server struct {
	cfg      *config.Config
	gateway  *gateway.Gateway
	identity identity.Identity
	board    *board.Service
	card     *card.Service
	reaction *reaction.Service
	presence *presence.Service
	admin    *admin.Service
	mux      *http.ServeMux
	server   *http.Server
}

// New creates a new web server wired to the given services.
func New(cfg *config.Config, gw *gateway.Gateway, ident identity.Identity, boardSvc *board.Service, cardSvc *card.Service, reactionSvc *reaction.Service, presenceSvc *presence.Service, adminSvc *admin.Service) *Server {
	s := &Server{
		cfg:      cfg,
		gateway:  gw,
		identity: ident,
		board:    boardSvc,
		card:     cardSvc,
		reaction: reactionSvc,
		presence: presenceSvc,
		admin:    adminSvc,
		mux:      http.NewServeMux(),
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE needs no write timeout
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	s.mux.HandleFunc("POST /api/v1/boards", s.handleCreateBoard)
	s.mux.HandleFunc("GET /api/v1/boards/{id}", s.handleGetBoard)
	s.mux.HandleFunc("GET /api/v1/boards/by-link/{link}", s.handleGetBoardByLink)
	s.mux.HandleFunc("POST /api/v1/boards/{id}/rename", s.handleRenameBoard)
	s.mux.HandleFunc("POST /api/v1/boards/{id}/close", s.handleCloseBoard)
	s.mux.HandleFunc("POST /api/v1/boards/{id}/admins", s.handleAddAdmin)
	s.mux.HandleFunc("DELETE /api/v1/boards/{id}", s.handleDeleteBoard)
	s.mux.HandleFunc("POST /api/v1/boards/{id}/columns/{columnID}/rename", s.handleRenameColumn)

	s.mux.HandleFunc("GET /api/v1/boards/{id}/cards", s.handleListCards)
	s.mux.HandleFunc("POST /api/v1/boards/{id}/cards", s.handleCreateCard)
	s.mux.HandleFunc("GET /api/v1/cards/{id}", s.handleGetCard)
	s.mux.HandleFunc("PATCH /api/v1/cards/{id}", s.handleUpdateCard)
	s.mux.HandleFunc("POST /api/v1/cards/{id}/move", s.handleMoveCard)
	s.mux.HandleFunc("DELETE /api/v1/cards/{id}", s.handleDeleteCard)
	s.mux.HandleFunc("POST /api/v1/cards/{id}/links", s.handleLinkCards)
	s.mux.HandleFunc("DELETE /api/v1/cards/{id}/links", s.handleUnlinkCards)

	s.mux.HandleFunc("POST /api/v1/cards/{id}/reactions", s.handleAddReaction)
	s.mux.HandleFunc("DELETE /api/v1/cards/{id}/reactions", s.handleRemoveReaction)

	s.mux.HandleFunc("POST /api/v1/boards/{id}/join", s.handleJoin)
	s.mux.HandleFunc("POST /api/v1/boards/{id}/heartbeat", s.handleHeartbeat)
	s.mux.HandleFunc("POST /api/v1/boards/{id}/alias", s.handleUpdateAlias)
	s.mux.HandleFunc("GET /api/v1/boards/{id}/users", s.handleActiveUsers)

	s.mux.HandleFunc("GET /api/v1/boards/{id}/events", s.handleSubscribe)

	s.mux.HandleFunc("POST /api/v1/admin/boards/{id}/clear", s.handleAdminClear)
	s.mux.HandleFunc("POST /api/v1/admin/boards/{id}/reset", s.handleAdminReset)
	s.mux.HandleFunc("POST /api/v1/admin/boards/{id}/seed", s.handleAdminSeed)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Start begins serving HTTP requests. It blocks until the server is shut
// down.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
