// Package admin implements the always-on administrative back channel:
// operator-only board maintenance operations gated by a shared secret
// instead of the per-identity admin model the mutation API uses.
package admin

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/joestump/retroboard/internal/apperr"
	"github.com/joestump/retroboard/internal/clock"
	"github.com/joestump/retroboard/internal/gateway"
	"github.com/joestump/retroboard/internal/idgen"
	"github.com/joestump/retroboard/internal/store"
)

// Service implements the administrative back channel. It is constructed
// once with the configured secret; every call checks the secret it is
// given against that one.
type Service struct {
	store       *store.Store
	clock       clock.Clock
	broadcaster gateway.Broadcaster
	secret      string
}

// New builds a Service gated by secret (configuration key admin_secret).
// An empty secret disables every operation.
func New(st *store.Store, clk clock.Clock, b gateway.Broadcaster, secret string) *Service {
	return &Service{store: st, clock: clk, broadcaster: b, secret: secret}
}

// authenticate performs the constant-time secret comparison every
// back-channel call must pass before touching the store. Both secrets are
// reduced to fixed-length SHA-256 digests first, so the comparison takes
// the same time whatever the length of the supplied value.
func (s *Service) authenticate(provided string) error {
	want := sha256.Sum256([]byte(s.secret))
	got := sha256.Sum256([]byte(provided))
	if s.secret == "" || subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
		return apperr.New(apperr.Unauthenticated, "invalid or missing administrative secret")
	}
	return nil
}

// ClearBoardData deletes every card and reaction on a board, leaving the
// board, its columns, admins, and sessions intact.
func (s *Service) ClearBoardData(boardID, secret string) error {
	if err := s.authenticate(secret); err != nil {
		return err
	}
	board, err := s.store.GetBoard(boardID)
	if err != nil {
		return apperr.Wrap(err, "clear board data")
	}
	if board == nil {
		return apperr.NotFoundf(apperr.SubBoard, "board %s not found", boardID)
	}

	if err := s.store.DeleteAllForBoardCards(boardID); err != nil {
		return apperr.Wrap(err, "clear board data: reactions")
	}
	if err := s.store.DeleteAllForBoard(boardID); err != nil {
		return apperr.Wrap(err, "clear board data: cards")
	}
	return nil
}

// ResetBoard deletes every card, reaction, and session on a board,
// returning it to the state it was in immediately after creation. The
// board itself, its columns, and its admin list are untouched.
func (s *Service) ResetBoard(boardID, secret string) error {
	if err := s.authenticate(secret); err != nil {
		return err
	}
	if err := s.ClearBoardData(boardID, secret); err != nil {
		return err
	}
	if err := s.store.DeleteAllSessionsForBoard(boardID); err != nil {
		return apperr.Wrap(err, "reset board: sessions")
	}
	return nil
}

// SeedCard is one card to create via SeedBoard.
type SeedCard struct {
	ColumnID      string
	Content       string
	CardType      store.CardType
	CreatedByHash string
}

// SeedBoard inserts a batch of cards directly, bypassing quota
// enforcement and the normal mutation path — intended for demo and test
// fixture setup, not for ordinary use.
func (s *Service) SeedBoard(boardID, secret string, cards []SeedCard) error {
	if err := s.authenticate(secret); err != nil {
		return err
	}
	board, err := s.store.GetBoard(boardID)
	if err != nil {
		return apperr.Wrap(err, "seed board")
	}
	if board == nil {
		return apperr.NotFoundf(apperr.SubBoard, "board %s not found", boardID)
	}

	now := s.clock.Now()
	for _, sc := range cards {
		c := &store.Card{
			ID:            idgen.New(),
			BoardID:       boardID,
			ColumnID:      sc.ColumnID,
			Content:       sc.Content,
			CardType:      sc.CardType,
			CreatedByHash: sc.CreatedByHash,
			CreatedAt:     now,
		}
		if err := s.store.InsertCard(c); err != nil {
			return apperr.Wrap(err, "seed board: insert card")
		}
	}
	return nil
}
