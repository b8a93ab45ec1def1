// Package reaction implements the Reaction Service: per-(card, identity)
// reactions with per-board quota enforcement and counter propagation.
package reaction

import (
	"github.com/joestump/retroboard/internal/apperr"
	"github.com/joestump/retroboard/internal/clock"
	"github.com/joestump/retroboard/internal/gateway"
	"github.com/joestump/retroboard/internal/idgen"
	"github.com/joestump/retroboard/internal/store"
)

// Service implements reaction operations.
type Service struct {
	store                *store.Store
	clock                clock.Clock
	broadcaster          gateway.Broadcaster
	defaultReactionLimit int
}

// New builds a Service. defaultReactionLimit (0 means unlimited) applies
// when a board doesn't set its own ReactionLimit.
func New(st *store.Store, clk clock.Clock, b gateway.Broadcaster, defaultReactionLimit int) *Service {
	return &Service{store: st, clock: clk, broadcaster: b, defaultReactionLimit: defaultReactionLimit}
}

// CheckReactionQuota reports the board's effective per-identity reaction
// limit and how many the identity has already placed, across the whole
// board (not per card).
func (s *Service) CheckReactionQuota(board *store.Board, identityHash string) (current, limit int, err error) {
	limit = s.defaultReactionLimit
	if board.ReactionLimit != nil {
		limit = *board.ReactionLimit
	}
	current, err = s.store.CountByIdentityOnBoard(board.ID, identityHash)
	if err != nil {
		return 0, 0, apperr.Wrap(err, "check reaction quota")
	}
	return current, limit, nil
}

// AddReaction places or replaces identityHash's reaction on cardID.
// Replacing an existing reaction's kind doesn't count against the quota
// again; only a genuinely new reaction does, and only a genuinely new
// reaction adjusts the card's (and its parent's) counts.
func (s *Service) AddReaction(boardID, cardID, kind, alias, identityHash string) (*store.Reaction, error) {
	if identityHash == "" {
		return nil, apperr.New(apperr.Unauthenticated, "identity required")
	}
	if kind == "" {
		return nil, apperr.New(apperr.Validation, "reaction kind must not be empty").WithSub(apperr.SubReaction)
	}

	board, err := s.store.GetBoard(boardID)
	if err != nil {
		return nil, apperr.Wrap(err, "add reaction: load board")
	}
	if board == nil {
		return nil, apperr.NotFoundf(apperr.SubBoard, "board %s not found", boardID)
	}
	if board.State != store.BoardActive {
		return nil, apperr.Conflictf(apperr.SubBoardClosed, "board is closed")
	}

	card, err := s.store.GetCard(cardID)
	if err != nil {
		return nil, apperr.Wrap(err, "add reaction: load card")
	}
	if card == nil || card.BoardID != boardID {
		return nil, apperr.NotFoundf(apperr.SubCard, "card %s not found on this board", cardID)
	}

	existing, err := s.store.GetReaction(cardID, identityHash)
	if err != nil {
		return nil, apperr.Wrap(err, "add reaction: check existing")
	}
	if existing == nil {
		current, limit, err := s.CheckReactionQuota(board, identityHash)
		if err != nil {
			return nil, err
		}
		if limit > 0 && current >= limit {
			return nil, apperr.LimitExceededf(apperr.SubReactionLimit, current, limit)
		}
	}

	now := s.clock.Now()
	id := idgen.New()
	if existing != nil {
		id = existing.ID
	}
	wasInsert, err := s.store.UpsertReaction(id, cardID, identityHash, alias, kind, now)
	if err != nil {
		return nil, apperr.Wrap(err, "add reaction")
	}

	if wasInsert {
		if err := s.propagateDelta(cardID, 1); err != nil {
			return nil, err
		}
	}

	r, err := s.store.GetReaction(cardID, identityHash)
	if err != nil {
		return nil, apperr.Wrap(err, "add reaction: reload")
	}
	s.broadcaster.ReactionAdded(boardID, gateway.ReactionAddedData{BoardID: boardID, CardID: cardID, Reaction: *r})
	return r, nil
}

// RemoveReaction removes identityHash's reaction on cardID, or returns a
// NotFound error if there is none.
func (s *Service) RemoveReaction(boardID, cardID, identityHash string) error {
	existed, err := s.store.DeleteReaction(cardID, identityHash)
	if err != nil {
		return apperr.Wrap(err, "remove reaction")
	}
	if !existed {
		return apperr.NotFoundf(apperr.SubReaction, "no reaction to remove")
	}

	if err := s.propagateDelta(cardID, -1); err != nil {
		return err
	}

	s.broadcaster.ReactionRemoved(boardID, gateway.ReactionRemovedData{BoardID: boardID, CardID: cardID, IdentityHash: identityHash})
	return nil
}

// propagateDelta adjusts cardID's own direct/aggregated counts by delta
// and rolls the same delta up one level to its parent's aggregated
// count, if any. Linked feedback (linked_to) never participates in
// aggregation; linked_feedback_ids is a reference list only.
func (s *Service) propagateDelta(cardID string, delta int) error {
	if err := s.store.AdjustDirectCount(cardID, delta); err != nil {
		return apperr.Wrap(err, "propagate reaction: direct count")
	}
	if err := s.store.AdjustAggregatedCount(cardID, delta); err != nil {
		return apperr.Wrap(err, "propagate reaction: aggregated count")
	}

	c, err := s.store.GetCard(cardID)
	if err != nil {
		return apperr.Wrap(err, "propagate reaction: reload card")
	}
	if c == nil {
		return nil
	}
	if c.ParentID != nil {
		if err := s.store.AdjustAggregatedCount(*c.ParentID, delta); err != nil {
			return apperr.Wrap(err, "propagate reaction: parent aggregated count")
		}
	}
	return nil
}
