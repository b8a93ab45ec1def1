// Package card implements the Card Service: card CRUD, move, hierarchical
// and linked relationships, and quota enforcement.
package card

import (
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/joestump/retroboard/internal/apperr"
	"github.com/joestump/retroboard/internal/clock"
	"github.com/joestump/retroboard/internal/gateway"
	"github.com/joestump/retroboard/internal/idgen"
	"github.com/joestump/retroboard/internal/store"
)

const (
	maxContentLength = 2000
	maxAncestorHops  = 64 // defensive bound on the parent-chain cycle walk
)

// Service implements card operations.
type Service struct {
	store            *store.Store
	clock            clock.Clock
	broadcaster      gateway.Broadcaster
	defaultCardLimit int
}

// New builds a Service. defaultCardLimit (0 means unlimited) applies when
// a board doesn't set its own CardLimit.
func New(st *store.Store, clk clock.Clock, b gateway.Broadcaster, defaultCardLimit int) *Service {
	return &Service{store: st, clock: clk, broadcaster: b, defaultCardLimit: defaultCardLimit}
}

// CreateCardInput is the input to CreateCard.
type CreateCardInput struct {
	ColumnID    string
	Content     string
	CardType    store.CardType
	IsAnonymous bool
	Alias       string
}

func (s *Service) requireActiveBoard(boardID string) (*store.Board, error) {
	b, err := s.store.GetBoard(boardID)
	if err != nil {
		return nil, apperr.Wrap(err, "load board")
	}
	if b == nil {
		return nil, apperr.NotFoundf(apperr.SubBoard, "board %s not found", boardID)
	}
	if b.State != store.BoardActive {
		return nil, apperr.Conflictf(apperr.SubBoardClosed, "board is closed")
	}
	return b, nil
}

// CheckCardQuota reports the board's effective feedback-card limit for
// identityHash and how many it has already created. limit of 0 means
// unlimited.
func (s *Service) CheckCardQuota(board *store.Board, identityHash string) (current, limit int, err error) {
	limit = s.defaultCardLimit
	if board.CardLimit != nil {
		limit = *board.CardLimit
	}
	current, err = s.store.CountFeedbackCardsByCreator(board.ID, identityHash)
	if err != nil {
		return 0, 0, apperr.Wrap(err, "check card quota")
	}
	return current, limit, nil
}

// CreateCard creates a new card on an active board. Feedback cards are
// subject to the board's (or the default) per-identity card limit; action
// cards are not.
func (s *Service) CreateCard(boardID string, input CreateCardInput, identityHash string) (*store.Card, error) {
	if identityHash == "" {
		return nil, apperr.New(apperr.Unauthenticated, "identity required")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperr.New(apperr.Validation, "content must not be empty").WithSub(apperr.SubCard)
	}
	if len(content) > maxContentLength {
		return nil, apperr.New(apperr.Validation, "content exceeds %d characters", maxContentLength).WithSub(apperr.SubCard)
	}

	board, err := s.requireActiveBoard(boardID)
	if err != nil {
		return nil, err
	}
	exists, err := s.store.ColumnExists(boardID, input.ColumnID)
	if err != nil {
		return nil, apperr.Wrap(err, "create card: column exists")
	}
	if !exists {
		return nil, apperr.NotFoundf(apperr.SubColumn, "column %s not found", input.ColumnID)
	}

	if input.CardType == store.CardFeedback {
		current, limit, err := s.CheckCardQuota(board, identityHash)
		if err != nil {
			return nil, err
		}
		if limit > 0 && current >= limit {
			return nil, apperr.LimitExceededf(apperr.SubCardLimit, current, limit)
		}
	}

	c := &store.Card{
		ID:            idgen.New(),
		BoardID:       boardID,
		ColumnID:      input.ColumnID,
		Content:       content,
		CardType:      input.CardType,
		IsAnonymous:   input.IsAnonymous,
		CreatedByHash: identityHash,
		CreatedAt:     s.clock.Now(),
	}
	if !input.IsAnonymous && input.Alias != "" {
		alias := input.Alias
		c.CreatedByAlias = &alias
	}

	if err := s.store.InsertCard(c); err != nil {
		return nil, apperr.Wrap(err, "create card")
	}

	s.broadcaster.CardCreated(boardID, gateway.CardCreatedData{BoardID: boardID, Card: *c})
	return c, nil
}

// UpdateCard updates a card's content. Only the card's creator may do
// this, and only while the board is active.
func (s *Service) UpdateCard(boardID, cardID, content, identityHash string) (*store.Card, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.New(apperr.Validation, "content must not be empty").WithSub(apperr.SubCard)
	}
	if len(content) > maxContentLength {
		return nil, apperr.New(apperr.Validation, "content exceeds %d characters", maxContentLength).WithSub(apperr.SubCard)
	}

	res, err := s.store.UpdateCardContent(cardID, content, identityHash)
	if err != nil {
		return nil, apperr.Wrap(err, "update card")
	}
	if res.Matched == 0 {
		if err := s.classifyCardWrite(boardID, cardID, identityHash); err != nil {
			return nil, err
		}
	}

	c, err := s.store.GetCard(cardID)
	if err != nil {
		return nil, apperr.Wrap(err, "update card: reload")
	}
	s.broadcaster.CardUpdated(boardID, gateway.CardUpdatedData{BoardID: boardID, Card: *c})
	return c, nil
}

// MoveCard moves a card to a different column. Only the card's creator
// may do this, and only while the board is active.
func (s *Service) MoveCard(boardID, cardID, columnID, identityHash string) error {
	exists, err := s.store.ColumnExists(boardID, columnID)
	if err != nil {
		return apperr.Wrap(err, "move card: column exists")
	}
	if !exists {
		return apperr.NotFoundf(apperr.SubColumn, "column %s not found", columnID)
	}

	res, err := s.store.UpdateCardColumn(cardID, columnID, identityHash)
	if err != nil {
		return apperr.Wrap(err, "move card")
	}
	if res.Matched == 0 {
		if err := s.classifyCardWrite(boardID, cardID, identityHash); err != nil {
			return err
		}
	}
	s.broadcaster.CardMoved(boardID, gateway.CardMovedData{BoardID: boardID, CardID: cardID, ColumnID: columnID})
	return nil
}

func (s *Service) classifyCardWrite(boardID, cardID, identityHash string) error {
	c, err := s.store.GetCard(cardID)
	if err != nil {
		return apperr.Wrap(err, "classify write: reload card")
	}
	if c == nil {
		return apperr.NotFoundf(apperr.SubCard, "card %s not found", cardID)
	}
	b, err := s.store.GetBoard(boardID)
	if err != nil {
		return apperr.Wrap(err, "classify write: reload board")
	}
	if b != nil && b.State != store.BoardActive {
		return apperr.Conflictf(apperr.SubBoardClosed, "board is closed")
	}
	return apperr.Forbiddenf("only the card's creator may modify it")
}

// wouldCycle walks newParentID's ancestor chain looking for cardID,
// reporting whether setting cardID's parent to newParentID would close a
// cycle.
func (s *Service) wouldCycle(cardID, newParentID string) (bool, error) {
	current := newParentID
	for hop := 0; hop < maxAncestorHops; hop++ {
		if current == cardID {
			return true, nil
		}
		c, err := s.store.GetCard(current)
		if err != nil {
			return false, apperr.Wrap(err, "cycle check")
		}
		if c == nil || c.ParentID == nil {
			return false, nil
		}
		current = *c.ParentID
	}
	return false, apperr.New(apperr.Internal, "cycle check: parent chain too deep")
}

// LinkCards establishes a relationship between two cards on the same
// board. For LinkParentOf, sourceID becomes a child of targetID (the
// action/grouping card). For LinkLinkedTo, sourceID is treated as the
// action card and targetID as the feedback card it references.
func (s *Service) LinkCards(boardID, sourceID, targetID string, kind store.LinkKind, identityHash string) error {
	if sourceID == targetID {
		return apperr.New(apperr.Validation, "a card cannot be linked to itself").WithSub(apperr.SubCard)
	}
	source, err := s.store.GetCard(sourceID)
	if err != nil {
		return apperr.Wrap(err, "link cards: load source")
	}
	if source == nil || source.BoardID != boardID {
		return apperr.NotFoundf(apperr.SubCard, "card %s not found on this board", sourceID)
	}
	target, err := s.store.GetCard(targetID)
	if err != nil {
		return apperr.Wrap(err, "link cards: load target")
	}
	if target == nil || target.BoardID != boardID {
		return apperr.NotFoundf(apperr.SubCard, "card %s not found on this board", targetID)
	}

	switch kind {
	case store.LinkParentOf:
		cyclic, err := s.wouldCycle(sourceID, targetID)
		if err != nil {
			return err
		}
		if cyclic {
			return apperr.Conflictf(apperr.SubCircularRelationship, "linking would create a circular parent relationship")
		}
		if err := s.store.SetParent(sourceID, &targetID); err != nil {
			return apperr.Wrap(err, "link cards: set parent")
		}
		if err := s.store.AdjustAggregatedCount(targetID, source.AggregatedCount); err != nil {
			return apperr.Wrap(err, "link cards: adjust aggregated count")
		}
	case store.LinkLinkedTo:
		if err := s.store.AddLinkedFeedback(sourceID, targetID); err != nil {
			return apperr.Wrap(err, "link cards: add linked feedback")
		}
	default:
		return apperr.New(apperr.Validation, "unknown link kind %q", kind)
	}

	s.broadcaster.CardLinked(boardID, gateway.CardLinkedData{BoardID: boardID, SourceID: sourceID, TargetID: targetID, Kind: kind})
	return nil
}

// UnlinkCards removes a relationship previously established by LinkCards.
func (s *Service) UnlinkCards(boardID, sourceID, targetID string, kind store.LinkKind, identityHash string) error {
	switch kind {
	case store.LinkParentOf:
		source, err := s.store.GetCard(sourceID)
		if err != nil {
			return apperr.Wrap(err, "unlink cards: load source")
		}
		if source == nil || source.ParentID == nil || *source.ParentID != targetID {
			return apperr.NotFoundf(apperr.SubCard, "no parent relationship between these cards")
		}
		if err := s.store.SetParent(sourceID, nil); err != nil {
			return apperr.Wrap(err, "unlink cards: clear parent")
		}
		if err := s.store.AdjustAggregatedCount(targetID, -source.AggregatedCount); err != nil {
			return apperr.Wrap(err, "unlink cards: adjust aggregated count")
		}
	case store.LinkLinkedTo:
		target, err := s.store.GetCard(targetID)
		if err != nil {
			return apperr.Wrap(err, "unlink cards: load target")
		}
		if target == nil {
			return apperr.NotFoundf(apperr.SubCard, "card %s not found", targetID)
		}
		if err := s.store.RemoveLinkedFeedback(sourceID, targetID); err != nil {
			return apperr.Wrap(err, "unlink cards: remove linked feedback")
		}
	default:
		return apperr.New(apperr.Validation, "unknown link kind %q", kind)
	}

	s.broadcaster.CardUnlinked(boardID, gateway.CardUnlinkedData{BoardID: boardID, SourceID: sourceID, TargetID: targetID, Kind: kind})
	return nil
}

// CardView is a card joined with its directly-embedded relationships.
type CardView struct {
	store.Card
	Children            []store.Card
	LinkedFeedbackCards []store.Card
}

// GetCard retrieves a single card with its direct children and linked
// feedback cards embedded. The two lookups are independent multi-key
// joins and run concurrently.
func (s *Service) GetCard(cardID string) (*CardView, error) {
	c, err := s.store.GetCard(cardID)
	if err != nil {
		return nil, apperr.Wrap(err, "get card")
	}
	if c == nil {
		return nil, apperr.NotFoundf(apperr.SubCard, "card %s not found", cardID)
	}

	var childrenByParent map[string][]store.Card
	var linkedCards map[string]store.Card
	var g errgroup.Group
	g.Go(func() error {
		var err error
		childrenByParent, err = s.store.ChildrenByParents([]string{cardID})
		return err
	})
	g.Go(func() error {
		var err error
		linkedCards, err = s.store.CardsByIDs(c.LinkedFeedbackIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Wrap(err, "get card: hydrate relationships")
	}

	view := &CardView{Card: *c, Children: childrenByParent[cardID]}
	for _, id := range c.LinkedFeedbackIDs {
		if lc, ok := linkedCards[id]; ok {
			view.LinkedFeedbackCards = append(view.LinkedFeedbackCards, lc)
		}
	}
	return view, nil
}

// CardListView is the result of ListCards: every card on the board, each
// hydrated with its direct relationships, plus summary counts.
type CardListView struct {
	Cards         []CardView
	TotalCount    int
	CardsByColumn map[string]int
}

// ListCards returns every card on a board, hydrated with children and
// linked feedback cards. The children-by-parent and linked-feedback-by-id
// lookups are independent multi-key joins and run concurrently.
func (s *Service) ListCards(boardID string) (*CardListView, error) {
	cards, err := s.store.ListCardsByBoard(boardID)
	if err != nil {
		return nil, apperr.Wrap(err, "list cards")
	}

	ids := make([]string, len(cards))
	var linkedIDs []string
	for i, c := range cards {
		ids[i] = c.ID
		linkedIDs = append(linkedIDs, c.LinkedFeedbackIDs...)
	}

	var childrenByParent map[string][]store.Card
	var linkedCards map[string]store.Card
	var g errgroup.Group
	g.Go(func() error {
		var err error
		childrenByParent, err = s.store.ChildrenByParents(ids)
		return err
	})
	g.Go(func() error {
		var err error
		linkedCards, err = s.store.CardsByIDs(linkedIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Wrap(err, "list cards: hydrate relationships")
	}

	byColumn := make(map[string]int)
	views := make([]CardView, len(cards))
	for i, c := range cards {
		byColumn[c.ColumnID]++
		view := CardView{Card: c, Children: childrenByParent[c.ID]}
		for _, id := range c.LinkedFeedbackIDs {
			if lc, ok := linkedCards[id]; ok {
				view.LinkedFeedbackCards = append(view.LinkedFeedbackCards, lc)
			}
		}
		views[i] = view
	}

	return &CardListView{Cards: views, TotalCount: len(cards), CardsByColumn: byColumn}, nil
}

// DeleteCard deletes a card, orphaning its children, removing its
// reactions, and unwinding its contribution to its parent's aggregated
// count. Only the card's creator may delete it. Every step is attempted
// even if an earlier one fails; the first error encountered is returned.
func (s *Service) DeleteCard(boardID, cardID, identityHash string) error {
	c, err := s.store.GetCard(cardID)
	if err != nil {
		return apperr.Wrap(err, "delete card")
	}
	if c == nil {
		return apperr.NotFoundf(apperr.SubCard, "card %s not found", cardID)
	}
	if c.CreatedByHash != identityHash {
		return apperr.Forbiddenf("only the card's creator may delete it")
	}

	var firstErr error
	note := func(step string, err error) {
		if err != nil && firstErr == nil {
			firstErr = apperr.Wrap(err, "delete card: %s", step)
		}
	}

	if _, err := s.store.OrphanChildren(cardID); err != nil {
		note("orphan children", err)
	}
	if c.ParentID != nil {
		note("adjust parent aggregated count", s.store.AdjustAggregatedCount(*c.ParentID, -c.AggregatedCount))
	}
	if _, err := s.store.DeleteAllForCard(cardID); err != nil {
		note("delete reactions", err)
	}
	if err := s.store.DeleteCard(cardID); err != nil {
		note("delete card row", err)
	}

	if firstErr != nil {
		return firstErr
	}

	s.broadcaster.CardDeleted(boardID, gateway.CardDeletedData{BoardID: boardID, CardID: cardID})
	return nil
}
