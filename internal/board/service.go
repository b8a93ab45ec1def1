// Package board implements the Board Service: board lifecycle, column
// renaming, admin management, and cascade delete.
package board

import (
	"log"
	"strings"
	"time"

	"github.com/joestump/retroboard/internal/apperr"
	"github.com/joestump/retroboard/internal/clock"
	"github.com/joestump/retroboard/internal/gateway"
	"github.com/joestump/retroboard/internal/idgen"
	"github.com/joestump/retroboard/internal/store"
)

const (
	maxNameLength    = 200
	maxColumnName    = 100
	minColumns       = 1
	maxColumns       = 10
	defaultLinkLen   = 12
	defaultLinkTries = 5
)

// Service implements the board lifecycle operations.
type Service struct {
	store       *store.Store
	clock       clock.Clock
	broadcaster gateway.Broadcaster
	linkLength  int
	linkRetries int
}

// New builds a Service. linkLength and linkRetries are read from
// configuration (ShareableLinkLength, ShareableLinkRetryCount); a
// non-positive value falls back to the package defaults.
func New(st *store.Store, clk clock.Clock, b gateway.Broadcaster, linkLength, linkRetries int) *Service {
	if linkLength <= 0 {
		linkLength = defaultLinkLen
	}
	if linkRetries <= 0 {
		linkRetries = defaultLinkTries
	}
	return &Service{store: st, clock: clk, broadcaster: b, linkLength: linkLength, linkRetries: linkRetries}
}

// ColumnInput is one column supplied at board creation time.
type ColumnInput struct {
	ID    string
	Name  string
	Color *string
}

// CreateBoardInput is the input to CreateBoard.
type CreateBoardInput struct {
	Name          string
	Columns       []ColumnInput
	CardLimit     *int
	ReactionLimit *int
}

func validateName(name string, max int, sub string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.New(apperr.Validation, "name must not be empty").WithSub(sub)
	}
	if len(name) > max {
		return apperr.New(apperr.Validation, "name exceeds %d characters", max).WithSub(sub)
	}
	return nil
}

// CreateBoard creates a new board with the given columns, owned by
// identityHash (who becomes the sole initial admin and creator).
func (s *Service) CreateBoard(input CreateBoardInput, identityHash string) (*store.Board, error) {
	if identityHash == "" {
		return nil, apperr.New(apperr.Unauthenticated, "identity required")
	}
	if err := validateName(input.Name, maxNameLength, apperr.SubBoard); err != nil {
		return nil, err
	}
	if len(input.Columns) < minColumns || len(input.Columns) > maxColumns {
		return nil, apperr.New(apperr.Validation, "a board must have between %d and %d columns", minColumns, maxColumns).WithSub(apperr.SubColumn)
	}
	seen := make(map[string]bool, len(input.Columns))
	columns := make([]store.Column, 0, len(input.Columns))
	for _, c := range input.Columns {
		if c.ID == "" {
			return nil, apperr.New(apperr.Validation, "column id must not be empty").WithSub(apperr.SubColumn)
		}
		if seen[c.ID] {
			return nil, apperr.New(apperr.Validation, "duplicate column id %q", c.ID).WithSub(apperr.SubColumn)
		}
		seen[c.ID] = true
		if err := validateName(c.Name, maxColumnName, apperr.SubColumn); err != nil {
			return nil, err
		}
		columns = append(columns, store.Column{ID: c.ID, Name: strings.TrimSpace(c.Name), Color: c.Color})
	}

	now := s.clock.Now()
	b := &store.Board{
		ID:            idgen.New(),
		Name:          strings.TrimSpace(input.Name),
		Columns:       columns,
		Admins:        []string{identityHash},
		State:         store.BoardActive,
		CardLimit:     input.CardLimit,
		ReactionLimit: input.ReactionLimit,
		CreatorHash:   identityHash,
		CreatedAt:     now,
	}

	var lastErr error
	for attempt := 0; attempt < s.linkRetries; attempt++ {
		b.ShareableLink = idgen.ShareableLink(s.linkLength)
		err := s.store.InsertBoard(b)
		if err == nil {
			return b, nil
		}
		if store.IsDuplicateShareableLink(err) {
			lastErr = err
			continue
		}
		return nil, apperr.Wrap(err, "create board")
	}
	return nil, apperr.Wrap(lastErr, "create board: exhausted %d shareable link attempts", s.linkRetries)
}

// Participant pairs an active session with whether that identity is a
// board admin.
type Participant struct {
	store.Session
	IsAdmin bool
}

// BoardView is a board joined with its currently-active participants.
type BoardView struct {
	store.Board
	Participants []Participant
}

func (s *Service) view(b *store.Board, presenceWindowSeconds int) (*BoardView, error) {
	since := s.clock.Now().Add(-time.Duration(presenceWindowSeconds) * time.Second)
	sessions, err := s.store.ActiveSessions(b.ID, since)
	if err != nil {
		return nil, apperr.Wrap(err, "load active sessions")
	}
	admins := make(map[string]bool, len(b.Admins))
	for _, a := range b.Admins {
		admins[a] = true
	}
	participants := make([]Participant, 0, len(sessions))
	for _, sess := range sessions {
		participants = append(participants, Participant{Session: sess, IsAdmin: admins[sess.IdentityHash]})
	}
	return &BoardView{Board: *b, Participants: participants}, nil
}

// GetBoard returns the board and its active participants, or a NotFound
// error if it doesn't exist.
func (s *Service) GetBoard(boardID string, presenceWindowSeconds int) (*BoardView, error) {
	b, err := s.store.GetBoard(boardID)
	if err != nil {
		return nil, apperr.Wrap(err, "get board")
	}
	if b == nil {
		return nil, apperr.NotFoundf(apperr.SubBoard, "board %s not found", boardID)
	}
	return s.view(b, presenceWindowSeconds)
}

// GetBoardByLink resolves a board by its shareable link.
func (s *Service) GetBoardByLink(link string, presenceWindowSeconds int) (*BoardView, error) {
	b, err := s.store.GetBoardByLink(link)
	if err != nil {
		return nil, apperr.Wrap(err, "get board by link")
	}
	if b == nil {
		return nil, apperr.NotFoundf(apperr.SubBoard, "no board for link %s", link)
	}
	return s.view(b, presenceWindowSeconds)
}

// RenameBoard renames an active board. identityHash must be one of the
// board's admins.
func (s *Service) RenameBoard(boardID, name, identityHash string) error {
	if err := validateName(name, maxNameLength, apperr.SubBoard); err != nil {
		return err
	}
	res, err := s.store.RenameBoard(boardID, strings.TrimSpace(name), identityHash)
	if err != nil {
		return apperr.Wrap(err, "rename board")
	}
	if res.Matched == 0 {
		if err := s.classifyBoardWrite(boardID, identityHash); err != nil {
			return err
		}
	}
	s.broadcaster.BoardRenamed(boardID, gateway.BoardRenamedData{BoardID: boardID, Name: strings.TrimSpace(name)})
	return nil
}

// RenameColumn renames a column on an active board. identityHash must be
// one of the board's admins.
func (s *Service) RenameColumn(boardID, columnID, name, identityHash string) error {
	if err := validateName(name, maxColumnName, apperr.SubColumn); err != nil {
		return err
	}
	res, err := s.store.RenameColumn(boardID, columnID, strings.TrimSpace(name), identityHash)
	if err != nil {
		return apperr.Wrap(err, "rename column")
	}
	if res.Matched == 0 {
		if err := s.classifyColumnWrite(boardID, columnID, identityHash); err != nil {
			return err
		}
	}
	s.broadcaster.ColumnRenamed(boardID, gateway.ColumnRenamedData{BoardID: boardID, ColumnID: columnID, Name: strings.TrimSpace(name)})
	return nil
}

// CloseBoard transitions a board to closed. Closing an already-closed
// board is idempotent success. identityHash must be one of the board's
// admins.
func (s *Service) CloseBoard(boardID, identityHash string) error {
	now := s.clock.Now()
	res, err := s.store.CloseBoard(boardID, identityHash, now)
	if err != nil {
		return apperr.Wrap(err, "close board")
	}
	if res.Matched == 0 {
		b, err := s.store.GetBoard(boardID)
		if err != nil {
			return apperr.Wrap(err, "close board: re-read")
		}
		if b == nil {
			return apperr.NotFoundf(apperr.SubBoard, "board %s not found", boardID)
		}
		if b.State == store.BoardClosed {
			return nil // already closed: idempotent success
		}
		return apperr.Forbiddenf("identity is not a board admin")
	}
	s.broadcaster.BoardClosed(boardID, gateway.BoardClosedData{BoardID: boardID, ClosedAt: now})
	return nil
}

// AddAdmin grants admin status to target. Only the board's creator may
// call this, and target must currently hold an active session on the
// board.
func (s *Service) AddAdmin(boardID, target, identityHash string, presenceWindowSeconds int) error {
	since := s.clock.Now().Add(-time.Duration(presenceWindowSeconds) * time.Second)
	targetSession, err := s.store.GetSession(boardID, target)
	if err != nil {
		return apperr.Wrap(err, "add admin: load target session")
	}
	if targetSession == nil || targetSession.LastActive.Before(since) {
		return apperr.NotFoundf(apperr.SubUser, "target has no active session on this board")
	}

	res, err := s.store.AddAdmin(boardID, target, identityHash)
	if err != nil {
		return apperr.Wrap(err, "add admin")
	}
	if res.Matched == 0 {
		b, err := s.store.GetBoard(boardID)
		if err != nil {
			return apperr.Wrap(err, "add admin: re-read")
		}
		if b == nil {
			return apperr.NotFoundf(apperr.SubBoard, "board %s not found", boardID)
		}
		return apperr.Forbiddenf("only the board creator may add admins")
	}
	return nil
}

// DeleteBoard permanently deletes a board and every card, reaction, and
// session belonging to it. Only the creator may delete unless
// adminSecretAuthorized is true (the administrative back channel bypasses
// the creator check).
//
// Cascade order is reactions -> cards -> sessions -> board itself, per the
// dependency the reactions-delete query has on the cards still existing.
// Every step is attempted even if an earlier one fails; the first error
// encountered is returned to the caller, who must treat the board as
// possibly partially deleted.
func (s *Service) DeleteBoard(boardID, identityHash string, adminSecretAuthorized bool) error {
	b, err := s.store.GetBoard(boardID)
	if err != nil {
		return apperr.Wrap(err, "delete board")
	}
	if b == nil {
		return apperr.NotFoundf(apperr.SubBoard, "board %s not found", boardID)
	}
	if !adminSecretAuthorized && identityHash != b.CreatorHash {
		return apperr.Forbiddenf("only the board creator may delete this board")
	}

	var firstErr error
	note := func(step string, err error) {
		if err == nil {
			return
		}
		log.Printf("delete board %s: %s step failed: %v", boardID, step, err)
		if firstErr == nil {
			firstErr = apperr.Wrap(err, "delete board: %s", step)
		}
	}

	note("reactions", s.store.DeleteAllForBoardCards(boardID))
	note("cards", s.store.DeleteAllForBoard(boardID))
	note("sessions", s.store.DeleteAllSessionsForBoard(boardID))
	note("board row", s.store.DeleteBoard(boardID))

	if firstErr != nil {
		return firstErr
	}

	s.broadcaster.BoardDeleted(boardID, gateway.BoardDeletedData{BoardID: boardID})
	return nil
}

func (s *Service) classifyBoardWrite(boardID, identityHash string) error {
	b, err := s.store.GetBoard(boardID)
	if err != nil {
		return apperr.Wrap(err, "classify write: re-read board")
	}
	if b == nil {
		return apperr.NotFoundf(apperr.SubBoard, "board %s not found", boardID)
	}
	if b.State != store.BoardActive {
		return apperr.Conflictf(apperr.SubBoardClosed, "board is closed")
	}
	return apperr.Forbiddenf("identity is not a board admin")
}

func (s *Service) classifyColumnWrite(boardID, columnID, identityHash string) error {
	b, err := s.store.GetBoard(boardID)
	if err != nil {
		return apperr.Wrap(err, "classify write: re-read board")
	}
	if b == nil {
		return apperr.NotFoundf(apperr.SubBoard, "board %s not found", boardID)
	}
	exists, err := s.store.ColumnExists(boardID, columnID)
	if err != nil {
		return apperr.Wrap(err, "classify write: column exists")
	}
	if !exists {
		return apperr.NotFoundf(apperr.SubColumn, "column %s not found", columnID)
	}
	if b.State != store.BoardActive {
		return apperr.Conflictf(apperr.SubBoardClosed, "board is closed")
	}
	return apperr.Forbiddenf("identity is not a board admin")
}
