// Package presence implements the Presence Service: session join,
// heartbeat, alias changes, and the sliding-window active-user view.
package presence

import (
	"regexp"
	"strings"
	"time"

	"github.com/joestump/retroboard/internal/apperr"
	"github.com/joestump/retroboard/internal/clock"
	"github.com/joestump/retroboard/internal/gateway"
	"github.com/joestump/retroboard/internal/store"
)

const (
	maxAliasLength = 50
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9 _-]+$`)

// Service implements presence operations.
type Service struct {
	store                 *store.Store
	clock                 clock.Clock
	broadcaster           gateway.Broadcaster
	presenceWindowSeconds int
}

// New builds a Service. presenceWindowSeconds is the sliding window (§5)
// within which a session counts as active.
func New(st *store.Store, clk clock.Clock, b gateway.Broadcaster, presenceWindowSeconds int) *Service {
	return &Service{store: st, clock: clk, broadcaster: b, presenceWindowSeconds: presenceWindowSeconds}
}

func (s *Service) since() time.Time {
	return s.clock.Now().Add(-time.Duration(s.presenceWindowSeconds) * time.Second)
}

// Join creates or refreshes identityHash's session on boardID under
// alias, and broadcasts user:joined the first time a session is created.
func (s *Service) Join(boardID, identityHash, alias string) error {
	if identityHash == "" {
		return apperr.New(apperr.Unauthenticated, "identity required")
	}
	alias = trimAlias(alias)
	if err := validateAlias(alias); err != nil {
		return err
	}

	board, err := s.store.GetBoard(boardID)
	if err != nil {
		return apperr.Wrap(err, "join: load board")
	}
	if board == nil {
		return apperr.NotFoundf(apperr.SubBoard, "board %s not found", boardID)
	}

	existing, err := s.store.GetSession(boardID, identityHash)
	if err != nil {
		return apperr.Wrap(err, "join: check existing session")
	}

	now := s.clock.Now()
	if err := s.store.UpsertSession(boardID, identityHash, alias, now); err != nil {
		return apperr.Wrap(err, "join")
	}

	if existing == nil {
		isAdmin, err := s.store.IsAdmin(boardID, identityHash)
		if err != nil {
			return apperr.Wrap(err, "join: check admin")
		}
		s.broadcaster.UserJoined(boardID, gateway.UserJoinedData{BoardID: boardID, Alias: alias, IsAdmin: isAdmin})
	}
	return nil
}

// Heartbeat refreshes identityHash's last-active timestamp on boardID. If
// no session exists nothing is written and a NotFound error is returned
// (the caller should Join first).
func (s *Service) Heartbeat(boardID, identityHash string) error {
	ok, err := s.store.Heartbeat(boardID, identityHash, s.clock.Now())
	if err != nil {
		return apperr.Wrap(err, "heartbeat")
	}
	if !ok {
		return apperr.NotFoundf(apperr.SubUser, "no active session to heartbeat")
	}
	return nil
}

// UpdateAlias changes identityHash's displayed alias on boardID.
func (s *Service) UpdateAlias(boardID, identityHash, newAlias string) error {
	newAlias = trimAlias(newAlias)
	if err := validateAlias(newAlias); err != nil {
		return err
	}

	oldAlias, ok, err := s.store.UpdateAlias(boardID, identityHash, newAlias, s.clock.Now())
	if err != nil {
		return apperr.Wrap(err, "update alias")
	}
	if !ok {
		return apperr.NotFoundf(apperr.SubUser, "no active session for this identity")
	}

	s.broadcaster.UserAliasChanged(boardID, gateway.UserAliasChangedData{BoardID: boardID, OldAlias: oldAlias, NewAlias: newAlias})
	return nil
}

// ActiveUser is a session inside the presence window, annotated with
// whether that identity is a board admin.
type ActiveUser struct {
	store.Session
	IsAdmin bool
}

// ActiveUsers returns every session on boardID within the presence
// window. The admin set is loaded once per call rather than once per
// participant.
func (s *Service) ActiveUsers(boardID string) ([]ActiveUser, error) {
	board, err := s.store.GetBoard(boardID)
	if err != nil {
		return nil, apperr.Wrap(err, "active users: load board")
	}
	if board == nil {
		return nil, apperr.NotFoundf(apperr.SubBoard, "board %s not found", boardID)
	}

	sessions, err := s.store.ActiveSessions(boardID, s.since())
	if err != nil {
		return nil, apperr.Wrap(err, "active users")
	}

	admins := make(map[string]bool, len(board.Admins))
	for _, a := range board.Admins {
		admins[a] = true
	}

	users := make([]ActiveUser, len(sessions))
	for i, sess := range sessions {
		users[i] = ActiveUser{Session: sess, IsAdmin: admins[sess.IdentityHash]}
	}
	return users, nil
}

func trimAlias(alias string) string {
	return strings.TrimSpace(alias)
}

// validateAlias enforces the alias contract: 1-50 characters drawn from
// letters, digits, spaces, underscores, and hyphens.
func validateAlias(alias string) error {
	if alias == "" {
		return apperr.New(apperr.Validation, "alias must not be empty").WithSub(apperr.SubUser)
	}
	if len(alias) > maxAliasLength {
		return apperr.New(apperr.Validation, "alias must be at most %d characters", maxAliasLength).WithSub(apperr.SubUser)
	}
	if !aliasPattern.MatchString(alias) {
		return apperr.New(apperr.Validation, "alias may only contain letters, digits, spaces, underscores, and hyphens").WithSub(apperr.SubUser)
	}
	return nil
}
