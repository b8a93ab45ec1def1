package gateway

import (
	"time"

	"github.com/joestump/retroboard/internal/store"
)

// EventType names a server-to-client frame kind.
type EventType string

const (
	EventBoardRenamed     EventType = "board:renamed"
	EventColumnRenamed    EventType = "column:renamed"
	EventBoardClosed      EventType = "board:closed"
	EventBoardDeleted     EventType = "board:deleted"
	EventUserJoined       EventType = "user:joined"
	EventUserAliasChanged EventType = "user:alias_changed"
	EventCardCreated      EventType = "card:created"
	EventCardUpdated      EventType = "card:updated"
	EventCardDeleted      EventType = "card:deleted"
	EventCardMoved        EventType = "card:moved"
	EventCardLinked       EventType = "card:linked"
	EventCardUnlinked     EventType = "card:unlinked"
	EventReactionAdded    EventType = "reaction:added"
	EventReactionRemoved  EventType = "reaction:removed"
)

// Event is one frame sent to a subscriber: {type, data, timestamp} per the
// subscriber protocol.
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Payload shapes for each event. Kept flat and JSON-friendly since the
// wire envelope is a peripheral, external concern — these are just the
// Go-side data a subscriber receives.

type BoardRenamedData struct {
	BoardID string `json:"board_id"`
	Name    string `json:"name"`
}

type ColumnRenamedData struct {
	BoardID  string `json:"board_id"`
	ColumnID string `json:"column_id"`
	Name     string `json:"name"`
}

type BoardClosedData struct {
	BoardID  string    `json:"board_id"`
	ClosedAt time.Time `json:"closed_at"`
}

type BoardDeletedData struct {
	BoardID string `json:"board_id"`
}

type UserJoinedData struct {
	BoardID string `json:"board_id"`
	Alias   string `json:"alias"`
	IsAdmin bool   `json:"is_admin"`
}

type UserAliasChangedData struct {
	BoardID  string `json:"board_id"`
	OldAlias string `json:"old_alias"`
	NewAlias string `json:"new_alias"`
}

type CardCreatedData struct {
	BoardID string     `json:"board_id"`
	Card    store.Card `json:"card"`
}

type CardUpdatedData struct {
	BoardID string     `json:"board_id"`
	Card    store.Card `json:"card"`
}

type CardDeletedData struct {
	BoardID string `json:"board_id"`
	CardID  string `json:"card_id"`
}

type CardMovedData struct {
	BoardID  string `json:"board_id"`
	CardID   string `json:"card_id"`
	ColumnID string `json:"column_id"`
}

type CardLinkedData struct {
	BoardID  string         `json:"board_id"`
	SourceID string         `json:"source_id"`
	TargetID string         `json:"target_id"`
	Kind     store.LinkKind `json:"kind"`
}

type CardUnlinkedData struct {
	BoardID  string         `json:"board_id"`
	SourceID string         `json:"source_id"`
	TargetID string         `json:"target_id"`
	Kind     store.LinkKind `json:"kind"`
}

type ReactionAddedData struct {
	BoardID  string         `json:"board_id"`
	CardID   string         `json:"card_id"`
	Reaction store.Reaction `json:"reaction"`
}

type ReactionRemovedData struct {
	BoardID      string `json:"board_id"`
	CardID       string `json:"card_id"`
	IdentityHash string `json:"identity_hash"`
}

// Broadcaster is the narrow interface services hold: one method per event.
// A no-op implementation is used in unit tests; Gateway is used in
// production.
type Broadcaster interface {
	BoardRenamed(boardID string, data BoardRenamedData)
	ColumnRenamed(boardID string, data ColumnRenamedData)
	BoardClosed(boardID string, data BoardClosedData)
	BoardDeleted(boardID string, data BoardDeletedData)
	UserJoined(boardID string, data UserJoinedData)
	UserAliasChanged(boardID string, data UserAliasChangedData)
	CardCreated(boardID string, data CardCreatedData)
	CardUpdated(boardID string, data CardUpdatedData)
	CardDeleted(boardID string, data CardDeletedData)
	CardMoved(boardID string, data CardMovedData)
	CardLinked(boardID string, data CardLinkedData)
	CardUnlinked(boardID string, data CardUnlinkedData)
	ReactionAdded(boardID string, data ReactionAddedData)
	ReactionRemoved(boardID string, data ReactionRemovedData)
}

// NoopBroadcaster discards every event. Used by services in tests that
// don't care about fan-out.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BoardRenamed(string, BoardRenamedData)           {}
func (NoopBroadcaster) ColumnRenamed(string, ColumnRenamedData)         {}
func (NoopBroadcaster) BoardClosed(string, BoardClosedData)             {}
func (NoopBroadcaster) BoardDeleted(string, BoardDeletedData)           {}
func (NoopBroadcaster) UserJoined(string, UserJoinedData)               {}
func (NoopBroadcaster) UserAliasChanged(string, UserAliasChangedData)   {}
func (NoopBroadcaster) CardCreated(string, CardCreatedData)             {}
func (NoopBroadcaster) CardUpdated(string, CardUpdatedData)             {}
func (NoopBroadcaster) CardDeleted(string, CardDeletedData)             {}
func (NoopBroadcaster) CardMoved(string, CardMovedData)                 {}
func (NoopBroadcaster) CardLinked(string, CardLinkedData)               {}
func (NoopBroadcaster) CardUnlinked(string, CardUnlinkedData)           {}
func (NoopBroadcaster) ReactionAdded(string, ReactionAddedData)         {}
func (NoopBroadcaster) ReactionRemoved(string, ReactionRemovedData)     {}

// CapturingBroadcaster records every event it receives, in order. Used by
// service tests that need to assert fan-out happened without a live
// Gateway.
type CapturingBroadcaster struct {
	Events []Event
}

func (c *CapturingBroadcaster) record(boardID string, typ EventType, data any) {
	c.Events = append(c.Events, Event{Type: typ, Data: data, Timestamp: time.Now().UTC()})
	_ = boardID
}

func (c *CapturingBroadcaster) BoardRenamed(boardID string, d BoardRenamedData) {
	c.record(boardID, EventBoardRenamed, d)
}
func (c *CapturingBroadcaster) ColumnRenamed(boardID string, d ColumnRenamedData) {
	c.record(boardID, EventColumnRenamed, d)
}
func (c *CapturingBroadcaster) BoardClosed(boardID string, d BoardClosedData) {
	c.record(boardID, EventBoardClosed, d)
}
func (c *CapturingBroadcaster) BoardDeleted(boardID string, d BoardDeletedData) {
	c.record(boardID, EventBoardDeleted, d)
}
func (c *CapturingBroadcaster) UserJoined(boardID string, d UserJoinedData) {
	c.record(boardID, EventUserJoined, d)
}
func (c *CapturingBroadcaster) UserAliasChanged(boardID string, d UserAliasChangedData) {
	c.record(boardID, EventUserAliasChanged, d)
}
func (c *CapturingBroadcaster) CardCreated(boardID string, d CardCreatedData) {
	c.record(boardID, EventCardCreated, d)
}
func (c *CapturingBroadcaster) CardUpdated(boardID string, d CardUpdatedData) {
	c.record(boardID, EventCardUpdated, d)
}
func (c *CapturingBroadcaster) CardDeleted(boardID string, d CardDeletedData) {
	c.record(boardID, EventCardDeleted, d)
}
func (c *CapturingBroadcaster) CardMoved(boardID string, d CardMovedData) {
	c.record(boardID, EventCardMoved, d)
}
func (c *CapturingBroadcaster) CardLinked(boardID string, d CardLinkedData) {
	c.record(boardID, EventCardLinked, d)
}
func (c *CapturingBroadcaster) CardUnlinked(boardID string, d CardUnlinkedData) {
	c.record(boardID, EventCardUnlinked, d)
}
func (c *CapturingBroadcaster) ReactionAdded(boardID string, d ReactionAddedData) {
	c.record(boardID, EventReactionAdded, d)
}
func (c *CapturingBroadcaster) ReactionRemoved(boardID string, d ReactionRemovedData) {
	c.record(boardID, EventReactionRemoved, d)
}
