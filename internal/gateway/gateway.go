// Package gateway implements the room-scoped real-time fan-out plane: the
// Event Broadcaster and Subscription Gateway components. It generalizes
// the session-output fan-out pattern used elsewhere in this codebase's
// lineage (one room per id, a bounded per-subscriber channel, a
// non-blocking send so a slow consumer can't stall the others) from a
// single growing transcript to per-board domain events with no replay.
package gateway

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultSendQueueCapacity = 256

// subscriber holds the state the Gateway tracks for one connected client.
type subscriber struct {
	id           string
	identityHash string
	ch           chan Event
	currentBoard string // "" if not joined to a board
	closed       bool
}

// Gateway fans out domain events to every subscriber currently joined to
// the event's board. Room membership is a flat map keyed by board id;
// subscribers hold no references to domain entities and domain entities
// hold no references to subscribers.
type Gateway struct {
	mu               sync.Mutex
	rooms            map[string]map[string]*subscriber // boardID -> subscriberID -> subscriber
	subscribers      map[string]*subscriber             // subscriberID -> subscriber
	sendQueueCapacity int
}

// New creates a Gateway ready for use.
func New() *Gateway {
	return &Gateway{
		rooms:             make(map[string]map[string]*subscriber),
		subscribers:       make(map[string]*subscriber),
		sendQueueCapacity: defaultSendQueueCapacity,
	}
}

// WithSendQueueCapacity overrides the per-subscriber bounded queue size
// (SubscriberSendQueueCapacity in configuration). Call before any
// Subscribe.
func (g *Gateway) WithSendQueueCapacity(n int) *Gateway {
	if n > 0 {
		g.sendQueueCapacity = n
	}
	return g
}

// SubscriberHandle is returned by Subscribe. It lets the caller drive the
// subscriber's commands (JoinBoard, LeaveBoard, Heartbeat, Close) and read
// the event stream via Events().
type SubscriberHandle struct {
	gateway *Gateway
	id      string
}

// Events returns the channel of events destined for this subscriber. It is
// closed when the handle is Closed.
func (h *SubscriberHandle) Events() <-chan Event {
	h.gateway.mu.Lock()
	defer h.gateway.mu.Unlock()
	sub, ok := h.gateway.subscribers[h.id]
	if !ok {
		closed := make(chan Event)
		close(closed)
		return closed
	}
	return sub.ch
}

// Subscribe registers a new subscriber authenticated as identityHash. An
// empty identityHash is refused — the gateway requires the same identity
// resolution the mutation path uses.
func (g *Gateway) Subscribe(identityHash string) (*SubscriberHandle, bool) {
	if identityHash == "" {
		return nil, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	id := uuid.NewString()
	sub := &subscriber{
		id:           id,
		identityHash: identityHash,
		ch:           make(chan Event, g.sendQueueCapacity),
	}
	g.subscribers[id] = sub
	return &SubscriberHandle{gateway: g, id: id}, true
}

// JoinBoard validates boardID's shape-independent non-emptiness, moves the
// subscriber out of any prior room, and adds it to the target room.
func (h *SubscriberHandle) JoinBoard(boardID string) bool {
	if boardID == "" {
		return false
	}
	g := h.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	sub, ok := g.subscribers[h.id]
	if !ok || sub.closed {
		return false
	}

	g.removeFromRoomLocked(sub)

	room, ok := g.rooms[boardID]
	if !ok {
		room = make(map[string]*subscriber)
		g.rooms[boardID] = room
	}
	room[sub.id] = sub
	sub.currentBoard = boardID
	return true
}

// LeaveBoard removes the subscriber from its current room, if any.
func (h *SubscriberHandle) LeaveBoard() {
	g := h.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	sub, ok := g.subscribers[h.id]
	if !ok {
		return
	}
	g.removeFromRoomLocked(sub)
}

// Heartbeat is a liveness no-op at the gateway level; presence tracking is
// owned by the Presence Service, not the connection layer. It exists so
// the subscriber protocol's `heartbeat` command has somewhere to land.
func (h *SubscriberHandle) Heartbeat() {}

// Close removes the subscriber from its room and from the gateway
// entirely, and closes its event channel.
func (h *SubscriberHandle) Close() {
	g := h.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	sub, ok := g.subscribers[h.id]
	if !ok {
		return
	}
	g.removeFromRoomLocked(sub)
	delete(g.subscribers, h.id)
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}

// removeFromRoomLocked removes sub from its current room. Caller must hold g.mu.
func (g *Gateway) removeFromRoomLocked(sub *subscriber) {
	if sub.currentBoard == "" {
		return
	}
	if room, ok := g.rooms[sub.currentBoard]; ok {
		delete(room, sub.id)
		if len(room) == 0 {
			delete(g.rooms, sub.currentBoard)
		}
	}
	sub.currentBoard = ""
}

// RoomSize returns the number of subscribers currently joined to boardID.
// Exposed for tests and diagnostics.
func (g *Gateway) RoomSize(boardID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms[boardID])
}

// broadcast enqueues an event to every subscriber currently in boardID's
// room. A full queue means a slow consumer: that frame is dropped for that
// subscriber only, and a warning is logged. Other subscribers are
// unaffected. Per-subscriber frame order is preserved; there is no
// ordering guarantee across subscribers or across boards.
func (g *Gateway) broadcast(boardID string, evt Event) {
	g.mu.Lock()
	room := g.rooms[boardID]
	targets := make([]*subscriber, 0, len(room))
	for _, sub := range room {
		targets = append(targets, sub)
	}
	g.mu.Unlock()

	for _, sub := range targets {
		select {
		case sub.ch <- evt:
		default:
			log.Printf("gateway: dropping %s frame for subscriber %s (board %s): send queue full", evt.Type, sub.id, boardID)
		}
	}
}

func newEvent(typ EventType, data any) Event {
	return Event{Type: typ, Data: data, Timestamp: time.Now().UTC()}
}

func (g *Gateway) BoardRenamed(boardID string, d BoardRenamedData) {
	g.broadcast(boardID, newEvent(EventBoardRenamed, d))
}
func (g *Gateway) ColumnRenamed(boardID string, d ColumnRenamedData) {
	g.broadcast(boardID, newEvent(EventColumnRenamed, d))
}
func (g *Gateway) BoardClosed(boardID string, d BoardClosedData) {
	g.broadcast(boardID, newEvent(EventBoardClosed, d))
}
func (g *Gateway) BoardDeleted(boardID string, d BoardDeletedData) {
	g.broadcast(boardID, newEvent(EventBoardDeleted, d))
}
func (g *Gateway) UserJoined(boardID string, d UserJoinedData) {
	g.broadcast(boardID, newEvent(EventUserJoined, d))
}
func (g *Gateway) UserAliasChanged(boardID string, d UserAliasChangedData) {
	g.broadcast(boardID, newEvent(EventUserAliasChanged, d))
}
func (g *Gateway) CardCreated(boardID string, d CardCreatedData) {
	g.broadcast(boardID, newEvent(EventCardCreated, d))
}
func (g *Gateway) CardUpdated(boardID string, d CardUpdatedData) {
	g.broadcast(boardID, newEvent(EventCardUpdated, d))
}
func (g *Gateway) CardDeleted(boardID string, d CardDeletedData) {
	g.broadcast(boardID, newEvent(EventCardDeleted, d))
}
func (g *Gateway) CardMoved(boardID string, d CardMovedData) {
	g.broadcast(boardID, newEvent(EventCardMoved, d))
}
func (g *Gateway) CardLinked(boardID string, d CardLinkedData) {
	g.broadcast(boardID, newEvent(EventCardLinked, d))
}
func (g *Gateway) CardUnlinked(boardID string, d CardUnlinkedData) {
	g.broadcast(boardID, newEvent(EventCardUnlinked, d))
}
func (g *Gateway) ReactionAdded(boardID string, d ReactionAddedData) {
	g.broadcast(boardID, newEvent(EventReactionAdded, d))
}
func (g *Gateway) ReactionRemoved(boardID string, d ReactionRemovedData) {
	g.broadcast(boardID, newEvent(EventReactionRemoved, d))
}

var _ Broadcaster = (*Gateway)(nil)
