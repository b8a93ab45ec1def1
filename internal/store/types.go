package store

import "time"

// BoardState is the lifecycle state of a Board.
type BoardState string

const (
	BoardActive BoardState = "active"
	BoardClosed BoardState = "closed"
)

// CardType distinguishes feedback cards from action cards.
type CardType string

const (
	CardFeedback CardType = "feedback"
	CardAction   CardType = "action"
)

// LinkKind is the relationship kind passed to LinkCards/UnlinkCards.
type LinkKind string

const (
	LinkParentOf LinkKind = "parent_of"
	LinkLinkedTo LinkKind = "linked_to"
)

// Board is the persisted board document. Admins is ordered; Admins[0] is
// the creator.
type Board struct {
	ID             string
	Name           string
	Columns        []Column
	Admins         []string
	State          BoardState
	ClosedAt       *time.Time
	CardLimit      *int
	ReactionLimit  *int
	CreatorHash    string
	ShareableLink  string
	CreatedAt      time.Time
}

// Column is an embedded column of a Board.
type Column struct {
	ID    string
	Name  string
	Color *string
}

// Card is the persisted card document.
type Card struct {
	ID                string
	BoardID           string
	ColumnID          string
	Content           string
	CardType          CardType
	IsAnonymous       bool
	CreatedByHash     string
	CreatedByAlias    *string
	CreatedAt         time.Time
	DirectCount       int
	AggregatedCount   int
	ParentID          *string
	LinkedFeedbackIDs []string
}

// Reaction is the persisted reaction document, unique on (CardID, IdentityHash).
type Reaction struct {
	ID           string
	CardID       string
	IdentityHash string
	Alias        string
	Kind         string
	CreatedAt    time.Time
}

// Session is the persisted (board, identity) presence record, unique on
// (BoardID, IdentityHash).
type Session struct {
	BoardID      string
	IdentityHash string
	Alias        string
	LastActive   time.Time
	CreatedAt    time.Time
}
