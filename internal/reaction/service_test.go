package reaction

import (
	"testing"
	"time"

	"github.com/joestump/retroboard/internal/apperr"
	"github.com/joestump/retroboard/internal/clock"
	"github.com/joestump/retroboard/internal/gateway"
	"github.com/joestump/retroboard/internal/store"
)

func newTestService(t *testing.T, defaultReactionLimit int) (*Service, *store.Store, *gateway.CapturingBroadcaster, *store.Board) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	clk := clock.NewFixed(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	bc := &gateway.CapturingBroadcaster{}
	svc := New(st, clk, bc, defaultReactionLimit)

	b := &store.Board{
		ID:          "board-1",
		Name:        "Retro",
		Columns:     []store.Column{{ID: "col-1", Name: "Went Well"}},
		Admins:      []string{"alice"},
		State:       store.BoardActive,
		CreatorHash: "alice",
		CreatedAt:   clk.Now(),
	}
	b.ShareableLink = "link-1"
	if err := st.InsertBoard(b); err != nil {
		t.Fatalf("InsertBoard: %v", err)
	}
	return svc, st, bc, b
}

func newCard(t *testing.T, st *store.Store, boardID, columnID string, cardType store.CardType, creator string) *store.Card {
	t.Helper()
	c := &store.Card{
		ID:            "card-" + creator + "-" + columnID + "-" + string(cardType),
		BoardID:       boardID,
		ColumnID:      columnID,
		Content:       "content",
		CardType:      cardType,
		CreatedByHash: creator,
		CreatedAt:     time.Now().UTC(),
	}
	if err := st.InsertCard(c); err != nil {
		t.Fatalf("InsertCard: %v", err)
	}
	return c
}

func TestAddReactionValidation(t *testing.T) {
	svc, st, _, b := newTestService(t, 0)
	c := newCard(t, st, b.ID, "col-1", store.CardFeedback, "alice")

	if _, err := svc.AddReaction(b.ID, c.ID, "+1", "", ""); !apperr.Is(err, apperr.Unauthenticated) {
		t.Errorf("no identity: err = %v, want Unauthenticated", err)
	}
	if _, err := svc.AddReaction(b.ID, c.ID, "", "", "bob"); !apperr.Is(err, apperr.Validation) {
		t.Errorf("empty kind: err = %v, want Validation", err)
	}
	if _, err := svc.AddReaction(b.ID, "nonexistent", "+1", "", "bob"); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("bad card: err = %v, want NotFound", err)
	}
}

func TestAddReactionOnlyChargesQuotaOnGenuinelyNewReaction(t *testing.T) {
	limit := 1
	svc, st, _, b := newTestService(t, 0)
	b.ID, b.ShareableLink, b.ReactionLimit = "board-limited", "link-limited", &limit
	if err := st.InsertBoard(b); err != nil {
		t.Fatal(err)
	}
	c1 := newCard(t, st, b.ID, "col-1", store.CardFeedback, "alice")
	c2 := newCard(t, st, b.ID, "col-1", store.CardFeedback, "bob")

	if _, err := svc.AddReaction(b.ID, c1.ID, "+1", "", "carol"); err != nil {
		t.Fatalf("first reaction: %v", err)
	}
	// Replacing the kind on the same card shouldn't re-charge the quota.
	if _, err := svc.AddReaction(b.ID, c1.ID, "heart", "", "carol"); err != nil {
		t.Fatalf("replace kind on same card: %v", err)
	}
	if _, err := svc.AddReaction(b.ID, c2.ID, "+1", "", "carol"); !apperr.Is(err, apperr.LimitExceeded) {
		t.Errorf("second distinct reaction over limit: err = %v, want LimitExceeded", err)
	}
}

func TestAddReactionPropagatesCountsOneLevelUpToParentOnly(t *testing.T) {
	svc, st, bc, b := newTestService(t, 0)
	action := newCard(t, st, b.ID, "col-1", store.CardAction, "alice")
	feedback := newCard(t, st, b.ID, "col-1", store.CardFeedback, "bob")
	if err := st.AddLinkedFeedback(action.ID, feedback.ID); err != nil {
		t.Fatal(err)
	}
	parent := newCard(t, st, b.ID, "col-1", store.CardAction, "erin")
	child := newCard(t, st, b.ID, "col-1", store.CardFeedback, "frank")
	if err := st.SetParent(child.ID, &parent.ID); err != nil {
		t.Fatal(err)
	}

	// A reaction on feedback merely linked_to an action must never adjust
	// that action's aggregated count; linked_feedback_ids is a reference
	// list only.
	if _, err := svc.AddReaction(b.ID, feedback.ID, "+1", "", "carol"); err != nil {
		t.Fatalf("AddReaction on linked feedback: %v", err)
	}
	gotAction, err := st.GetCard(action.ID)
	if err != nil {
		t.Fatal(err)
	}
	if gotAction.AggregatedCount != 0 {
		t.Errorf("linking action AggregatedCount = %d, want 0", gotAction.AggregatedCount)
	}

	if _, err := svc.AddReaction(b.ID, child.ID, "+1", "", "dave"); err != nil {
		t.Fatalf("AddReaction on child: %v", err)
	}
	gotParent, err := st.GetCard(parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if gotParent.AggregatedCount != 1 {
		t.Errorf("parent AggregatedCount = %d, want 1", gotParent.AggregatedCount)
	}
	gotChild, err := st.GetCard(child.ID)
	if err != nil {
		t.Fatal(err)
	}
	if gotChild.DirectCount != 1 || gotChild.AggregatedCount != 1 {
		t.Errorf("child counts = (direct=%d, aggregated=%d), want (1, 1)", gotChild.DirectCount, gotChild.AggregatedCount)
	}

	if len(bc.Events) == 0 || bc.Events[len(bc.Events)-1].Type != gateway.EventReactionAdded {
		t.Errorf("expected reaction:added event, got %+v", bc.Events)
	}
}

func TestRemoveReactionUnwindsParentCountAndReportsMissing(t *testing.T) {
	svc, st, bc, b := newTestService(t, 0)
	parent := newCard(t, st, b.ID, "col-1", store.CardAction, "alice")
	child := newCard(t, st, b.ID, "col-1", store.CardFeedback, "bob")
	if err := st.SetParent(child.ID, &parent.ID); err != nil {
		t.Fatal(err)
	}

	if err := svc.RemoveReaction(b.ID, child.ID, "carol"); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("remove nonexistent: err = %v, want NotFound", err)
	}

	if _, err := svc.AddReaction(b.ID, child.ID, "+1", "", "carol"); err != nil {
		t.Fatal(err)
	}
	if err := svc.RemoveReaction(b.ID, child.ID, "carol"); err != nil {
		t.Fatalf("RemoveReaction: %v", err)
	}

	gotParent, err := st.GetCard(parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if gotParent.AggregatedCount != 0 {
		t.Errorf("parent AggregatedCount after remove = %d, want 0", gotParent.AggregatedCount)
	}
	if len(bc.Events) == 0 || bc.Events[len(bc.Events)-1].Type != gateway.EventReactionRemoved {
		t.Errorf("expected reaction:removed event, got %+v", bc.Events)
	}
}

func TestAddReactionRejectsClosedBoard(t *testing.T) {
	svc, st, _, b := newTestService(t, 0)
	c := newCard(t, st, b.ID, "col-1", store.CardFeedback, "alice")
	if _, err := st.CloseBoard(b.ID, "alice", time.Now().UTC()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddReaction(b.ID, c.ID, "+1", "", "bob"); !apperr.Is(err, apperr.Conflict) {
		t.Errorf("err = %v, want Conflict", err)
	}
}
