package store

import (
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newBoard(t *testing.T, s *Store, creator string) *Board {
	t.Helper()
	b := &Board{
		ID:          "board-" + creator,
		Name:        "Sprint Retro",
		Columns:     []Column{{ID: "col-1", Name: "Went Well"}, {ID: "col-2", Name: "To Improve"}},
		Admins:      []string{creator},
		State:       BoardActive,
		CreatorHash: creator,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	b.ShareableLink = "link-" + creator
	if err := s.InsertBoard(b); err != nil {
		t.Fatalf("InsertBoard: %v", err)
	}
	return b
}

func TestInsertAndGetBoard(t *testing.T) {
	s := newTestStore(t)
	b := newBoard(t, s, "alice")

	got, err := s.GetBoard(b.ID)
	if err != nil {
		t.Fatalf("GetBoard: %v", err)
	}
	if got == nil {
		t.Fatal("GetBoard returned nil")
	}
	if got.Name != b.Name || len(got.Columns) != 2 || len(got.Admins) != 1 {
		t.Errorf("GetBoard round-trip mismatch: %+v", got)
	}
}

func TestGetBoardMissingReturnsNilNil(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetBoard("nope")
	if err != nil || got != nil {
		t.Errorf("GetBoard(missing) = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestGetBoardByLink(t *testing.T) {
	s := newTestStore(t)
	b := newBoard(t, s, "alice")

	got, err := s.GetBoardByLink(b.ShareableLink)
	if err != nil || got == nil || got.ID != b.ID {
		t.Fatalf("GetBoardByLink = (%v, %v), want board %s", got, err, b.ID)
	}

	none, err := s.GetBoardByLink("does-not-exist")
	if err != nil || none != nil {
		t.Errorf("GetBoardByLink(missing) = (%v, %v), want (nil, nil)", none, err)
	}
}

func TestDuplicateShareableLinkDetected(t *testing.T) {
	s := newTestStore(t)
	newBoard(t, s, "alice")

	dup := &Board{
		ID:            "board-bob",
		Name:          "Dup",
		Columns:       []Column{{ID: "c1", Name: "x"}},
		Admins:        []string{"bob"},
		State:         BoardActive,
		CreatorHash:   "bob",
		ShareableLink: "link-alice", // same as alice's board
		CreatedAt:     time.Now().UTC(),
	}
	err := s.InsertBoard(dup)
	if err == nil {
		t.Fatal("expected unique constraint violation")
	}
	if !IsDuplicateShareableLink(err) {
		t.Errorf("IsDuplicateShareableLink(%v) = false, want true", err)
	}
}

func TestRenameBoardRequiresActiveAdmin(t *testing.T) {
	s := newTestStore(t)
	b := newBoard(t, s, "alice")

	res, err := s.RenameBoard(b.ID, "New Name", "alice")
	if err != nil {
		t.Fatalf("RenameBoard: %v", err)
	}
	if res.Matched != 1 {
		t.Fatalf("Matched = %d, want 1", res.Matched)
	}

	res, err = s.RenameBoard(b.ID, "Nope", "stranger")
	if err != nil {
		t.Fatalf("RenameBoard: %v", err)
	}
	if res.Matched != 0 {
		t.Errorf("Matched for non-admin = %d, want 0", res.Matched)
	}
}

func TestCloseBoardIdempotent(t *testing.T) {
	s := newTestStore(t)
	b := newBoard(t, s, "alice")

	res, err := s.CloseBoard(b.ID, "alice", time.Now().UTC())
	if err != nil || res.Matched != 1 {
		t.Fatalf("first CloseBoard = (%+v, %v), want matched=1", res, err)
	}

	res, err = s.CloseBoard(b.ID, "alice", time.Now().UTC())
	if err != nil {
		t.Fatalf("second CloseBoard: %v", err)
	}
	if res.Matched != 0 {
		t.Errorf("second CloseBoard Matched = %d, want 0 (already closed)", res.Matched)
	}
}

func TestAddAdminRequiresCreator(t *testing.T) {
	s := newTestStore(t)
	b := newBoard(t, s, "alice")
	now := time.Now().UTC()
	if err := s.UpsertSession(b.ID, "bob", "Bob", now); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}

	res, err := s.AddAdmin(b.ID, "bob", "bob") // bob isn't the creator
	if err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}
	if res.Matched != 0 {
		t.Errorf("non-creator AddAdmin Matched = %d, want 0", res.Matched)
	}

	res, err = s.AddAdmin(b.ID, "bob", "alice")
	if err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}
	if res.Matched != 1 {
		t.Errorf("creator AddAdmin Matched = %d, want 1", res.Matched)
	}
	isAdmin, err := s.IsAdmin(b.ID, "bob")
	if err != nil || !isAdmin {
		t.Errorf("IsAdmin(bob) = (%v, %v), want (true, nil)", isAdmin, err)
	}
}

func TestCardQuotaCounting(t *testing.T) {
	s := newTestStore(t)
	b := newBoard(t, s, "alice")

	for i := 0; i < 3; i++ {
		c := &Card{ID: "card-" + string(rune('a'+i)), BoardID: b.ID, ColumnID: "col-1", Content: "x", CardType: CardFeedback, CreatedByHash: "alice", CreatedAt: time.Now().UTC()}
		if err := s.InsertCard(c); err != nil {
			t.Fatalf("InsertCard: %v", err)
		}
	}
	action := &Card{ID: "card-action", BoardID: b.ID, ColumnID: "col-1", Content: "x", CardType: CardAction, CreatedByHash: "alice", CreatedAt: time.Now().UTC()}
	if err := s.InsertCard(action); err != nil {
		t.Fatalf("InsertCard: %v", err)
	}

	n, err := s.CountFeedbackCardsByCreator(b.ID, "alice")
	if err != nil {
		t.Fatalf("CountFeedbackCardsByCreator: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3 (action cards excluded)", n)
	}
}

func TestParentChildAndLinkedFeedback(t *testing.T) {
	s := newTestStore(t)
	b := newBoard(t, s, "alice")

	child := &Card{ID: "card-child", BoardID: b.ID, ColumnID: "col-1", Content: "child", CardType: CardFeedback, CreatedByHash: "alice", CreatedAt: time.Now().UTC()}
	parent := &Card{ID: "card-parent", BoardID: b.ID, ColumnID: "col-1", Content: "parent", CardType: CardAction, CreatedByHash: "alice", CreatedAt: time.Now().UTC()}
	if err := s.InsertCard(parent); err != nil {
		t.Fatalf("InsertCard parent: %v", err)
	}
	if err := s.InsertCard(child); err != nil {
		t.Fatalf("InsertCard child: %v", err)
	}
	if err := s.SetParent(child.ID, &parent.ID); err != nil {
		t.Fatalf("SetParent: %v", err)
	}

	children, err := s.ChildrenByParents([]string{parent.ID})
	if err != nil {
		t.Fatalf("ChildrenByParents: %v", err)
	}
	if len(children[parent.ID]) != 1 || children[parent.ID][0].ID != child.ID {
		t.Errorf("children[%s] = %+v, want [%s]", parent.ID, children[parent.ID], child.ID)
	}

	feedback := &Card{ID: "card-feedback", BoardID: b.ID, ColumnID: "col-1", Content: "feedback", CardType: CardFeedback, CreatedByHash: "alice", CreatedAt: time.Now().UTC()}
	if err := s.InsertCard(feedback); err != nil {
		t.Fatalf("InsertCard feedback: %v", err)
	}
	if err := s.AddLinkedFeedback(parent.ID, feedback.ID); err != nil {
		t.Fatalf("AddLinkedFeedback: %v", err)
	}

	got, err := s.GetCard(parent.ID)
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if len(got.LinkedFeedbackIDs) != 1 || got.LinkedFeedbackIDs[0] != feedback.ID {
		t.Errorf("LinkedFeedbackIDs = %v, want [%s]", got.LinkedFeedbackIDs, feedback.ID)
	}

	actions, err := s.ActionsLinkingFeedback(feedback.ID)
	if err != nil {
		t.Fatalf("ActionsLinkingFeedback: %v", err)
	}
	if len(actions) != 1 || actions[0] != parent.ID {
		t.Errorf("ActionsLinkingFeedback = %v, want [%s]", actions, parent.ID)
	}

	if err := s.RemoveLinkedFeedback(parent.ID, feedback.ID); err != nil {
		t.Fatalf("RemoveLinkedFeedback: %v", err)
	}
	actions, err = s.ActionsLinkingFeedback(feedback.ID)
	if err != nil {
		t.Fatalf("ActionsLinkingFeedback after remove: %v", err)
	}
	if len(actions) != 0 {
		t.Errorf("ActionsLinkingFeedback after remove = %v, want empty", actions)
	}
}

func TestOrphanChildrenClearsParent(t *testing.T) {
	s := newTestStore(t)
	b := newBoard(t, s, "alice")
	parent := &Card{ID: "card-parent", BoardID: b.ID, ColumnID: "col-1", Content: "p", CardType: CardAction, CreatedByHash: "alice", CreatedAt: time.Now().UTC()}
	child := &Card{ID: "card-child", BoardID: b.ID, ColumnID: "col-1", Content: "c", CardType: CardFeedback, CreatedByHash: "alice", CreatedAt: time.Now().UTC()}
	if err := s.InsertCard(parent); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertCard(child); err != nil {
		t.Fatal(err)
	}
	if err := s.SetParent(child.ID, &parent.ID); err != nil {
		t.Fatal(err)
	}

	orphaned, err := s.OrphanChildren(parent.ID)
	if err != nil {
		t.Fatalf("OrphanChildren: %v", err)
	}
	if len(orphaned) != 1 || orphaned[0].ID != child.ID {
		t.Fatalf("orphaned = %+v, want [%s]", orphaned, child.ID)
	}

	got, err := s.GetCard(child.ID)
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if got.ParentID != nil {
		t.Errorf("ParentID after orphan = %v, want nil", *got.ParentID)
	}
}

func TestAdjustCountsClampAtZero(t *testing.T) {
	s := newTestStore(t)
	b := newBoard(t, s, "alice")
	c := &Card{ID: "card-1", BoardID: b.ID, ColumnID: "col-1", Content: "x", CardType: CardFeedback, CreatedByHash: "alice", CreatedAt: time.Now().UTC()}
	if err := s.InsertCard(c); err != nil {
		t.Fatal(err)
	}

	if err := s.AdjustDirectCount(c.ID, -5); err != nil {
		t.Fatalf("AdjustDirectCount: %v", err)
	}
	if err := s.AdjustAggregatedCount(c.ID, -5); err != nil {
		t.Fatalf("AdjustAggregatedCount: %v", err)
	}

	got, err := s.GetCard(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.DirectCount != 0 || got.AggregatedCount != 0 {
		t.Errorf("counts = direct=%d aggregated=%d, want both 0", got.DirectCount, got.AggregatedCount)
	}
}

func TestReactionUpsertIsInsertOnlyOnce(t *testing.T) {
	s := newTestStore(t)
	b := newBoard(t, s, "alice")
	c := &Card{ID: "card-1", BoardID: b.ID, ColumnID: "col-1", Content: "x", CardType: CardFeedback, CreatedByHash: "alice", CreatedAt: time.Now().UTC()}
	if err := s.InsertCard(c); err != nil {
		t.Fatal(err)
	}

	wasInsert, err := s.UpsertReaction("r1", c.ID, "bob", "Bob", "+1", time.Now().UTC())
	if err != nil || !wasInsert {
		t.Fatalf("first upsert = (%v, %v), want (true, nil)", wasInsert, err)
	}

	wasInsert, err = s.UpsertReaction("r1", c.ID, "bob", "Bob", "heart", time.Now().UTC())
	if err != nil || wasInsert {
		t.Fatalf("second upsert = (%v, %v), want (false, nil)", wasInsert, err)
	}

	got, err := s.GetReaction(c.ID, "bob")
	if err != nil || got == nil || got.Kind != "heart" {
		t.Fatalf("GetReaction = (%+v, %v), want kind=heart", got, err)
	}
}

func TestDeleteReactionReportsExistence(t *testing.T) {
	s := newTestStore(t)
	b := newBoard(t, s, "alice")
	c := &Card{ID: "card-1", BoardID: b.ID, ColumnID: "col-1", Content: "x", CardType: CardFeedback, CreatedByHash: "alice", CreatedAt: time.Now().UTC()}
	if err := s.InsertCard(c); err != nil {
		t.Fatal(err)
	}

	existed, err := s.DeleteReaction(c.ID, "bob")
	if err != nil || existed {
		t.Fatalf("DeleteReaction(none) = (%v, %v), want (false, nil)", existed, err)
	}

	if _, err := s.UpsertReaction("r1", c.ID, "bob", "Bob", "+1", time.Now().UTC()); err != nil {
		t.Fatal(err)
	}
	existed, err = s.DeleteReaction(c.ID, "bob")
	if err != nil || !existed {
		t.Fatalf("DeleteReaction(existing) = (%v, %v), want (true, nil)", existed, err)
	}
}

func TestSessionJoinHeartbeatAndActiveWindow(t *testing.T) {
	s := newTestStore(t)
	b := newBoard(t, s, "alice")

	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := s.UpsertSession(b.ID, "bob", "Bob", t0); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}

	active, err := s.ActiveSessions(b.ID, t0.Add(-10*time.Second))
	if err != nil || len(active) != 1 {
		t.Fatalf("ActiveSessions = (%v, %v), want 1 session", active, err)
	}

	stale, err := s.ActiveSessions(b.ID, t0.Add(10*time.Second))
	if err != nil || len(stale) != 0 {
		t.Fatalf("ActiveSessions(future window) = (%v, %v), want 0", stale, err)
	}

	ok, err := s.Heartbeat(b.ID, "bob", t0.Add(5*time.Second))
	if err != nil || !ok {
		t.Fatalf("Heartbeat = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = s.Heartbeat(b.ID, "nonexistent", t0)
	if err != nil || ok {
		t.Fatalf("Heartbeat(missing session) = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestUpdateAliasReturnsOldAlias(t *testing.T) {
	s := newTestStore(t)
	b := newBoard(t, s, "alice")
	now := time.Now().UTC()
	if err := s.UpsertSession(b.ID, "bob", "Bob", now); err != nil {
		t.Fatal(err)
	}

	old, ok, err := s.UpdateAlias(b.ID, "bob", "Robert", now)
	if err != nil || !ok || old != "Bob" {
		t.Fatalf("UpdateAlias = (%q, %v, %v), want (Bob, true, nil)", old, ok, err)
	}

	_, ok, err = s.UpdateAlias(b.ID, "nonexistent", "X", now)
	if err != nil || ok {
		t.Fatalf("UpdateAlias(missing session) = (ok=%v, %v), want false", ok, err)
	}
}

func TestDeleteAllForBoardCascades(t *testing.T) {
	s := newTestStore(t)
	b := newBoard(t, s, "alice")
	c := &Card{ID: "card-1", BoardID: b.ID, ColumnID: "col-1", Content: "x", CardType: CardFeedback, CreatedByHash: "alice", CreatedAt: time.Now().UTC()}
	if err := s.InsertCard(c); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertReaction("r1", c.ID, "bob", "Bob", "+1", time.Now().UTC()); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertSession(b.ID, "bob", "Bob", time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteAllForBoardCards(b.ID); err != nil {
		t.Fatalf("DeleteAllForBoardCards: %v", err)
	}
	if err := s.DeleteAllForBoard(b.ID); err != nil {
		t.Fatalf("DeleteAllForBoard: %v", err)
	}
	if err := s.DeleteAllSessionsForBoard(b.ID); err != nil {
		t.Fatalf("DeleteAllSessionsForBoard: %v", err)
	}
	if err := s.DeleteBoard(b.ID); err != nil {
		t.Fatalf("DeleteBoard: %v", err)
	}

	got, err := s.GetBoard(b.ID)
	if err != nil || got != nil {
		t.Fatalf("GetBoard after cascade delete = (%v, %v), want (nil, nil)", got, err)
	}
}
