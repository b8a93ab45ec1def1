package gateway

import (
	"testing"
	"time"
)

func TestSubscribeRequiresIdentity(t *testing.T) {
	g := New()
	if _, ok := g.Subscribe(""); ok {
		t.Error("Subscribe(\"\") = ok, want refused")
	}
}

func TestJoinBoardRoutesEvents(t *testing.T) {
	g := New()
	handle, ok := g.Subscribe("identity-1")
	if !ok {
		t.Fatal("Subscribe failed")
	}
	defer handle.Close()

	if !handle.JoinBoard("board-1") {
		t.Fatal("JoinBoard failed")
	}
	if g.RoomSize("board-1") != 1 {
		t.Fatalf("RoomSize = %d, want 1", g.RoomSize("board-1"))
	}

	g.BoardRenamed("board-1", BoardRenamedData{BoardID: "board-1", Name: "New Name"})

	select {
	case evt := <-handle.Events():
		if evt.Type != EventBoardRenamed {
			t.Errorf("event type = %q, want %q", evt.Type, EventBoardRenamed)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEventsNotRoutedToOtherBoards(t *testing.T) {
	g := New()
	handle, _ := g.Subscribe("identity-1")
	defer handle.Close()
	handle.JoinBoard("board-1")

	g.BoardRenamed("board-2", BoardRenamedData{BoardID: "board-2", Name: "Other"})

	select {
	case evt := <-handle.Events():
		t.Fatalf("unexpected event delivered: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestJoinBoardMovesSubscriberBetweenRooms(t *testing.T) {
	g := New()
	handle, _ := g.Subscribe("identity-1")
	defer handle.Close()

	handle.JoinBoard("board-1")
	handle.JoinBoard("board-2")

	if g.RoomSize("board-1") != 0 {
		t.Errorf("RoomSize(board-1) = %d, want 0 after moving", g.RoomSize("board-1"))
	}
	if g.RoomSize("board-2") != 1 {
		t.Errorf("RoomSize(board-2) = %d, want 1", g.RoomSize("board-2"))
	}
}

func TestCloseRemovesSubscriberAndClosesChannel(t *testing.T) {
	g := New()
	handle, _ := g.Subscribe("identity-1")
	handle.JoinBoard("board-1")
	events := handle.Events()

	handle.Close()

	if g.RoomSize("board-1") != 0 {
		t.Errorf("RoomSize after Close = %d, want 0", g.RoomSize("board-1"))
	}
	if _, ok := <-events; ok {
		t.Error("expected Events() channel to be closed")
	}
}

func TestFullQueueDropsFrameWithoutBlocking(t *testing.T) {
	g := New().WithSendQueueCapacity(1)
	handle, _ := g.Subscribe("identity-1")
	defer handle.Close()
	handle.JoinBoard("board-1")

	g.BoardRenamed("board-1", BoardRenamedData{BoardID: "board-1", Name: "first"})
	// Queue capacity is 1 and nothing has drained it yet; this second send
	// must drop rather than block.
	done := make(chan struct{})
	go func() {
		g.BoardRenamed("board-1", BoardRenamedData{BoardID: "board-1", Name: "second"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full queue")
	}
}

func TestCapturingBroadcasterRecordsEvents(t *testing.T) {
	c := &CapturingBroadcaster{}
	c.CardCreated("board-1", CardCreatedData{BoardID: "board-1"})
	c.ReactionAdded("board-1", ReactionAddedData{BoardID: "board-1"})

	if len(c.Events) != 2 {
		t.Fatalf("len(Events) = %d, want 2", len(c.Events))
	}
	if c.Events[0].Type != EventCardCreated {
		t.Errorf("Events[0].Type = %q, want %q", c.Events[0].Type, EventCardCreated)
	}
	if c.Events[1].Type != EventReactionAdded {
		t.Errorf("Events[1].Type = %q, want %q", c.Events[1].Type, EventReactionAdded)
	}
}
