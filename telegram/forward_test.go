package telegram

import (
	"context"
	"errors"
	"testing"
)

func document(id int, caption string) IncomingMessage {
	return IncomingMessage{
		ID:      id,
		ChatID:  srcChat,
		Private: true,
		Caption: caption,
		Media:   &Media{Kind: MediaDocument, FileID: "doc"},
	}
}

func TestForwarderForwardAndEdit(t *testing.T) {
	dispatch := &fakeDispatcher{}
	store := NewStore("")
	f := NewForwarder(store, testRules(t), dispatch)
	ctx := context.Background()

	f.Forward(ctx, document(7, "#news"))

	if len(dispatch.forwards) != 1 {
		t.Fatalf("forwards = %d, want 1", len(dispatch.forwards))
	}
	if dispatch.forwards[0].destination != chatA {
		t.Errorf("destination = %d, want %d", dispatch.forwards[0].destination, chatA)
	}
	rec, ok := store.GetSingle(srcChat, 7)
	if !ok {
		t.Fatal("forward not recorded")
	}

	edited := document(7, "#news v2")
	edited.Edited = true
	f.ReconcileEdit(ctx, edited)

	if len(dispatch.edits) != 1 {
		t.Fatalf("edits = %d, want 1", len(dispatch.edits))
	}
	want := captionEdit{destination: chatA, handle: rec.Handle, caption: "#news v2"}
	if dispatch.edits[0] != want {
		t.Errorf("edit = %+v, want %+v", dispatch.edits[0], want)
	}
}

func TestForwarderFirstRuleWins(t *testing.T) {
	dispatch := &fakeDispatcher{}
	f := NewForwarder(NewStore(""), testRules(t), dispatch)

	f.Forward(context.Background(), document(1, "#memes and #news"))

	if len(dispatch.forwards) != 1 {
		t.Fatalf("forwards = %d, want 1", len(dispatch.forwards))
	}
	if dispatch.forwards[0].destination != chatA {
		t.Errorf("destination = %d, want first declared rule %d", dispatch.forwards[0].destination, chatA)
	}
}

func TestForwarderNoMatch(t *testing.T) {
	dispatch := &fakeDispatcher{}
	store := NewStore("")
	f := NewForwarder(store, testRules(t), dispatch)
	ctx := context.Background()

	f.Forward(ctx, document(1, "nothing to see"))
	f.Forward(ctx, document(2, ""))

	if len(dispatch.forwards) != 0 {
		t.Errorf("forwards = %d, want 0", len(dispatch.forwards))
	}
}

func TestForwarderEditOfUnforwardedMessage(t *testing.T) {
	dispatch := &fakeDispatcher{}
	f := NewForwarder(NewStore(""), testRules(t), dispatch)

	edited := document(3, "#news now")
	edited.Edited = true
	f.ReconcileEdit(context.Background(), edited)

	if len(dispatch.forwards) != 0 || len(dispatch.edits) != 0 {
		t.Errorf("edit of unforwarded message produced calls: forwards=%d edits=%d", len(dispatch.forwards), len(dispatch.edits))
	}
}

func TestForwarderFailureNotRecorded(t *testing.T) {
	dispatch := &fakeDispatcher{forwardErr: errors.New("bot was kicked")}
	store := NewStore("")
	f := NewForwarder(store, testRules(t), dispatch)

	f.Forward(context.Background(), document(5, "#news"))

	if _, ok := store.GetSingle(srcChat, 5); ok {
		t.Error("failed forward was recorded")
	}
}

func TestForwarderEmitsEvents(t *testing.T) {
	dispatch := &fakeDispatcher{}
	f := NewForwarder(NewStore(""), testRules(t), dispatch)
	var events []RelayEvent
	f.notify = func(ev RelayEvent) { events = append(events, ev) }
	ctx := context.Background()

	f.Forward(ctx, document(9, "#memes"))
	edited := document(9, "#memes!")
	edited.Edited = true
	f.ReconcileEdit(ctx, edited)

	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Type != EventSingleForwarded || events[0].Destination != chatB {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].Type != EventCaptionUpdated || events[1].Caption != "#memes!" {
		t.Errorf("second event = %+v", events[1])
	}
	if events[0].Time.IsZero() {
		t.Error("event time not set")
	}
}
