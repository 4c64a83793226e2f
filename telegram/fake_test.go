package telegram

import (
	"context"
	"sync"
	"testing"
	"time"
)

type sentBatch struct {
	destination int64
	items       []OutboundMedia
}

type sentForward struct {
	destination int64
	msg         IncomingMessage
}

type captionEdit struct {
	destination int64
	handle      SentHandle
	caption     string
}

type fakeDispatcher struct {
	mu         sync.Mutex
	batches    []sentBatch
	forwards   []sentForward
	edits      []captionEdit
	batchErr   error
	forwardErr error
	editErr    error
	next       SentHandle
}

func (f *fakeDispatcher) SendMediaBatch(ctx context.Context, destination int64, items []OutboundMedia) ([]SentHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batchErr != nil {
		return nil, &DeliveryError{Op: OpSendBatch, Destination: destination, Err: f.batchErr}
	}
	f.batches = append(f.batches, sentBatch{destination: destination, items: items})
	handles := make([]SentHandle, len(items))
	for i := range items {
		f.next++
		handles[i] = 100 + f.next
	}
	return handles, nil
}

func (f *fakeDispatcher) ForwardSingle(ctx context.Context, destination int64, msg IncomingMessage) (SentHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forwardErr != nil {
		return 0, &DeliveryError{Op: OpForward, Destination: destination, Err: f.forwardErr}
	}
	f.forwards = append(f.forwards, sentForward{destination: destination, msg: msg})
	f.next++
	return 100 + f.next, nil
}

func (f *fakeDispatcher) EditCaption(ctx context.Context, destination int64, handle SentHandle, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return &DeliveryError{Op: OpEditCaption, Destination: destination, Err: f.editErr}
	}
	f.edits = append(f.edits, captionEdit{destination: destination, handle: handle, caption: caption})
	return nil
}

// manualScheduler records scheduled flushes so tests decide when they run.
type manualScheduler struct {
	delays  []time.Duration
	pending []func()
}

func (s *manualScheduler) schedule(d time.Duration, f func()) {
	s.delays = append(s.delays, d)
	s.pending = append(s.pending, f)
}

func (s *manualScheduler) runAll() {
	fns := s.pending
	s.pending = nil
	for _, f := range fns {
		f()
	}
}

const (
	chatA   int64 = -1001
	chatB   int64 = -1002
	srcChat int64 = 42
)

func testRules(t *testing.T) *RuleTable {
	t.Helper()
	rules, err := NewRuleTable([]Rule{
		{Trigger: "#news", Destination: chatA},
		{Trigger: "#memes", Destination: chatB},
	})
	if err != nil {
		t.Fatalf("NewRuleTable() error = %v", err)
	}
	return rules
}

func photo(id int, group, caption string) IncomingMessage {
	return IncomingMessage{
		ID:           id,
		ChatID:       srcChat,
		Private:      true,
		Caption:      caption,
		Media:        &Media{Kind: MediaPhoto, FileID: "file-" + string(rune('a'+id))},
		MediaGroupID: group,
		Kinds:        []StatKind{StatPhoto},
	}
}
