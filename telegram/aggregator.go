package telegram

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultSettleDelay is how long a media group is left to settle before it
// is flushed.
const DefaultSettleDelay = 2 * time.Second

// Aggregator collects the items of a media group and relays them as one
// album once the group has settled.
type Aggregator struct {
	store    *Store
	rules    *RuleTable
	dispatch Dispatcher
	settle   time.Duration
	schedule scheduleFunc
	notify   notifier

	mu    sync.Mutex
	gates map[string]*flushGate
}

func NewAggregator(store *Store, rules *RuleTable, dispatch Dispatcher, settle time.Duration) *Aggregator {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Aggregator{
		store:    store,
		rules:    rules,
		dispatch: dispatch,
		settle:   settle,
		schedule: afterFunc,
		gates:    make(map[string]*flushGate),
	}
}

// Observe buffers a grouped message and arms the group's flush when its
// caption matches a rule. Only the first matching message arms the flush.
func (a *Aggregator) Observe(msg IncomingMessage) {
	groupID := msg.MediaGroupID
	logger := log.With().Str("group", groupID).Int("message", msg.ID).Logger()

	a.mu.Lock()
	defer a.mu.Unlock()

	gate := a.gates[groupID]
	if (gate != nil && gate.state == gateFired) || a.store.HasBatch(groupID) {
		logger.Debug().Msg("media group already relayed, dropping item")
		return
	}

	size := a.store.AppendToBuffer(groupID, msg)
	logger.Debug().Int("buffered", size).Bool("edited", msg.Edited).Msg("media group item buffered")

	if gate != nil && msg.Edited && gate.triggerID == msg.ID {
		gate.caption = msg.Caption
		logger.Debug().Msg("pending caption updated")
		return
	}

	rule, ok := a.rules.Match(msg.Caption)
	if !ok {
		return
	}
	if gate == nil {
		gate = &flushGate{}
		a.gates[groupID] = gate
	}
	if !gate.arm(rule, msg) {
		return
	}

	logger.Info().Str("trigger", rule.Trigger).Int64("destination", rule.Destination).
		Dur("settle", a.settle).Msg("media group flagged, flush scheduled")
	a.schedule(a.settle, func() { a.fire(groupID) })
}

func (a *Aggregator) fire(groupID string) {
	a.mu.Lock()
	gate, ok := a.gates[groupID]
	if !ok || !gate.fire() {
		a.mu.Unlock()
		return
	}
	destination, caption := gate.destination, gate.caption
	a.mu.Unlock()

	a.Flush(context.Background(), groupID, destination, caption)

	a.mu.Lock()
	delete(a.gates, groupID)
	a.mu.Unlock()
}

// Flush sends every buffered item of a group to destination as one album,
// with caption on the first item only. The buffer is discarded whether or
// not the delivery succeeds.
func (a *Aggregator) Flush(ctx context.Context, groupID string, destination int64, caption string) {
	logger := log.With().Str("group", groupID).Int64("destination", destination).Logger()

	items := a.store.TakeBuffer(groupID)
	if len(items) == 0 {
		logger.Debug().Msg("nothing buffered for media group")
		return
	}

	batch := buildBatch(items, caption)
	if len(batch) == 0 {
		logger.Warn().Int("items", len(items)).Msg("media group has no sendable items")
		return
	}

	handles, err := a.dispatch.SendMediaBatch(ctx, destination, batch)
	if err != nil {
		logger.Error().Err(err).Int("items", len(batch)).Msg("error forwarding media group")
		return
	}
	if !a.store.SaveBatch(groupID, ForwardedBatch{Destination: destination, Handles: handles}) {
		logger.Warn().Msg("media group was already recorded as forwarded")
	}
	logger.Info().Int("items", len(batch)).Msg("forwarded media group")

	a.notify.emit(RelayEvent{
		Type:         EventBatchForwarded,
		SourceChatID: items[0].ChatID,
		MediaGroupID: groupID,
		Destination:  destination,
		Handles:      handles,
		Caption:      caption,
	})
}

// ReconcileEdit propagates a caption edit to an already relayed album, or
// handles the edit like a new item when the group has not been relayed yet.
func (a *Aggregator) ReconcileEdit(ctx context.Context, msg IncomingMessage) {
	groupID := msg.MediaGroupID
	batch, ok := a.store.GetBatch(groupID)
	if !ok {
		a.Observe(msg)
		return
	}
	if len(batch.Handles) == 0 {
		return
	}

	logger := log.With().Str("group", groupID).Int64("destination", batch.Destination).Logger()
	first := batch.Handles[0]
	if err := a.dispatch.EditCaption(ctx, batch.Destination, first, msg.Caption); err != nil {
		logger.Error().Err(err).Msg("error updating caption for media group")
		return
	}
	logger.Info().Msg("updated caption for forwarded media group")

	a.notify.emit(RelayEvent{
		Type:         EventCaptionUpdated,
		SourceChatID: msg.ChatID,
		MessageID:    msg.ID,
		MediaGroupID: groupID,
		Destination:  batch.Destination,
		Handles:      []SentHandle{first},
		Caption:      msg.Caption,
	})
}

// SweepIdle drops buffers of groups that never matched a rule and are older
// than ttl.
func (a *Aggregator) SweepIdle(ttl time.Duration) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.SweepBuffers(ttl, func(groupID string) bool {
		_, pending := a.gates[groupID]
		return pending
	})
}

func buildBatch(items []IncomingMessage, caption string) []OutboundMedia {
	batch := make([]OutboundMedia, 0, len(items))
	for _, msg := range items {
		if msg.Media == nil {
			continue
		}
		switch msg.Media.Kind {
		case MediaPhoto, MediaVideo, MediaDocument, MediaAudio:
		default:
			continue
		}
		item := OutboundMedia{Kind: msg.Media.Kind, FileID: msg.Media.FileID}
		if len(batch) == 0 {
			item.Caption = caption
		}
		batch = append(batch, item)
	}
	return batch
}
