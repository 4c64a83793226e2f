package telegram

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Forwarder relays messages that are not part of a media group.
type Forwarder struct {
	store    *Store
	rules    *RuleTable
	dispatch Dispatcher
	notify   notifier
}

func NewForwarder(store *Store, rules *RuleTable, dispatch Dispatcher) *Forwarder {
	return &Forwarder{store: store, rules: rules, dispatch: dispatch}
}

// Forward relays msg to the destination of the first matching rule and
// remembers where it went.
func (f *Forwarder) Forward(ctx context.Context, msg IncomingMessage) {
	rule, ok := f.rules.Match(msg.Caption)
	if !ok {
		return
	}
	logger := log.With().Int64("chat", msg.ChatID).Int("message", msg.ID).
		Str("trigger", rule.Trigger).Int64("destination", rule.Destination).Logger()

	handle, err := f.dispatch.ForwardSingle(ctx, rule.Destination, msg)
	if err != nil {
		logger.Error().Err(err).Msg("error forwarding message")
		return
	}
	f.store.SaveSingle(msg.ChatID, msg.ID, ForwardedSingle{Destination: rule.Destination, Handle: handle})
	logger.Info().Msg("forwarded message")

	f.notify.emit(RelayEvent{
		Type:         EventSingleForwarded,
		SourceChatID: msg.ChatID,
		MessageID:    msg.ID,
		Destination:  rule.Destination,
		Handles:      []SentHandle{handle},
		Caption:      msg.Caption,
	})
}

// ReconcileEdit updates the caption of a previously relayed message. Edits
// of messages that were never relayed are ignored, even if the new caption
// matches a rule.
func (f *Forwarder) ReconcileEdit(ctx context.Context, msg IncomingMessage) {
	rec, ok := f.store.GetSingle(msg.ChatID, msg.ID)
	if !ok {
		log.Debug().Int64("chat", msg.ChatID).Int("message", msg.ID).Msg("edited message was never forwarded")
		return
	}
	logger := log.With().Int64("chat", msg.ChatID).Int("message", msg.ID).Int64("destination", rec.Destination).Logger()

	if err := f.dispatch.EditCaption(ctx, rec.Destination, rec.Handle, msg.Caption); err != nil {
		logger.Error().Err(err).Msg("error updating caption for forwarded message")
		return
	}
	logger.Info().Msg("updated caption for forwarded message")

	f.notify.emit(RelayEvent{
		Type:         EventCaptionUpdated,
		SourceChatID: msg.ChatID,
		MessageID:    msg.ID,
		Destination:  rec.Destination,
		Handles:      []SentHandle{rec.Handle},
		Caption:      msg.Caption,
	})
}
