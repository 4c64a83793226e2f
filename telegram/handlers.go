package telegram

import (
	"context"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/rs/zerolog/log"
)

func handleUpdate(ctx context.Context, rb *RelayBot, update tgbotapi.Update) {
	if msg := update.Message; msg != nil { // If we got a new message
		in := newIncomingMessage(msg, false)
		recordStats(rb.Store, in)

		if msg.IsCommand() {
			handleCommand(rb, msg)
			return
		}
		relayMessage(ctx, rb, in)
		return
	}
	if msg := update.EditedMessage; msg != nil { // If we got an edit
		relayEdit(ctx, rb, newIncomingMessage(msg, true))
	}
}

// relayable reports whether a message is a candidate for relaying: only
// media posted in private chats is relayed.
func relayable(msg IncomingMessage) bool {
	return msg.Private && msg.Media != nil
}

func relayMessage(ctx context.Context, rb *RelayBot, msg IncomingMessage) {
	if !relayable(msg) {
		return
	}
	if msg.Grouped() {
		rb.Aggregator.Observe(msg)
		return
	}
	rb.Forwarder.Forward(ctx, msg)
}

func relayEdit(ctx context.Context, rb *RelayBot, msg IncomingMessage) {
	if !relayable(msg) {
		return
	}
	log.Debug().Int64("chat", msg.ChatID).Int("message", msg.ID).Str("caption", msg.Caption).Msg("edited caption")
	if msg.Grouped() {
		rb.Aggregator.ReconcileEdit(ctx, msg)
		return
	}
	rb.Forwarder.ReconcileEdit(ctx, msg)
}
