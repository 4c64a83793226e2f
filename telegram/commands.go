package telegram

import (
	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/rs/zerolog/log"
)

const (
	parseMode    = "Markdown"
	startMessage = "Hello! I'm your relay bot. Send me media with a hashtag in the caption and I'll forward it."
)

// commandReply returns the reply for a command, or false if the command is
// unknown.
func commandReply(rb *RelayBot, chatID int64, command string) (tgbotapi.MessageConfig, bool) {
	switch command {
	case "start":
		return tgbotapi.NewMessage(chatID, startMessage), true
	case "count":
		reply := tgbotapi.NewMessage(chatID, formatStats(rb.Store.GetStats(chatID)))
		reply.ParseMode = parseMode
		return reply, true
	}
	return tgbotapi.MessageConfig{}, false
}

func handleCommand(rb *RelayBot, message *tgbotapi.Message) {
	reply, ok := commandReply(rb, message.Chat.ID, message.Command())
	if !ok {
		return
	}
	if _, err := rb.Bot.Send(reply); err != nil {
		log.Error().Err(err).Str("command", message.Command()).Int64("chat", message.Chat.ID).Msg("error replying to command")
	}
}
