package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

// Delivery operations reported in a DeliveryError.
const (
	OpSendBatch   = "send_batch"
	OpForward     = "forward"
	OpEditCaption = "edit_caption"
)

var errEmptyBatch = errors.New("batch has no sendable items")

// DeliveryError is returned when a Bot API call made on behalf of the relay
// fails.
type DeliveryError struct {
	Op          string
	Destination int64
	Err         error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s to %d: %v", e.Op, e.Destination, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsEditFailure reports whether err is a failed caption edit.
func IsEditFailure(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Op == OpEditCaption
}

// Dispatcher performs the outbound calls of the relay.
type Dispatcher interface {
	SendMediaBatch(ctx context.Context, destination int64, items []OutboundMedia) ([]SentHandle, error)
	ForwardSingle(ctx context.Context, destination int64, msg IncomingMessage) (SentHandle, error)
	EditCaption(ctx context.Context, destination int64, handle SentHandle, caption string) error
}

// Relay modes for single messages.
const (
	RelayCopy    = "copy"
	RelayForward = "forward"
)

// BotDispatcher implements Dispatcher on top of the Telegram Bot API.
type BotDispatcher struct {
	Bot  *tgbotapi.BotAPI
	Mode string
}

func NewBotDispatcher(bot *tgbotapi.BotAPI, mode string) *BotDispatcher {
	return &BotDispatcher{Bot: bot, Mode: mode}
}

func inputMedia(item OutboundMedia) tgbotapi.InputMedia {
	file := tgbotapi.FileID(item.FileID)
	switch item.Kind {
	case MediaPhoto:
		m := tgbotapi.NewInputMediaPhoto(file)
		m.Caption = item.Caption
		return &m
	case MediaVideo:
		m := tgbotapi.NewInputMediaVideo(file)
		m.Caption = item.Caption
		return &m
	case MediaDocument:
		m := tgbotapi.NewInputMediaDocument(file)
		m.Caption = item.Caption
		return &m
	case MediaAudio:
		m := tgbotapi.NewInputMediaAudio(file)
		m.Caption = item.Caption
		return &m
	}
	return nil
}

func (d *BotDispatcher) SendMediaBatch(ctx context.Context, destination int64, items []OutboundMedia) ([]SentHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DeliveryError{Op: OpSendBatch, Destination: destination, Err: err}
	}
	media := make([]tgbotapi.InputMedia, 0, len(items))
	for _, item := range items {
		if m := inputMedia(item); m != nil {
			media = append(media, m)
		}
	}
	if len(media) == 0 {
		return nil, &DeliveryError{Op: OpSendBatch, Destination: destination, Err: errEmptyBatch}
	}

	sent, err := d.Bot.SendMediaGroup(tgbotapi.NewMediaGroup(destination, media))
	if err != nil {
		return nil, &DeliveryError{Op: OpSendBatch, Destination: destination, Err: err}
	}
	handles := make([]SentHandle, len(sent))
	for i, m := range sent {
		handles[i] = SentHandle(m.MessageID)
	}
	return handles, nil
}

func (d *BotDispatcher) ForwardSingle(ctx context.Context, destination int64, msg IncomingMessage) (SentHandle, error) {
	if err := ctx.Err(); err != nil {
		return 0, &DeliveryError{Op: OpForward, Destination: destination, Err: err}
	}
	if d.Mode == RelayForward {
		sent, err := d.Bot.Send(tgbotapi.NewForward(destination, msg.ChatID, msg.ID))
		if err != nil {
			return 0, &DeliveryError{Op: OpForward, Destination: destination, Err: err}
		}
		return SentHandle(sent.MessageID), nil
	}

	id, err := d.Bot.CopyMessage(tgbotapi.NewCopyMessage(destination, msg.ChatID, msg.ID))
	if err != nil {
		return 0, &DeliveryError{Op: OpForward, Destination: destination, Err: err}
	}
	return SentHandle(id.MessageID), nil
}

func (d *BotDispatcher) EditCaption(ctx context.Context, destination int64, handle SentHandle, caption string) error {
	if err := ctx.Err(); err != nil {
		return &DeliveryError{Op: OpEditCaption, Destination: destination, Err: err}
	}
	edit := tgbotapi.NewEditMessageCaption(destination, int(handle), caption)
	if _, err := d.Bot.Request(edit); err != nil {
		return &DeliveryError{Op: OpEditCaption, Destination: destination, Err: err}
	}
	return nil
}
