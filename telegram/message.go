package telegram

import (
	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

// MediaKind is the kind of media payload carried by a message.
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
	MediaAudio    MediaKind = "audio"
	MediaOther    MediaKind = "other"
)

// Media references a file already stored by Telegram, so it can be re-sent
// without uploading it again.
type Media struct {
	Kind   MediaKind `json:"kind"`
	FileID string    `json:"file_id"`
}

// IncomingMessage is the subset of a Telegram message the relay works with.
type IncomingMessage struct {
	ID           int        `json:"id"`
	ChatID       int64      `json:"chat_id"`
	Private      bool       `json:"private"`
	Text         string     `json:"text,omitempty"`
	Caption      string     `json:"caption,omitempty"`
	Media        *Media     `json:"media,omitempty"`
	MediaGroupID string     `json:"media_group_id,omitempty"`
	Edited       bool       `json:"edited"`
	Kinds        []StatKind `json:"kinds,omitempty"`
}

// Grouped reports whether the message is one item of a media group.
func (m IncomingMessage) Grouped() bool {
	return m.MediaGroupID != ""
}

// OutboundMedia is a single item of a batch sent with sendMediaGroup.
type OutboundMedia struct {
	Kind    MediaKind
	FileID  string
	Caption string
}

// SentHandle identifies a message on the destination side.
type SentHandle int

func newIncomingMessage(msg *tgbotapi.Message, edited bool) IncomingMessage {
	in := IncomingMessage{
		ID:           msg.MessageID,
		ChatID:       msg.Chat.ID,
		Private:      msg.Chat.IsPrivate(),
		Text:         msg.Text,
		Caption:      msg.Caption,
		MediaGroupID: msg.MediaGroupID,
		Edited:       edited,
	}

	switch {
	case len(msg.Photo) > 0:
		// sizes are sorted ascending, the last one is the original
		in.Media = &Media{Kind: MediaPhoto, FileID: msg.Photo[len(msg.Photo)-1].FileID}
	case msg.Video != nil:
		in.Media = &Media{Kind: MediaVideo, FileID: msg.Video.FileID}
	case msg.Document != nil:
		in.Media = &Media{Kind: MediaDocument, FileID: msg.Document.FileID}
	case msg.Audio != nil:
		in.Media = &Media{Kind: MediaAudio, FileID: msg.Audio.FileID}
	case msg.Voice != nil:
		in.Media = &Media{Kind: MediaOther, FileID: msg.Voice.FileID}
	case msg.Animation != nil:
		in.Media = &Media{Kind: MediaOther, FileID: msg.Animation.FileID}
	}

	if msg.Text != "" {
		in.Kinds = append(in.Kinds, StatText)
	}
	if len(msg.Photo) > 0 {
		in.Kinds = append(in.Kinds, StatPhoto)
	}
	if msg.Video != nil {
		in.Kinds = append(in.Kinds, StatVideo)
	}
	if msg.Document != nil {
		in.Kinds = append(in.Kinds, StatDocument)
	}
	if msg.Audio != nil {
		in.Kinds = append(in.Kinds, StatAudio)
	}
	if msg.Voice != nil {
		in.Kinds = append(in.Kinds, StatVoice)
	}
	return in
}
