package telegram

import "time"

// RelayEventType describes what happened to relayed content.
type RelayEventType string

const (
	EventBatchForwarded  RelayEventType = "batch_forwarded"
	EventSingleForwarded RelayEventType = "single_forwarded"
	EventCaptionUpdated  RelayEventType = "caption_updated"
)

// RelayEvent is emitted after every successful outbound call.
type RelayEvent struct {
	Type         RelayEventType `json:"type"`
	SourceChatID int64          `json:"source_chat_id,omitempty"`
	MessageID    int            `json:"message_id,omitempty"`
	MediaGroupID string         `json:"media_group_id,omitempty"`
	Destination  int64          `json:"destination"`
	Handles      []SentHandle   `json:"handles"`
	Caption      string         `json:"caption"`
	Time         time.Time      `json:"time"`
}

type notifier func(RelayEvent)

func (n notifier) emit(ev RelayEvent) {
	if n == nil {
		return
	}
	ev.Time = time.Now()
	n(ev)
}
