package telegram

import (
	"fmt"
	"strings"
)

// StatKind is a message kind tallied per chat.
type StatKind string

const (
	StatText     StatKind = "text"
	StatPhoto    StatKind = "photo"
	StatVideo    StatKind = "video"
	StatDocument StatKind = "document"
	StatAudio    StatKind = "audio"
	StatVoice    StatKind = "voice"
)

// StatKinds lists every tallied kind in display order.
var StatKinds = []StatKind{StatText, StatPhoto, StatVideo, StatDocument, StatAudio, StatVoice}

var statLabels = map[StatKind]string{
	StatText:     "Texts",
	StatPhoto:    "Photos",
	StatVideo:    "Videos",
	StatDocument: "Documents",
	StatAudio:    "Audios",
	StatVoice:    "Voices",
}

// ChatStats holds the per-kind counters of one chat.
type ChatStats map[StatKind]int

func newChatStats() ChatStats {
	s := make(ChatStats, len(StatKinds))
	for _, k := range StatKinds {
		s[k] = 0
	}
	return s
}

// recordStats tallies a new message. Edited messages are never counted.
func recordStats(store *Store, msg IncomingMessage) {
	if msg.Edited || len(msg.Kinds) == 0 {
		return
	}
	store.IncrementStats(msg.ChatID, msg.Kinds)
}

func formatStats(stats ChatStats) string {
	var b strings.Builder
	b.WriteString("*Message Counts for this chat*\n")
	for _, k := range StatKinds {
		fmt.Fprintf(&b, "%s: %d\n", statLabels[k], stats[k])
	}
	return b.String()
}
