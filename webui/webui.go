package webui

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/birabittoh/relaybot/telegram"
	"github.com/rs/zerolog/log"
)

type WebUI struct {
	Server   *http.ServeMux
	RelayBot *telegram.RelayBot
	Hub      *EventHub

	port string
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("error encoding response")
	}
}

func getChatID(r *http.Request) (int64, error) {
	r.ParseForm()
	res := r.Form.Get("id")
	return strconv.ParseInt(res, 10, 64)
}

func rulesHandler(bot *telegram.RelayBot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, bot.Rules.Rules())
	}
}

func statsHandler(bot *telegram.RelayBot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "" {
			chatID, err := getChatID(r)
			if err != nil {
				http.Error(w, "invalid chat id", http.StatusBadRequest)
				return
			}
			writeJSON(w, bot.Store.GetStats(chatID))
			return
		}

		all := bot.Store.AllStats()
		response := make(map[string]telegram.ChatStats, len(all))
		for chatID, stats := range all {
			response[strconv.FormatInt(chatID, 10)] = stats
		}
		writeJSON(w, response)
	}
}

func resetStatsHandler(bot *telegram.RelayBot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		chatID, err := getChatID(r)
		if err != nil {
			http.Error(w, "invalid chat id", http.StatusBadRequest)
			return
		}
		bot.Store.ResetStats(chatID)
		log.Info().Int64("chat", chatID).Msg("stats reset")
		w.WriteHeader(http.StatusNoContent)
	}
}

func pendingHandler(bot *telegram.RelayBot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, bot.Store.BufferSizes())
	}
}

func newRouter(bot *telegram.RelayBot, hub *EventHub) *http.ServeMux {
	r := http.NewServeMux()
	r.HandleFunc("/api/rules", rulesHandler(bot))
	r.HandleFunc("/api/stats", statsHandler(bot))
	r.HandleFunc("/api/stats/reset", resetStatsHandler(bot))
	r.HandleFunc("/api/pending", pendingHandler(bot))
	r.HandleFunc("/ws", hub.wsHandler)
	return r
}

func NewWebUI(port string, bot *telegram.RelayBot) WebUI {
	hub := NewEventHub()

	// Register callback for broadcasting relay events
	bot.SetOnRelayEvent(hub.Broadcast)

	go telegram.BotPoll(bot)

	return WebUI{
		Server:   newRouter(bot, hub),
		RelayBot: bot,
		Hub:      hub,
		port:     port,
	}
}

func (webui *WebUI) Poll() {
	log.Info().Str("port", webui.port).Msg("serving web UI")
	err := http.ListenAndServe(":"+webui.port, webui.Server)
	if err != nil {
		log.Fatal().Err(err).Msg("web UI stopped")
	}
}
