package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/rs/zerolog/log"
)

type RelayBot struct {
	Bot        *tgbotapi.BotAPI
	Config     Config
	Rules      *RuleTable
	Store      *Store
	Aggregator *Aggregator
	Forwarder  *Forwarder
}

// NewBot connects to the Bot API and wires the relay components.
func NewBot(cfg Config) (*RelayBot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("connect to bot API: %w", err)
	}

	//bot.Debug = true

	log.Info().Str("account", bot.Self.UserName).Msg("authorized")

	rb, err := newRelayBot(cfg, NewStore(cfg.ValkeyAddr), NewBotDispatcher(bot, cfg.RelayMode))
	if err != nil {
		return nil, err
	}
	rb.Bot = bot
	return rb, nil
}

func newRelayBot(cfg Config, store *Store, dispatch Dispatcher) (*RelayBot, error) {
	rules, err := NewRuleTable(cfg.Rules)
	if err != nil {
		return nil, err
	}
	for _, r := range rules.Rules() {
		log.Info().Str("trigger", r.Trigger).Int64("destination", r.Destination).Msg("forwarding rule")
	}

	return &RelayBot{
		Config:     cfg,
		Rules:      rules,
		Store:      store,
		Aggregator: NewAggregator(store, rules, dispatch, cfg.SettleDelay),
		Forwarder:  NewForwarder(store, rules, dispatch),
	}, nil
}

// SetOnRelayEvent registers a callback run after every successful relay.
// It must be called before BotPoll.
func (rb *RelayBot) SetOnRelayEvent(f func(RelayEvent)) {
	rb.Aggregator.notify = f
	rb.Forwarder.notify = f
}

// sweepBuffers periodically drops media group buffers that never matched a
// rule.
func sweepBuffers(ctx context.Context, rb *RelayBot) {
	ttl := rb.Config.BufferTTL
	if ttl <= 0 {
		return
	}
	interval := min(ttl, 10*time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rb.Aggregator.SweepIdle(ttl); n > 0 {
				log.Debug().Int("groups", n).Msg("dropped idle media group buffers")
			}
		}
	}
}

func BotPoll(rb *RelayBot) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "edited_message"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweepBuffers(ctx, rb)

	updates := rb.Bot.GetUpdatesChan(u)
	log.Info().Msg("bot running")

	for update := range updates {
		handleUpdate(ctx, rb, update)
	}
	log.Info().Msg("update channel closed, exiting")
}
