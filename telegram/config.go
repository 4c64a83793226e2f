package telegram

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultBufferTTL is how long the items of a media group that never matched
// a rule are kept around, waiting for a caption edit.
const DefaultBufferTTL = time.Hour

// Config is the startup configuration of the bot.
type Config struct {
	BotToken    string
	Rules       []Rule
	SettleDelay time.Duration
	BufferTTL   time.Duration
	RelayMode   string
	ValkeyAddr  string
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	cfg := Config{
		BotToken:   os.Getenv("BOT_TOKEN"),
		ValkeyAddr: os.Getenv("VALKEY_ADDR"),
		RelayMode:  strings.ToLower(strings.TrimSpace(os.Getenv("RELAY_MODE"))),
	}
	if cfg.BotToken == "" {
		return cfg, errors.New("BOT_TOKEN is not set")
	}

	switch cfg.RelayMode {
	case "":
		cfg.RelayMode = RelayCopy
	case RelayCopy, RelayForward:
	default:
		return cfg, fmt.Errorf("invalid RELAY_MODE %q: expected %q or %q", cfg.RelayMode, RelayCopy, RelayForward)
	}

	var err error
	if cfg.SettleDelay, err = getDurationEnv("SETTLE_DELAY", DefaultSettleDelay); err != nil {
		return cfg, err
	}
	if cfg.BufferTTL, err = getDurationEnv("BUFFER_TTL", DefaultBufferTTL); err != nil {
		return cfg, err
	}

	if path := os.Getenv("RULES_FILE"); path != "" {
		cfg.Rules, err = LoadRulesFile(path)
		if err != nil {
			return cfg, err
		}
		log.Info().Str("file", path).Int("rules", len(cfg.Rules)).Msg("loaded forwarding rules")
	}
	if raw := os.Getenv("RULES"); raw != "" {
		rules, err := ParseRules(raw)
		if err != nil {
			return cfg, fmt.Errorf("RULES: %w", err)
		}
		cfg.Rules = append(cfg.Rules, rules...)
		log.Info().Int("rules", len(rules)).Msg("loaded forwarding rules from RULES")
	}
	if len(cfg.Rules) == 0 {
		return cfg, fmt.Errorf("set RULES or RULES_FILE: %w", ErrNoRules)
	}
	return cfg, nil
}

// getDurationEnv reads a duration environment variable with a default value
func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// GetBoolEnv reads a boolean environment variable with a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1"
}
