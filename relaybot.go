package main

import (
	"os"
	"strings"

	"github.com/birabittoh/relaybot/telegram"
	"github.com/birabittoh/relaybot/webui"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func setupLogger() {
	level, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if os.Getenv("LOG_FORMAT") == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	err := godotenv.Load()
	setupLogger()
	if err != nil {
		log.Info().Msg("No .env file provided.")
	}

	cfg, err := telegram.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Please check your configuration in .env!")
	}

	bot, err := telegram.NewBot(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not start the bot")
	}
	defer bot.Store.Close()

	if !telegram.GetBoolEnv("WEBUI", true) {
		telegram.BotPoll(bot)
		return
	}

	port := os.Getenv("PORT")
	if port == "" {
		log.Info().Msg("PORT not set in .env! Defaulting to 3000.")
		port = "3000"
	}

	ui := webui.NewWebUI(port, bot)
	ui.Poll()
}
