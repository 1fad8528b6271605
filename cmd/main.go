package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-qa/internal/cli"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using process environment")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
