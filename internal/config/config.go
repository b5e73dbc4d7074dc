package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr         string
	BotToken     string
	DatabasePath string
	StartBalance int
	DefaultBet   int
	MinBet       int
	MaxBet       int
	RevealDelay  time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./blackjack.db"
	}

	delay := 1 * time.Second
	if v := os.Getenv("REVEAL_DELAY_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			return nil, fmt.Errorf("invalid REVEAL_DELAY_MS: %q", v)
		}
		delay = time.Duration(ms) * time.Millisecond
	}

	return &Config{
		Addr:         addr,
		BotToken:     os.Getenv("BOT_TOKEN"),
		DatabasePath: dbPath,
		StartBalance: 1000,
		DefaultBet:   100,
		MinBet:       10,
		MaxBet:       10000,
		RevealDelay:  delay,
	}, nil
}
