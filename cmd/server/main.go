package main

import (
	"log"
	"net/http"

	"blackjack21/internal/config"
	"blackjack21/internal/database"
	"blackjack21/internal/player"
	"blackjack21/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Database connected")

	playerRepo := player.NewRepository(db.DB)
	srv := server.New(cfg, playerRepo)

	log.Printf("listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, srv.Routes()); err != nil {
		log.Fatal(err)
	}
}
