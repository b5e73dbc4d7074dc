package player

import (
	"database/sql"
	"fmt"
)

// Player mirrors the persisted row for one identity. The balance here is a
// copy: during a round the game engine owns the authoritative balance and
// it is written back after every change.
type Player struct {
	Identity string
	Name     string
	Balance  int
	Wins     int
	Losses   int
	Draws    int
	Games    int
	LastBet  int
}

type Stats struct {
	Name    string
	Balance int
	Wins    int
	Games   int
	WinRate float64
}

type Repository interface {
	GetOrCreate(identity, name string, startBalance, defaultBet int) (*Player, error)
	Save(player *Player) error
	GetTopByBalance(limit int) ([]Stats, error)
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) GetOrCreate(identity, name string, startBalance, defaultBet int) (*Player, error) {
	player := &Player{Identity: identity}

	err := r.db.QueryRow(`
		SELECT name, balance, wins, losses, draws, games, last_bet
		FROM players WHERE identity = ?
	`, identity).Scan(
		&player.Name, &player.Balance, &player.Wins, &player.Losses,
		&player.Draws, &player.Games, &player.LastBet,
	)

	if err == sql.ErrNoRows {
		player.Name = name
		player.Balance = startBalance
		player.LastBet = defaultBet

		_, err = r.db.Exec(`
			INSERT INTO players (identity, name, balance, last_bet)
			VALUES (?, ?, ?, ?)
		`, identity, player.Name, player.Balance, player.LastBet)

		if err != nil {
			return nil, fmt.Errorf("failed to create player: %w", err)
		}
		return player, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	if name != "" && name != player.Name {
		player.Name = name
	}

	return player, nil
}

func (r *SQLiteRepository) Save(player *Player) error {
	_, err := r.db.Exec(`
		UPDATE players SET
			name = ?, balance = ?, wins = ?, losses = ?, draws = ?,
			games = ?, last_bet = ?, last_played_at = CURRENT_TIMESTAMP
		WHERE identity = ?
	`, player.Name, player.Balance, player.Wins, player.Losses, player.Draws,
		player.Games, player.LastBet, player.Identity)

	if err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetTopByBalance(limit int) ([]Stats, error) {
	rows, err := r.db.Query(`
		SELECT name, balance, wins, games
		FROM players
		WHERE games > 0
		ORDER BY balance DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []Stats
	for rows.Next() {
		var s Stats
		if err := rows.Scan(&s.Name, &s.Balance, &s.Wins, &s.Games); err != nil {
			return nil, err
		}
		if s.Games > 0 {
			s.WinRate = float64(s.Wins) / float64(s.Games) * 100
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// RecordOutcome folds one settled hand into the running stats. A round
// with a split calls it once per hand.
func (p *Player) RecordOutcome(outcome string) {
	switch outcome {
	case "win", "blackjack":
		p.Wins++
	case "loss":
		p.Losses++
	case "push":
		p.Draws++
	}
}

func (p *Player) FinishRound(balance int) {
	p.Balance = balance
	p.Games++
}

func (p *Player) WinRate() float64 {
	if p.Games == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.Games) * 100
}
