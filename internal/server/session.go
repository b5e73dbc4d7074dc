package server

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"blackjack21/internal/game"
	"blackjack21/internal/player"
)

type ClientMessage struct {
	Type   string `json:"type"`
	Token  string `json:"token,omitempty"`
	Name   string `json:"name,omitempty"`
	Amount int    `json:"amount,omitempty"`
}

type ServerMessage struct {
	Type  string         `json:"type"`
	Token string         `json:"token,omitempty"`
	Name  string         `json:"name,omitempty"`
	State *game.Snapshot `json:"state,omitempty"`
	Error *ErrorView     `json:"error,omitempty"`
}

type ErrorView struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Session serves one websocket connection. The table outlives the
// connection: it stays registered under the player's token so a reconnect
// resumes mid-round. Because two connections presenting the same token
// share one table, hello swaps mu for the identity's lock from the
// Manager; from then on every action and timer serializes on it.
type Session struct {
	mu   *sync.Mutex
	srv  *Server
	conn *websocket.Conn

	player *player.Player
	table  *game.Table

	// gen bumps on every state change; a deferred auto-continue timer
	// only fires if the generation it captured is still current.
	gen     int
	counted bool
}

func newSession(srv *Server, conn *websocket.Conn) *Session {
	return &Session{srv: srv, conn: conn, mu: &sync.Mutex{}}
}

func (s *Session) run() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError("bad_request", "invalid json")
			continue
		}
		s.handleMessage(msg)
	}
}

func (s *Session) handleMessage(msg ClientMessage) {
	switch msg.Type {
	case "hello":
		s.hello(msg)
	case "state":
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.table == nil {
			s.sendErrorLocked("no_session", "send hello first")
			return
		}
		s.sendStateLocked()
	default:
		s.apply(msg)
	}
}

// hello attaches the connection to a player identity, issuing a fresh
// token when the client has none, and resumes or creates the table. A
// session attaches once; repeated hellos just re-report the state.
func (s *Session) hello(msg ClientMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table != nil {
		s.sendStateLocked()
		return
	}

	token := msg.Token
	if token == "" {
		token = uuid.NewString()
	}

	p, err := s.srv.players.GetOrCreate(token, msg.Name, s.srv.cfg.StartBalance, s.srv.cfg.DefaultBet)
	if err != nil {
		log.Printf("failed to load player: %v", err)
		s.sendErrorLocked("storage", "could not load player")
		return
	}

	lock := s.srv.tables.Locker(token)
	lock.Lock()
	defer lock.Unlock()

	table := s.srv.tables.Get(token)
	if table == nil {
		table = game.NewTable(p.Balance, s.srv.cfg.MinBet)
		s.srv.tables.Set(token, table)
	}

	s.player = p
	s.table = table
	s.counted = table.Phase() == game.PhaseSettled
	s.mu = lock

	snap := table.Snapshot()
	s.write(ServerMessage{Type: "hello", Token: token, Name: p.Name, State: &snap})
}

func (s *Session) apply(msg ClientMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		s.sendErrorLocked("no_session", "send hello first")
		return
	}

	var err error
	switch msg.Type {
	case "bet":
		// the table enforces the floor, only the ceiling lives here
		if msg.Amount > s.srv.cfg.MaxBet {
			err = game.ErrInvalidBet
		} else if err = s.table.PlaceBet(msg.Amount); err == nil {
			s.player.LastBet = msg.Amount
		}
	case "clearBet":
		err = s.table.ClearBet()
	case "start":
		err = s.table.Start()
	case "hit":
		err = s.table.Hit()
	case "stand":
		err = s.table.Stand()
	case "double":
		err = s.table.DoubleDown()
	case "split":
		err = s.table.Split()
	case "insurance":
		err = s.table.TakeInsurance()
	case "decline":
		err = s.table.DeclineInsurance()
	case "newRound":
		if err = s.table.NewRound(); err == nil {
			s.counted = false
		}
	case "reload":
		err = s.table.Reload(s.srv.cfg.StartBalance)
	default:
		s.sendErrorLocked("unknown_type", "unknown message type")
		return
	}

	if err != nil {
		s.sendErrorLocked(errorCode(err), err.Error())
		return
	}

	s.afterActionLocked()
}

func (s *Session) afterActionLocked() {
	s.gen++
	s.persistLocked()
	s.sendStateLocked()

	if !s.table.PendingAuto() {
		return
	}

	// cosmetic delay before the automatic stand / dealer play resolves
	gen := s.gen
	time.AfterFunc(s.srv.cfg.RevealDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.gen != gen {
			return
		}
		if err := s.table.ResolvePending(); err != nil {
			s.sendErrorLocked(errorCode(err), err.Error())
			return
		}
		s.gen++
		s.persistLocked()
		s.sendStateLocked()
	})
}

// persistLocked writes the balance back after every action and folds the
// round into the player's stats exactly once per settlement.
func (s *Session) persistLocked() {
	s.player.Balance = s.table.Balance()

	if s.table.Phase() == game.PhaseSettled && !s.counted {
		s.counted = true
		snap := s.table.Snapshot()
		if snap.Main != nil {
			s.player.RecordOutcome(snap.Main.Outcome)
		}
		if snap.Split != nil {
			s.player.RecordOutcome(snap.Split.Outcome)
		}
		s.player.FinishRound(s.table.Balance())
	}

	if err := s.srv.players.Save(s.player); err != nil {
		log.Printf("failed to save player: %v", err)
	}
}

func (s *Session) sendStateLocked() {
	snap := s.table.Snapshot()
	s.write(ServerMessage{Type: "state", State: &snap})
}

func (s *Session) sendError(code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendErrorLocked(code, message)
}

func (s *Session) sendErrorLocked(code, message string) {
	s.write(ServerMessage{Type: "error", Error: &ErrorView{Code: code, Message: message}})
}

func (s *Session) write(msg ServerMessage) {
	if err := s.conn.WriteJSON(msg); err != nil {
		log.Printf("ws write: %v", err)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrInvalidBet):
		return "invalid_bet"
	case errors.Is(err, game.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, game.ErrIllegalAction):
		return "illegal_action"
	case errors.Is(err, game.ErrEmptyDeck):
		return "empty_deck"
	default:
		return "internal"
	}
}
