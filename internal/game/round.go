package game

import (
	"errors"
	"sync"
)

var (
	ErrInvalidBet        = errors.New("invalid bet")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrIllegalAction     = errors.New("illegal action in current phase")
)

type Phase int

const (
	PhaseBetting Phase = iota
	PhaseInsurance
	PhasePlayer
	PhaseDealer
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseBetting:
		return "betting"
	case PhaseInsurance:
		return "insurance"
	case PhasePlayer:
		return "player"
	case PhaseDealer:
		return "dealer"
	case PhaseSettled:
		return "settled"
	default:
		return "unknown"
	}
}

type HandID int

const (
	HandMain HandID = iota
	HandSplit
)

type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeWin
	OutcomeLoss
	OutcomePush
	OutcomeBlackjack
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeLoss:
		return "loss"
	case OutcomePush:
		return "push"
	case OutcomeBlackjack:
		return "blackjack"
	default:
		return ""
	}
}

type Hand struct {
	Cards   []Card
	Bet     int
	Doubled bool
	Busted  bool
	Stood   bool
	Outcome Outcome
}

func (h *Hand) Score() int {
	return Score(h.Cards)
}

// Table holds one player's seat: the balance carried across rounds plus all
// state of the round in progress.
type Table struct {
	balance int
	minBet  int
	phase   Phase

	bet       int
	deck      *Deck
	dealer    []Card
	main      *Hand
	split     *Hand
	insurance int

	isSplit    bool
	splitAces  bool
	active     HandID
	holeHidden bool

	// pendingAuto marks a deferred automatic transition: the auto-stand
	// after a double, or the dealer play after an ace split. The driving
	// loop resolves it via ResolvePending, usually after a display delay.
	pendingAuto bool

	staked    int
	paid      int
	netProfit int
	message   string

	newDeck func() *Deck
}

// NewTable seats a player with the given balance. Bets below minBet are
// rejected; a minBet under 1 is treated as 1.
func NewTable(balance, minBet int) *Table {
	if minBet < 1 {
		minBet = 1
	}
	return &Table{
		balance: balance,
		minBet:  minBet,
		phase:   PhaseBetting,
		newDeck: NewDeck,
	}
}

func (t *Table) Balance() int      { return t.balance }
func (t *Table) Phase() Phase      { return t.phase }
func (t *Table) Bet() int          { return t.bet }
func (t *Table) PendingAuto() bool { return t.pendingAuto }

func (t *Table) stake(amount int) {
	t.balance -= amount
	t.staked += amount
}

func (t *Table) credit(amount int) {
	t.balance += amount
	t.paid += amount
}

func (t *Table) activeHand() *Hand {
	if t.active == HandSplit {
		return t.split
	}
	return t.main
}

// PlaceBet records the bet for the next round. Calling it again before
// Start replaces the previous amount.
func (t *Table) PlaceBet(amount int) error {
	if t.phase != PhaseBetting {
		return ErrIllegalAction
	}
	if amount < t.minBet || amount > t.balance {
		return ErrInvalidBet
	}

	t.bet = amount
	return nil
}

func (t *Table) ClearBet() error {
	if t.phase != PhaseBetting {
		return ErrIllegalAction
	}

	t.bet = 0
	return nil
}

// Reload restores a player who can no longer cover the table minimum to
// the given balance between rounds.
func (t *Table) Reload(amount int) error {
	if t.phase != PhaseBetting || t.balance >= t.minBet || t.bet > 0 {
		return ErrIllegalAction
	}
	if amount <= 0 {
		return ErrInvalidBet
	}

	t.balance = amount
	return nil
}

// Start stakes the placed bet, deals two cards each and routes the round:
// insurance offer on a dealer ace, immediate settlement on naturals,
// otherwise on to the player.
func (t *Table) Start() error {
	if t.phase != PhaseBetting {
		return ErrIllegalAction
	}
	if t.bet <= 0 {
		return ErrInvalidBet
	}

	deck := t.newDeck()
	var deal [4]Card
	for i := range deal {
		c, err := deck.Draw()
		if err != nil {
			return err
		}
		deal[i] = c
	}

	t.stake(t.bet)
	t.deck = deck
	t.main = &Hand{Cards: []Card{deal[0], deal[2]}, Bet: t.bet}
	t.dealer = []Card{deal[1], deal[3]}
	t.holeHidden = true

	if t.dealer[0].Rank == Ace && !IsNatural(t.main.Cards) {
		t.phase = PhaseInsurance
		return nil
	}

	if IsNatural(t.main.Cards) || IsNatural(t.dealer) {
		t.settleNaturals()
		return nil
	}

	t.phase = PhasePlayer
	t.active = HandMain
	return nil
}

// TakeInsurance stakes half the main bet against a dealer natural.
func (t *Table) TakeInsurance() error {
	if t.phase != PhaseInsurance {
		return ErrIllegalAction
	}

	stake := t.main.Bet / 2
	if stake > t.balance {
		return ErrInsufficientFunds
	}

	t.stake(stake)
	t.insurance = stake
	return t.resolveInsurance()
}

func (t *Table) DeclineInsurance() error {
	if t.phase != PhaseInsurance {
		return ErrIllegalAction
	}
	return t.resolveInsurance()
}

func (t *Table) resolveInsurance() error {
	if IsNatural(t.dealer) {
		t.settleNaturals()
		return nil
	}

	t.phase = PhasePlayer
	t.active = HandMain
	return nil
}

func (t *Table) Hit() error {
	if t.phase != PhasePlayer || t.pendingAuto {
		return ErrIllegalAction
	}

	hand := t.activeHand()
	card, err := t.deck.Draw()
	if err != nil {
		return err
	}
	hand.Cards = append(hand.Cards, card)

	if hand.Score() > 21 {
		hand.Busted = true
		return t.advance()
	}
	return nil
}

func (t *Table) Stand() error {
	if t.phase != PhasePlayer || t.pendingAuto {
		return ErrIllegalAction
	}

	hand := t.activeHand()
	hand.Stood = true
	if err := t.advance(); err != nil {
		hand.Stood = false
		return err
	}
	return nil
}

// DoubleDown stakes the bet again, draws exactly one card and then stands
// the hand automatically. A bust advances immediately; otherwise the stand
// is left pending for the driving loop.
func (t *Table) DoubleDown() error {
	if t.phase != PhasePlayer || t.pendingAuto {
		return ErrIllegalAction
	}

	hand := t.activeHand()
	if len(hand.Cards) != 2 || hand.Doubled {
		return ErrIllegalAction
	}
	if hand.Bet > t.balance {
		return ErrInsufficientFunds
	}

	card, err := t.deck.Draw()
	if err != nil {
		return err
	}

	t.stake(hand.Bet)
	hand.Bet *= 2
	hand.Doubled = true
	hand.Cards = append(hand.Cards, card)

	if hand.Score() > 21 {
		hand.Busted = true
		return t.advance()
	}

	hand.Stood = true
	t.pendingAuto = true
	return nil
}

// Split divides an eligible pair into two hands with independent equal
// bets and deals one fresh card to each. Split aces receive no further
// cards; both hands stand and dealer play is left pending.
func (t *Table) Split() error {
	if t.phase != PhasePlayer || t.pendingAuto || t.isSplit || t.active != HandMain {
		return ErrIllegalAction
	}

	hand := t.main
	if len(hand.Cards) != 2 || hand.Doubled || !CanSplit(hand.Cards[0], hand.Cards[1]) {
		return ErrIllegalAction
	}
	if hand.Bet > t.balance {
		return ErrInsufficientFunds
	}
	if t.deck.Remaining() < 2 {
		return ErrEmptyDeck
	}

	t.stake(hand.Bet)

	second := hand.Cards[1]
	aces := hand.Cards[0].Rank == Ace

	c1, _ := t.deck.Draw()
	c2, _ := t.deck.Draw()

	hand.Cards = []Card{hand.Cards[0], c1}
	t.split = &Hand{Cards: []Card{second, c2}, Bet: hand.Bet}
	t.isSplit = true
	t.splitAces = aces
	t.active = HandMain

	if aces {
		hand.Stood = true
		t.split.Stood = true
		t.pendingAuto = true
	}
	return nil
}

// ResolvePending performs the deferred automatic transition. A no-op when
// nothing is pending, so it is safe to invoke from a stale timer.
func (t *Table) ResolvePending() error {
	if !t.pendingAuto {
		return nil
	}

	t.pendingAuto = false
	if err := t.advance(); err != nil {
		t.pendingAuto = true
		return err
	}
	return nil
}

// advance moves play to the split hand if it still needs input, otherwise
// closes out the round.
func (t *Table) advance() error {
	if t.isSplit && t.active == HandMain && !t.split.Stood && !t.split.Busted {
		t.active = HandSplit
		return nil
	}
	return t.finishRound()
}

func (t *Table) anyLiveHand() bool {
	if !t.main.Busted {
		return true
	}
	return t.isSplit && !t.split.Busted
}

// finishRound runs the dealer when at least one player hand is live (hit
// below 17, stand at 17 or more, soft included), then reveals the hole
// card and settles every hand. The phase and the hole card stay as they
// were if the deck runs out mid-draw.
func (t *Table) finishRound() error {
	dealer := t.dealer
	if t.anyLiveHand() {
		for Score(dealer) < 17 {
			card, err := t.deck.Draw()
			if err != nil {
				return err
			}
			dealer = append(dealer, card)
		}
	}

	t.phase = PhaseDealer
	t.holeHidden = false
	t.dealer = dealer
	t.settle()
	return nil
}

// NewRound discards all round state and returns to betting with the
// balance preserved.
func (t *Table) NewRound() error {
	if t.phase != PhaseSettled {
		return ErrIllegalAction
	}

	*t = Table{
		balance: t.balance,
		minBet:  t.minBet,
		phase:   PhaseBetting,
		newDeck: t.newDeck,
	}
	return nil
}

// Manager tracks the active table per player identity. A table is shared:
// every reconnecting session and every deferred timer for the identity
// gets the same *Table, so all of them mutate it only while holding the
// mutex from Locker.
type Manager struct {
	mu     sync.RWMutex
	tables map[string]*Table
	locks  map[string]*sync.Mutex
}

func NewManager() *Manager {
	return &Manager{
		tables: make(map[string]*Table),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Locker returns the mutex guarding the identity's table, creating it on
// first use. The mutex outlives Delete so in-flight holders stay valid.
func (m *Manager) Locker(identity string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.locks[identity]
	if l == nil {
		l = &sync.Mutex{}
		m.locks[identity] = l
	}
	return l
}

func (m *Manager) Get(identity string) *Table {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tables[identity]
}

func (m *Manager) Set(identity string, t *Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[identity] = t
}

func (m *Manager) Delete(identity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, identity)
}
