package game

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cardOf(r Rank) Card {
	return Card{Suit: Spades, Rank: r}
}

func handOf(ranks ...Rank) []Card {
	cards := make([]Card, len(ranks))
	for i, r := range ranks {
		cards[i] = cardOf(r)
	}
	return cards
}

// stackedTable returns a table whose next round is dealt from the given
// ranks in draw order: player, dealer up, player, dealer hole, then every
// later draw.
func stackedTable(balance int, ranks ...Rank) *Table {
	tb := NewTable(balance, 1)
	tb.newDeck = func() *Deck {
		return &Deck{cards: handOf(ranks...)}
	}
	return tb
}

func TestPlaceBetValidation(t *testing.T) {
	tb := NewTable(1000, 1)

	assert.ErrorIs(t, tb.PlaceBet(0), ErrInvalidBet)
	assert.ErrorIs(t, tb.PlaceBet(-50), ErrInvalidBet)
	assert.ErrorIs(t, tb.PlaceBet(1001), ErrInvalidBet)

	require.NoError(t, tb.PlaceBet(100))
	assert.Equal(t, 100, tb.Bet())
	assert.Equal(t, 1000, tb.Balance(), "bet is staked at Start, not at placement")

	// replacing the bet is allowed before the deal
	require.NoError(t, tb.PlaceBet(200))
	assert.Equal(t, 200, tb.Bet())

	require.NoError(t, tb.ClearBet())
	assert.Equal(t, 0, tb.Bet())
}

func TestActionsOutsidePhase(t *testing.T) {
	tb := NewTable(1000, 1)

	assert.ErrorIs(t, tb.Hit(), ErrIllegalAction)
	assert.ErrorIs(t, tb.Stand(), ErrIllegalAction)
	assert.ErrorIs(t, tb.DoubleDown(), ErrIllegalAction)
	assert.ErrorIs(t, tb.Split(), ErrIllegalAction)
	assert.ErrorIs(t, tb.TakeInsurance(), ErrIllegalAction)
	assert.ErrorIs(t, tb.DeclineInsurance(), ErrIllegalAction)
	assert.ErrorIs(t, tb.NewRound(), ErrIllegalAction)
	assert.ErrorIs(t, tb.Start(), ErrInvalidBet, "start without a bet")
}

func TestStartDeals(t *testing.T) {
	// player {10,7}=17, dealer shows 6 with a hidden 9
	tb := stackedTable(1000, Ten, Six, Seven, Nine)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	assert.Equal(t, PhasePlayer, tb.Phase())
	assert.Equal(t, 900, tb.Balance())

	snap := tb.Snapshot()
	require.NotNil(t, snap.Main)
	assert.Equal(t, 17, snap.Main.Score)
	assert.Equal(t, 100, snap.Main.Bet)

	require.NotNil(t, snap.Dealer)
	assert.True(t, snap.Dealer.HoleHidden)
	assert.Equal(t, []string{"6♠", HiddenCard}, snap.Dealer.Cards)
	assert.Zero(t, snap.Dealer.Score, "hidden hole card must not leak the score")
}

// Balance 1000, bet 100, player {10,7} against a dealer 6: the advisor
// says stand.
func TestAdvisorSuggestsStandOnSeventeen(t *testing.T) {
	tb := stackedTable(1000, Ten, Six, Seven, Nine)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	adv := tb.Advice()
	assert.Equal(t, AdviceStand, adv.Action)
	assert.Contains(t, tb.Snapshot().Suggestion, AdviceStand)
}

func TestPlayerNaturalPaysThreeToTwo(t *testing.T) {
	tb := stackedTable(1000, Ace, Five, King, Nine)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	assert.Equal(t, PhaseSettled, tb.Phase())
	assert.Equal(t, 1150, tb.Balance())
	assert.Equal(t, 150, tb.netProfit)
	assert.Equal(t, OutcomeBlackjack, tb.main.Outcome)
}

func TestBothNaturalsPush(t *testing.T) {
	tb := stackedTable(1000, Ace, Ace, King, King)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	// the player's own natural suppresses the insurance offer
	assert.Equal(t, PhaseSettled, tb.Phase())
	assert.Equal(t, 1000, tb.Balance())
	assert.Equal(t, OutcomePush, tb.main.Outcome)
}

func TestDealerNaturalWithoutAceUp(t *testing.T) {
	tb := stackedTable(1000, Ten, King, Nine, Ace)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	assert.Equal(t, PhaseSettled, tb.Phase())
	assert.Equal(t, 900, tb.Balance())
	assert.Equal(t, OutcomeLoss, tb.main.Outcome)
	assert.Contains(t, tb.message, "Dealer blackjack")
}

// Player {A,8}, dealer ace up with a king underneath: insurance is
// offered; declining settles as a dealer blackjack costing only the bet.
func TestDeclineInsuranceDealerNatural(t *testing.T) {
	tb := stackedTable(1000, Ace, Ace, Eight, King)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	assert.Equal(t, PhaseInsurance, tb.Phase())
	assert.Equal(t, AdviceDecline, tb.Advice().Action)

	require.NoError(t, tb.DeclineInsurance())
	assert.Equal(t, PhaseSettled, tb.Phase())
	assert.Equal(t, 900, tb.Balance())
	assert.Equal(t, -100, tb.netProfit)
}

func TestTakeInsuranceDealerNatural(t *testing.T) {
	tb := stackedTable(1000, Ace, Ace, Eight, King)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	require.NoError(t, tb.TakeInsurance())
	assert.Equal(t, PhaseSettled, tb.Phase())

	// bet lost, but the 50 insurance stake came back threefold
	assert.Equal(t, 1000, tb.Balance())
	assert.Contains(t, tb.message, "Insurance pays 150")
}

func TestTakeInsuranceNoDealerNatural(t *testing.T) {
	tb := stackedTable(1000, Ace, Ace, Eight, Five, Nine, King)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	require.NoError(t, tb.TakeInsurance())
	assert.Equal(t, PhasePlayer, tb.Phase(), "no dealer natural, play continues")
	assert.Equal(t, 850, tb.Balance())

	// dealer soft 16 draws to hard 15, then the king busts it at 25
	require.NoError(t, tb.Stand())
	assert.Equal(t, PhaseSettled, tb.Phase())
	assert.Equal(t, 1050, tb.Balance())
	assert.Contains(t, tb.message, "Insurance lost")
}

func TestInsuranceStakeExceedsBalance(t *testing.T) {
	tb := stackedTable(100, Ace, Ace, Eight, King)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	require.Equal(t, PhaseInsurance, tb.Phase())
	assert.ErrorIs(t, tb.TakeInsurance(), ErrInsufficientFunds)
	assert.Equal(t, PhaseInsurance, tb.Phase(), "rejected action leaves state unchanged")
}

func TestHitUntilBust(t *testing.T) {
	tb := stackedTable(1000, Ten, Two, Nine, Seven, King)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	require.NoError(t, tb.Hit())
	assert.Equal(t, PhaseSettled, tb.Phase())
	assert.Equal(t, 900, tb.Balance())
	assert.Equal(t, OutcomeLoss, tb.main.Outcome)
	assert.Len(t, tb.dealer, 2, "dealer does not draw against a busted player")
}

func TestStandRunsDealer(t *testing.T) {
	tb := stackedTable(1000, Ten, Six, Seven, Nine, Five)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	require.NoError(t, tb.Stand())
	assert.Equal(t, PhaseSettled, tb.Phase())

	// dealer 6+9=15 draws the 5 for 20 and wins
	assert.Equal(t, 20, Score(tb.dealer))
	assert.Equal(t, 900, tb.Balance())
	assert.Equal(t, OutcomeLoss, tb.main.Outcome)
}

func TestStandPush(t *testing.T) {
	tb := stackedTable(1000, Ten, Ten, Seven, Seven)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	require.NoError(t, tb.Stand())
	assert.Equal(t, 1000, tb.Balance())
	assert.Equal(t, OutcomePush, tb.main.Outcome)
}

func TestDealerStandsOnSoftSeventeen(t *testing.T) {
	tb := stackedTable(1000, Ten, Ace, Nine, Six, King)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	// dealer ace up, no natural (hole is a 6), player declines
	require.NoError(t, tb.DeclineInsurance())
	require.NoError(t, tb.Stand())

	assert.Equal(t, 17, Score(tb.dealer), "soft 17 stands")
	assert.Len(t, tb.dealer, 2)
	assert.Equal(t, OutcomeWin, tb.main.Outcome)
	assert.Equal(t, 1100, tb.Balance())
}

// Doubling on {5,6} with bet 50: the bet doubles, exactly one card is
// dealt and the round proceeds to dealer play on its own.
func TestDoubleDown(t *testing.T) {
	tb := stackedTable(1000, Five, Nine, Six, Five, Ten, King)
	require.NoError(t, tb.PlaceBet(50))
	require.NoError(t, tb.Start())

	require.NoError(t, tb.DoubleDown())
	assert.Equal(t, 100, tb.main.Bet)
	assert.True(t, tb.main.Doubled)
	assert.Len(t, tb.main.Cards, 3)
	assert.Equal(t, 21, tb.main.Score())

	// the auto-stand is pending; player input is locked out meanwhile
	assert.True(t, tb.PendingAuto())
	assert.ErrorIs(t, tb.Hit(), ErrIllegalAction)
	assert.ErrorIs(t, tb.DoubleDown(), ErrIllegalAction)

	require.NoError(t, tb.ResolvePending())
	assert.Equal(t, PhaseSettled, tb.Phase())

	// dealer 9+5=14 draws the king and busts
	assert.Equal(t, 24, Score(tb.dealer))
	assert.Equal(t, 1100, tb.Balance())

	// resolving again is a no-op
	require.NoError(t, tb.ResolvePending())
	assert.Equal(t, 1100, tb.Balance())
}

func TestDoubleDownBustSettlesImmediately(t *testing.T) {
	tb := stackedTable(1000, Ten, Nine, Six, Five, King)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	require.NoError(t, tb.DoubleDown())
	assert.False(t, tb.PendingAuto())
	assert.Equal(t, PhaseSettled, tb.Phase())
	assert.Equal(t, 800, tb.Balance())
}

func TestDoubleDownInsufficientFunds(t *testing.T) {
	tb := stackedTable(100, Five, Nine, Six, Five)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	assert.ErrorIs(t, tb.DoubleDown(), ErrInsufficientFunds)
	assert.Equal(t, PhasePlayer, tb.Phase())
	assert.Len(t, tb.main.Cards, 2)
}

func TestDoubleDownAfterHitIllegal(t *testing.T) {
	tb := stackedTable(1000, Two, Nine, Three, Five, Two)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	require.NoError(t, tb.Hit())
	assert.ErrorIs(t, tb.DoubleDown(), ErrIllegalAction)
}

// Splitting {8,8}: each hand gets one fresh card, two equal bets are
// staked, and play starts on the main hand.
func TestSplit(t *testing.T) {
	tb := stackedTable(1000, Eight, Ten, Eight, Nine, Two, Three, King, Seven)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	assert.True(t, tb.CanSplitHand())
	require.NoError(t, tb.Split())

	assert.Equal(t, 800, tb.Balance())
	assert.Equal(t, []Card{cardOf(Eight), cardOf(Two)}, tb.main.Cards)
	assert.Equal(t, []Card{cardOf(Eight), cardOf(Three)}, tb.split.Cards)
	assert.Equal(t, 100, tb.main.Bet)
	assert.Equal(t, 100, tb.split.Bet)
	assert.Equal(t, HandMain, tb.active)
	assert.False(t, tb.CanSplitHand(), "no re-split")

	// main: 8+2+K = 20, stand; split: 8+3+7 = 18, stand
	require.NoError(t, tb.Hit())
	require.NoError(t, tb.Stand())
	assert.Equal(t, PhasePlayer, tb.Phase())
	assert.Equal(t, HandSplit, tb.active)

	require.NoError(t, tb.Hit())
	require.NoError(t, tb.Stand())
	assert.Equal(t, PhaseSettled, tb.Phase())

	// dealer 19: main 20 wins, split 18 loses
	assert.Equal(t, OutcomeWin, tb.main.Outcome)
	assert.Equal(t, OutcomeLoss, tb.split.Outcome)
	assert.Equal(t, 1000, tb.Balance())
}

func TestSplitMainBustMovesToSplitHand(t *testing.T) {
	tb := stackedTable(1000, Eight, Ten, Eight, Nine, Five, Three, King, Ten, Seven)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())
	require.NoError(t, tb.Split())

	// main 8+5, hit K -> 23 bust; round continues on the split hand
	require.NoError(t, tb.Hit())
	assert.Equal(t, PhasePlayer, tb.Phase())
	assert.Equal(t, HandSplit, tb.active)
	assert.True(t, tb.main.Busted)

	// split 8+3, hit 10 -> 21, stand; dealer 19 loses to it
	require.NoError(t, tb.Hit())
	require.NoError(t, tb.Stand())

	assert.Equal(t, PhaseSettled, tb.Phase())
	assert.Equal(t, OutcomeLoss, tb.main.Outcome)
	assert.Equal(t, OutcomeWin, tb.split.Outcome)
	assert.Equal(t, 1000, tb.Balance(), "busted main forfeits, split still pays")
}

func TestSplitBothBustSkipsDealer(t *testing.T) {
	tb := stackedTable(1000, Eight, Ten, Eight, Nine, Five, Five, King, Queen)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())
	require.NoError(t, tb.Split())

	require.NoError(t, tb.Hit()) // main 8+5+K busts
	require.NoError(t, tb.Hit()) // split 8+5+Q busts

	assert.Equal(t, PhaseSettled, tb.Phase())
	assert.Len(t, tb.dealer, 2)
	assert.Equal(t, 800, tb.Balance())
}

func TestSplitAcesAutoStand(t *testing.T) {
	tb := stackedTable(1000, Ace, Nine, Ace, Seven, Five, King, Four)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	require.NoError(t, tb.Split())
	assert.True(t, tb.PendingAuto())
	assert.ErrorIs(t, tb.Hit(), ErrIllegalAction, "no hits on split aces")

	require.NoError(t, tb.ResolvePending())
	assert.Equal(t, PhaseSettled, tb.Phase())

	assert.Len(t, tb.main.Cards, 2)
	assert.Len(t, tb.split.Cards, 2)

	// dealer 16 draws to 20: main A+5=16 loses, split A+K=21 wins
	assert.Equal(t, 20, Score(tb.dealer))
	assert.Equal(t, OutcomeLoss, tb.main.Outcome)
	assert.Equal(t, OutcomeWin, tb.split.Outcome)
	assert.Equal(t, 1000, tb.Balance())
}

func TestSplitRequiresPair(t *testing.T) {
	tb := stackedTable(1000, Eight, Ten, Nine, Nine)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	assert.ErrorIs(t, tb.Split(), ErrIllegalAction)
}

func TestSplitInsufficientFunds(t *testing.T) {
	tb := stackedTable(150, Eight, Ten, Eight, Nine)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	assert.ErrorIs(t, tb.Split(), ErrInsufficientFunds)
	assert.Equal(t, 50, tb.Balance())
}

func TestNewRoundPreservesBalance(t *testing.T) {
	tb := stackedTable(1000, Ten, King, Nine, Ace)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())
	require.Equal(t, PhaseSettled, tb.Phase())

	require.NoError(t, tb.NewRound())
	assert.Equal(t, PhaseBetting, tb.Phase())
	assert.Equal(t, 900, tb.Balance())
	assert.Zero(t, tb.Bet())

	snap := tb.Snapshot()
	assert.Nil(t, snap.Main)
	assert.Nil(t, snap.Dealer)
	assert.Empty(t, snap.Message)
}

func TestReload(t *testing.T) {
	tb := NewTable(0, 1)
	require.NoError(t, tb.Reload(1000))
	assert.Equal(t, 1000, tb.Balance())

	assert.ErrorIs(t, tb.Reload(1000), ErrIllegalAction, "only a broke player reloads")
}

// A remainder too small to bet must not strand the player: the bet floor
// rejects it and reload opens up.
func TestReloadBelowTableMinimum(t *testing.T) {
	tb := NewTable(5, 10)

	assert.ErrorIs(t, tb.PlaceBet(5), ErrInvalidBet, "below the floor")
	assert.ErrorIs(t, tb.PlaceBet(10), ErrInvalidBet, "above the balance")
	assert.Contains(t, tb.Snapshot().Actions, "reload")

	require.NoError(t, tb.Reload(1000))
	assert.Equal(t, 1000, tb.Balance())
	assert.ErrorIs(t, tb.Reload(1000), ErrIllegalAction)
}

func TestEmptyDeckMidRound(t *testing.T) {
	tb := stackedTable(1000, Ten, Six, Seven, Nine)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	assert.ErrorIs(t, tb.Hit(), ErrEmptyDeck)
	assert.Equal(t, PhasePlayer, tb.Phase())
	assert.Len(t, tb.main.Cards, 2, "failed draw leaves the hand unchanged")
}

func TestEmptyDeckDuringDealerPlay(t *testing.T) {
	// dealer holds 16 and must draw, but the deck is spent
	tb := stackedTable(1000, Ten, Ten, Seven, Six)
	require.NoError(t, tb.PlaceBet(100))
	require.NoError(t, tb.Start())

	assert.ErrorIs(t, tb.Stand(), ErrEmptyDeck)
	assert.Equal(t, PhasePlayer, tb.Phase())
	assert.False(t, tb.main.Stood, "failed stand is rolled back")
	assert.Len(t, tb.dealer, 2)

	snap := tb.Snapshot()
	require.NotNil(t, snap.Dealer)
	assert.True(t, snap.Dealer.HoleHidden, "hole card stays down after a failed close-out")
	assert.Equal(t, []string{"10♠", HiddenCard}, snap.Dealer.Cards)
}

// balance_after == balance_before - staked + paid must hold on every path.
func TestBalanceConservation(t *testing.T) {
	play := func(tb *Table) {
		require.NoError(t, tb.PlaceBet(100))
		require.NoError(t, tb.Start())
		for tb.Phase() == PhaseInsurance {
			require.NoError(t, tb.TakeInsurance())
		}
		for tb.Phase() == PhasePlayer {
			if tb.PendingAuto() {
				require.NoError(t, tb.ResolvePending())
				continue
			}
			if tb.CanSplitHand() {
				require.NoError(t, tb.Split())
				continue
			}
			require.NoError(t, tb.Stand())
		}
	}

	tables := []*Table{
		stackedTable(1000, Ten, Six, Seven, Nine, Five),
		stackedTable(1000, Eight, Ten, Eight, Nine, Two, Three, King, Seven),
		stackedTable(1000, Ace, Ace, Eight, Five, Nine, King),
		stackedTable(1000, Ace, Nine, Ace, Seven, Five, King, Four),
	}

	for _, tb := range tables {
		play(tb)
		require.Equal(t, PhaseSettled, tb.Phase())
		assert.Equal(t, 1000-tb.staked+tb.paid, tb.Balance())
		assert.Equal(t, tb.paid-tb.staked, tb.netProfit)
	}
}

func TestSnapshotActions(t *testing.T) {
	tb := NewTable(1000, 1)
	assert.Equal(t, []string{"bet"}, tb.Snapshot().Actions)

	require.NoError(t, tb.PlaceBet(100))
	assert.Contains(t, tb.Snapshot().Actions, "start")

	broke := NewTable(0, 1)
	assert.Contains(t, broke.Snapshot().Actions, "reload")

	playing := stackedTable(1000, Eight, Ten, Eight, Nine)
	require.NoError(t, playing.PlaceBet(100))
	require.NoError(t, playing.Start())
	actions := playing.Snapshot().Actions
	assert.Contains(t, actions, "hit")
	assert.Contains(t, actions, "stand")
	assert.Contains(t, actions, "double")
	assert.Contains(t, actions, "split")
}

func TestManager(t *testing.T) {
	m := NewManager()
	assert.Nil(t, m.Get("p1"))

	tb := NewTable(1000, 1)
	m.Set("p1", tb)
	assert.Same(t, tb, m.Get("p1"))

	m.Delete("p1")
	assert.Nil(t, m.Get("p1"))
}

func TestManagerLockerPerIdentity(t *testing.T) {
	m := NewManager()

	assert.Same(t, m.Locker("p1"), m.Locker("p1"))
	assert.NotSame(t, m.Locker("p1"), m.Locker("p2"))

	m.Delete("p1")
	assert.Same(t, m.Locker("p1"), m.Locker("p1"), "locker survives Delete")
}

// Two connections presenting the same identity act on one shared table;
// holding the identity's locker is what keeps them from interleaving.
func TestManagerLockerSerializesTable(t *testing.T) {
	m := NewManager()
	tb := stackedTable(1000, Ten, Six, Seven, Nine, Five)
	m.Set("p1", tb)

	var wg sync.WaitGroup
	turn := func(act func(*Table) error) {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			lock := m.Locker("p1")
			lock.Lock()
			act(m.Get("p1"))
			lock.Unlock()
		}
	}

	wg.Add(2)
	go turn(func(tb *Table) error { return tb.PlaceBet(100) })
	go turn(func(tb *Table) error { return tb.ClearBet() })
	wg.Wait()

	assert.Equal(t, PhaseBetting, tb.Phase())
	assert.Equal(t, 1000, tb.Balance())
}
