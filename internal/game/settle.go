package game

import (
	"fmt"
	"strings"
)

// settleHand scores one hand against the dealer and returns its payout:
// 2x the bet on a win, the bet back on a push, nothing on a loss.
func settleHand(dealerScore int, h *Hand) int {
	score := h.Score()

	switch {
	case score > 21:
		h.Outcome = OutcomeLoss
		return 0
	case dealerScore > 21:
		h.Outcome = OutcomeWin
		return h.Bet * 2
	case score > dealerScore:
		h.Outcome = OutcomeWin
		return h.Bet * 2
	case score < dealerScore:
		h.Outcome = OutcomeLoss
		return 0
	default:
		h.Outcome = OutcomePush
		return h.Bet
	}
}

func blackjackPayout(bet int) int {
	return bet + bet*3/2
}

// settle credits the payouts for every hand and closes the round. Hands
// are settled independently of each other.
func (t *Table) settle() {
	dealerScore := Score(t.dealer)

	payout := settleHand(dealerScore, t.main)
	if t.isSplit {
		payout += settleHand(dealerScore, t.split)
	}

	t.credit(payout)
	t.netProfit = t.paid - t.staked
	t.message = t.resultMessage()
	t.phase = PhaseSettled
}

// settleNaturals resolves a round that ends on the initial deal: push when
// both sides hold a natural, 3:2 for a player-only natural, a straight loss
// for a dealer-only natural. Insurance pays 2:1 on the dealer natural.
func (t *Table) settleNaturals() {
	t.holeHidden = false

	playerBJ := IsNatural(t.main.Cards)
	dealerBJ := IsNatural(t.dealer)

	switch {
	case playerBJ && dealerBJ:
		t.main.Outcome = OutcomePush
		t.credit(t.main.Bet)
	case playerBJ:
		t.main.Outcome = OutcomeBlackjack
		t.credit(blackjackPayout(t.main.Bet))
	default:
		t.main.Outcome = OutcomeLoss
	}

	if dealerBJ && t.insurance > 0 {
		t.credit(t.insurance * 3)
	}

	t.netProfit = t.paid - t.staked
	t.message = t.resultMessage()
	t.phase = PhaseSettled
}

func (t *Table) handMessage(h *Hand) string {
	switch h.Outcome {
	case OutcomeBlackjack:
		return "Blackjack!"
	case OutcomeWin:
		if Score(t.dealer) > 21 {
			return "Dealer busts, you win"
		}
		return "You win"
	case OutcomePush:
		return "Push"
	default:
		if h.Score() > 21 {
			return "Bust"
		}
		if IsNatural(t.dealer) {
			return "Dealer blackjack"
		}
		return "Dealer wins"
	}
}

func (t *Table) resultMessage() string {
	var parts []string

	if t.isSplit {
		parts = append(parts,
			"Hand 1: "+t.handMessage(t.main),
			"Hand 2: "+t.handMessage(t.split))
	} else {
		parts = append(parts, t.handMessage(t.main))
	}

	if t.insurance > 0 {
		if IsNatural(t.dealer) {
			parts = append(parts, fmt.Sprintf("Insurance pays %d", t.insurance*3))
		} else {
			parts = append(parts, "Insurance lost")
		}
	}

	switch {
	case t.netProfit > 0:
		parts = append(parts, fmt.Sprintf("+%d credits", t.netProfit))
	case t.netProfit < 0:
		parts = append(parts, fmt.Sprintf("%d credits", t.netProfit))
	}

	return strings.Join(parts, ". ")
}
