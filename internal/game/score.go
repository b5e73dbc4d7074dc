package game

// Score returns the best blackjack value of a hand: aces start at 11 and
// are demoted to 1 one at a time while the total is over 21.
func Score(cards []Card) int {
	score := 0
	aces := 0

	for _, c := range cards {
		score += c.Rank.Value()
		if c.Rank == Ace {
			aces++
		}
	}

	for score > 21 && aces > 0 {
		score -= 10
		aces--
	}

	return score
}

// IsNatural reports a two-card 21.
func IsNatural(cards []Card) bool {
	return len(cards) == 2 && Score(cards) == 21
}

func IsBust(cards []Card) bool {
	return Score(cards) > 21
}

// CanSplit allows equal ranks, with every 10-valued card interchangeable.
func CanSplit(a, b Card) bool {
	if a.Rank == b.Rank {
		return true
	}
	return a.Rank.Value() == 10 && b.Rank.Value() == 10
}
