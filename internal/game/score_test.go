package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		ranks []Rank
		want  int
	}{
		{"natural", []Rank{Ace, King}, 21},
		{"two aces", []Rank{Ace, Ace}, 12},
		{"soft then demoted", []Rank{Ace, Nine, Ace}, 21},
		{"bust reports over 21", []Rank{Ten, Nine, Five}, 24},
		{"hard seventeen", []Rank{Ten, Seven}, 17},
		{"soft seventeen", []Rank{Ace, Six}, 17},
		{"all faces", []Rank{Jack, Queen, King}, 30},
		{"five card twenty one", []Rank{Ace, Two, Three, Four, Ace}, 21},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(handOf(tt.ranks...)))
		})
	}
}

// Score must always pick the largest ace assignment that stays at or
// under 21, and fall back to the minimum when everything busts.
func TestScoreBounds(t *testing.T) {
	for trial := 0; trial < 200; trial++ {
		d := NewDeck()
		n := 2 + trial%5
		hand := make([]Card, 0, n)
		for i := 0; i < n; i++ {
			c, _ := d.Draw()
			hand = append(hand, c)
		}

		low, aces := 0, 0
		for _, c := range hand {
			if c.Rank == Ace {
				low++
				aces++
			} else {
				low += c.Rank.Value()
			}
		}

		best := low
		for i := 1; i <= aces; i++ {
			if v := low + 10*i; v <= 21 {
				best = v
			}
		}

		got := Score(hand)
		assert.GreaterOrEqual(t, got, low)
		assert.LessOrEqual(t, got, low+10*aces)
		assert.Equal(t, best, got, "hand %v", hand)
	}
}

func TestIsNatural(t *testing.T) {
	assert.True(t, IsNatural(handOf(Ace, King)))
	assert.True(t, IsNatural(handOf(Ten, Ace)))
	assert.False(t, IsNatural(handOf(Ten, Five, Six)), "three-card 21 is not a natural")
	assert.False(t, IsNatural(handOf(Ten, Nine)))
	assert.False(t, IsNatural(handOf(Ace, Ace)))
}

func TestCanSplit(t *testing.T) {
	assert.True(t, CanSplit(cardOf(Eight), cardOf(Eight)))
	assert.True(t, CanSplit(cardOf(Ace), cardOf(Ace)))
	assert.True(t, CanSplit(cardOf(King), cardOf(Queen)), "ten-valued cards are interchangeable")
	assert.True(t, CanSplit(cardOf(Ten), cardOf(Jack)))
	assert.False(t, CanSplit(cardOf(Ace), cardOf(King)))
	assert.False(t, CanSplit(cardOf(Two), cardOf(Three)))
	assert.False(t, CanSplit(cardOf(Nine), cardOf(Ten)))
}
