package game

import (
	"errors"
	"math/rand"
	"strconv"
)

var ErrEmptyDeck = errors.New("deck is empty")

type Suit int

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

func (s Suit) String() string {
	switch s {
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	case Spades:
		return "♠"
	default:
		return "?"
	}
}

type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// Value is the blackjack value before ace adjustment: aces count 11 here
// and are demoted to 1 during scoring.
func (r Rank) Value() int {
	switch {
	case r == Ace:
		return 11
	case r >= Ten:
		return 10
	default:
		return int(r)
	}
}

func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		return strconv.Itoa(int(r))
	}
}

type Card struct {
	Suit Suit
	Rank Rank
}

func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

type Deck struct {
	cards []Card
}

func NewDeck() *Deck {
	d := &Deck{
		cards: make([]Card, 0, 52),
	}

	for s := Hearts; s <= Spades; s++ {
		for r := Ace; r <= King; r++ {
			d.cards = append(d.cards, Card{Suit: s, Rank: r})
		}
	}

	d.Shuffle()
	return d
}

func (d *Deck) Shuffle() {
	rand.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrEmptyDeck
	}

	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, nil
}

func (d *Deck) Remaining() int {
	return len(d.cards)
}
