package engine

import (
	"fmt"
	"math/rand"
)

// Card ranks run 2..14 with Ace high, suits are 'c', 'd', 'h', 's'.
type Card struct {
	Rank int  `json:"rank"`
	Suit byte `json:"suit"`
}

func (c Card) String() string {
	ranks := "  23456789TJQKA"
	return fmt.Sprintf("%c%c", ranks[c.Rank], c.Suit)
}

// NewDeck returns a full 52-card deck shuffled with r. The caller owns the
// randomness source so hands can be replayed deterministically in tests.
func NewDeck(r *rand.Rand) []Card {
	deck := make([]Card, 0, 52)
	for s := 0; s < 4; s++ {
		for rnk := 2; rnk <= 14; rnk++ {
			deck = append(deck, Card{Rank: rnk, Suit: "cdhs"[s]})
		}
	}
	r.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}
