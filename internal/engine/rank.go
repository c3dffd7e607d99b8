package engine

import (
	poker "github.com/paulhankin/poker"
)

// HandRank is a comparable strength for a seat's best five-card hand.
// Larger score beats smaller score.
type HandRank struct {
	Score int16
	Desc  string
}

func (a HandRank) Beats(b HandRank) bool { return a.Score > b.Score }
func (a HandRank) Ties(b HandRank) bool  { return a.Score == b.Score }

func toLibCard(c Card) poker.Card {
	var s poker.Suit
	switch c.Suit {
	case 'c':
		s = poker.Club
	case 'd':
		s = poker.Diamond
	case 'h':
		s = poker.Heart
	case 's':
		s = poker.Spade
	}
	// Engine ranks 2..14 (Ace=14), library ranks 1..13 (Ace=1).
	r := poker.Rank(c.Rank)
	if c.Rank == 14 {
		r = poker.Rank(1)
	}
	card, _ := poker.MakeCard(s, r)
	return card
}

// RankBest evaluates the best five-card hand from two hole cards plus the
// board. Pure; invoked only at showdown.
func RankBest(hole []Card, board []Card) HandRank {
	all := make([]poker.Card, 0, 7)
	for _, c := range hole {
		all = append(all, toLibCard(c))
	}
	for _, c := range board {
		all = append(all, toLibCard(c))
	}

	var score int16
	switch len(all) {
	case 7:
		var a7 [7]poker.Card
		copy(a7[:], all)
		score = poker.Eval7(&a7)
	case 5:
		var a5 [5]poker.Card
		copy(a5[:], all)
		score = poker.Eval5(&a5)
	default:
		score = bestFiveOf(all)
	}

	desc := ""
	if d, err := poker.Describe(all); err == nil {
		desc = d
	}
	return HandRank{Score: score, Desc: desc}
}

// bestFiveOf brute-forces six-card inputs (two hole cards on the turn).
func bestFiveOf(cards []poker.Card) int16 {
	n := len(cards)
	if n < 5 {
		var a5 [5]poker.Card
		copy(a5[:n], cards)
		return poker.Eval5(&a5)
	}
	best := int16(-1)
	var five [5]poker.Card
	var choose [5]int
	var rec func(start, k int)
	rec = func(start, k int) {
		if k == 5 {
			for i := 0; i < 5; i++ {
				five[i] = cards[choose[i]]
			}
			if s := poker.Eval5(&five); s > best {
				best = s
			}
			return
		}
		for i := start; i <= n-(5-k); i++ {
			choose[k] = i
			rec(i+1, k+1)
		}
	}
	rec(0, 0)
	return best
}
