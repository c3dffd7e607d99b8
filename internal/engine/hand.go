package engine

// Seat is one player's in-hand state. The hand owns stacks for the
// duration of the hand; the table hands them back at settlement.
type Seat struct {
	Index      int        `json:"index"`
	PlayerID   string     `json:"playerId"`
	Stack      int64      `json:"stack"`
	Committed  int64      `json:"committed"` // chips committed this street
	PaidTotal  int64      `json:"paidTotal"` // chips committed over the whole hand
	Hole       []Card     `json:"hole,omitempty"`
	Folded     bool       `json:"folded"`
	AllIn      bool       `json:"allIn"`
	Acted      bool       `json:"-"` // acted since the last full raise this street
	LastAction ActionKind `json:"lastAction,omitempty"`
}

// PotAward is one (side) pot resolved to its winners. Amount is split
// evenly among Winners after platform fees are taken.
type PotAward struct {
	Amount  int64 `json:"amount"`
	Winners []int `json:"winners"` // positions into Hand.Seats
}

// Settlement is the terminal outcome of a hand.
type Settlement struct {
	Pots         []PotAward     `json:"pots"`
	Uncalled     int64          `json:"uncalled"` // returned before distribution
	UncalledSeat int            `json:"uncalledSeat"`
	Ranks        map[int]string `json:"ranks,omitempty"` // showdown descriptions
}

// Hand is the per-table mutable state for one dealt hand. It is never
// accessed concurrently: the owning table actor applies all actions in
// arrival order.
type Hand struct {
	ID         string
	TableID    string
	Seats      []*Seat
	Street     Street
	Board      []Card
	CurBet     int64
	MinRaise   int64
	SmallBlind int64
	BigBlind   int64
	Dealer     int // position into Seats
	History    []Action
	Result     *Settlement

	deck    []Card
	carried int64 // pot carried forward from completed streets
	actor   int   // position into Seats of the current actor, -1 when none
}

// NewHand deals a hand for the given seats, posts blinds and sets the
// first actor. Seats must have positive stacks; dealer indexes into seats.
func NewHand(id, tableID string, seats []*Seat, dealer int, smallBlind, bigBlind int64, deck []Card) *Hand {
	h := &Hand{
		ID:         id,
		TableID:    tableID,
		Seats:      seats,
		Street:     Preflop,
		SmallBlind: smallBlind,
		BigBlind:   bigBlind,
		Dealer:     dealer,
		MinRaise:   bigBlind,
		deck:       deck,
		actor:      -1,
	}

	n := len(seats)
	sbPos := (dealer + 1) % n
	bbPos := (dealer + 2) % n
	if n == 2 {
		// Heads-up: the dealer posts the small blind and acts first preflop.
		sbPos = dealer
		bbPos = (dealer + 1) % n
	}
	h.commit(seats[sbPos], smallBlind)
	h.commit(seats[bbPos], bigBlind)

	for _, s := range seats {
		s.Hole = []Card{h.pop(), h.pop()}
	}

	h.actor = h.nextEligible(bbPos)
	if h.actor == -1 {
		// The blinds put every seat all-in, so no betting round can
		// happen on any street: run the board out to showdown now.
		h.closeStreet()
	}
	return h
}

func (h *Hand) pop() Card {
	c := h.deck[0]
	h.deck = h.deck[1:]
	return c
}

// commit moves up to amt chips from the seat's stack into the street
// commitment, flagging an implicit all-in when the stack runs short.
func (h *Hand) commit(s *Seat, amt int64) int64 {
	if amt >= s.Stack {
		amt = s.Stack
		s.AllIn = true
	}
	s.Stack -= amt
	s.Committed += amt
	s.PaidTotal += amt
	if s.Committed > h.CurBet {
		h.CurBet = s.Committed
	}
	return amt
}

// Resolved reports whether the hand reached a terminal state.
func (h *Hand) Resolved() bool {
	return h.Street == Settled || h.Street == FoldedOut
}

// CurrentActor returns the position of the seat to act, -1 when none.
func (h *Hand) CurrentActor() int { return h.actor }

// CarriedPot is the pot carried forward from completed streets.
func (h *Hand) CarriedPot() int64 { return h.carried }

// TotalPot is the carried pot plus every seat's current street commitment.
func (h *Hand) TotalPot() int64 {
	total := h.carried
	for _, s := range h.Seats {
		total += s.Committed
	}
	return total
}

// Apply validates and applies one action for the seat at seatPos, then
// advances the hand: closes the betting round, deals the next street, or
// resolves the hand when it ends. Rejections leave the hand untouched.
func (h *Hand) Apply(seatPos int, kind ActionKind, amount int64) error {
	if err := Validate(h, seatPos, kind, amount); err != nil {
		return err
	}

	s := h.Seats[seatPos]
	prevBet := h.CurBet
	applied := kind

	switch kind {
	case Fold:
		s.Folded = true

	case Check:
		// nothing to commit

	case Call:
		h.commit(s, h.CurBet-s.Committed)

	case Bet:
		h.commit(s, amount)
		h.MinRaise = amount
		h.resetActed(seatPos)

	case Raise:
		h.commit(s, amount-s.Committed)
		if h.CurBet-prevBet >= h.MinRaise {
			h.MinRaise = h.CurBet - prevBet
			h.resetActed(seatPos)
		}

	case AllIn:
		h.commit(s, s.Stack)
		switch {
		case prevBet == 0:
			h.MinRaise = s.Committed
			h.resetActed(seatPos)
			applied = Bet
		case s.Committed > prevBet:
			// A short all-in raise does not reopen the action.
			if s.Committed-prevBet >= h.MinRaise {
				h.MinRaise = s.Committed - prevBet
				h.resetActed(seatPos)
			}
			applied = Raise
		default:
			applied = Call
		}
	}

	s.Acted = true
	s.LastAction = kind
	h.History = append(h.History, Action{Seat: s.Index, Kind: applied, Amount: s.Committed})

	if h.liveSeats() == 1 {
		h.resolveFoldOut()
		return nil
	}

	if h.roundClosed() {
		h.closeStreet()
	} else {
		h.actor = h.nextEligible(seatPos)
	}
	return nil
}

// ForceFold folds a seat regardless of whose turn it is, used when a
// player leaves the table mid-hand. It advances the hand the same way an
// in-turn fold would: resolving a fold-out, closing the street, or moving
// the action past the folded seat.
func (h *Hand) ForceFold(pos int) {
	if h.Resolved() || pos < 0 || pos >= len(h.Seats) {
		return
	}
	s := h.Seats[pos]
	if s.Folded {
		return
	}
	s.Folded = true
	s.Acted = true
	s.LastAction = Fold
	h.History = append(h.History, Action{Seat: s.Index, Kind: Fold})

	if h.liveSeats() == 1 {
		h.resolveFoldOut()
		return
	}
	if h.roundClosed() {
		h.closeStreet()
		return
	}
	if h.actor == pos {
		h.actor = h.nextEligible(pos)
	}
}

// resetActed reopens the action for everyone but the aggressor.
func (h *Hand) resetActed(aggressor int) {
	for pos, s := range h.Seats {
		if pos != aggressor {
			s.Acted = false
		}
	}
}

func (h *Hand) liveSeats() int {
	n := 0
	for _, s := range h.Seats {
		if !s.Folded {
			n++
		}
	}
	return n
}

// eligible reports whether the seat at pos can still take actions.
func (h *Hand) eligible(pos int) bool {
	s := h.Seats[pos]
	return !s.Folded && !s.AllIn
}

// nextEligible walks clockwise from pos to the next seat that can act,
// returning -1 if nobody can.
func (h *Hand) nextEligible(pos int) int {
	n := len(h.Seats)
	for i := 1; i <= n; i++ {
		p := (pos + i) % n
		if h.eligible(p) {
			return p
		}
	}
	return -1
}

// roundClosed reports whether the street's betting is finished: every
// seat that can still act has matched the current bet and has acted since
// the last full raise.
func (h *Hand) roundClosed() bool {
	for pos, s := range h.Seats {
		if !h.eligible(pos) {
			continue
		}
		if s.Committed != h.CurBet || !s.Acted {
			return false
		}
	}
	return true
}

// closeStreet carries commitments into the pot and deals the next street,
// running the board out when no further betting is possible.
func (h *Hand) closeStreet() {
	for {
		for _, s := range h.Seats {
			h.carried += s.Committed
			s.Committed = 0
			s.Acted = false
		}
		h.CurBet = 0
		h.MinRaise = h.BigBlind

		switch h.Street {
		case Preflop:
			h.Board = append(h.Board, h.pop(), h.pop(), h.pop())
			h.Street = Flop
		case Flop:
			h.Board = append(h.Board, h.pop())
			h.Street = Turn
		case Turn:
			h.Board = append(h.Board, h.pop())
			h.Street = River
		case River:
			h.resolveShowdown()
			return
		}

		// Action resumes left of the dealer. Fewer than two seats able to
		// act means the betting is over for good: run out the remaining
		// streets without stopping.
		if h.actableSeats() >= 2 {
			h.actor = h.nextEligible(h.Dealer)
			return
		}
		h.actor = -1
	}
}

func (h *Hand) actableSeats() int {
	n := 0
	for pos := range h.Seats {
		if h.eligible(pos) {
			n++
		}
	}
	return n
}

// returnUncalled refunds the portion of the highest total contribution
// that no other seat matched, directly to that seat's stack.
func (h *Hand) returnUncalled(res *Settlement) {
	hiPos, hi, second := -1, int64(0), int64(0)
	for pos, s := range h.Seats {
		switch {
		case s.PaidTotal > hi:
			second = hi
			hi = s.PaidTotal
			hiPos = pos
		case s.PaidTotal > second:
			second = s.PaidTotal
		}
	}
	if hiPos < 0 || hi == second {
		return
	}
	refund := hi - second
	s := h.Seats[hiPos]
	s.PaidTotal -= refund
	s.Stack += refund
	if s.AllIn && s.Stack > 0 {
		s.AllIn = false
	}
	h.carried -= refund
	res.Uncalled = refund
	res.UncalledSeat = hiPos
}

// resolveFoldOut ends the hand when a single seat remains un-folded.
func (h *Hand) resolveFoldOut() {
	for _, s := range h.Seats {
		h.carried += s.Committed
		s.Committed = 0
	}
	h.CurBet = 0
	h.actor = -1

	res := &Settlement{}
	h.returnUncalled(res)

	winner := -1
	for pos, s := range h.Seats {
		if !s.Folded {
			winner = pos
			break
		}
	}
	if h.carried > 0 {
		res.Pots = []PotAward{{Amount: h.carried, Winners: []int{winner}}}
	}
	h.Result = res
	h.Street = FoldedOut
}

// resolveShowdown ranks the remaining seats via the hand-ranking oracle
// and awards each (side) pot to its best eligible seat(s).
func (h *Hand) resolveShowdown() {
	h.Street = Showdown
	h.actor = -1

	res := &Settlement{Ranks: make(map[int]string)}
	h.returnUncalled(res)

	ranks := make(map[int]HandRank)
	for pos, s := range h.Seats {
		if s.Folded {
			continue
		}
		r := RankBest(s.Hole, h.Board)
		ranks[pos] = r
		res.Ranks[pos] = r.Desc
	}

	for _, pot := range buildPots(h.Seats) {
		var winners []int
		var best HandRank
		for _, pos := range pot.Eligible {
			r := ranks[pos]
			switch {
			case len(winners) == 0 || r.Beats(best):
				winners = []int{pos}
				best = r
			case r.Ties(best):
				winners = append(winners, pos)
			}
		}
		res.Pots = append(res.Pots, PotAward{Amount: pot.Amount, Winners: winners})
	}

	h.Result = res
	h.Street = Settled
}
