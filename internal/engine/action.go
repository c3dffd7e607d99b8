package engine

// ActionKind tags a player's betting decision.
type ActionKind string

const (
	Fold  ActionKind = "fold"
	Check ActionKind = "check"
	Call  ActionKind = "call"
	Bet   ActionKind = "bet"
	Raise ActionKind = "raise"
	AllIn ActionKind = "all-in"
)

// Action records one accepted decision in the hand history.
type Action struct {
	Seat   int        `json:"seat"`
	Kind   ActionKind `json:"action"`
	Amount int64      `json:"amount,omitempty"`
}

// Street is one betting round, plus the terminal phases of a hand.
type Street string

const (
	Preflop   Street = "preflop"
	Flop      Street = "flop"
	Turn      Street = "turn"
	River     Street = "river"
	Showdown  Street = "showdown"
	Settled   Street = "settled"
	FoldedOut Street = "folded-out"
)
