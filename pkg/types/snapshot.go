package types

// TableSnapshot is the full table+hand view pushed to every subscriber on
// each accepted transition. Version increases by one per transition so
// clients can detect gaps and ask for a full resync by re-subscribing.
type TableSnapshot struct {
	Version    int64      `json:"version"`
	TableID    string     `json:"tableId"`
	Name       string     `json:"name"`
	State      string     `json:"state"` // waiting | active | closed
	MaxSeats   int        `json:"maxSeats"`
	SmallBlind int64      `json:"smallBlind"`
	BigBlind   int64      `json:"bigBlind"`
	MinBuyIn   int64      `json:"minBuyIn"`
	MaxBuyIn   int64      `json:"maxBuyIn"`
	Seats      []SeatView `json:"seats"`
	Hand       *HandView  `json:"hand,omitempty"`
}

// SeatView is one seat as any subscriber may see it. Hole cards are
// filled only for the viewing player's own seat, and for every un-folded
// seat once the hand reaches showdown.
type SeatView struct {
	Index      int      `json:"index"`
	PlayerID   string   `json:"playerId,omitempty"`
	Stack      int64    `json:"stack"`
	Bet        int64    `json:"bet"` // committed this street
	Folded     bool     `json:"folded"`
	AllIn      bool     `json:"allIn"`
	IsActor    bool     `json:"isActor"`
	LastAction string   `json:"lastAction,omitempty"`
	Hole       []string `json:"hole,omitempty"`
}

type HandView struct {
	ID         string      `json:"id"`
	Street     string      `json:"street"`
	Board      []string    `json:"board"`
	Pot        int64       `json:"pot"`
	CurrentBet int64       `json:"currentBet"`
	MinRaise   int64       `json:"minRaise"`
	DealerSeat int         `json:"dealerSeat"`
	ActorSeat  int         `json:"actorSeat"` // -1 when nobody is to act
	Result     *ResultView `json:"result,omitempty"`
}

// ResultView summarizes a resolved hand inside the final snapshot.
type ResultView struct {
	Pots  []PotView         `json:"pots"`
	Ranks map[string]string `json:"ranks,omitempty"` // player id -> description
}

type PotView struct {
	Amount  int64    `json:"amount"`  // pot tier amount before platform fees
	Winners []string `json:"winners"` // player ids
}
