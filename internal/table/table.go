// Package table runs one actor goroutine per poker table. The actor is
// the sole owner of the table's seats and live hand: every inbound message
// is applied in arrival order through a single inbox, so no two actions
// for the same table are ever processed concurrently. Different tables
// run in parallel with no shared state except the treasury pools.
package table

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feltworks/tableserver/internal/engine"
	"github.com/feltworks/tableserver/internal/store"
	"github.com/feltworks/tableserver/internal/treasury"
	"github.com/feltworks/tableserver/pkg/types"
)

var (
	ErrTableFull       = errors.New("table is full")
	ErrBuyInOutOfRange = errors.New("buy-in out of range")
	ErrNotSeated       = errors.New("player not seated")
	ErrTableClosed     = errors.New("table closed")
	ErrInvalidConfig   = errors.New("invalid table config")
)

// Settler settles one resolved pot into platform economics.
type Settler interface {
	Distribute(ctx context.Context, potAmount int64, tableID, handID string) (*treasury.Distribution, error)
}

// Archiver durably records a hand's terminal outcome.
type Archiver interface {
	ArchiveHand(ctx context.Context, o *store.HandOutcome) error
}

// Config fixes a table's identity and stakes for its lifetime.
type Config struct {
	ID         string
	Name       string
	MaxSeats   int
	SmallBlind int64
	BigBlind   int64
	MinBuyIn   int64
	MaxBuyIn   int64
	Seed       int64 // deck seed; 0 means time-based
}

// Validate bounds the client-suppliable parameters before an actor is
// spawned for them. Ten seats is the full-ring limit.
func (c Config) Validate() error {
	switch {
	case c.MaxSeats < 2 || c.MaxSeats > 10:
		return fmt.Errorf("%w: seats must be 2..10, got %d", ErrInvalidConfig, c.MaxSeats)
	case c.SmallBlind <= 0 || c.BigBlind < c.SmallBlind:
		return fmt.Errorf("%w: blinds %d/%d", ErrInvalidConfig, c.SmallBlind, c.BigBlind)
	case c.MinBuyIn <= 0 || c.MaxBuyIn < c.MinBuyIn:
		return fmt.Errorf("%w: buy-in window %d..%d", ErrInvalidConfig, c.MinBuyIn, c.MaxBuyIn)
	}
	return nil
}

// Push is one outbound event for a subscribed session. Exactly one field
// is set.
type Push struct {
	State *types.TableSnapshot
	Chat  *types.ChatMessage
	Err   string
}

type Msg interface{ isTableMsg() }

// Subscribe attaches a session's outbox to the table's push streams and
// immediately sends the current snapshot, which doubles as the resync
// path after a reconnect. Subscribing twice replaces the old outbox.
type Subscribe struct {
	SessionID string
	PlayerID  string
	Outbox    chan Push
}

// Unsubscribe is idempotent; unknown session ids are ignored.
type Unsubscribe struct{ SessionID string }

// SitDown seats the player with the given buy-in.
type SitDown struct {
	SessionID string
	PlayerID  string
	BuyIn     int64
	Reply     chan SitDownResult
}

type SitDownResult struct {
	Seat int
	Err  error
}

// StandUp frees the player's seat; a seat still in a hand folds first.
type StandUp struct {
	PlayerID string
	Reply    chan error
}

// Act is a fire-and-forget player action. Rejections go back to the
// acting session only; accepted actions are observed via the broadcast.
type Act struct {
	SessionID string
	PlayerID  string
	Kind      engine.ActionKind
	Amount    int64
}

// Chat fans a message out to every subscriber.
type Chat struct {
	PlayerID string
	Text     string
}

type GetInfo struct{ Reply chan types.TableInfo }

type GetLimits struct{ Reply chan types.BetLimitsMsg }

type Shutdown struct{}

func (Subscribe) isTableMsg()   {}
func (Unsubscribe) isTableMsg() {}
func (SitDown) isTableMsg()     {}
func (StandUp) isTableMsg()     {}
func (Act) isTableMsg()         {}
func (Chat) isTableMsg()        {}
func (GetInfo) isTableMsg()     {}
func (GetLimits) isTableMsg()   {}
func (Shutdown) isTableMsg()    {}

type seat struct {
	playerID string
	stack    int64
}

type subscriber struct {
	playerID string
	outbox   chan Push
}

// Table is the per-table actor.
type Table struct {
	inbox   chan Msg
	cfg     Config
	state   string // waiting | active | closed
	seats   []*seat
	hand    *engine.Hand
	dealer  int
	version int64
	subs    map[string]*subscriber
	rng     *rand.Rand

	settler  Settler
	archiver Archiver
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(parent context.Context, cfg Config, settler Settler, archiver Archiver, log *zap.Logger) *Table {
	ctx, cancel := context.WithCancel(parent)
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if log == nil {
		log = zap.NewNop()
	}
	t := &Table{
		inbox:    make(chan Msg, 64),
		cfg:      cfg,
		state:    "waiting",
		seats:    make([]*seat, cfg.MaxSeats),
		dealer:   -1,
		subs:     make(map[string]*subscriber),
		rng:      rand.New(rand.NewSource(seed)),
		settler:  settler,
		archiver: archiver,
		log:      log.With(zap.String("table", cfg.ID)),
		ctx:      ctx,
		cancel:   cancel,
	}
	go t.loop()
	return t
}

func (t *Table) Inbox() chan<- Msg { return t.inbox }

func (t *Table) loop() {
	for {
		select {
		case <-t.ctx.Done():
			t.shutdown()
			return

		case m := <-t.inbox:
			switch msg := m.(type) {
			case Subscribe:
				t.subs[msg.SessionID] = &subscriber{playerID: msg.PlayerID, outbox: msg.Outbox}
				t.push(msg.SessionID, Push{State: t.snapshotFor(msg.PlayerID)})

			case Unsubscribe:
				delete(t.subs, msg.SessionID)

			case SitDown:
				seatIdx, err := t.sitDown(msg.PlayerID, msg.BuyIn)
				msg.Reply <- SitDownResult{Seat: seatIdx, Err: err}
				if err == nil {
					t.maybeStartHand()
					t.broadcast()
				}

			case StandUp:
				err := t.standUp(msg.PlayerID)
				msg.Reply <- err
				if err == nil {
					t.maybeStartHand()
					t.broadcast()
				}

			case Act:
				t.applyAction(msg)

			case Chat:
				t.broadcastChat(msg.PlayerID, msg.Text)

			case GetInfo:
				msg.Reply <- t.info()

			case GetLimits:
				msg.Reply <- types.BetLimitsMsg{
					SmallBlind: t.cfg.SmallBlind,
					BigBlind:   t.cfg.BigBlind,
					MinBuyIn:   t.cfg.MinBuyIn,
					MaxBuyIn:   t.cfg.MaxBuyIn,
				}

			case Shutdown:
				t.shutdown()
				return
			}
		}
	}
}

// shutdown drops every subscription after a best-effort closing
// snapshot. The outboxes belong to the sessions, which may re-subscribe
// them to another table, so they are never closed here.
func (t *Table) shutdown() {
	t.state = "closed"
	t.version++
	for id, sub := range t.subs {
		select {
		case sub.outbox <- Push{State: t.snapshotFor(sub.playerID)}:
		default:
		}
		delete(t.subs, id)
	}
	t.cancel()
}

func (t *Table) info() types.TableInfo {
	players := 0
	for _, s := range t.seats {
		if s != nil {
			players++
		}
	}
	return types.TableInfo{
		TableID:    t.cfg.ID,
		Name:       t.cfg.Name,
		State:      t.state,
		MaxPlayers: t.cfg.MaxSeats,
		Players:    players,
		SmallBlind: t.cfg.SmallBlind,
		BigBlind:   t.cfg.BigBlind,
		MinBuyIn:   t.cfg.MinBuyIn,
		MaxBuyIn:   t.cfg.MaxBuyIn,
	}
}

func (t *Table) sitDown(playerID string, buyIn int64) (int, error) {
	if t.state == "closed" {
		return -1, ErrTableClosed
	}
	free := -1
	for i, s := range t.seats {
		if s == nil {
			if free < 0 {
				free = i
			}
			continue
		}
		if s.playerID == playerID {
			// Rejoin after a disconnect: the seat never left.
			return i, nil
		}
	}
	if buyIn < t.cfg.MinBuyIn || buyIn > t.cfg.MaxBuyIn {
		return -1, ErrBuyInOutOfRange
	}
	if free < 0 {
		return -1, ErrTableFull
	}
	t.seats[free] = &seat{playerID: playerID, stack: buyIn}
	t.log.Info("player seated", zap.String("player", playerID), zap.Int("seat", free), zap.Int64("buyIn", buyIn))
	return free, nil
}

func (t *Table) standUp(playerID string) error {
	for i, s := range t.seats {
		if s == nil || s.playerID != playerID {
			continue
		}
		// Leaving mid-hand folds the seat first.
		if t.hand != nil && !t.hand.Resolved() {
			if pos := t.handPos(playerID); pos >= 0 {
				t.hand.ForceFold(pos)
				if t.hand.Resolved() {
					t.settleHand()
				}
			}
		}
		t.seats[i] = nil
		t.log.Info("player left", zap.String("player", playerID), zap.Int("seat", i))
		return nil
	}
	return ErrNotSeated
}

// handPos maps a player id to their position in the live hand, -1 if not
// dealt in.
func (t *Table) handPos(playerID string) int {
	if t.hand == nil {
		return -1
	}
	for pos, s := range t.hand.Seats {
		if s.PlayerID == playerID {
			return pos
		}
	}
	return -1
}

// maybeStartHand deals hands while none is live and at least two seated
// players have chips. A hand whose blinds put every seat all-in resolves
// inside NewHand already, so the loop settles it and deals on until a
// hand with live betting starts or someone busts.
func (t *Table) maybeStartHand() {
	if t.state == "closed" || (t.hand != nil && !t.hand.Resolved()) {
		return
	}
	for {
		var handSeats []*engine.Seat
		for i, s := range t.seats {
			if s != nil && s.stack > 0 {
				handSeats = append(handSeats, &engine.Seat{Index: i, PlayerID: s.playerID, Stack: s.stack})
			}
		}
		if len(handSeats) < 2 {
			t.hand = nil
			t.state = "waiting"
			return
		}

		t.dealer = (t.dealer + 1) % len(handSeats)
		t.hand = engine.NewHand(uuid.NewString(), t.cfg.ID, handSeats, t.dealer,
			t.cfg.SmallBlind, t.cfg.BigBlind, engine.NewDeck(t.rng))
		t.state = "active"
		t.log.Info("hand started", zap.String("hand", t.hand.ID), zap.Int("players", len(handSeats)))
		if !t.hand.Resolved() {
			return
		}
		t.settleHand()
		t.broadcast()
	}
}

func (t *Table) applyAction(msg Act) {
	pos := t.handPos(msg.PlayerID)
	if t.hand == nil || pos < 0 {
		t.push(msg.SessionID, Push{Err: "no live hand for player"})
		return
	}
	if err := t.hand.Apply(pos, msg.Kind, msg.Amount); err != nil {
		// Typed rejection for the acting session only; table state is
		// untouched.
		t.push(msg.SessionID, Push{Err: err.Error()})
		return
	}
	if t.hand.Resolved() {
		t.settleHand()
		t.broadcast()
		t.maybeStartHand()
		t.broadcast()
		return
	}
	t.broadcast()
}

// settleHand runs the treasury split for every resolved pot, credits the
// winners, archives the outcome and hands stacks back to the seats.
func (t *Table) settleHand() {
	h := t.hand
	res := h.Result
	ctx, cancelCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelCtx()

	var winners []string
	for _, pot := range res.Pots {
		dist, err := t.settler.Distribute(ctx, pot.Amount, t.cfg.ID, h.ID)
		if err != nil {
			// A pot credit has no legal rejection path; a failure here is
			// an infrastructure fault. Pay the winners the full pot rather
			// than strand their chips.
			t.log.Warn("distribution failed, paying pot without fees", zap.Error(err))
			dist = &treasury.Distribution{PotAmount: pot.Amount, WinnerAmount: pot.Amount}
		}
		t.awardPot(dist.WinnerAmount, pot.Winners)
		for _, pos := range pot.Winners {
			winners = append(winners, h.Seats[pos].PlayerID)
		}
	}

	// Stacks flow back to the table seats now that the hand is over.
	for _, hs := range h.Seats {
		if s := t.seats[hs.Index]; s != nil && s.playerID == hs.PlayerID {
			s.stack = hs.Stack
		}
	}

	if t.archiver != nil {
		board := make([]string, len(h.Board))
		for i, c := range h.Board {
			board[i] = c.String()
		}
		outcome := &store.HandOutcome{
			ID:        h.ID,
			TableID:   t.cfg.ID,
			Terminal:  string(h.Street),
			Board:     strings.Join(board, " "),
			Pot:       h.CarriedPot(),
			Winners:   strings.Join(winners, ","),
			CreatedAt: time.Now().UTC(),
		}
		if err := t.archiver.ArchiveHand(ctx, outcome); err != nil {
			t.log.Warn("hand archive failed", zap.String("hand", h.ID), zap.Error(err))
		}
	}
	t.log.Info("hand settled", zap.String("hand", h.ID), zap.String("terminal", string(h.Street)))
}

// awardPot splits the winner share evenly; odd remainder chips go to the
// winner seated closest to the dealer's left.
func (t *Table) awardPot(amount int64, winners []int) {
	if len(winners) == 0 || amount <= 0 {
		return
	}
	share := amount / int64(len(winners))
	rem := amount % int64(len(winners))
	for _, pos := range orderFromDealer(winners, t.dealer, len(t.hand.Seats)) {
		pay := share
		if rem > 0 {
			pay++
			rem--
		}
		t.hand.Seats[pos].Stack += pay
	}
}

// orderFromDealer sorts hand positions by distance clockwise from the
// seat after the dealer.
func orderFromDealer(positions []int, dealer, n int) []int {
	out := append([]int(nil), positions...)
	dist := func(p int) int { return ((p-dealer-1)%n + n) % n }
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && dist(out[j]) < dist(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (t *Table) broadcast() {
	t.version++
	for id, sub := range t.subs {
		t.push(id, Push{State: t.snapshotFor(sub.playerID)})
	}
}

func (t *Table) broadcastChat(playerID, text string) {
	chat := &types.ChatMessage{
		TableID:  t.cfg.ID,
		PlayerID: playerID,
		Text:     text,
		SentAt:   time.Now().UnixMilli(),
	}
	for id := range t.subs {
		t.push(id, Push{Chat: chat})
	}
}

// push delivers one event to a session, dropping the subscriber if its
// outbox is full so one stalled connection cannot stall the table. The
// outbox stays open (the session owns it and may re-subscribe); the
// dropped client detects the gap by version and resyncs.
func (t *Table) push(sessionID string, p Push) {
	sub, ok := t.subs[sessionID]
	if !ok {
		return
	}
	select {
	case sub.outbox <- p:
	default:
		delete(t.subs, sessionID)
		t.log.Debug("dropped slow subscriber", zap.String("session", sessionID))
	}
}
