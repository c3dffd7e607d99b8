package table

import (
	"github.com/feltworks/tableserver/internal/engine"
	"github.com/feltworks/tableserver/pkg/types"
)

// snapshotFor builds the full table view for one subscriber. The shape is
// identical for every viewer; only hole-card visibility differs, so a
// reconnecting session receives exactly what a never-disconnected
// observer holds.
func (t *Table) snapshotFor(viewerID string) *types.TableSnapshot {
	snap := &types.TableSnapshot{
		Version:    t.version,
		TableID:    t.cfg.ID,
		Name:       t.cfg.Name,
		State:      t.state,
		MaxSeats:   t.cfg.MaxSeats,
		SmallBlind: t.cfg.SmallBlind,
		BigBlind:   t.cfg.BigBlind,
		MinBuyIn:   t.cfg.MinBuyIn,
		MaxBuyIn:   t.cfg.MaxBuyIn,
		Seats:      make([]types.SeatView, t.cfg.MaxSeats),
	}

	for i, s := range t.seats {
		snap.Seats[i] = types.SeatView{Index: i}
		if s != nil {
			snap.Seats[i].PlayerID = s.playerID
			snap.Seats[i].Stack = s.stack
		}
	}

	h := t.hand
	if h == nil {
		return snap
	}

	actorSeat := -1
	if pos := h.CurrentActor(); pos >= 0 {
		actorSeat = h.Seats[pos].Index
	}
	hv := &types.HandView{
		ID:         h.ID,
		Street:     string(h.Street),
		Board:      cardStrings(h.Board),
		Pot:        h.TotalPot(),
		CurrentBet: h.CurBet,
		MinRaise:   h.MinRaise,
		DealerSeat: h.Seats[h.Dealer].Index,
		ActorSeat:  actorSeat,
	}

	atShowdown := h.Street == engine.Showdown || h.Street == engine.Settled
	for _, hs := range h.Seats {
		sv := &snap.Seats[hs.Index]
		sv.Stack = hs.Stack
		sv.Bet = hs.Committed
		sv.Folded = hs.Folded
		sv.AllIn = hs.AllIn
		sv.IsActor = hs.Index == actorSeat
		sv.LastAction = string(hs.LastAction)
		if hs.PlayerID == viewerID || (atShowdown && !hs.Folded) {
			sv.Hole = cardStrings(hs.Hole)
		}
	}

	if h.Result != nil {
		rv := &types.ResultView{}
		for _, pot := range h.Result.Pots {
			pv := types.PotView{Amount: pot.Amount}
			for _, pos := range pot.Winners {
				pv.Winners = append(pv.Winners, h.Seats[pos].PlayerID)
			}
			rv.Pots = append(rv.Pots, pv)
		}
		if len(h.Result.Ranks) > 0 {
			rv.Ranks = make(map[string]string, len(h.Result.Ranks))
			for pos, desc := range h.Result.Ranks {
				rv.Ranks[h.Seats[pos].PlayerID] = desc
			}
		}
		hv.Result = rv
	}

	snap.Hand = hv
	return snap
}

func cardStrings(cards []engine.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}
