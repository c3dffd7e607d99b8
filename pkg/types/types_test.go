package types

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestEnvelopeDeferredPayload(t *testing.T) {
	// Payloads travel as raw JSON so dispatch can route on Type before
	// decoding, and the correlation id survives untouched.
	data, _ := json.Marshal(JoinTableReq{TableID: "t1", BuyIn: 1000})
	env := Envelope{Type: EvtJoinTable, ReqID: "req-7", Data: data}

	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	var back Envelope
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if back.Type != EvtJoinTable || back.ReqID != "req-7" {
		t.Fatalf("envelope header mangled: %+v", back)
	}
	var req JoinTableReq
	if err := json.Unmarshal(back.Data, &req); err != nil {
		t.Fatal(err)
	}
	if req.TableID != "t1" || req.BuyIn != 1000 {
		t.Fatalf("payload mangled: %+v", req)
	}
}

func TestTableSnapshotSelfContained(t *testing.T) {
	snap := TableSnapshot{
		Version:    12,
		TableID:    "t1",
		Name:       "1/2 nl",
		State:      "active",
		MaxSeats:   6,
		SmallBlind: 10,
		BigBlind:   20,
		MinBuyIn:   400,
		MaxBuyIn:   2000,
		Seats: []SeatView{
			{Index: 0, PlayerID: "alice", Stack: 980, Bet: 20, IsActor: true, Hole: []string{"As", "Kd"}},
			{Index: 1, PlayerID: "bob", Stack: 950, Bet: 50, LastAction: "raise"},
			{Index: 2},
		},
		Hand: &HandView{
			ID:         "h1",
			Street:     "flop",
			Board:      []string{"2c", "7d", "9h"},
			Pot:        110,
			CurrentBet: 50,
			MinRaise:   30,
			DealerSeat: 1,
			ActorSeat:  0,
			Result: &ResultView{
				Pots:  []PotView{{Amount: 110, Winners: []string{"alice"}}},
				Ranks: map[string]string{"alice": "pair of aces"},
			},
		},
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	var back TableSnapshot
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(snap, back) {
		t.Fatalf("snapshot must survive the wire intact:\nsent %+v\ngot  %+v", snap, back)
	}
}
