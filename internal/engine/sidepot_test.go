package engine

import (
	"reflect"
	"testing"
)

func paidSeat(pos int, paid int64, folded, allIn bool) *Seat {
	return &Seat{Index: pos, PlayerID: "p", PaidTotal: paid, Folded: folded, AllIn: allIn}
}

func TestBuildPotsSinglePotNoAllIns(t *testing.T) {
	seats := []*Seat{
		paidSeat(0, 100, false, false),
		paidSeat(1, 100, false, false),
		paidSeat(2, 100, false, false),
	}
	pots := buildPots(seats)
	if len(pots) != 1 {
		t.Fatalf("want one pot, got %d: %+v", len(pots), pots)
	}
	if pots[0].Amount != 300 {
		t.Fatalf("want 300 in the pot, got %d", pots[0].Amount)
	}
	if !reflect.DeepEqual(pots[0].Eligible, []int{0, 1, 2}) {
		t.Fatalf("everyone is eligible, got %v", pots[0].Eligible)
	}
}

func TestBuildPotsShortAllInTiers(t *testing.T) {
	// Two seats matched at 50, a third could only cover 30: the main pot
	// holds 30 from everyone, the side pot the remaining 20+20.
	seats := []*Seat{
		paidSeat(0, 50, false, false),
		paidSeat(1, 50, false, false),
		paidSeat(2, 30, false, true),
	}
	pots := buildPots(seats)
	if len(pots) != 2 {
		t.Fatalf("want main + side pot, got %d: %+v", len(pots), pots)
	}
	if pots[0].Amount != 90 || !reflect.DeepEqual(pots[0].Eligible, []int{0, 1, 2}) {
		t.Fatalf("main pot wrong: %+v", pots[0])
	}
	if pots[1].Amount != 40 || !reflect.DeepEqual(pots[1].Eligible, []int{0, 1}) {
		t.Fatalf("side pot wrong: %+v", pots[1])
	}
}

func TestBuildPotsFoldedMoneyStaysIn(t *testing.T) {
	// A folded seat's chips stay in the pots it contributed to, but the
	// seat is never eligible to win any of them.
	seats := []*Seat{
		paidSeat(0, 80, false, false),
		paidSeat(1, 80, false, false),
		paidSeat(2, 40, true, false),
	}
	pots := buildPots(seats)

	var total int64
	for _, p := range pots {
		total += p.Amount
		for _, pos := range p.Eligible {
			if pos == 2 {
				t.Fatalf("folded seat eligible in pot %+v", p)
			}
		}
	}
	if total != 200 {
		t.Fatalf("pots must hold every chip paid, got %d", total)
	}
}

func TestBuildPotsMergesEqualEligibleTiers(t *testing.T) {
	// The folded seat creates a contribution level of its own, but the
	// eligible set does not change across it, so the tiers collapse into
	// a single pot.
	seats := []*Seat{
		paidSeat(0, 100, false, false),
		paidSeat(1, 100, false, false),
		paidSeat(2, 60, true, false),
	}
	pots := buildPots(seats)
	if len(pots) != 1 {
		t.Fatalf("tiers with identical eligibility must merge, got %+v", pots)
	}
	if pots[0].Amount != 260 || !reflect.DeepEqual(pots[0].Eligible, []int{0, 1}) {
		t.Fatalf("merged pot wrong: %+v", pots[0])
	}
}

func TestBuildPotsThreeWayLadder(t *testing.T) {
	seats := []*Seat{
		paidSeat(0, 20, false, true),
		paidSeat(1, 60, false, true),
		paidSeat(2, 100, false, false),
		paidSeat(3, 100, false, false),
	}
	pots := buildPots(seats)
	if len(pots) != 3 {
		t.Fatalf("want three tiers, got %d: %+v", len(pots), pots)
	}
	want := []struct {
		amount   int64
		eligible []int
	}{
		{80, []int{0, 1, 2, 3}},
		{120, []int{1, 2, 3}},
		{80, []int{2, 3}},
	}
	for i, w := range want {
		if pots[i].Amount != w.amount || !reflect.DeepEqual(pots[i].Eligible, w.eligible) {
			t.Fatalf("tier %d: want %d %v, got %+v", i, w.amount, w.eligible, pots[i])
		}
	}
}
