package engine

import "fmt"

// Validate decides whether seat may perform the requested action on h right
// now. Pure: no mutation, deterministic given its inputs. Amounts for bet
// and raise are the street total the seat wants to be at ("raise to").
//
// Rules are checked in precedence order: turn, eligibility, then the
// per-kind legality. The min-bet/min-raise floors are waived only when the
// requested amount exhausts the seat's entire remaining stack, so a deep
// stack can never use the exception to short-raise.
func Validate(h *Hand, seatPos int, kind ActionKind, amount int64) error {
	if h.Resolved() {
		return ErrHandAlreadyResolved
	}
	if seatPos < 0 || seatPos >= len(h.Seats) {
		return ErrUnknownSeat
	}
	if seatPos != h.actor {
		return ErrNotYourTurn
	}

	s := h.Seats[seatPos]
	if s.Folded || s.AllIn {
		return ErrCannotAct
	}

	switch kind {
	case Fold:
		return nil

	case Check:
		if s.Committed != h.CurBet {
			return fmt.Errorf("%w: cannot check facing a bet of %d", ErrInvalidAction, h.CurBet)
		}
		return nil

	case Call:
		if h.CurBet <= s.Committed {
			return fmt.Errorf("%w: nothing to call", ErrInvalidAction)
		}
		if s.Stack <= 0 {
			return fmt.Errorf("%w: no chips to call with", ErrInvalidAction)
		}
		return nil

	case Bet:
		if h.CurBet != 0 {
			return fmt.Errorf("%w: bet not allowed, there is already a bet of %d", ErrInvalidAction, h.CurBet)
		}
		if amount <= 0 {
			return fmt.Errorf("%w: bet must be positive", ErrInvalidAction)
		}
		if amount > s.Stack {
			return fmt.Errorf("%w: bet %d exceeds stack %d", ErrInvalidAction, amount, s.Stack)
		}
		if amount < h.BigBlind && amount != s.Stack {
			return fmt.Errorf("%w: minimum bet is %d", ErrInvalidAction, h.BigBlind)
		}
		return nil

	case Raise:
		if h.CurBet == 0 {
			return fmt.Errorf("%w: nothing to raise", ErrInvalidAction)
		}
		max := s.Stack + s.Committed
		if amount > max {
			return fmt.Errorf("%w: raise to %d exceeds maximum %d", ErrInvalidAction, amount, max)
		}
		if amount <= h.CurBet {
			return fmt.Errorf("%w: raise must exceed current bet %d", ErrInvalidAction, h.CurBet)
		}
		if amount < h.CurBet+h.MinRaise && amount != max {
			return fmt.Errorf("%w: minimum raise to %d", ErrInvalidAction, h.CurBet+h.MinRaise)
		}
		return nil

	case AllIn:
		if s.Stack <= 0 {
			return fmt.Errorf("%w: no chips", ErrInvalidAction)
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidAction, kind)
	}
}
