package engine

import "errors"

var ErrNotYourTurn = errors.New("not your turn")
var ErrCannotAct = errors.New("seat cannot act")
var ErrInvalidAction = errors.New("invalid action")
var ErrHandAlreadyResolved = errors.New("hand already resolved")
var ErrUnknownSeat = errors.New("unknown seat")
