package holdem

import "errors"

var (
	ErrHandInProgress   = errors.New("hand in progress")
	ErrNoHand           = errors.New("no hand in progress")
	ErrOutOfTurn        = errors.New("action out of turn")
	ErrNotEnoughPlayers = errors.New("need at least 2 online players")
	ErrUnknownSeat      = errors.New("unknown seat")
	ErrNameTaken        = errors.New("name already seated and online")
	ErrTableFull        = errors.New("table full")
	ErrInvalidAction    = errors.New("invalid action")
)

type InvalidStateError string

func (e InvalidStateError) Error() string { return "invalid state: " + string(e) }

func ErrInvalidState(msg string) error { return InvalidStateError(msg) }
