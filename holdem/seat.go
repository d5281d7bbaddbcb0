package holdem

import "holdem-table/card"

// Seat is one player's state at the table. Only Table mutates it.
type Seat struct {
	ID   string
	Name string

	stack     int64
	bet       int64 // current street
	lastWager int64 // chips moved by the latest action

	folded     bool
	allIn      bool
	online     bool
	sittingOut bool

	holeCards []card.Card
	result    *HandResult
}

func newSeat(id, name string, stack int64) *Seat {
	return &Seat{
		ID:     id,
		Name:   name,
		stack:  stack,
		online: true,
	}
}

func (s *Seat) Stack() int64         { return s.stack }
func (s *Seat) Bet() int64           { return s.bet }
func (s *Seat) LastWager() int64     { return s.lastWager }
func (s *Seat) Folded() bool         { return s.folded }
func (s *Seat) AllIn() bool          { return s.allIn }
func (s *Seat) Online() bool         { return s.online }
func (s *Seat) SittingOut() bool     { return s.sittingOut }
func (s *Seat) Result() *HandResult  { return s.result }
func (s *Seat) HoleCards() []card.Card {
	return append([]card.Card(nil), s.holeCards...)
}

// canAct 未弃牌、未全下、本手参与
func (s *Seat) canAct() bool {
	return !s.folded && !s.allIn && !s.sittingOut
}

// contending 未弃牌且本手参与
func (s *Seat) contending() bool {
	return !s.folded && !s.sittingOut
}

func (s *Seat) resetForNewHand() {
	s.bet = 0
	s.lastWager = 0
	s.allIn = false
	s.folded = false
	s.sittingOut = false
	s.holeCards = make([]card.Card, 0, 2)
	s.result = nil
}

// sitOut keeps the seat out of the coming hand.
func (s *Seat) sitOut() {
	s.bet = 0
	s.lastWager = 0
	s.allIn = false
	s.folded = true
	s.sittingOut = true
	s.holeCards = nil
	s.result = nil
}

// placeBet moves up to amount chips from stack to bet and returns what moved.
// A wager that uses the whole stack puts the seat all-in.
func (s *Seat) placeBet(amount int64) int64 {
	if amount <= 0 {
		s.lastWager = 0
		return 0
	}
	if amount >= s.stack {
		amount = s.stack
		s.allIn = true
	}
	s.stack -= amount
	s.bet += amount
	s.lastWager = amount
	return amount
}

func (s *Seat) addStack(amount int64) { s.stack += amount }

func (s *Seat) clearBet() {
	s.bet = 0
	s.lastWager = 0
}
