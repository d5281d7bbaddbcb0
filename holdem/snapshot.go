package holdem

import (
	"time"

	"holdem-table/card"
)

type SeatSnapshot struct {
	ID         string
	Name       string
	Stack      int64
	Bet        int64
	LastWager  int64
	Folded     bool
	AllIn      bool
	Online     bool
	SittingOut bool
	HoleCards  []card.Card
	Result     *HandResult
}

// Snapshot is the full, unfiltered table state. It must not be sent to
// clients as is; use View for that.
type Snapshot struct {
	HandNumber uint64

	CommunityCards []card.Card
	Pot            int64
	CurrentMaxBet  int64

	DealerIndex     int
	SmallBlindIndex int
	BigBlindIndex   int
	ActorIndex      int
	AggressorIndex  int
	ActionsTaken    int

	HandInProgress bool
	IsShowdown     bool
	Winners        []string

	Seats []SeatSnapshot
}

func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Table) snapshotLocked() Snapshot {
	s := Snapshot{
		HandNumber:      t.handNumber,
		CommunityCards:  append([]card.Card{}, t.communityCards...),
		Pot:             t.pot,
		CurrentMaxBet:   t.curMaxBet,
		DealerIndex:     t.dealerIndex,
		SmallBlindIndex: t.smallBlindIndex,
		BigBlindIndex:   t.bigBlindIndex,
		ActorIndex:      t.actorIndex,
		AggressorIndex:  t.aggressorIndex,
		ActionsTaken:    t.actionsTaken,
		HandInProgress:  t.inProgress,
		IsShowdown:      t.isShowdown,
		Winners:         append([]string{}, t.winnerNames...),
	}
	for _, p := range t.seats {
		ss := SeatSnapshot{
			ID:         p.ID,
			Name:       p.Name,
			Stack:      p.stack,
			Bet:        p.bet,
			LastWager:  p.lastWager,
			Folded:     p.folded,
			AllIn:      p.allIn,
			Online:     p.online,
			SittingOut: p.sittingOut,
			HoleCards:  append([]card.Card{}, p.holeCards...),
		}
		if p.result != nil {
			r := *p.result
			ss.Result = &r
		}
		s.Seats = append(s.Seats, ss)
	}
	return s
}

// TotalChips is every chip on the table: stacks plus the pot.
func (s Snapshot) TotalChips() int64 {
	total := s.Pot
	for _, p := range s.Seats {
		total += p.Stack
	}
	return total
}

// PlayerView is one seat as a particular recipient is allowed to see it.
type PlayerView struct {
	Name       string      `json:"name"`
	Stack      int64       `json:"stack"`
	CurrentBet int64       `json:"currentBet"`
	Folded     bool        `json:"folded"`
	AllIn      bool        `json:"allIn"`
	SittingOut bool        `json:"sittingOut"`
	Online     bool        `json:"online"`
	HasCards   bool        `json:"hasCards"`
	HoleCards  []card.Card `json:"holeCards,omitempty"`
	HandResult *HandResult `json:"handResult,omitempty"`
}

// View is the recipient-scoped state broadcast after every mutation.
type View struct {
	HandNumber        uint64       `json:"handNumber"`
	CommunityCards    []card.Card  `json:"communityCards"`
	Pot               int64        `json:"pot"`
	CurrentMaxBet     int64        `json:"currentMaxBet"`
	CurrentActorIndex int          `json:"currentActorIndex"`
	DealerIndex       int          `json:"dealerIndex"`
	SmallBlindIndex   int          `json:"smallBlindIndex"`
	BigBlindIndex     int          `json:"bigBlindIndex"`
	HandInProgress    bool         `json:"handInProgress"`
	IsShowdown        bool         `json:"isShowdown"`
	Winners           []string     `json:"winners"`
	SeatIndex         int          `json:"seatIndex"`
	Players           []PlayerView `json:"players"`
}

// ViewFor builds the state as seen by seat id. Hole cards and hand results
// are only included for that seat, or for every non-folded seat at showdown.
func (t *Table) ViewFor(id string) View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked().ViewFor(id)
}

func (s Snapshot) ViewFor(id string) View {
	v := View{
		HandNumber:        s.HandNumber,
		CommunityCards:    append([]card.Card{}, s.CommunityCards...),
		Pot:               s.Pot,
		CurrentMaxBet:     s.CurrentMaxBet,
		CurrentActorIndex: s.ActorIndex,
		DealerIndex:       s.DealerIndex,
		SmallBlindIndex:   s.SmallBlindIndex,
		BigBlindIndex:     s.BigBlindIndex,
		HandInProgress:    s.HandInProgress,
		IsShowdown:        s.IsShowdown,
		Winners:           append([]string{}, s.Winners...),
		SeatIndex:         NoSeat,
		Players:           make([]PlayerView, 0, len(s.Seats)),
	}
	for i, p := range s.Seats {
		own := p.ID == id
		if own {
			v.SeatIndex = i
		}
		pv := PlayerView{
			Name:       p.Name,
			Stack:      p.Stack,
			CurrentBet: p.Bet,
			Folded:     p.Folded,
			AllIn:      p.AllIn,
			SittingOut: p.SittingOut,
			Online:     p.Online,
			HasCards:   len(p.HoleCards) > 0,
		}
		if own || (s.IsShowdown && !p.Folded && !p.SittingOut) {
			pv.HoleCards = append([]card.Card{}, p.HoleCards...)
			pv.HandResult = p.Result
		}
		v.Players = append(v.Players, pv)
	}
	return v
}

type Payout struct {
	SeatID string `json:"seatId"`
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

type SeatHand struct {
	SeatID    string      `json:"seatId"`
	Name      string      `json:"name"`
	Folded    bool        `json:"folded"`
	HoleCards []card.Card `json:"holeCards"`
	Result    *HandResult `json:"result,omitempty"`
	Stack     int64       `json:"stack"`
}

// HandOutcome records how a finished hand was paid out.
type HandOutcome struct {
	HandNumber uint64      `json:"handNumber"`
	Showdown   bool        `json:"showdown"`
	Board      []card.Card `json:"board"`
	Pot        int64       `json:"pot"`
	Payouts    []Payout    `json:"payouts"`
	Hands      []SeatHand  `json:"hands"`
	StartedAt  time.Time   `json:"startedAt"`
	EndedAt    time.Time   `json:"endedAt"`
}
