package holdem

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"holdem-table/card"
)

// Table is the single-table betting engine. Every exported method takes the
// table lock, so a Table can be read from any goroutine; mutations are
// expected to come from one serialized caller.
type Table struct {
	cfg Config
	rng *rand.Rand

	mu sync.Mutex

	// seating order is fixed and stable across hands
	seats []*Seat

	// hand state
	handNumber     uint64
	deck           *card.Deck
	newDeck        func(*rand.Rand) *card.Deck
	communityCards []card.Card
	pot            int64
	curMaxBet      int64

	dealerIndex     int
	smallBlindIndex int
	bigBlindIndex   int
	actorIndex      int
	aggressorIndex  int
	actionsTaken    int

	inProgress  bool
	isShowdown  bool
	winnerNames []string

	handStartedAt time.Time
	lastOutcome   *HandOutcome
}

func NewTable(cfg Config) (*Table, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Table{
		cfg:             cfg,
		rng:             rand.New(rand.NewSource(seed)),
		newDeck:         card.NewDeck,
		dealerIndex:     NoSeat,
		smallBlindIndex: NoSeat,
		bigBlindIndex:   NoSeat,
		actorIndex:      NoSeat,
		aggressorIndex:  NoSeat,
	}, nil
}

func (t *Table) Config() Config { return t.cfg }

// SetDeckSource replaces the shuffled deck factory, e.g. with a stacked deck.
func (t *Table) SetDeckSource(fn func(*rand.Rand) *card.Deck) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fn == nil {
		fn = card.NewDeck
	}
	t.newDeck = fn
}

// AddSeat registers a player by display name and returns its seat index.
// An offline seat with the same name is reclaimed with its stack intact.
// Players joining mid-hand or without chips wait for the next hand.
func (t *Table) AddSeat(id, name string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return NoSeat, fmt.Errorf("empty player name")
	}
	if t.indexOfLocked(id) != NoSeat {
		return NoSeat, fmt.Errorf("seat id %q already registered", id)
	}

	if t.onlineCountLocked() == 0 && !t.inProgress {
		t.resetTableStateLocked()
	}

	for i, s := range t.seats {
		if !strings.EqualFold(s.Name, name) {
			continue
		}
		if s.online {
			return NoSeat, ErrNameTaken
		}
		s.ID = id
		s.Name = name
		s.online = true
		if !t.inProgress && s.stack <= 0 {
			s.sitOut()
		}
		return i, nil
	}

	if len(t.seats) >= t.cfg.MaxSeats {
		return NoSeat, ErrTableFull
	}
	s := newSeat(id, name, t.cfg.StartingStack)
	if t.inProgress || s.stack <= 0 {
		s.sitOut()
	}
	t.seats = append(t.seats, s)
	return len(t.seats) - 1, nil
}

// Disconnect marks a seat offline and folds it. When the seat held the turn
// the fold is applied as its action so the hand keeps moving.
func (t *Table) Disconnect(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOfLocked(id)
	if i == NoSeat {
		return ErrUnknownSeat
	}
	s := t.seats[i]
	s.online = false
	if !t.inProgress || !s.contending() {
		s.folded = true
		return nil
	}
	if i == t.actorIndex && s.canAct() {
		t.applyLocked(Action{Kind: ActionFold})
		return nil
	}
	s.folded = true
	s.lastWager = 0
	t.recomputeMaxBetLocked()
	t.settleAfterForcedFoldLocked()
	return nil
}

// CleanupDisconnected drops offline seats when that cannot corrupt a running
// hand. With fewer than two online seats a running hand is ended first.
// It returns the ids of removed seats.
func (t *Table) CleanupDisconnected() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cleanupDisconnectedLocked()
}

func (t *Table) cleanupDisconnectedLocked() []string {
	if t.inProgress {
		if t.onlineCountLocked() >= 2 {
			return nil
		}
		t.endHandEarlyLocked()
	}
	var removed []string
	dealer := t.dealerIndex
	kept := t.seats[:0]
	for i, s := range t.seats {
		if s.online {
			kept = append(kept, s)
			continue
		}
		removed = append(removed, s.ID)
		// the button moves on from the seat that followed it
		if dealer != NoSeat && i <= dealer {
			t.dealerIndex--
		}
	}
	for i := len(kept); i < len(t.seats); i++ {
		t.seats[i] = nil
	}
	t.seats = kept
	if len(removed) > 0 {
		if t.dealerIndex < NoSeat {
			t.dealerIndex = NoSeat
		}
		t.smallBlindIndex, t.bigBlindIndex = NoSeat, NoSeat
		t.actorIndex, t.aggressorIndex = NoSeat, NoSeat
	}
	return removed
}

func (t *Table) OnlineCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.onlineCountLocked()
}

func (t *Table) InProgress() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inProgress
}

// SeatIndex returns the seat index for id, or NoSeat.
func (t *Table) SeatIndex(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.indexOfLocked(id)
}

// LastOutcome returns the payout record of the most recently finished hand.
func (t *Table) LastOutcome() *HandOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastOutcome
}

// StartNewHand resets per-hand state, rotates the button, posts blinds and
// deals hole cards. With fewer than two eligible online seats the table stays
// idle and ErrNotEnoughPlayers is returned.
func (t *Table) StartNewHand() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.inProgress {
		return ErrHandInProgress
	}
	t.cleanupDisconnectedLocked()

	playing := 0
	for _, s := range t.seats {
		if s.stack <= 0 || !s.online {
			s.sitOut()
			continue
		}
		s.resetForNewHand()
		playing++
	}
	if playing < 2 {
		return ErrNotEnoughPlayers
	}

	t.handNumber++
	t.handStartedAt = time.Now()
	t.deck = t.newDeck(t.rng)
	t.communityCards = nil
	t.winnerNames = nil
	t.isShowdown = false
	t.pot = 0
	t.curMaxBet = 0
	t.lastOutcome = nil
	t.inProgress = true

	// Select dealer & blinds
	t.dealerIndex = t.nextPlayingLocked(t.dealerIndex)
	if playing == 2 {
		// Heads-Up: the button posts the small blind
		t.smallBlindIndex = t.dealerIndex
	} else {
		t.smallBlindIndex = t.nextPlayingLocked(t.dealerIndex)
	}
	t.bigBlindIndex = t.nextPlayingLocked(t.smallBlindIndex)

	t.pot += t.seats[t.smallBlindIndex].placeBet(t.cfg.SmallBlind)
	t.pot += t.seats[t.bigBlindIndex].placeBet(t.cfg.BigBlind)
	t.recomputeMaxBetLocked()

	t.dealHoleCardsLocked()

	t.aggressorIndex = t.bigBlindIndex
	t.actionsTaken = 0
	t.actorIndex = t.bigBlindIndex
	t.moveToNextActiveLocked()

	if t.canActCountLocked() == 0 {
		t.runOutLocked()
	}
	return nil
}

// Act applies an action for the seat holding the turn. Actions from any other
// seat, or outside a hand, are rejected without touching state.
func (t *Table) Act(id string, a Action) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.inProgress {
		return ErrNoHand
	}
	if t.actorIndex == NoSeat || t.seats[t.actorIndex].ID != id {
		return ErrOutOfTurn
	}
	if !t.seats[t.actorIndex].canAct() {
		return ErrOutOfTurn
	}
	switch a.Kind {
	case ActionFold, ActionCall, ActionCheck, ActionRaise:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidAction, a.Kind)
	}
	t.applyLocked(a)
	return nil
}

func (t *Table) applyLocked(a Action) {
	p := t.seats[t.actorIndex]
	t.actionsTaken++

	switch a.Kind {
	case ActionFold:
		p.folded = true
		p.lastWager = 0
		t.recomputeMaxBetLocked()
	case ActionCall, ActionCheck:
		t.pot += p.placeBet(t.curMaxBet - p.bet)
	case ActionRaise:
		// amount is the total street bet; below the current bet it is a call
		target := a.Amount
		if target < t.curMaxBet {
			target = t.curMaxBet
		}
		t.pot += p.placeBet(target - p.bet)
		if p.bet > t.curMaxBet {
			t.curMaxBet = p.bet
			t.aggressorIndex = t.actorIndex
			t.actionsTaken = 1
		}
	}
	t.checkRoundStatusLocked()
}

func (t *Table) checkRoundStatusLocked() {
	if t.contendingCountLocked() <= 1 {
		t.endHandEarlyLocked()
		return
	}
	canAct := t.canActCountLocked()
	if canAct == 0 {
		t.runOutLocked()
		return
	}
	if t.allBetsEqualLocked() && t.actionsTaken >= canAct {
		t.advanceStreetLocked()
		return
	}
	if !t.moveToNextActiveLocked() {
		t.advanceStreetLocked()
	}
}

// settleAfterForcedFoldLocked re-evaluates the round after a seat that did
// not hold the turn was folded. The turn pointer only moves if the round
// completes.
func (t *Table) settleAfterForcedFoldLocked() {
	if t.contendingCountLocked() <= 1 {
		t.endHandEarlyLocked()
		return
	}
	canAct := t.canActCountLocked()
	if canAct == 0 {
		t.runOutLocked()
		return
	}
	if t.allBetsEqualLocked() && t.actionsTaken >= canAct {
		t.advanceStreetLocked()
	}
}

// moveToNextActiveLocked walks the ring from the current actor to the next
// seat that can act. If none qualifies the pointer is left unchanged and false
// is returned.
func (t *Table) moveToNextActiveLocked() bool {
	n := len(t.seats)
	if n == 0 {
		return false
	}
	start := t.actorIndex
	for k := 1; k < n; k++ {
		i := ringIndex(start+k, n)
		if t.seats[i].canAct() {
			t.actorIndex = i
			return true
		}
	}
	return false
}

func (t *Table) advanceStreetLocked() {
	for _, s := range t.seats {
		s.clearBet()
	}
	t.curMaxBet = 0
	t.actionsTaken = 0

	if len(t.communityCards) >= 5 {
		t.showdownLocked()
		return
	}
	deal := 1
	if len(t.communityCards) == 0 {
		deal = 3
	}
	t.communityCards = append(t.communityCards, t.deck.DealN(deal)...)

	t.actorIndex = t.dealerIndex
	t.moveToNextActiveLocked()
	t.aggressorIndex = t.actorIndex
}

// runOutLocked deals the remaining streets without betting.
func (t *Table) runOutLocked() {
	for t.inProgress {
		t.advanceStreetLocked()
	}
}

func (t *Table) dealHoleCardsLocked() {
	n := len(t.seats)
	for round := 0; round < 2; round++ {
		for k := 0; k < n; k++ {
			s := t.seats[ringIndex(t.smallBlindIndex+k, n)]
			if s.sittingOut {
				continue
			}
			s.holeCards = append(s.holeCards, t.deck.Deal())
		}
	}
}

func (t *Table) showdownLocked() {
	t.isShowdown = true

	var best int64 = -1
	for _, s := range t.seats {
		if !s.contending() {
			continue
		}
		all := make([]card.Card, 0, 7)
		all = append(all, s.holeCards...)
		all = append(all, t.communityCards...)
		res, err := Evaluate(all)
		if err != nil {
			panic(ErrInvalidState(fmt.Sprintf("showdown for seat %s: %v", s.Name, err)))
		}
		s.result = &res
		if res.Score > best {
			best = res.Score
		}
	}

	var winners []*Seat
	for _, s := range t.seats {
		if s.contending() && s.result != nil && s.result.Score == best {
			winners = append(winners, s)
		}
	}
	t.payoutLocked(winners, true)
}

// endHandEarlyLocked awards the whole pot to the only seat still contending,
// without evaluating hands.
func (t *Table) endHandEarlyLocked() {
	var winners []*Seat
	for _, s := range t.seats {
		if s.contending() {
			winners = append(winners, s)
			break
		}
	}
	t.payoutLocked(winners, false)
}

// payoutLocked splits the pot by floor division; the remainder goes to the
// first winner in seat order.
func (t *Table) payoutLocked(winners []*Seat, showdown bool) {
	out := &HandOutcome{
		HandNumber: t.handNumber,
		Showdown:   showdown,
		Board:      append([]card.Card(nil), t.communityCards...),
		Pot:        t.pot,
		StartedAt:  t.handStartedAt,
		EndedAt:    time.Now(),
	}
	t.winnerNames = nil
	if len(winners) > 0 {
		share := t.pot / int64(len(winners))
		remainder := t.pot % int64(len(winners))
		for i, w := range winners {
			amt := share
			if i == 0 {
				amt += remainder
			}
			w.addStack(amt)
			t.winnerNames = append(t.winnerNames, w.Name)
			out.Payouts = append(out.Payouts, Payout{SeatID: w.ID, Name: w.Name, Amount: amt})
		}
	}
	for _, s := range t.seats {
		if s.sittingOut {
			continue
		}
		out.Hands = append(out.Hands, SeatHand{
			SeatID:    s.ID,
			Name:      s.Name,
			Folded:    s.folded,
			HoleCards: append([]card.Card(nil), s.holeCards...),
			Result:    s.result,
			Stack:     s.stack,
		})
	}
	t.pot = 0
	t.inProgress = false
	t.lastOutcome = out
}

func (t *Table) resetTableStateLocked() {
	t.pot = 0
	t.curMaxBet = 0
	t.communityCards = nil
	t.winnerNames = nil
	t.isShowdown = false
	t.inProgress = false
	t.dealerIndex = NoSeat
	t.smallBlindIndex = NoSeat
	t.bigBlindIndex = NoSeat
	t.actorIndex = NoSeat
	t.aggressorIndex = NoSeat
	for _, s := range t.seats {
		s.result = nil
	}
}

func (t *Table) recomputeMaxBetLocked() {
	var max int64
	for _, s := range t.seats {
		if !s.folded && s.bet > max {
			max = s.bet
		}
	}
	t.curMaxBet = max
}

func (t *Table) allBetsEqualLocked() bool {
	for _, s := range t.seats {
		if s.canAct() && s.bet != t.curMaxBet {
			return false
		}
	}
	return true
}

func (t *Table) canActCountLocked() int {
	n := 0
	for _, s := range t.seats {
		if s.canAct() {
			n++
		}
	}
	return n
}

func (t *Table) contendingCountLocked() int {
	n := 0
	for _, s := range t.seats {
		if s.contending() {
			n++
		}
	}
	return n
}

func (t *Table) onlineCountLocked() int {
	n := 0
	for _, s := range t.seats {
		if s.online {
			n++
		}
	}
	return n
}

// nextPlayingLocked returns the first seat after from that is dealt in.
func (t *Table) nextPlayingLocked(from int) int {
	n := len(t.seats)
	for k := 1; k <= n; k++ {
		i := ringIndex(from+k, n)
		if !t.seats[i].sittingOut {
			return i
		}
	}
	return NoSeat
}

func (t *Table) indexOfLocked(id string) int {
	for i, s := range t.seats {
		if s.ID == id {
			return i
		}
	}
	return NoSeat
}

func ringIndex(i, n int) int {
	return ((i % n) + n) % n
}
