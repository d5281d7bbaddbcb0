package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"holdem-table/holdem"
	"holdem-table/internal/ledger"
)

// Sink delivers views to one connection. Send must not block for long; a
// Send error or panic closes the sink and disconnects its seat.
type Sink interface {
	Send(v holdem.View) error
	Close()
}

// Member is a registered connection.
type Member struct {
	ConnID   string
	Name     string
	JoinedAt time.Time
	sink     Sink
}

// Event types for the actor message queue
type EventType int

const (
	EventJoin EventType = iota
	EventAction
	EventDisconnect
	EventStartHand
)

func (e EventType) String() string {
	switch e {
	case EventJoin:
		return "join"
	case EventAction:
		return "action"
	case EventDisconnect:
		return "disconnect"
	case EventStartHand:
		return "start-hand"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Event represents a message to the coordinator actor
type Event struct {
	Type     EventType
	ConnID   string
	Name     string
	Sink     Sink
	Action   holdem.Action
	Response chan error
}

// HandEndInfo is emitted after a hand pays out.
type HandEndInfo struct {
	HandID  string
	Outcome holdem.HandOutcome
}

// HandEndHook is a post-payout callback. Hooks run on their own goroutine.
type HandEndHook func(info HandEndInfo)

var ErrCoordinatorClosed = errors.New("coordinator closed")

type Option func(*Coordinator)

// WithLedger records every finished hand into svc.
func WithLedger(svc ledger.Service) Option {
	return func(c *Coordinator) {
		if svc == nil {
			return
		}
		c.hooks = append(c.hooks, func(info HandEndInfo) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := svc.RecordHand(ctx, ledger.FromOutcome(info.HandID, info.Outcome)); err != nil {
				log.Printf("[Coordinator] Ledger record failed: hand=%s err=%v", info.HandID, err)
			}
		})
	}
}

func WithHandEndHook(h HandEndHook) Option {
	return func(c *Coordinator) {
		if h != nil {
			c.hooks = append(c.hooks, h)
		}
	}
}

// Coordinator owns the table and is the only writer to it. Every mutation is
// an Event handled one at a time by Run; views are fanned out to all members
// after each one.
type Coordinator struct {
	tbl *holdem.Table

	mu      sync.RWMutex
	members map[string]*Member // connID -> member
	closed  bool

	events   chan Event
	done     chan struct{}
	stopOnce sync.Once

	// connections whose sink failed during the current event
	pending []string

	hooks        []HandEndHook
	handID       string
	recordedHand uint64
}

func New(tbl *holdem.Table, opts ...Option) *Coordinator {
	c := &Coordinator{
		tbl:     tbl,
		members: make(map[string]*Member),
		events:  make(chan Event, 256),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run is the actor loop. It returns when ctx is done or Close is called.
func (c *Coordinator) Run(ctx context.Context) {
	log.Printf("[Coordinator] Started")
	for {
		select {
		case e := <-c.events:
			err := c.handleEvent(e)
			if e.Response != nil {
				e.Response <- err
			}
			c.drainPending()
		case <-ctx.Done():
			c.Close()
			log.Printf("[Coordinator] Stopped: %v", ctx.Err())
			return
		case <-c.done:
			log.Printf("[Coordinator] Stopped")
			return
		}
	}
}

// Close stops the actor and closes every sink.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	members := make([]*Member, 0, len(c.members))
	for _, m := range c.members {
		members = append(members, m)
	}
	c.members = make(map[string]*Member)
	c.mu.Unlock()

	c.stopOnce.Do(func() {
		close(c.done)
	})
	for _, m := range members {
		closeSink(m)
	}
}

// Join registers a named player and returns the new connection id.
func (c *Coordinator) Join(ctx context.Context, name string, sink Sink) (string, error) {
	if sink == nil {
		return "", fmt.Errorf("nil sink")
	}
	connID := uuid.NewString()
	if err := c.submit(ctx, Event{Type: EventJoin, ConnID: connID, Name: name, Sink: sink}); err != nil {
		return "", err
	}
	return connID, nil
}

// Act applies an action for connID. Actions that are out of turn or arrive
// outside a hand are dropped without error.
func (c *Coordinator) Act(ctx context.Context, connID string, a holdem.Action) error {
	return c.submit(ctx, Event{Type: EventAction, ConnID: connID, Action: a})
}

// Disconnect folds and marks connID offline. Repeated calls are no-ops.
func (c *Coordinator) Disconnect(ctx context.Context, connID string) error {
	return c.submit(ctx, Event{Type: EventDisconnect, ConnID: connID})
}

// StartNextHand drops offline seats and deals a new hand. It needs at least
// two online seats.
func (c *Coordinator) StartNextHand(ctx context.Context) error {
	return c.submit(ctx, Event{Type: EventStartHand})
}

// View returns what connID currently sees.
func (c *Coordinator) View(connID string) (holdem.View, bool) {
	c.mu.RLock()
	_, ok := c.members[connID]
	c.mu.RUnlock()
	if !ok {
		return holdem.View{}, false
	}
	return c.tbl.ViewFor(connID), true
}

func (c *Coordinator) Snapshot() holdem.Snapshot {
	return c.tbl.Snapshot()
}

// Members lists registered connections, oldest first.
func (c *Coordinator) Members() []Member {
	c.mu.RLock()
	out := make([]Member, 0, len(c.members))
	for _, m := range c.members {
		out = append(out, Member{ConnID: m.ConnID, Name: m.Name, JoinedAt: m.JoinedAt})
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out
}

func (c *Coordinator) submit(ctx context.Context, e Event) error {
	if e.Response == nil {
		e.Response = make(chan error, 1)
	}

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrCoordinatorClosed
	}

	select {
	case c.events <- e:
	case <-c.done:
		return ErrCoordinatorClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-e.Response:
		return err
	case <-c.done:
		return ErrCoordinatorClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) handleEvent(e Event) error {
	switch e.Type {
	case EventJoin:
		return c.handleJoin(e.ConnID, e.Name, e.Sink)
	case EventAction:
		return c.handleAction(e.ConnID, e.Action)
	case EventDisconnect:
		return c.handleDisconnect(e.ConnID)
	case EventStartHand:
		return c.handleStartHand()
	default:
		return fmt.Errorf("unknown event type: %s", e.Type)
	}
}

func (c *Coordinator) handleJoin(connID, name string, sink Sink) error {
	seat, err := c.tbl.AddSeat(connID, name)
	if err != nil {
		log.Printf("[Coordinator] Join rejected for %q: %v", name, err)
		return err
	}
	c.mu.Lock()
	c.members[connID] = &Member{ConnID: connID, Name: name, JoinedAt: time.Now(), sink: sink}
	c.mu.Unlock()

	log.Printf("[Coordinator] %s joined as %q at seat %d", connID, name, seat)
	c.broadcast()
	return nil
}

func (c *Coordinator) handleAction(connID string, a holdem.Action) error {
	c.mu.RLock()
	m := c.members[connID]
	c.mu.RUnlock()
	if m == nil {
		return nil
	}

	err := c.tbl.Act(connID, a)
	switch {
	case errors.Is(err, holdem.ErrOutOfTurn), errors.Is(err, holdem.ErrNoHand):
		log.Printf("[Coordinator] Ignored stale %s from %q: %v", a.Kind, m.Name, err)
		return nil
	case err != nil:
		return err
	}

	log.Printf("[Coordinator] %q action: %s amount: %d", m.Name, a.Kind, a.Amount)
	c.broadcast()
	c.checkHandEnd()
	return nil
}

// handleDisconnect runs at most once per connection: the member entry is
// removed first, so any later event for connID finds nothing to do.
func (c *Coordinator) handleDisconnect(connID string) error {
	c.mu.Lock()
	m := c.members[connID]
	delete(c.members, connID)
	c.mu.Unlock()
	if m == nil {
		return nil
	}
	closeSink(m)

	if err := c.tbl.Disconnect(connID); err != nil && !errors.Is(err, holdem.ErrUnknownSeat) {
		log.Printf("[Coordinator] Disconnect %q: %v", m.Name, err)
	}
	if removed := c.tbl.CleanupDisconnected(); len(removed) > 0 {
		log.Printf("[Coordinator] Removed %d offline seat(s)", len(removed))
	}
	log.Printf("[Coordinator] %q disconnected", m.Name)

	c.broadcast()
	c.checkHandEnd()
	return nil
}

func (c *Coordinator) handleStartHand() error {
	if c.tbl.OnlineCount() < 2 {
		return holdem.ErrNotEnoughPlayers
	}
	if c.tbl.InProgress() {
		return holdem.ErrHandInProgress
	}
	c.tbl.CleanupDisconnected()
	if err := c.tbl.StartNewHand(); err != nil {
		log.Printf("[Coordinator] Start hand failed: %v", err)
		c.broadcast()
		return err
	}
	c.handID = uuid.NewString()
	snap := c.tbl.Snapshot()
	log.Printf("[Coordinator] Hand #%d started (%s) dealer=%d sb=%d bb=%d",
		snap.HandNumber, c.handID, snap.DealerIndex, snap.SmallBlindIndex, snap.BigBlindIndex)

	c.broadcast()
	c.checkHandEnd()
	return nil
}

// broadcast sends every member its own view. A failing sink does not stop
// delivery to the others; its disconnect is queued behind the current event.
func (c *Coordinator) broadcast() {
	c.mu.RLock()
	members := make([]*Member, 0, len(c.members))
	for _, m := range c.members {
		members = append(members, m)
	}
	c.mu.RUnlock()

	snap := c.tbl.Snapshot()
	for _, m := range members {
		if err := deliver(m.sink, snap.ViewFor(m.ConnID)); err != nil {
			log.Printf("[Coordinator] Send to %q failed: %v", m.Name, err)
			c.pending = append(c.pending, m.ConnID)
		}
	}
}

func deliver(sink Sink, v holdem.View) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return sink.Send(v)
}

func closeSink(m *Member) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Coordinator] Sink close panic for %q: %v", m.Name, r)
		}
	}()
	m.sink.Close()
}

func (c *Coordinator) drainPending() {
	for len(c.pending) > 0 {
		connID := c.pending[0]
		c.pending = c.pending[1:]
		if err := c.handleDisconnect(connID); err != nil {
			log.Printf("[Coordinator] Queued disconnect %s: %v", connID, err)
		}
	}
	c.pending = nil
}

func (c *Coordinator) checkHandEnd() {
	out := c.tbl.LastOutcome()
	if out == nil || out.HandNumber == c.recordedHand {
		return
	}
	c.recordedHand = out.HandNumber
	log.Printf("[Coordinator] Hand #%d ended. Pot %d, winners: %v", out.HandNumber, out.Pot, payoutNames(out.Payouts))
	c.dispatchHandEndHooks(*out)
}

func (c *Coordinator) dispatchHandEndHooks(out holdem.HandOutcome) {
	if len(c.hooks) == 0 {
		return
	}
	info := HandEndInfo{HandID: c.handID, Outcome: out}
	for _, hook := range c.hooks {
		go func(cb HandEndHook) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[Coordinator] hand end hook panic: %v", r)
				}
			}()
			cb(info)
		}(hook)
	}
}

func payoutNames(payouts []holdem.Payout) []string {
	names := make([]string, 0, len(payouts))
	for _, p := range payouts {
		names = append(names, fmt.Sprintf("%s+%d", p.Name, p.Amount))
	}
	return names
}
