package holdem

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdem-table/card"
)

func newTestTable(t *testing.T, players int, mutate ...func(*Config)) *Table {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = 1
	for _, fn := range mutate {
		fn(&cfg)
	}
	tbl, err := NewTable(cfg)
	require.NoError(t, err)
	for i := 0; i < players; i++ {
		idx, err := tbl.AddSeat(fmt.Sprintf("id%d", i), fmt.Sprintf("p%d", i))
		require.NoError(t, err)
		require.Equal(t, i, idx)
	}
	return tbl
}

// stackDeck makes every following hand deal exactly these cards.
func stackDeck(tbl *Table, cards ...string) {
	parsed := card.MustParse(cards...)
	tbl.SetDeckSource(func(*rand.Rand) *card.Deck { return card.NewStackedDeck(parsed) })
}

func actorID(t *testing.T, tbl *Table) string {
	t.Helper()
	s := tbl.Snapshot()
	require.True(t, s.HandInProgress)
	require.NotEqual(t, NoSeat, s.ActorIndex)
	return s.Seats[s.ActorIndex].ID
}

func act(t *testing.T, tbl *Table, kind ActionKind, amount int64) {
	t.Helper()
	require.NoError(t, tbl.Act(actorID(t, tbl), Action{Kind: kind, Amount: amount}))
}

func TestNewTable_RejectsBadConfig(t *testing.T) {
	for _, cfg := range []Config{
		{MaxSeats: 1, StartingStack: 100, SmallBlind: 1, BigBlind: 2},
		{MaxSeats: 10, StartingStack: 100, SmallBlind: 1, BigBlind: 2},
		{MaxSeats: 6, StartingStack: 0, SmallBlind: 1, BigBlind: 2},
		{MaxSeats: 6, StartingStack: 100, SmallBlind: 3, BigBlind: 2},
		{MaxSeats: 6, StartingStack: 100, SmallBlind: 0, BigBlind: 0},
	} {
		_, err := NewTable(cfg)
		assert.Error(t, err, "%+v", cfg)
	}
}

func TestStartNewHand_NeedsTwoPlayers(t *testing.T) {
	tbl := newTestTable(t, 1)
	assert.ErrorIs(t, tbl.StartNewHand(), ErrNotEnoughPlayers)
	assert.False(t, tbl.InProgress())
}

func TestStartNewHand_ThreeHandedBlinds(t *testing.T) {
	tbl := newTestTable(t, 3)
	require.NoError(t, tbl.StartNewHand())

	s := tbl.Snapshot()
	assert.Equal(t, uint64(1), s.HandNumber)
	assert.Equal(t, 0, s.DealerIndex)
	assert.Equal(t, 1, s.SmallBlindIndex)
	assert.Equal(t, 2, s.BigBlindIndex)
	assert.Equal(t, 0, s.ActorIndex)
	assert.Equal(t, int64(15), s.Pot)
	assert.Equal(t, int64(10), s.CurrentMaxBet)
	assert.Equal(t, int64(995), s.Seats[1].Stack)
	assert.Equal(t, int64(990), s.Seats[2].Stack)
	for _, p := range s.Seats {
		assert.Len(t, p.HoleCards, 2)
	}
	assert.Empty(t, s.CommunityCards)
	assert.ErrorIs(t, tbl.StartNewHand(), ErrHandInProgress)
}

func TestHeadsUp_ButtonPostsSmallBlind(t *testing.T) {
	tbl := newTestTable(t, 2)
	require.NoError(t, tbl.StartNewHand())

	s := tbl.Snapshot()
	assert.Equal(t, 0, s.DealerIndex)
	assert.Equal(t, 0, s.SmallBlindIndex)
	assert.Equal(t, 1, s.BigBlindIndex)
	assert.Equal(t, 0, s.ActorIndex)

	act(t, tbl, ActionCall, 0)
	s = tbl.Snapshot()
	assert.Equal(t, int64(20), s.Pot)
	assert.Equal(t, 1, s.ActorIndex)
	assert.Empty(t, s.CommunityCards)

	act(t, tbl, ActionCheck, 0)
	s = tbl.Snapshot()
	assert.Len(t, s.CommunityCards, 3)
	assert.Equal(t, 1, s.ActorIndex, "big blind acts first after the flop")
	assert.Equal(t, int64(0), s.CurrentMaxBet)
	assert.Equal(t, int64(0), s.Seats[0].Bet)
	assert.Equal(t, int64(0), s.Seats[1].Bet)

	// the button rotates
	act(t, tbl, ActionFold, 0)
	require.False(t, tbl.InProgress())
	require.NoError(t, tbl.StartNewHand())
	s = tbl.Snapshot()
	assert.Equal(t, 1, s.DealerIndex)
	assert.Equal(t, 1, s.SmallBlindIndex)
	assert.Equal(t, 0, s.BigBlindIndex)
}

func TestAct_OutOfTurnLeavesStateUntouched(t *testing.T) {
	tbl := newTestTable(t, 3)
	assert.ErrorIs(t, tbl.Act("id0", Action{Kind: ActionCall}), ErrNoHand)

	require.NoError(t, tbl.StartNewHand())
	before := tbl.Snapshot()

	assert.ErrorIs(t, tbl.Act("id1", Action{Kind: ActionFold}), ErrOutOfTurn)
	assert.ErrorIs(t, tbl.Act("nobody", Action{Kind: ActionFold}), ErrOutOfTurn)
	assert.ErrorIs(t, tbl.Act("id0", Action{Kind: ActionNone}), ErrInvalidAction)
	assert.Equal(t, before, tbl.Snapshot())
}

func TestAct_RaiseBelowCurrentBetIsACall(t *testing.T) {
	tbl := newTestTable(t, 2)
	require.NoError(t, tbl.StartNewHand())

	act(t, tbl, ActionRaise, 3)
	s := tbl.Snapshot()
	assert.Equal(t, int64(10), s.Seats[0].Bet)
	assert.Equal(t, int64(10), s.CurrentMaxBet)
	assert.Equal(t, int64(20), s.Pot)
	assert.Equal(t, 1, s.ActorIndex)
}

func TestAct_CheckFacingABetMatchesIt(t *testing.T) {
	tbl := newTestTable(t, 2)
	require.NoError(t, tbl.StartNewHand())

	act(t, tbl, ActionCheck, 0)
	s := tbl.Snapshot()
	assert.Equal(t, int64(10), s.Seats[0].Bet)
	assert.Equal(t, int64(5), s.Seats[0].LastWager)
	assert.Equal(t, int64(20), s.Pot)
}

func TestAct_RaiseReopensAction(t *testing.T) {
	tbl := newTestTable(t, 3)
	require.NoError(t, tbl.StartNewHand())

	act(t, tbl, ActionCall, 0) // seat 0
	act(t, tbl, ActionRaise, 40)
	s := tbl.Snapshot()
	assert.Equal(t, int64(40), s.CurrentMaxBet)
	assert.Equal(t, 1, s.AggressorIndex)
	assert.Equal(t, 1, s.ActionsTaken)
	assert.Equal(t, 2, s.ActorIndex)

	act(t, tbl, ActionCall, 0)
	s = tbl.Snapshot()
	assert.Empty(t, s.CommunityCards, "seat 0 still owes the raise")
	assert.Equal(t, 0, s.ActorIndex)

	act(t, tbl, ActionCall, 0)
	s = tbl.Snapshot()
	assert.Len(t, s.CommunityCards, 3)
	assert.Equal(t, int64(120), s.Pot)
	assert.Equal(t, 1, s.ActorIndex, "first seat after the button acts on the flop")
}

func TestStreets_AdvanceOncePerRound(t *testing.T) {
	tbl := newTestTable(t, 3)
	require.NoError(t, tbl.StartNewHand())

	act(t, tbl, ActionCall, 0)
	act(t, tbl, ActionCall, 0)
	act(t, tbl, ActionCheck, 0)

	for _, board := range []int{3, 4, 5} {
		require.Len(t, tbl.Snapshot().CommunityCards, board)
		for i := 0; i < 3; i++ {
			require.Len(t, tbl.Snapshot().CommunityCards, board, "advanced before the round closed")
			act(t, tbl, ActionCheck, 0)
		}
	}
	s := tbl.Snapshot()
	assert.False(t, s.HandInProgress)
	assert.True(t, s.IsShowdown)
	assert.NotEmpty(t, s.Winners)
	assert.Equal(t, int64(3000), s.TotalChips())
}

func TestShowdown_SplitPotOddChipToFirstSeat(t *testing.T) {
	tbl := newTestTable(t, 3, func(c *Config) {
		c.SmallBlind = 1
		c.BigBlind = 2
	})
	// hole cards go out from the small blind: seat 1, 2, 0, 1, 2, 0
	stackDeck(tbl,
		"7c", "3c", "3d", "8d", "4d", "4c",
		"As", "Ks", "Qs", "Js", "Ts",
	)
	require.NoError(t, tbl.StartNewHand())

	act(t, tbl, ActionRaise, 50) // seat 0
	act(t, tbl, ActionFold, 0)   // seat 1
	act(t, tbl, ActionCall, 0)   // seat 2
	require.Equal(t, int64(101), tbl.Snapshot().Pot)

	for tbl.InProgress() {
		act(t, tbl, ActionCheck, 0)
	}

	s := tbl.Snapshot()
	assert.True(t, s.IsShowdown)
	assert.Equal(t, []string{"p0", "p2"}, s.Winners)
	assert.Equal(t, int64(1001), s.Seats[0].Stack)
	assert.Equal(t, int64(999), s.Seats[1].Stack)
	assert.Equal(t, int64(1000), s.Seats[2].Stack)
	assert.Equal(t, int64(0), s.Pot)

	out := tbl.LastOutcome()
	require.NotNil(t, out)
	assert.Equal(t, int64(101), out.Pot)
	assert.Equal(t, []Payout{
		{SeatID: "id0", Name: "p0", Amount: 51},
		{SeatID: "id2", Name: "p2", Amount: 50},
	}, out.Payouts)
	require.NotNil(t, s.Seats[0].Result)
	assert.Equal(t, RoyalFlush, s.Seats[0].Result.Category)
	assert.Nil(t, s.Seats[1].Result, "folded seats are not evaluated")
}

func TestAllInOnBlinds_RunsOutBoard(t *testing.T) {
	tbl := newTestTable(t, 2, func(c *Config) { c.StartingStack = 5 })
	require.NoError(t, tbl.StartNewHand())

	s := tbl.Snapshot()
	assert.False(t, s.HandInProgress)
	assert.Len(t, s.CommunityCards, 5)
	assert.True(t, s.IsShowdown)
	assert.Equal(t, int64(10), s.TotalChips())
}

func TestAllInCall_RunsOutBoard(t *testing.T) {
	tbl := newTestTable(t, 2, func(c *Config) { c.StartingStack = 10 })
	require.NoError(t, tbl.StartNewHand())

	s := tbl.Snapshot()
	require.True(t, s.HandInProgress)
	require.True(t, s.Seats[1].AllIn)

	act(t, tbl, ActionCall, 0)
	s = tbl.Snapshot()
	assert.False(t, s.HandInProgress)
	assert.Len(t, s.CommunityCards, 5)
	assert.Equal(t, int64(20), s.TotalChips())
}

func TestDisconnect_ActorIsFolded(t *testing.T) {
	tbl := newTestTable(t, 3)
	require.NoError(t, tbl.StartNewHand())

	require.NoError(t, tbl.Disconnect("id0"))
	s := tbl.Snapshot()
	assert.True(t, s.Seats[0].Folded)
	assert.False(t, s.Seats[0].Online)
	assert.Equal(t, 1, s.ActorIndex)
	assert.True(t, s.HandInProgress)

	assert.ErrorIs(t, tbl.Disconnect("ghost"), ErrUnknownSeat)
}

func TestDisconnect_NonActorLeavesOneContender(t *testing.T) {
	tbl := newTestTable(t, 2)
	require.NoError(t, tbl.StartNewHand())

	require.NoError(t, tbl.Disconnect("id1"))
	s := tbl.Snapshot()
	assert.False(t, s.HandInProgress)
	assert.False(t, s.IsShowdown)
	assert.Equal(t, []string{"p0"}, s.Winners)
	assert.Equal(t, int64(1010), s.Seats[0].Stack)
	assert.Equal(t, int64(990), s.Seats[1].Stack)

	// the offline seat is dropped when the next hand tries to start
	assert.ErrorIs(t, tbl.StartNewHand(), ErrNotEnoughPlayers)
	assert.Len(t, tbl.Snapshot().Seats, 1)
}

func TestDisconnect_NonActorKeepsTurn(t *testing.T) {
	tbl := newTestTable(t, 3)
	require.NoError(t, tbl.StartNewHand())
	require.Equal(t, 0, tbl.Snapshot().ActorIndex)

	require.NoError(t, tbl.Disconnect("id2"))
	s := tbl.Snapshot()
	assert.True(t, s.HandInProgress)
	assert.Equal(t, 0, s.ActorIndex)
	assert.Equal(t, int64(5), s.CurrentMaxBet, "folded blind no longer sets the price")
	assert.Equal(t, int64(15), s.Pot)
}

func TestDisconnect_NonActorCanCloseRound(t *testing.T) {
	tbl := newTestTable(t, 3)
	require.NoError(t, tbl.StartNewHand())

	act(t, tbl, ActionCall, 0) // seat 0
	act(t, tbl, ActionCall, 0) // seat 1, big blind to act
	require.Equal(t, 2, tbl.Snapshot().ActorIndex)

	// two actions already cover the two seats left
	require.NoError(t, tbl.Disconnect("id0"))
	s := tbl.Snapshot()
	assert.Len(t, s.CommunityCards, 3)
	assert.Equal(t, 1, s.ActorIndex)
	assert.Equal(t, int64(30), s.Pot)
}

func TestCleanupDisconnected_EndsHandBelowTwoOnline(t *testing.T) {
	tbl := newTestTable(t, 3)
	require.NoError(t, tbl.StartNewHand())
	require.NoError(t, tbl.Disconnect("id1"))
	require.NoError(t, tbl.Disconnect("id2"))
	require.False(t, tbl.InProgress())

	removed := tbl.CleanupDisconnected()
	assert.ElementsMatch(t, []string{"id1", "id2"}, removed)
	s := tbl.Snapshot()
	require.Len(t, s.Seats, 1)
	assert.Equal(t, int64(1015), s.Seats[0].Stack)
}

func TestCleanupDisconnected_KeepsRunningHand(t *testing.T) {
	tbl := newTestTable(t, 3)
	require.NoError(t, tbl.StartNewHand())
	require.NoError(t, tbl.Disconnect("id1"))

	assert.Empty(t, tbl.CleanupDisconnected())
	assert.Len(t, tbl.Snapshot().Seats, 3)
}

func TestAddSeat_RejoinReclaimsSeat(t *testing.T) {
	tbl := newTestTable(t, 3)
	require.NoError(t, tbl.StartNewHand())
	act(t, tbl, ActionFold, 0)
	act(t, tbl, ActionFold, 0)
	require.False(t, tbl.InProgress())

	stack := tbl.Snapshot().Seats[1].Stack
	_, err := tbl.AddSeat("dup", "P1")
	assert.ErrorIs(t, err, ErrNameTaken)

	require.NoError(t, tbl.Disconnect("id1"))
	idx, err := tbl.AddSeat("id1-again", "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	s := tbl.Snapshot()
	assert.Equal(t, "id1-again", s.Seats[1].ID)
	assert.Equal(t, stack, s.Seats[1].Stack)
	assert.True(t, s.Seats[1].Online)
}

func TestAddSeat_Limits(t *testing.T) {
	tbl := newTestTable(t, 2, func(c *Config) { c.MaxSeats = 2 })
	_, err := tbl.AddSeat("id9", "p9")
	assert.ErrorIs(t, err, ErrTableFull)
	_, err = tbl.AddSeat("id8", "  ")
	assert.Error(t, err)
	_, err = tbl.AddSeat("id0", "other")
	assert.Error(t, err)
}

func TestAddSeat_MidHandSitsOut(t *testing.T) {
	tbl := newTestTable(t, 2)
	require.NoError(t, tbl.StartNewHand())
	before := tbl.Snapshot()

	idx, err := tbl.AddSeat("id2", "p2")
	require.NoError(t, err)
	s := tbl.Snapshot()
	assert.True(t, s.Seats[idx].SittingOut)
	assert.Empty(t, s.Seats[idx].HoleCards)
	assert.Equal(t, before.ActorIndex, s.ActorIndex)

	act(t, tbl, ActionFold, 0)
	require.NoError(t, tbl.StartNewHand())
	s = tbl.Snapshot()
	assert.False(t, s.Seats[idx].SittingOut)
	assert.Len(t, s.Seats[idx].HoleCards, 2)
}

func TestAddSeat_EmptyTableResets(t *testing.T) {
	tbl := newTestTable(t, 2)
	require.NoError(t, tbl.StartNewHand())
	act(t, tbl, ActionFold, 0)
	require.NotEmpty(t, tbl.Snapshot().Winners)

	require.NoError(t, tbl.Disconnect("id0"))
	require.NoError(t, tbl.Disconnect("id1"))
	_, err := tbl.AddSeat("fresh", "p0")
	require.NoError(t, err)

	s := tbl.Snapshot()
	assert.Empty(t, s.Winners)
	assert.Equal(t, NoSeat, s.DealerIndex)
	assert.Equal(t, NoSeat, s.ActorIndex)
	assert.Equal(t, int64(0), s.Pot)
}

func TestStartNewHand_BrokeSeatSitsOut(t *testing.T) {
	tbl := newTestTable(t, 3, func(c *Config) { c.StartingStack = 10 })
	// seat 0 wins everything from seat 2 on the first hand
	stackDeck(tbl,
		"7c", "2c", "Ac", "8d", "3d", "Ad",
		"Ah", "Kd", "9s", "6h", "Js",
	)
	require.NoError(t, tbl.StartNewHand())
	act(t, tbl, ActionCall, 0) // seat 0 all in
	act(t, tbl, ActionFold, 0) // seat 1
	require.False(t, tbl.InProgress())

	s := tbl.Snapshot()
	require.Equal(t, int64(0), s.Seats[2].Stack)
	require.Equal(t, int64(25), s.Seats[0].Stack)

	tbl.SetDeckSource(nil)
	require.NoError(t, tbl.StartNewHand())
	s = tbl.Snapshot()
	assert.True(t, s.Seats[2].SittingOut)
	assert.Empty(t, s.Seats[2].HoleCards)
	assert.Equal(t, int64(30), s.TotalChips())
}

func TestViewFor_HidesOtherHoleCards(t *testing.T) {
	tbl := newTestTable(t, 3)
	require.NoError(t, tbl.StartNewHand())

	v := tbl.ViewFor("id1")
	assert.Equal(t, 1, v.SeatIndex)
	for i, p := range v.Players {
		assert.True(t, p.HasCards)
		if i == 1 {
			assert.Len(t, p.HoleCards, 2)
		} else {
			assert.Empty(t, p.HoleCards)
		}
	}

	spectator := tbl.ViewFor("nobody")
	assert.Equal(t, NoSeat, spectator.SeatIndex)
	for _, p := range spectator.Players {
		assert.Empty(t, p.HoleCards)
	}
}

func TestViewFor_ShowdownRevealsOnlyContenders(t *testing.T) {
	tbl := newTestTable(t, 3)
	require.NoError(t, tbl.StartNewHand())
	act(t, tbl, ActionFold, 0) // seat 0
	act(t, tbl, ActionCall, 0)
	act(t, tbl, ActionCheck, 0)
	for tbl.InProgress() {
		act(t, tbl, ActionCheck, 0)
	}

	v := tbl.ViewFor("id1")
	require.True(t, v.IsShowdown)
	assert.Empty(t, v.Players[0].HoleCards, "folded cards stay hidden")
	assert.Nil(t, v.Players[0].HandResult)
	assert.Len(t, v.Players[2].HoleCards, 2)
	assert.NotNil(t, v.Players[2].HandResult)
}

// Random play never creates or destroys chips and never hands the turn to a
// seat that cannot act.
func TestRandomPlay_ConservesChips(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 20; round++ {
		players := 2 + rng.Intn(MaxSeatsLimit-1)
		tbl := newTestTable(t, players, func(c *Config) {
			c.StartingStack = 200
			c.Seed = int64(round + 1)
		})
		total := int64(players) * 200

		for hand := 0; hand < 30; hand++ {
			if err := tbl.StartNewHand(); err != nil {
				require.ErrorIs(t, err, ErrNotEnoughPlayers)
				break
			}
			for steps := 0; tbl.InProgress(); steps++ {
				require.Less(t, steps, 500, "hand did not terminate")
				s := tbl.Snapshot()
				require.Equal(t, total, s.TotalChips())

				actor := s.Seats[s.ActorIndex]
				require.False(t, actor.Folded || actor.AllIn || actor.SittingOut, "turn given to %+v", actor)

				var a Action
				switch rng.Intn(4) {
				case 0:
					a.Kind = ActionFold
				case 1:
					a.Kind = ActionCall
				case 2:
					a.Kind = ActionCheck
				default:
					a.Kind = ActionRaise
					a.Amount = s.CurrentMaxBet + int64(rng.Intn(60))
				}
				require.NoError(t, tbl.Act(actor.ID, a))
			}
			s := tbl.Snapshot()
			require.Equal(t, total, s.TotalChips())
			require.Equal(t, int64(0), s.Pot)
			require.NotEmpty(t, s.Winners)
		}
	}
}
