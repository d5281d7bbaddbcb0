package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdem-table/card"
	"holdem-table/holdem"
)

func TestDecodeText(t *testing.T) {
	in, err := DecodeText([]byte(`{"type":"join","name":"alice"}`))
	require.NoError(t, err)
	assert.Equal(t, Inbound{Type: MessageJoin, Name: "alice"}, in)

	in, err = DecodeText([]byte(`{"type":"action","action":"raise","amount":40}`))
	require.NoError(t, err)
	assert.Equal(t, MessageAction, in.Type)
	assert.Equal(t, holdem.Action{Kind: holdem.ActionRaise, Amount: 40}, in.Action)

	for _, bad := range []string{
		`not json`,
		`{"type":"shout"}`,
		`{"type":"action","action":"ALLIN"}`,
	} {
		_, err := DecodeText([]byte(bad))
		assert.ErrorIs(t, err, ErrMalformed, bad)
	}
}

func TestTextClientFramesRoundTrip(t *testing.T) {
	b, err := EncodeActionText(holdem.Action{Kind: holdem.ActionCheck})
	require.NoError(t, err)
	in, err := DecodeText(b)
	require.NoError(t, err)
	assert.Equal(t, holdem.ActionCheck, in.Action.Kind)
}

func TestBinaryClientFrames(t *testing.T) {
	in, err := DecodeBinary(EncodeJoinBinary("bob"))
	require.NoError(t, err)
	assert.Equal(t, Inbound{Type: MessageJoin, Name: "bob"}, in)

	in, err = DecodeBinary(EncodeActionBinary(holdem.Action{Kind: holdem.ActionRaise, Amount: 250}))
	require.NoError(t, err)
	assert.Equal(t, Inbound{Type: MessageAction, Action: holdem.Action{Kind: holdem.ActionRaise, Amount: 250}}, in)

	_, err = DecodeBinary(EncodeActionBinary(holdem.Action{Kind: holdem.ActionKind(9)}))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeBinary([]byte{0xff, 0xff})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeBinary(nil)
	assert.ErrorIs(t, err, ErrMalformed)
}

func sampleView(t *testing.T) holdem.View {
	t.Helper()
	cfg := holdem.DefaultConfig()
	cfg.Seed = 3
	tbl, err := holdem.NewTable(cfg)
	require.NoError(t, err)
	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := tbl.AddSeat(name+"-id", name)
		require.NoError(t, err)
	}
	require.NoError(t, tbl.StartNewHand())
	return tbl.ViewFor("bob-id")
}

func TestStateBinaryRoundTrip(t *testing.T) {
	v := sampleView(t)
	got, errMsg, err := DecodeServerBinary(EncodeStateBinary(v))
	require.NoError(t, err)
	require.Empty(t, errMsg)
	require.NotNil(t, got)
	assert.Equal(t, v, *got)
	assert.Equal(t, 1, got.SeatIndex)
	assert.Len(t, got.Players[1].HoleCards, 2)
	assert.Empty(t, got.Players[0].HoleCards)
}

func TestStateBinaryCarriesHandResult(t *testing.T) {
	res, err := holdem.Evaluate(card.MustParse("As", "Ks", "Qs", "Js", "Ts"))
	require.NoError(t, err)
	v := holdem.View{
		CommunityCards:    card.MustParse("As", "Ks", "Qs", "Js", "Ts"),
		CurrentActorIndex: holdem.NoSeat,
		IsShowdown:        true,
		Winners:           []string{"alice"},
		Players: []holdem.PlayerView{{
			Name:       "alice",
			Stack:      1015,
			HasCards:   true,
			HoleCards:  card.MustParse("2c", "3d"),
			HandResult: &res,
		}},
	}
	got, _, err := DecodeServerBinary(EncodeStateBinary(v))
	require.NoError(t, err)
	require.NotNil(t, got.Players[0].HandResult)
	r := got.Players[0].HandResult
	assert.Equal(t, holdem.RoyalFlush, r.Category)
	assert.Equal(t, res.Score, r.Score)
	assert.Equal(t, "Royal Flush", r.Label)
	assert.Equal(t, res.BestFive, r.BestFive)
	assert.Equal(t, holdem.NoSeat, got.CurrentActorIndex)
	assert.Equal(t, []string{"alice"}, got.Winners)
}

func TestErrorFrames(t *testing.T) {
	view, msg, err := DecodeServerBinary(EncodeErrorBinary("table full"))
	require.NoError(t, err)
	assert.Nil(t, view)
	assert.Equal(t, "table full", msg)

	view, msg, err = DecodeServerText(EncodeErrorText("name taken"))
	require.NoError(t, err)
	assert.Nil(t, view)
	assert.Equal(t, "name taken", msg)
}

func TestStateTextShape(t *testing.T) {
	v := sampleView(t)
	b, err := EncodeStateText(v)
	require.NoError(t, err)

	var raw struct {
		Type  string         `json:"type"`
		State map[string]any `json:"state"`
	}
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "state", raw.Type)
	for _, key := range []string{
		"communityCards", "pot", "currentMaxBet", "currentActorIndex", "dealerIndex",
		"handInProgress", "isShowdown", "winners", "players",
	} {
		assert.Contains(t, raw.State, key)
	}

	got, _, err := DecodeServerText(b)
	require.NoError(t, err)
	assert.Equal(t, v, *got)
}
