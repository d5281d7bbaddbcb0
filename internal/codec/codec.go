// Package codec encodes the table protocol in two interchangeable framings:
// JSON for websocket text frames and the protobuf wire format for binary
// frames. The binary layout is:
//
//	message ClientFrame {
//	  oneof payload {
//	    JoinRequest   join   = 1;
//	    ActionRequest action = 2;
//	  }
//	}
//	message JoinRequest   { string name = 1; }
//	message ActionRequest { uint32 kind = 1; sint64 amount = 2; }
//
//	message ServerFrame {
//	  oneof payload {
//	    TableState state = 1;
//	    string     error = 2;
//	  }
//	}
//	message TableState {
//	  uint64 hand_number = 1;  bytes community_cards = 2;
//	  sint64 pot = 3;          sint64 current_max_bet = 4;
//	  sint32 actor = 5;        sint32 dealer = 6;
//	  sint32 small_blind = 7;  sint32 big_blind = 8;
//	  bool in_progress = 9;    bool showdown = 10;
//	  repeated string winners = 11;
//	  sint32 seat_index = 12;
//	  repeated PlayerState players = 13;
//	}
//	message PlayerState {
//	  string name = 1; sint64 stack = 2; sint64 current_bet = 3;
//	  bool folded = 4; bool all_in = 5; bool sitting_out = 6;
//	  bool online = 7; bool has_cards = 8; bytes hole_cards = 9;
//	  HandResult hand_result = 10;
//	}
//	message HandResult { uint32 category = 1; sint64 score = 2; string label = 3; bytes best_five = 4; }
//
// Cards travel as one byte each, high nibble suit and low nibble rank.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	"holdem-table/card"
	"holdem-table/holdem"
)

type MessageType int

const (
	MessageUnknown MessageType = iota
	MessageJoin
	MessageAction
)

// Inbound is one decoded client message.
type Inbound struct {
	Type   MessageType
	Name   string
	Action holdem.Action
}

var ErrMalformed = errors.New("malformed message")

type clientJSON struct {
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
	Action string `json:"action,omitempty"`
	Amount int64  `json:"amount,omitempty"`
}

type serverJSON struct {
	Type  string       `json:"type"`
	State *holdem.View `json:"state,omitempty"`
	Error string       `json:"error,omitempty"`
}

// DecodeText parses {"type":"join","name":...} or
// {"type":"action","action":"RAISE","amount":40}.
func DecodeText(data []byte) (Inbound, error) {
	var msg clientJSON
	if err := json.Unmarshal(data, &msg); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch strings.ToLower(strings.TrimSpace(msg.Type)) {
	case "join":
		return Inbound{Type: MessageJoin, Name: msg.Name}, nil
	case "action":
		kind, ok := holdem.ParseActionKind(msg.Action)
		if !ok {
			return Inbound{}, fmt.Errorf("%w: unknown action %q", ErrMalformed, msg.Action)
		}
		return Inbound{Type: MessageAction, Action: holdem.Action{Kind: kind, Amount: msg.Amount}}, nil
	}
	return Inbound{}, fmt.Errorf("%w: unknown type %q", ErrMalformed, msg.Type)
}

func EncodeJoinText(name string) ([]byte, error) {
	return json.Marshal(clientJSON{Type: "join", Name: name})
}

func EncodeActionText(a holdem.Action) ([]byte, error) {
	return json.Marshal(clientJSON{Type: "action", Action: a.Kind.String(), Amount: a.Amount})
}

func EncodeStateText(v holdem.View) ([]byte, error) {
	return json.Marshal(serverJSON{Type: "state", State: &v})
}

func EncodeErrorText(msg string) []byte {
	b, _ := json.Marshal(serverJSON{Type: "error", Error: msg})
	return b
}

// DecodeServerText is the client side of EncodeStateText / EncodeErrorText.
func DecodeServerText(data []byte) (*holdem.View, string, error) {
	var msg serverJSON
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch msg.Type {
	case "state":
		if msg.State == nil {
			return nil, "", fmt.Errorf("%w: state frame without state", ErrMalformed)
		}
		return msg.State, "", nil
	case "error":
		return nil, msg.Error, nil
	}
	return nil, "", fmt.Errorf("%w: unknown type %q", ErrMalformed, msg.Type)
}

// --- binary framing ---

const (
	fieldClientJoin   protowire.Number = 1
	fieldClientAction protowire.Number = 2

	fieldServerState protowire.Number = 1
	fieldServerError protowire.Number = 2
)

func EncodeJoinBinary(name string) []byte {
	var inner []byte
	inner = protowire.AppendTag(inner, 1, protowire.BytesType)
	inner = protowire.AppendString(inner, name)
	return appendMessage(nil, fieldClientJoin, inner)
}

func EncodeActionBinary(a holdem.Action) []byte {
	var inner []byte
	inner = appendUint(inner, 1, uint64(a.Kind))
	inner = appendSint(inner, 2, a.Amount)
	return appendMessage(nil, fieldClientAction, inner)
}

func DecodeBinary(data []byte) (Inbound, error) {
	var in Inbound
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType || (num != fieldClientJoin && num != fieldClientAction) {
			return skip(num, typ, b)
		}
		inner, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		if num == fieldClientJoin {
			in.Type = MessageJoin
			return n, walk(inner, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				if num == 1 && typ == protowire.BytesType {
					s, n := protowire.ConsumeString(b)
					in.Name = s
					return n, nil
				}
				return skip(num, typ, b)
			})
		}
		in.Type = MessageAction
		return n, walk(inner, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			if typ != protowire.VarintType {
				return skip(num, typ, b)
			}
			v, n := protowire.ConsumeVarint(b)
			switch num {
			case 1:
				in.Action.Kind = holdem.ActionKind(v)
			case 2:
				in.Action.Amount = protowire.DecodeZigZag(v)
			}
			return n, nil
		})
	})
	if err != nil {
		return Inbound{}, err
	}
	if in.Type == MessageUnknown {
		return Inbound{}, fmt.Errorf("%w: empty client frame", ErrMalformed)
	}
	if in.Type == MessageAction {
		switch in.Action.Kind {
		case holdem.ActionFold, holdem.ActionCall, holdem.ActionRaise, holdem.ActionCheck:
		default:
			return Inbound{}, fmt.Errorf("%w: unknown action %d", ErrMalformed, in.Action.Kind)
		}
	}
	return in, nil
}

func EncodeStateBinary(v holdem.View) []byte {
	var b []byte
	b = appendUint(b, 1, v.HandNumber)
	b = appendCards(b, 2, v.CommunityCards)
	b = appendSint(b, 3, v.Pot)
	b = appendSint(b, 4, v.CurrentMaxBet)
	b = appendSint(b, 5, int64(v.CurrentActorIndex))
	b = appendSint(b, 6, int64(v.DealerIndex))
	b = appendSint(b, 7, int64(v.SmallBlindIndex))
	b = appendSint(b, 8, int64(v.BigBlindIndex))
	b = appendBool(b, 9, v.HandInProgress)
	b = appendBool(b, 10, v.IsShowdown)
	for _, w := range v.Winners {
		b = protowire.AppendTag(b, 11, protowire.BytesType)
		b = protowire.AppendString(b, w)
	}
	b = appendSint(b, 12, int64(v.SeatIndex))
	for _, p := range v.Players {
		b = appendMessage(b, 13, encodePlayer(p))
	}
	return appendMessage(nil, fieldServerState, b)
}

func encodePlayer(p holdem.PlayerView) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, p.Name)
	b = appendSint(b, 2, p.Stack)
	b = appendSint(b, 3, p.CurrentBet)
	b = appendBool(b, 4, p.Folded)
	b = appendBool(b, 5, p.AllIn)
	b = appendBool(b, 6, p.SittingOut)
	b = appendBool(b, 7, p.Online)
	b = appendBool(b, 8, p.HasCards)
	b = appendCards(b, 9, p.HoleCards)
	if r := p.HandResult; r != nil {
		var rb []byte
		rb = appendUint(rb, 1, uint64(r.Category))
		rb = appendSint(rb, 2, r.Score)
		rb = protowire.AppendTag(rb, 3, protowire.BytesType)
		rb = protowire.AppendString(rb, r.Label)
		rb = appendCards(rb, 4, r.BestFive)
		b = appendMessage(b, 10, rb)
	}
	return b
}

func EncodeErrorBinary(msg string) []byte {
	b := protowire.AppendTag(nil, fieldServerError, protowire.BytesType)
	return protowire.AppendString(b, msg)
}

// DecodeServerBinary is the client side of EncodeStateBinary / EncodeErrorBinary.
func DecodeServerBinary(data []byte) (*holdem.View, string, error) {
	var (
		view   *holdem.View
		errMsg string
	)
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType {
			return skip(num, typ, b)
		}
		switch num {
		case fieldServerState:
			inner, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			v, err := decodeState(inner)
			view = &v
			return n, err
		case fieldServerError:
			s, n := protowire.ConsumeString(b)
			errMsg = s
			return n, nil
		}
		return skip(num, typ, b)
	})
	if err != nil {
		return nil, "", err
	}
	if view == nil && errMsg == "" {
		return nil, "", fmt.Errorf("%w: empty server frame", ErrMalformed)
	}
	return view, errMsg, nil
}

func decodeState(data []byte) (holdem.View, error) {
	v := holdem.View{CommunityCards: []card.Card{}, Winners: []string{}, Players: []holdem.PlayerView{}}
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ == protowire.VarintType {
			x, n := protowire.ConsumeVarint(b)
			switch num {
			case 1:
				v.HandNumber = x
			case 3:
				v.Pot = protowire.DecodeZigZag(x)
			case 4:
				v.CurrentMaxBet = protowire.DecodeZigZag(x)
			case 5:
				v.CurrentActorIndex = int(protowire.DecodeZigZag(x))
			case 6:
				v.DealerIndex = int(protowire.DecodeZigZag(x))
			case 7:
				v.SmallBlindIndex = int(protowire.DecodeZigZag(x))
			case 8:
				v.BigBlindIndex = int(protowire.DecodeZigZag(x))
			case 9:
				v.HandInProgress = protowire.DecodeBool(x)
			case 10:
				v.IsShowdown = protowire.DecodeBool(x)
			case 12:
				v.SeatIndex = int(protowire.DecodeZigZag(x))
			}
			return n, nil
		}
		if typ != protowire.BytesType {
			return skip(num, typ, b)
		}
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		switch num {
		case 2:
			cards, err := decodeCards(raw)
			v.CommunityCards = cards
			return n, err
		case 11:
			v.Winners = append(v.Winners, string(raw))
		case 13:
			p, err := decodePlayer(raw)
			if err != nil {
				return n, err
			}
			v.Players = append(v.Players, p)
		}
		return n, nil
	})
	return v, err
}

func decodePlayer(data []byte) (holdem.PlayerView, error) {
	var p holdem.PlayerView
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ == protowire.VarintType {
			x, n := protowire.ConsumeVarint(b)
			switch num {
			case 2:
				p.Stack = protowire.DecodeZigZag(x)
			case 3:
				p.CurrentBet = protowire.DecodeZigZag(x)
			case 4:
				p.Folded = protowire.DecodeBool(x)
			case 5:
				p.AllIn = protowire.DecodeBool(x)
			case 6:
				p.SittingOut = protowire.DecodeBool(x)
			case 7:
				p.Online = protowire.DecodeBool(x)
			case 8:
				p.HasCards = protowire.DecodeBool(x)
			}
			return n, nil
		}
		if typ != protowire.BytesType {
			return skip(num, typ, b)
		}
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		switch num {
		case 1:
			p.Name = string(raw)
		case 9:
			cards, err := decodeCards(raw)
			p.HoleCards = cards
			return n, err
		case 10:
			r, err := decodeResult(raw)
			p.HandResult = &r
			return n, err
		}
		return n, nil
	})
	return p, err
}

func decodeResult(data []byte) (holdem.HandResult, error) {
	var r holdem.HandResult
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ == protowire.VarintType {
			x, n := protowire.ConsumeVarint(b)
			switch num {
			case 1:
				r.Category = holdem.HandCategory(x)
			case 2:
				r.Score = protowire.DecodeZigZag(x)
			}
			return n, nil
		}
		if typ != protowire.BytesType {
			return skip(num, typ, b)
		}
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		switch num {
		case 3:
			r.Label = string(raw)
		case 4:
			cards, err := decodeCards(raw)
			r.BestFive = cards
			return n, err
		}
		return n, nil
	})
	return r, err
}

// walk calls fn for every field in b. fn returns how many bytes of the field
// value it consumed, or a negative protowire error code.
func walk(b []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

func skip(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	return protowire.ConsumeFieldValue(num, typ, b), nil
}

func appendMessage(b []byte, num protowire.Number, inner []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendSint(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendCards(b []byte, num protowire.Number, cards []card.Card) []byte {
	if len(cards) == 0 {
		return b
	}
	raw := make([]byte, len(cards))
	for i, c := range cards {
		raw[i] = byte(c)
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, raw)
}

func decodeCards(raw []byte) ([]card.Card, error) {
	out := make([]card.Card, len(raw))
	for i, x := range raw {
		c := card.Card(x)
		if !c.Valid() {
			return nil, fmt.Errorf("%w: invalid card 0x%02x", ErrMalformed, x)
		}
		out[i] = c
	}
	return out, nil
}
