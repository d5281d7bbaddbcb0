package card

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Card 牌枚举
//
// 编码规则:
// - 高4位: 花色 (0:Spade, 1:Heart, 2:Club, 3:Diamond)
// - 低4位: 点数 (2..9, 10:T, 11:J, 12:Q, 13:K, 14:A)
//
// Card is a plain value: two cards are equal iff suit and rank match.
type Card byte

// Rank 点数 2..14, A 只作为高牌 (14)
type Rank byte

const (
	RankMin Rank = 2
	RankT   Rank = 10
	RankJ   Rank = 11
	RankQ   Rank = 12
	RankK   Rank = 13
	RankA   Rank = 14
	RankMax Rank = RankA
)

func (r Rank) String() string {
	switch r {
	case RankT:
		return "T"
	case RankJ:
		return "J"
	case RankQ:
		return "Q"
	case RankK:
		return "K"
	case RankA:
		return "A"
	}
	if r >= RankMin && r < RankT {
		return fmt.Sprintf("%d", r)
	}
	return "?"
}

// New builds a card; it returns CardInvalid for out-of-range input.
func New(s Suit, r Rank) Card {
	if s > Diamond || r < RankMin || r > RankMax {
		return CardInvalid
	}
	return Card(byte(s)<<4 | byte(r))
}

func (c Card) String() string {
	if !c.Valid() {
		return "Invalid"
	}
	return c.Rank().String() + c.Suit().String()
}

// Rank 获取牌面值 2-14 (A=14)
func (c Card) Rank() Rank {
	return Rank(c & 0x0F)
}

// Suit 花色 (0:Spades, 1:Hearts, 2:Clubs, 3:Diamonds)
func (c Card) Suit() Suit {
	return Suit(c >> 4)
}

func (c Card) Valid() bool {
	r := c.Rank()
	return c.Suit() <= Diamond && r >= RankMin && r <= RankMax
}

func (c Card) IsAce() bool {
	return c.Rank() == RankA
}

// Pretty renders the card with a suit symbol for terminals.
func (c Card) Pretty() string {
	if !c.Valid() {
		return "??"
	}
	return c.Rank().String() + c.Suit().Symbol()
}

type cardJSON struct {
	Suit byte `json:"suit"`
	Rank byte `json:"rank"`
}

func (c Card) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid card 0x%02x", byte(c))
	}
	return json.Marshal(cardJSON{Suit: byte(c.Suit()), Rank: byte(c.Rank())})
}

// UnmarshalJSON accepts either {"suit":0,"rank":14} or a literal such as "As".
func (c *Card) UnmarshalJSON(b []byte) error {
	var lit string
	if err := json.Unmarshal(b, &lit); err == nil {
		parsed, err := Parse(lit)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	var raw cardJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed := New(Suit(raw.Suit), Rank(raw.Rank))
	if parsed == CardInvalid {
		return fmt.Errorf("invalid card suit=%d rank=%d", raw.Suit, raw.Rank)
	}
	*c = parsed
	return nil
}

// Parse 将字符串 (如 "As", "Td", "10h") 转换为 Card
func Parse(cardStr string) (Card, error) {
	cardStr = strings.TrimSpace(cardStr)
	if len(cardStr) < 2 {
		return CardInvalid, fmt.Errorf("invalid card string: %q", cardStr)
	}

	// 1. 解析花色 (取最后一个字符)
	var suit Suit
	switch suitChar := cardStr[len(cardStr)-1]; suitChar {
	case 's', 'S':
		suit = Spade
	case 'h', 'H':
		suit = Heart
	case 'c', 'C':
		suit = Club
	case 'd', 'D':
		suit = Diamond
	default:
		return CardInvalid, fmt.Errorf("invalid suit: %c", suitChar)
	}

	// 2. 解析点数
	var rank Rank
	switch rankStr := strings.ToUpper(cardStr[:len(cardStr)-1]); rankStr {
	case "A":
		rank = RankA
	case "K":
		rank = RankK
	case "Q":
		rank = RankQ
	case "J":
		rank = RankJ
	case "T", "10":
		rank = RankT
	case "2", "3", "4", "5", "6", "7", "8", "9":
		rank = Rank(rankStr[0] - '0')
	default:
		return CardInvalid, fmt.Errorf("invalid rank: %s", rankStr)
	}

	return New(suit, rank), nil
}

// MustParse is Parse for literals known to be valid (tests, fixtures).
func MustParse(cards ...string) []Card {
	out := make([]Card, 0, len(cards))
	for _, s := range cards {
		c, err := Parse(s)
		if err != nil {
			panic(err)
		}
		out = append(out, c)
	}
	return out
}
