package holdem

import "strings"

const NoSeat = -1

// ActionKind 动作类型：FOLD / CALL / RAISE / CHECK
type ActionKind byte

const (
	ActionNone  ActionKind = 0
	ActionFold  ActionKind = 1
	ActionCall  ActionKind = 2
	ActionRaise ActionKind = 3
	ActionCheck ActionKind = 4
)

var actionKindNames = map[ActionKind]string{
	ActionNone:  "NONE",
	ActionFold:  "FOLD",
	ActionCall:  "CALL",
	ActionRaise: "RAISE",
	ActionCheck: "CHECK",
}

func (a ActionKind) String() string {
	if s, ok := actionKindNames[a]; ok {
		return s
	}
	return "UNKNOWN"
}

// ParseActionKind maps "fold", "CALL", ... to an ActionKind.
func ParseActionKind(s string) (ActionKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FOLD":
		return ActionFold, true
	case "CALL":
		return ActionCall, true
	case "RAISE":
		return ActionRaise, true
	case "CHECK":
		return ActionCheck, true
	}
	return ActionNone, false
}

// Action is one inbound player decision. Amount is only read for RAISE and is
// the raiser's total bet for the street, not a delta.
type Action struct {
	Kind   ActionKind
	Amount int64
}

// HandCategory 手牌类型，按强度递增
type HandCategory byte

const (
	HighCard      HandCategory = iota // 高牌
	OnePair                           // 一对
	TwoPair                           // 两对
	ThreeOfKind                       // 三条
	Straight                          // 顺子
	Flush                             // 同花
	FullHouse                         // 葫芦
	FourOfKind                        // 四条
	StraightFlush                     // 同花顺
	RoyalFlush                        // 皇家同花顺
)

var handCategoryNames = [...]string{
	HighCard:      "HIGH_CARD",
	OnePair:       "PAIR",
	TwoPair:       "TWO_PAIR",
	ThreeOfKind:   "TRIPS",
	Straight:      "STRAIGHT",
	Flush:         "FLUSH",
	FullHouse:     "FULL_HOUSE",
	FourOfKind:    "QUADS",
	StraightFlush: "STRAIGHT_FLUSH",
	RoyalFlush:    "ROYAL_FLUSH",
}

func (h HandCategory) String() string {
	if int(h) < len(handCategoryNames) {
		return handCategoryNames[h]
	}
	return "UNKNOWN"
}

func (h HandCategory) MarshalText() ([]byte, error) { return []byte(h.String()), nil }
