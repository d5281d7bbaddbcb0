package holdem

import (
	"fmt"
	"sort"

	"holdem-table/card"
)

// HandResult is an immutable ranked hand. Score alone orders hands; Label is
// presentation only.
type HandResult struct {
	Category HandCategory `json:"category"`
	Score    int64        `json:"score"`
	Label    string       `json:"label"`
	BestFive []card.Card  `json:"bestFive"`
	// Ranks are the hand-defining ranks in scoring order, zero padded.
	Ranks [5]card.Rank `json:"-"`
}

// Compare returns -1, 0 or 1 as h is weaker, equal or stronger than o.
func (h HandResult) Compare(o HandResult) int {
	switch {
	case h.Score < o.Score:
		return -1
	case h.Score > o.Score:
		return 1
	}
	return 0
}

const scoreBase = 15

// score = category * 15^5 + Σ r_i * 15^(4-i)
func handScore(cat HandCategory, ranks [5]card.Rank) int64 {
	s := int64(cat)
	for _, r := range ranks {
		s = s*scoreBase + int64(r)
	}
	return s
}

// rankMask bit r is set when rank r is present.
type rankMask uint16

// straightHigh returns the top rank of the best straight in m, 5 for the
// wheel, or 0 when there is none.
func straightHigh(m rankMask) card.Rank {
	const run = rankMask(0x1F)
	for top := card.RankA; top >= 5; top-- {
		want := run << (top - 4)
		if m&want == want {
			return top
		}
	}
	wheel := rankMask(1<<card.RankA | 1<<2 | 1<<3 | 1<<4 | 1<<5)
	if m&wheel == wheel {
		return 5
	}
	return 0
}

// Evaluate ranks the best five card hand found in 5 to 7 cards. At the table
// it is always called with 2 hole cards plus a full board.
func Evaluate(cards []card.Card) (HandResult, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return HandResult{}, fmt.Errorf("evaluate: need 5..7 cards, got %d", len(cards))
	}
	sorted := make([]card.Card, len(cards))
	copy(sorted, cards)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rank() > sorted[j].Rank() })

	var rankCount [card.RankMax + 1]int
	var suitCount [4]int
	var mask rankMask
	seen := make(map[card.Card]bool, len(sorted))
	for _, c := range sorted {
		if !c.Valid() {
			return HandResult{}, fmt.Errorf("evaluate: invalid card %v", c)
		}
		if seen[c] {
			return HandResult{}, fmt.Errorf("evaluate: duplicate card %s", c)
		}
		seen[c] = true
		rankCount[c.Rank()]++
		suitCount[c.Suit()]++
		mask |= 1 << c.Rank()
	}

	// 同花 / 同花顺
	for _, s := range card.Suits {
		if suitCount[s] < 5 {
			continue
		}
		suited := make([]card.Card, 0, suitCount[s])
		var fMask rankMask
		for _, c := range sorted {
			if c.Suit() == s {
				suited = append(suited, c)
				fMask |= 1 << c.Rank()
			}
		}
		if top := straightHigh(fMask); top > 0 {
			cat := StraightFlush
			if top == card.RankA {
				cat = RoyalFlush
			}
			return build(cat, suited, [5]card.Rank{top}, straightRanks(top)), nil
		}
		var ranks [5]card.Rank
		for i := 0; i < 5; i++ {
			ranks[i] = suited[i].Rank()
		}
		return build(Flush, suited, ranks, ranks[:]), nil
	}

	var quad, trip card.Rank
	var pairs []card.Rank
	for r := card.RankA; r >= card.RankMin; r-- {
		switch n := rankCount[r]; {
		case n == 4:
			quad = r
		case n == 3 && trip == 0:
			trip = r
		case n >= 2:
			// a second set of trips only counts as a pair
			pairs = append(pairs, r)
		}
	}

	if quad > 0 {
		k := kickers(rankCount, 1, quad)
		return build(FourOfKind, sorted, [5]card.Rank{quad, k[0]}, []card.Rank{quad, quad, quad, quad, k[0]}), nil
	}
	if trip > 0 && len(pairs) > 0 {
		p := pairs[0]
		return build(FullHouse, sorted, [5]card.Rank{trip, p}, []card.Rank{trip, trip, trip, p, p}), nil
	}
	if top := straightHigh(mask); top > 0 {
		return build(Straight, sorted, [5]card.Rank{top}, straightRanks(top)), nil
	}
	if trip > 0 {
		k := kickers(rankCount, 2, trip)
		return build(ThreeOfKind, sorted, [5]card.Rank{trip, k[0], k[1]}, []card.Rank{trip, trip, trip, k[0], k[1]}), nil
	}
	if len(pairs) >= 2 {
		p1, p2 := pairs[0], pairs[1]
		k := kickers(rankCount, 1, p1, p2)
		return build(TwoPair, sorted, [5]card.Rank{p1, p2, k[0]}, []card.Rank{p1, p1, p2, p2, k[0]}), nil
	}
	if len(pairs) == 1 {
		p := pairs[0]
		k := kickers(rankCount, 3, p)
		return build(OnePair, sorted, [5]card.Rank{p, k[0], k[1], k[2]}, []card.Rank{p, p, k[0], k[1], k[2]}), nil
	}
	k := kickers(rankCount, 5)
	var ranks [5]card.Rank
	copy(ranks[:], k)
	return build(HighCard, sorted, ranks, k), nil
}

// kickers scans ranks high to low, skipping the hand-defining ranks.
func kickers(counts [card.RankMax + 1]int, need int, exclude ...card.Rank) []card.Rank {
	out := make([]card.Rank, 0, need)
	for r := card.RankA; r >= card.RankMin && len(out) < need; r-- {
		skip := false
		for _, ex := range exclude {
			if r == ex {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		for i := 0; i < counts[r] && len(out) < need; i++ {
			out = append(out, r)
		}
	}
	return out
}

func straightRanks(top card.Rank) []card.Rank {
	out := make([]card.Rank, 0, 5)
	for i := 0; i < 5; i++ {
		r := top - card.Rank(i)
		if r < card.RankMin {
			r = card.RankA
		}
		out = append(out, r)
	}
	return out
}

// build picks, in scoring order, a concrete unused card for every rank slot.
func build(cat HandCategory, pool []card.Card, scoreRanks [5]card.Rank, slots []card.Rank) HandResult {
	best := make([]card.Card, 0, 5)
	used := make(map[card.Card]bool, 5)
	for _, r := range slots {
		for _, c := range pool {
			if c.Rank() == r && !used[c] {
				used[c] = true
				best = append(best, c)
				break
			}
		}
	}
	return HandResult{
		Category: cat,
		Score:    handScore(cat, scoreRanks),
		Label:    describe(cat, scoreRanks),
		BestFive: best,
		Ranks:    scoreRanks,
	}
}

var rankNames = map[card.Rank][2]string{
	2:          {"Two", "Twos"},
	3:          {"Three", "Threes"},
	4:          {"Four", "Fours"},
	5:          {"Five", "Fives"},
	6:          {"Six", "Sixes"},
	7:          {"Seven", "Sevens"},
	8:          {"Eight", "Eights"},
	9:          {"Nine", "Nines"},
	card.RankT: {"Ten", "Tens"},
	card.RankJ: {"Jack", "Jacks"},
	card.RankQ: {"Queen", "Queens"},
	card.RankK: {"King", "Kings"},
	card.RankA: {"Ace", "Aces"},
}

func one(r card.Rank) string  { return rankNames[r][0] }
func many(r card.Rank) string { return rankNames[r][1] }

func describe(cat HandCategory, r [5]card.Rank) string {
	switch cat {
	case RoyalFlush:
		return "Royal Flush"
	case StraightFlush:
		return fmt.Sprintf("Straight Flush, %s High", one(r[0]))
	case FourOfKind:
		return fmt.Sprintf("Four of a Kind, %s", many(r[0]))
	case FullHouse:
		return fmt.Sprintf("Full House, %s over %s", many(r[0]), many(r[1]))
	case Flush:
		return fmt.Sprintf("Flush, %s High", one(r[0]))
	case Straight:
		return fmt.Sprintf("Straight, %s High", one(r[0]))
	case ThreeOfKind:
		return fmt.Sprintf("Three of a Kind, %s", many(r[0]))
	case TwoPair:
		return fmt.Sprintf("Two Pair, %s and %s", many(r[0]), many(r[1]))
	case OnePair:
		return fmt.Sprintf("Pair of %s", many(r[0]))
	}
	return fmt.Sprintf("High Card, %s", one(r[0]))
}
