package card

import (
	"fmt"
	"math/rand"
)

type CardList []Card

func (ds *CardList) Init(cards []Card) {
	*ds = make([]Card, len(cards))
	copy(*ds, cards)
}

// Count 获取总牌数
func (ds CardList) Count() int {
	return len(ds)
}

func (ds CardList) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(ds), func(i, j int) {
		ds[i], ds[j] = ds[j], ds[i]
	})
}

// PopFront removes the first card; ok is false when the list is empty.
func (ds *CardList) PopFront() (Card, bool) {
	if ds.Count() == 0 {
		return CardInvalid, false
	}
	c := (*ds)[0]
	*ds = (*ds)[1:]
	return c, true
}

// Deck is one hand's shuffled stock. It is dealt from the front and never
// reshuffled.
type Deck struct {
	stock CardList
}

// NewDeck returns all 52 cards in a uniformly random order.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{}
	d.stock.Init(FullDeck)
	d.stock.Shuffle(rng)
	return d
}

// NewStackedDeck deals cards in exactly the given order.
func NewStackedDeck(cards []Card) *Deck {
	d := &Deck{}
	d.stock.Init(cards)
	return d
}

func (d *Deck) Remaining() int { return d.stock.Count() }

// Deal pops the front card. Running out of cards means the seat bound was
// violated, so it panics instead of handing out an invalid card.
func (d *Deck) Deal() Card {
	c, ok := d.stock.PopFront()
	if !ok {
		panic("card: deck exhausted")
	}
	return c
}

func (d *Deck) DealN(n int) []Card {
	if n > d.stock.Count() {
		panic(fmt.Sprintf("card: deck exhausted (want %d, have %d)", n, d.stock.Count()))
	}
	out := make([]Card, n)
	for i := range out {
		out[i] = d.Deal()
	}
	return out
}
