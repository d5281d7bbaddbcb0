package card

const (
	CardInvalid Card = 0
	CardRear    Card = 0xFF
)

// FullDeck 52 张牌，按花色 × 点数的笛卡尔积排列
var FullDeck = func() []Card {
	cards := make([]Card, 0, 52)
	for _, s := range Suits {
		for r := RankMin; r <= RankMax; r++ {
			cards = append(cards, New(s, r))
		}
	}
	return cards
}()
