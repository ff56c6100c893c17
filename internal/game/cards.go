package game

import (
	"slices"
	"strconv"
)

var (
	suits = []string{"♠", "♥", "♦", "♣"}
	faces = map[int]string{11: "J", 12: "Q", 13: "K", 14: "A"}
)

// Card is a playing card. Rank runs 2-14 with the ace high.
type Card struct {
	Rank int    `json:"rank"`
	Suit string `json:"suit"`
}

func (c Card) String() string {
	if f, ok := faces[c.Rank]; ok {
		return f + c.Suit
	}
	return strconv.Itoa(c.Rank) + c.Suit
}

// NewDeck returns a freshly shuffled 52-card deck.
func NewDeck(src Source) []Card {
	deck := make([]Card, 0, 52)
	for _, s := range suits {
		for r := 2; r <= 14; r++ {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	Shuffle(src, deck)
	return deck
}

// deal pops the top card. Callers never deal past the deck's end.
func deal(deck *[]Card) Card {
	d := *deck
	c := d[len(d)-1]
	*deck = d[:len(d)-1]
	return c
}

// BlackjackValue totals a hand. Aces count 11, dropping to 1 one at a time
// while the total is over 21.
func BlackjackValue(hand []Card) int {
	total, aces := 0, 0
	for _, c := range hand {
		switch {
		case c.Rank == 14:
			aces++
			total += 11
		case c.Rank > 10:
			total += 10
		default:
			total += c.Rank
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// HandCategory is a five-card poker category, weakest first.
type HandCategory int

const (
	HighCard HandCategory = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

var categoryNames = [...]string{
	"High Card", "One Pair", "Two Pair", "Three of a Kind", "Straight",
	"Flush", "Full House", "Four of a Kind", "Straight Flush",
}

func (h HandCategory) String() string {
	if h < 0 || int(h) >= len(categoryNames) {
		return "Unknown"
	}
	return categoryNames[h]
}

// EvaluateHand returns the category of a five-card hand. Kickers are not
// ranked; the ace plays high only.
func EvaluateHand(hand []Card) HandCategory {
	counts := make(map[int]int, len(hand))
	ranks := make([]int, 0, len(hand))
	flush := true
	for i, c := range hand {
		counts[c.Rank]++
		ranks = append(ranks, c.Rank)
		if i > 0 && c.Suit != hand[0].Suit {
			flush = false
		}
	}
	slices.Sort(ranks)

	straight := len(counts) == len(hand)
	for i := 1; straight && i < len(ranks); i++ {
		straight = ranks[i] == ranks[i-1]+1
	}

	groups := make([]int, 0, len(counts))
	for _, n := range counts {
		groups = append(groups, n)
	}
	slices.Sort(groups)
	slices.Reverse(groups)

	switch {
	case straight && flush:
		return StraightFlush
	case groups[0] == 4:
		return FourOfAKind
	case groups[0] == 3 && len(groups) > 1 && groups[1] == 2:
		return FullHouse
	case flush:
		return Flush
	case straight:
		return Straight
	case groups[0] == 3:
		return ThreeOfAKind
	case groups[0] == 2 && len(groups) > 1 && groups[1] == 2:
		return TwoPair
	case groups[0] == 2:
		return OnePair
	}
	return HighCard
}
