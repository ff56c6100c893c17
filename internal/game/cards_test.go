package game

import (
	"testing"
)

func hand(ranks []int, suits string) []Card {
	h := make([]Card, len(ranks))
	for i, r := range ranks {
		s := string([]rune(suits)[i%len([]rune(suits))])
		h[i] = Card{Rank: r, Suit: s}
	}
	return h
}

func TestBlackjackValue(t *testing.T) {
	tests := []struct {
		name  string
		ranks []int
		want  int
	}{
		{"pair of tens", []int{10, 10}, 20},
		{"faces count ten", []int{11, 12, 13}, 30},
		{"ace high", []int{14, 9}, 20},
		{"blackjack", []int{14, 13}, 21},
		{"ace drops to one", []int{14, 9, 5}, 15},
		{"two aces", []int{14, 14}, 12},
		{"three aces and a nine", []int{14, 14, 14, 9}, 12},
		{"bust stays bust", []int{10, 9, 5}, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BlackjackValue(hand(tt.ranks, "♠")); got != tt.want {
				t.Errorf("BlackjackValue() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEvaluateHand(t *testing.T) {
	tests := []struct {
		name  string
		ranks []int
		suits string
		want  HandCategory
	}{
		{"straight flush", []int{5, 6, 7, 8, 9}, "♥", StraightFlush},
		{"four of a kind low", []int{2, 2, 2, 2, 14}, "♠♥♦♣", FourOfAKind},
		{"full house", []int{3, 3, 3, 9, 9}, "♠♥♦♣", FullHouse},
		{"flush", []int{2, 5, 9, 11, 13}, "♦", Flush},
		{"straight", []int{10, 11, 12, 13, 14}, "♠♥", Straight},
		{"three of a kind", []int{7, 7, 7, 2, 4}, "♠♥♦♣", ThreeOfAKind},
		{"two pair", []int{4, 4, 8, 8, 12}, "♠♥♦♣", TwoPair},
		{"one pair", []int{6, 6, 2, 9, 13}, "♠♥♦♣", OnePair},
		{"high card", []int{2, 5, 8, 11, 13}, "♠♥", HighCard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateHand(hand(tt.ranks, tt.suits)); got != tt.want {
				t.Errorf("EvaluateHand() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewDeck(t *testing.T) {
	deck := NewDeck(&scripted{})
	if len(deck) != 52 {
		t.Fatalf("len = %d, want 52", len(deck))
	}
	seen := make(map[Card]bool)
	for _, c := range deck {
		if seen[c] {
			t.Fatalf("duplicate %s", c)
		}
		seen[c] = true
	}
}

func TestCard_String(t *testing.T) {
	if got := (Card{Rank: 14, Suit: "♠"}).String(); got != "A♠" {
		t.Errorf("String() = %q", got)
	}
	if got := (Card{Rank: 10, Suit: "♥"}).String(); got != "10♥" {
		t.Errorf("String() = %q", got)
	}
}
