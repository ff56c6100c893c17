package game

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"gambweb/internal/feedback"
	"gambweb/internal/wager"
)

const (
	BlackjackHit   = "hit"
	BlackjackStand = "stand"

	blackjackLimit = 21
	dealerStandsOn = 17
)

// BlackjackDetail records both final hands.
type BlackjackDetail struct {
	Player      []Card `json:"player"`
	Dealer      []Card `json:"dealer"`
	PlayerValue int    `json:"player_value"`
	DealerValue int    `json:"dealer_value"`
}

func (BlackjackDetail) DetailKind() string { return string(GameTypeBlackjack) }

// BlackjackEngine deals single-deck blackjack. The dealer draws to 17,
// wins pay even money and equal totals push.
type BlackjackEngine struct{}

func NewBlackjackEngine() *BlackjackEngine { return &BlackjackEngine{} }

func (b *BlackjackEngine) Type() GameType { return GameTypeBlackjack }

func (b *BlackjackEngine) Profile() Profile {
	return Profile{
		Title:        "Blackjack",
		Actions:      []string{BlackjackHit, BlackjackStand},
		StartMessage: "Dealing cards...",
		Flavor:       feedback.FlavorBlackjack,
		Suspense:     time.Second,
		Release:      2 * time.Second,
	}
}

func (b *BlackjackEngine) Configure(string) (Ticket, error) {
	return &blackjackTicket{}, nil
}

type blackjackTicket struct {
	mu       sync.Mutex
	stake    int64
	deck     []Card
	player   []Card
	dealer   []Card
	standing bool
}

func (t *blackjackTicket) Start(stake int64, src Source) {
	t.stake = stake
	t.deck = NewDeck(src)
	t.player = []Card{deal(&t.deck), deal(&t.deck)}
	t.dealer = []Card{deal(&t.deck), deal(&t.deck)}
}

// Act takes a hit or stands. A bust stands automatically.
func (t *blackjackTicket) Act(action string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.standing {
		return fmt.Errorf("%w: hand is finished", ErrInvalidAction)
	}

	switch action {
	case BlackjackHit:
		t.player = append(t.player, deal(&t.deck))
		if BlackjackValue(t.player) > blackjackLimit {
			t.stand()
		}
	case BlackjackStand:
		t.stand()
	default:
		return fmt.Errorf("%w: hit or stand", ErrInvalidAction)
	}
	return nil
}

func (t *blackjackTicket) stand() {
	t.standing = true
	for BlackjackValue(t.dealer) < dealerStandsOn {
		t.dealer = append(t.dealer, deal(&t.deck))
	}
}

func (t *blackjackTicket) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.standing
}

func (t *blackjackTicket) Resolve() wager.Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	pv, dv := BlackjackValue(t.player), BlackjackValue(t.dealer)
	o := wager.Outcome{
		Game:   string(GameTypeBlackjack),
		Reason: wager.ReasonMiss,
		Detail: BlackjackDetail{
			Player:      slices.Clone(t.player),
			Dealer:      slices.Clone(t.dealer),
			PlayerValue: pv,
			DealerValue: dv,
		},
	}
	switch {
	case pv > blackjackLimit:
		o.Reason = wager.ReasonBust
	case dv > blackjackLimit || pv > dv:
		o.Won = true
		o.Payout = payout(t.stake, two)
		o.Reason = wager.ReasonMatch
	case pv == dv:
		o.Won = true
		o.Push = true
		o.Payout = t.stake
		o.Reason = wager.ReasonPush
	}
	return o
}

func (t *blackjackTicket) View() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return map[string]any{
		"player":       slices.Clone(t.player),
		"dealer":       slices.Clone(t.dealer),
		"player_value": BlackjackValue(t.player),
		"dealer_value": BlackjackValue(t.dealer),
		"standing":     t.standing,
	}
}
