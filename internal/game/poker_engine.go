package game

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gambweb/internal/feedback"
	"gambweb/internal/wager"
)

const (
	PokerFold = "fold"
	PokerCall = "call"

	pokerHandSize = 5
)

// pokerKeep is what the player keeps of a pot after the house rake.
var pokerKeep = decimal.RequireFromString("0.95")

// PokerDetail records both hands and their categories.
type PokerDetail struct {
	Player         []Card       `json:"player"`
	Dealer         []Card       `json:"dealer"`
	PlayerCategory HandCategory `json:"player_category"`
	DealerCategory HandCategory `json:"dealer_category"`
	Folded         bool         `json:"folded"`
	Tie            bool         `json:"tie"`
}

func (PokerDetail) DetailKind() string { return string(GameTypePoker) }

// PokerEngine deals five cards each against the dealer. The pot is twice
// the stake; a win takes the pot and a tie takes half, both less a 5%
// rake.
type PokerEngine struct{}

func NewPokerEngine() *PokerEngine { return &PokerEngine{} }

func (p *PokerEngine) Type() GameType { return GameTypePoker }

func (p *PokerEngine) Profile() Profile {
	return Profile{
		Title:        "Poker",
		Actions:      []string{PokerFold, PokerCall},
		StartMessage: "Dealing cards...",
		Flavor:       feedback.FlavorPoker,
		Release:      2 * time.Second,
	}
}

func (p *PokerEngine) Configure(string) (Ticket, error) {
	return &pokerTicket{}, nil
}

type pokerTicket struct {
	mu       sync.Mutex
	stake    int64
	player   []Card
	dealer   []Card
	decision string
}

func (t *pokerTicket) Start(stake int64, src Source) {
	t.stake = stake
	deck := NewDeck(src)
	for i := 0; i < pokerHandSize; i++ {
		t.player = append(t.player, deal(&deck))
	}
	for i := 0; i < pokerHandSize; i++ {
		t.dealer = append(t.dealer, deal(&deck))
	}
}

func (t *pokerTicket) Act(action string) error {
	if action != PokerFold && action != PokerCall {
		return fmt.Errorf("%w: fold or call", ErrInvalidAction)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.decision != "" {
		return fmt.Errorf("%w: hand is finished", ErrInvalidAction)
	}
	t.decision = action
	return nil
}

func (t *pokerTicket) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.decision != ""
}

func (t *pokerTicket) Resolve() wager.Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	detail := PokerDetail{
		Player:         slices.Clone(t.player),
		Dealer:         slices.Clone(t.dealer),
		PlayerCategory: EvaluateHand(t.player),
		DealerCategory: EvaluateHand(t.dealer),
	}
	o := wager.Outcome{Game: string(GameTypePoker), Reason: wager.ReasonMiss}

	pot := decimal.NewFromInt(t.stake).Mul(two)
	switch {
	case t.decision == PokerFold:
		detail.Folded = true
		o.Reason = wager.ReasonFold
	case detail.PlayerCategory > detail.DealerCategory:
		o.Won = true
		o.Payout = pot.Mul(pokerKeep).Floor().IntPart()
		o.Reason = wager.ReasonMatch
	case detail.PlayerCategory == detail.DealerCategory:
		detail.Tie = true
		o.Won = true
		o.Payout = pot.Div(two).Mul(pokerKeep).Floor().IntPart()
		o.Reason = wager.ReasonMatch
	}
	o.Detail = detail
	return o
}

// View hides the dealer's hand until the hand is decided.
func (t *pokerTicket) View() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	view := map[string]any{
		"player":          slices.Clone(t.player),
		"player_category": EvaluateHand(t.player).String(),
		"pot":             t.stake * 2,
	}
	if t.decision != "" {
		view["dealer"] = slices.Clone(t.dealer)
	}
	return view
}
