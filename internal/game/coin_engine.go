package game

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"gambweb/internal/feedback"
	"gambweb/internal/wager"
)

var coinSides = []string{"heads", "tails"}

// CoinDetail records the side that landed.
type CoinDetail struct {
	Choice string `json:"choice"`
	Landed string `json:"landed"`
}

func (CoinDetail) DetailKind() string { return string(GameTypeCoin) }

// CoinEngine is a fair two-sided flip paying 2x.
type CoinEngine struct{}

func NewCoinEngine() *CoinEngine { return &CoinEngine{} }

func (c *CoinEngine) Type() GameType { return GameTypeCoin }

func (c *CoinEngine) Profile() Profile {
	return Profile{
		Title:        "Coin Flip",
		Choices:      coinSides,
		StartMessage: "Flipping...",
		Flavor:       feedback.FlavorFlip,
		Suspense:     2 * time.Second,
	}
}

func (c *CoinEngine) Configure(choice string) (Ticket, error) {
	if !slices.Contains(coinSides, choice) {
		return nil, fmt.Errorf("%w: pick heads or tails", ErrInvalidChoice)
	}
	return &coinTicket{choice: choice}, nil
}

func (c *CoinEngine) Tease() any {
	return coinSides[rand.IntN(len(coinSides))]
}

type coinTicket struct {
	choice string
	stake  int64
	landed string
}

func (t *coinTicket) Start(stake int64, src Source) {
	t.stake = stake
	t.landed = coinSides[src.IntN(len(coinSides))]
}

func (t *coinTicket) Ready() bool { return true }

func (t *coinTicket) Resolve() wager.Outcome {
	o := wager.Outcome{
		Game:   string(GameTypeCoin),
		Reason: wager.ReasonMiss,
		Detail: CoinDetail{Choice: t.choice, Landed: t.landed},
	}
	if t.landed == t.choice {
		o.Won = true
		o.Payout = payout(t.stake, two)
		o.Reason = wager.ReasonMatch
	}
	return o
}

func (t *coinTicket) View() any {
	return map[string]string{"choice": t.choice}
}
