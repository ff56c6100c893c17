package game

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"gambweb/internal/feedback"
	"gambweb/internal/wager"
)

const (
	RouletteRed   = "red"
	RouletteBlack = "black"
	RouletteGreen = "green"
	RouletteEven  = "even"
	RouletteOdd   = "odd"
	RouletteLow   = "1-18"
	RouletteHigh  = "19-36"

	roulettePockets = 37
)

var (
	rouletteBets = []string{
		RouletteRed, RouletteBlack, RouletteGreen,
		RouletteEven, RouletteOdd, RouletteLow, RouletteHigh,
	}
	redPockets  = []int{1, 3, 5, 7, 9, 12, 14, 16, 18, 19, 21, 23, 25, 27, 30, 32, 34, 36}
	greenPayout = decimal.NewFromInt(35)
)

// RouletteDetail records the winning pocket.
type RouletteDetail struct {
	Choice string `json:"choice"`
	Pocket int    `json:"pocket"`
	Color  string `json:"color"`
}

func (RouletteDetail) DetailKind() string { return string(GameTypeRoulette) }

// PocketColor returns red, black or green for a pocket 0-36.
func PocketColor(pocket int) string {
	switch {
	case pocket == 0:
		return RouletteGreen
	case slices.Contains(redPockets, pocket):
		return RouletteRed
	default:
		return RouletteBlack
	}
}

// RouletteEngine spins a single-zero wheel. Outside bets pay 2x and zero
// pays 35x; zero loses every outside bet.
type RouletteEngine struct{}

func NewRouletteEngine() *RouletteEngine { return &RouletteEngine{} }

func (r *RouletteEngine) Type() GameType { return GameTypeRoulette }

func (r *RouletteEngine) Profile() Profile {
	return Profile{
		Title:        "Roulette",
		Choices:      rouletteBets,
		StartMessage: "Spinning the wheel...",
		Flavor:       feedback.FlavorRoulette,
		Suspense:     3 * time.Second,
		Release:      2 * time.Second,
	}
}

func (r *RouletteEngine) Configure(choice string) (Ticket, error) {
	if !slices.Contains(rouletteBets, choice) {
		return nil, fmt.Errorf("%w: unknown roulette bet %q", ErrInvalidChoice, choice)
	}
	return &rouletteTicket{choice: choice}, nil
}

func (r *RouletteEngine) Tease() any {
	return rand.IntN(roulettePockets)
}

type rouletteTicket struct {
	choice string
	stake  int64
	pocket int
}

func (t *rouletteTicket) Start(stake int64, src Source) {
	t.stake = stake
	t.pocket = src.IntN(roulettePockets)
}

func (t *rouletteTicket) Ready() bool { return true }

func (t *rouletteTicket) hit() bool {
	p := t.pocket
	if p == 0 {
		return t.choice == RouletteGreen
	}
	switch t.choice {
	case RouletteRed, RouletteBlack:
		return PocketColor(p) == t.choice
	case RouletteEven:
		return p%2 == 0
	case RouletteOdd:
		return p%2 == 1
	case RouletteLow:
		return p <= 18
	case RouletteHigh:
		return p >= 19
	}
	return false
}

func (t *rouletteTicket) Resolve() wager.Outcome {
	o := wager.Outcome{
		Game:   string(GameTypeRoulette),
		Reason: wager.ReasonMiss,
		Detail: RouletteDetail{Choice: t.choice, Pocket: t.pocket, Color: PocketColor(t.pocket)},
	}
	if t.hit() {
		o.Won = true
		o.Reason = wager.ReasonMatch
		o.Payout = payout(t.stake, two)
		if t.pocket == 0 {
			o.Payout = payout(t.stake, greenPayout)
		}
	}
	return o
}

func (t *rouletteTicket) View() any {
	return map[string]string{"choice": t.choice}
}
