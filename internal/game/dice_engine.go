package game

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"gambweb/internal/feedback"
	"gambweb/internal/wager"
)

const (
	DiceUnder = "under"
	DiceOver  = "over"
	DiceExact = "exact"

	diceLucky = 7
)

var diceBands = []string{DiceUnder, DiceOver, DiceExact}

// DiceDetail records both dice of a roll.
type DiceDetail struct {
	Choice string `json:"choice"`
	Dice   [2]int `json:"dice"`
	Sum    int    `json:"sum"`
}

func (DiceDetail) DetailKind() string { return string(GameTypeDice) }

// DiceEngine rolls two six-sided dice against a band around seven.
// Under and over pay 2x; exact pays 5x; a seven voids under and over.
type DiceEngine struct{}

func NewDiceEngine() *DiceEngine { return &DiceEngine{} }

func (d *DiceEngine) Type() GameType { return GameTypeDice }

func (d *DiceEngine) Profile() Profile {
	return Profile{
		Title:        "Dice Roll",
		Choices:      diceBands,
		StartMessage: "Rolling the dice...",
		Flavor:       feedback.FlavorDice,
		Suspense:     2 * time.Second,
		Release:      500 * time.Millisecond,
	}
}

func (d *DiceEngine) Configure(choice string) (Ticket, error) {
	if !slices.Contains(diceBands, choice) {
		return nil, fmt.Errorf("%w: pick under, over or exact", ErrInvalidChoice)
	}
	return &diceTicket{choice: choice}, nil
}

func (d *DiceEngine) Tease() any {
	return [2]int{rand.IntN(6) + 1, rand.IntN(6) + 1}
}

type diceTicket struct {
	choice string
	stake  int64
	dice   [2]int
}

func (t *diceTicket) Start(stake int64, src Source) {
	t.stake = stake
	t.dice = [2]int{src.IntN(6) + 1, src.IntN(6) + 1}
}

func (t *diceTicket) Ready() bool { return true }

func (t *diceTicket) Resolve() wager.Outcome {
	sum := t.dice[0] + t.dice[1]
	o := wager.Outcome{
		Game:   string(GameTypeDice),
		Reason: wager.ReasonMiss,
		Detail: DiceDetail{Choice: t.choice, Dice: t.dice, Sum: sum},
	}

	switch t.choice {
	case DiceUnder:
		o.Won = sum < diceLucky
	case DiceOver:
		o.Won = sum > diceLucky
	case DiceExact:
		o.Won = sum == diceLucky
	}

	switch {
	case o.Won && t.choice == DiceExact:
		o.Payout = payout(t.stake, five)
		o.Reason = wager.ReasonMatch
	case o.Won:
		o.Payout = payout(t.stake, two)
		o.Reason = wager.ReasonMatch
	case sum == diceLucky:
		o.Reason = wager.ReasonHouse
	}
	return o
}

func (t *diceTicket) View() any {
	return map[string]string{"choice": t.choice}
}
