package game

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"time"

	"gambweb/internal/feedback"
	"gambweb/internal/wager"
)

const (
	heartsCount = 6
	heartsPicks = 3
	heartsOdds  = 0.6
)

// HeartsDetail records the picked hearts. The pick has no bearing on the
// result.
type HeartsDetail struct {
	Picks []int   `json:"picks"`
	Roll  float64 `json:"roll"`
}

func (HeartsDetail) DetailKind() string { return string(GameTypeHearts) }

// HeartsEngine asks for three of six hearts and wins on a fixed 60% roll.
type HeartsEngine struct{}

func NewHeartsEngine() *HeartsEngine { return &HeartsEngine{} }

func (h *HeartsEngine) Type() GameType { return GameTypeHearts }

func (h *HeartsEngine) Profile() Profile {
	return Profile{
		Title:        "Romantic Hearts",
		Choices:      []string{"three distinct hearts from 1-6, e.g. 1,4,6"},
		StartMessage: "Finding love...",
		Flavor:       feedback.FlavorRomantic,
		Suspense:     2 * time.Second,
	}
}

func (h *HeartsEngine) Configure(choice string) (Ticket, error) {
	picks, err := parseHearts(choice)
	if err != nil {
		return nil, err
	}
	return &heartsTicket{picks: picks}, nil
}

func (h *HeartsEngine) Tease() any {
	return rand.IntN(heartsCount) + 1
}

func parseHearts(choice string) ([]int, error) {
	fields := strings.Split(choice, ",")
	if len(fields) != heartsPicks {
		return nil, fmt.Errorf("%w: select exactly %d hearts", ErrInvalidChoice, heartsPicks)
	}
	picks := make([]int, 0, heartsPicks)
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || n < 1 || n > heartsCount {
			return nil, fmt.Errorf("%w: hearts are numbered 1 to %d", ErrInvalidChoice, heartsCount)
		}
		if slices.Contains(picks, n) {
			return nil, fmt.Errorf("%w: heart %d picked twice", ErrInvalidChoice, n)
		}
		picks = append(picks, n)
	}
	slices.Sort(picks)
	return picks, nil
}

type heartsTicket struct {
	picks []int
	stake int64
	roll  float64
}

func (t *heartsTicket) Start(stake int64, src Source) {
	t.stake = stake
	t.roll = src.Float64()
}

func (t *heartsTicket) Ready() bool { return true }

func (t *heartsTicket) Resolve() wager.Outcome {
	o := wager.Outcome{
		Game:   string(GameTypeHearts),
		Reason: wager.ReasonMiss,
		Detail: HeartsDetail{Picks: t.picks, Roll: t.roll},
	}
	if t.roll < heartsOdds {
		o.Won = true
		o.Payout = payout(t.stake, two)
		o.Reason = wager.ReasonMatch
	}
	return o
}

func (t *heartsTicket) View() any {
	return map[string]any{"picks": t.picks}
}
