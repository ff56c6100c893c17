package game

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"gambweb/internal/feedback"
	"gambweb/internal/wager"
)

const (
	HighLowHigher = "higher"
	HighLowLower  = "lower"

	highLowRanks = 13
)

var highLowChoices = []string{HighLowHigher, HighLowLower}

// HighLowDetail records the showing card and the draw.
type HighLowDetail struct {
	Choice  string `json:"choice"`
	Current int    `json:"current"`
	Next    int    `json:"next"`
}

func (HighLowDetail) DetailKind() string { return string(GameTypeHighLow) }

// HighLowEngine keeps the showing card between rounds. Draws are
// independent ranks 1-13; an equal rank is a push.
type HighLowEngine struct {
	mu      sync.Mutex
	current int
}

func NewHighLowEngine() *HighLowEngine {
	return &HighLowEngine{current: rand.IntN(highLowRanks) + 1}
}

func (h *HighLowEngine) Type() GameType { return GameTypeHighLow }

func (h *HighLowEngine) Profile() Profile {
	return Profile{
		Title:        "Nebula Numbers",
		Choices:      highLowChoices,
		StartMessage: "Dealing next card...",
		Flavor:       feedback.FlavorCard,
		Suspense:     1500 * time.Millisecond,
		Release:      500 * time.Millisecond,
	}
}

// Current is the card the next round is compared against.
func (h *HighLowEngine) Current() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *HighLowEngine) State() any {
	return map[string]int{"current": h.Current()}
}

func (h *HighLowEngine) Configure(choice string) (Ticket, error) {
	if !slices.Contains(highLowChoices, choice) {
		return nil, fmt.Errorf("%w: pick higher or lower", ErrInvalidChoice)
	}
	return &highLowTicket{engine: h, choice: choice, current: h.Current()}, nil
}

func (h *HighLowEngine) Tease() any {
	return rand.IntN(highLowRanks) + 1
}

type highLowTicket struct {
	engine  *HighLowEngine
	choice  string
	stake   int64
	current int
	next    int
}

func (t *highLowTicket) Start(stake int64, src Source) {
	t.stake = stake
	t.next = src.IntN(highLowRanks) + 1
}

func (t *highLowTicket) Ready() bool { return true }

func (t *highLowTicket) Resolve() wager.Outcome {
	t.engine.mu.Lock()
	t.engine.current = t.next
	t.engine.mu.Unlock()

	o := wager.Outcome{
		Game:   string(GameTypeHighLow),
		Reason: wager.ReasonMiss,
		Detail: HighLowDetail{Choice: t.choice, Current: t.current, Next: t.next},
	}
	switch {
	case t.next == t.current:
		o.Won = true
		o.Push = true
		o.Payout = t.stake
		o.Reason = wager.ReasonPush
	case t.next > t.current && t.choice == HighLowHigher,
		t.next < t.current && t.choice == HighLowLower:
		o.Won = true
		o.Payout = payout(t.stake, two)
		o.Reason = wager.ReasonMatch
	}
	return o
}

func (t *highLowTicket) View() any {
	return map[string]any{"choice": t.choice, "current": t.current}
}
