package game

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gambweb/internal/feedback"
	"gambweb/internal/wager"
)

const (
	slotsReels      = 3
	slotsJackpotIdx = 5
	slotsSeedPot    = 10000
)

var (
	SlotSymbols = []string{"🍒", "🍋", "🍊", "🍇", "💎", "🔔", "⭐"}

	slotsContribution = decimal.RequireFromString("0.1")
	slotsHouseEdge    = decimal.RequireFromString("0.05")
)

// SlotsDetail records the reels and, on a jackpot, the pot paid.
type SlotsDetail struct {
	Reels   [slotsReels]int `json:"reels"`
	Symbols []string        `json:"symbols"`
	Jackpot int64           `json:"jackpot,omitempty"`
}

func (SlotsDetail) DetailKind() string { return string(GameTypeSlots) }

// SlotsEngine is a three-reel machine with a progressive jackpot on three
// bells. Every spin adds 10% of the stake to the jackpot and every payout
// is reduced by 5% of the stake.
type SlotsEngine struct {
	mu      sync.Mutex
	jackpot decimal.Decimal
}

func NewSlotsEngine() *SlotsEngine {
	return &SlotsEngine{jackpot: decimal.NewFromInt(slotsSeedPot)}
}

func (s *SlotsEngine) Type() GameType { return GameTypeSlots }

func (s *SlotsEngine) Profile() Profile {
	return Profile{
		Title:        "Slots",
		StartMessage: "Spinning reels...",
		Flavor:       feedback.FlavorSlots,
		Suspense:     2 * time.Second,
		Release:      2 * time.Second,
	}
}

// Jackpot is the current progressive pot in whole credits.
func (s *SlotsEngine) Jackpot() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jackpot.Floor().IntPart()
}

func (s *SlotsEngine) State() any {
	return map[string]int64{"jackpot": s.Jackpot()}
}

func (s *SlotsEngine) Configure(string) (Ticket, error) {
	return &slotsTicket{engine: s}, nil
}

func (s *SlotsEngine) Tease() any {
	var reels [slotsReels]string
	for i := range reels {
		reels[i] = SlotSymbols[rand.IntN(len(SlotSymbols))]
	}
	return reels
}

type slotsTicket struct {
	engine *SlotsEngine
	stake  int64
	reels  [slotsReels]int
}

func (t *slotsTicket) Start(stake int64, src Source) {
	t.stake = stake
	for i := range t.reels {
		t.reels[i] = src.IntN(len(SlotSymbols))
	}

	t.engine.mu.Lock()
	t.engine.jackpot = t.engine.jackpot.Add(decimal.NewFromInt(stake).Mul(slotsContribution))
	t.engine.mu.Unlock()
}

func (t *slotsTicket) Ready() bool { return true }

func (t *slotsTicket) Resolve() wager.Outcome {
	a, b, c := t.reels[0], t.reels[1], t.reels[2]
	detail := SlotsDetail{
		Reels:   t.reels,
		Symbols: []string{SlotSymbols[a], SlotSymbols[b], SlotSymbols[c]},
	}
	o := wager.Outcome{Game: string(GameTypeSlots), Reason: wager.ReasonMiss}

	stake := decimal.NewFromInt(t.stake)
	gross := decimal.Zero
	switch {
	case a == b && b == c && a == slotsJackpotIdx:
		t.engine.mu.Lock()
		gross = t.engine.jackpot
		t.engine.jackpot = decimal.NewFromInt(slotsSeedPot)
		t.engine.mu.Unlock()
		detail.Jackpot = gross.Floor().IntPart()
		o.Won = true
		o.Reason = wager.ReasonJackpot
	case a == b && b == c:
		gross = stake.Mul(decimal.NewFromInt(int64(a+1) * 10))
		o.Won = true
		o.Reason = wager.ReasonMatch
	case a == b || b == c || a == c:
		gross = stake.Mul(two)
		o.Won = true
		o.Reason = wager.ReasonMatch
	}

	if o.Won {
		net := gross.Sub(stake.Mul(slotsHouseEdge))
		if net.IsNegative() {
			net = decimal.Zero
		}
		o.Payout = net.Floor().IntPart()
	}
	o.Detail = detail
	return o
}

func (t *slotsTicket) View() any {
	return map[string]int64{"stake": t.stake}
}
