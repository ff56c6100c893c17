package game

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gambweb/internal/feedback"
	"gambweb/internal/wager"
)

const (
	MemoryFlipAction = "flip"

	memoryPairs     = 6
	memoryCardCount = memoryPairs * 2
)

var memorySymbols = [memoryPairs]string{"🧠", "💭", "🔮", "🎯", "⚡", "🌟"}

// MemoryDetail records how long the board took to clear.
type MemoryDetail struct {
	Moves      int             `json:"moves"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

func (MemoryDetail) DetailKind() string { return string(GameTypeMemory) }

// MemoryEngine deals six shuffled symbol pairs. The round ends when every
// pair is matched and always credits floor(stake * multiplier) on top of
// the returned stake; fewer moves pay more.
type MemoryEngine struct{}

func NewMemoryEngine() *MemoryEngine { return &MemoryEngine{} }

func (m *MemoryEngine) Type() GameType { return GameTypeMemory }

func (m *MemoryEngine) Profile() Profile {
	return Profile{
		Title:        "Mind Game",
		Actions:      []string{MemoryFlipAction + ":<0-11>"},
		StartMessage: "Sharpening your mind...",
		Flavor:       feedback.FlavorMind,
		Release:      3 * time.Second,
	}
}

func (m *MemoryEngine) Configure(string) (Ticket, error) {
	return &memoryTicket{faceUp: -1}, nil
}

// MemoryMultiplier is the credit multiplier for a board cleared in moves.
func MemoryMultiplier(moves int) decimal.Decimal {
	switch {
	case moves <= 12:
		return two
	case moves <= 18:
		return oneHalf
	default:
		return decimal.NewFromInt(1)
	}
}

type memoryTicket struct {
	mu       sync.Mutex
	stake    int64
	cards    [memoryCardCount]string
	matched  [memoryCardCount]bool
	faceUp   int
	lastPair []int
	moves    int
}

func (t *memoryTicket) Start(stake int64, src Source) {
	t.stake = stake
	deck := make([]string, 0, memoryCardCount)
	for _, sym := range memorySymbols {
		deck = append(deck, sym, sym)
	}
	Shuffle(src, deck)
	copy(t.cards[:], deck)
}

// Act flips one card, "flip:N". Every second flip is one move.
func (t *memoryTicket) Act(action string) error {
	idx, err := parseFlip(action)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.matched[idx] || idx == t.faceUp {
		return fmt.Errorf("%w: card %d is already showing", ErrInvalidAction, idx)
	}
	if t.faceUp < 0 {
		t.faceUp = idx
		t.lastPair = nil
		return nil
	}

	first := t.faceUp
	t.faceUp = -1
	t.moves++
	t.lastPair = []int{first, idx}
	if t.cards[first] == t.cards[idx] {
		t.matched[first] = true
		t.matched[idx] = true
	}
	return nil
}

func parseFlip(action string) (int, error) {
	verb, arg, ok := strings.Cut(action, ":")
	if !ok || verb != MemoryFlipAction {
		return 0, fmt.Errorf("%w: use %s:<card>", ErrInvalidAction, MemoryFlipAction)
	}
	idx, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || idx < 0 || idx >= memoryCardCount {
		return 0, fmt.Errorf("%w: cards are numbered 0 to %d", ErrInvalidAction, memoryCardCount-1)
	}
	return idx, nil
}

func (t *memoryTicket) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range t.matched {
		if !m {
			return false
		}
	}
	return true
}

func (t *memoryTicket) Resolve() wager.Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	multiplier := MemoryMultiplier(t.moves)
	return wager.Outcome{
		Game:   string(GameTypeMemory),
		Won:    true,
		Payout: t.stake + payout(t.stake, multiplier),
		Reason: wager.ReasonCompleted,
		Detail: MemoryDetail{Moves: t.moves, Multiplier: multiplier},
	}
}

// View hides every card that is neither matched, face up nor part of the
// last flipped pair.
func (t *memoryTicket) View() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	board := make([]string, memoryCardCount)
	for i := range t.cards {
		if t.matched[i] || i == t.faceUp {
			board[i] = t.cards[i]
		}
	}
	for _, i := range t.lastPair {
		board[i] = t.cards[i]
	}
	return map[string]any{"board": board, "moves": t.moves, "matched": t.matched}
}
