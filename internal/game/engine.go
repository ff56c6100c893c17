package game

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"gambweb/internal/feedback"
	"gambweb/internal/wager"
)

type GameType string

const (
	GameTypeCoin      GameType = "coin"
	GameTypeDice      GameType = "dice"
	GameTypeHighLow   GameType = "highlow"
	GameTypeMemory    GameType = "memory"
	GameTypeHearts    GameType = "hearts"
	GameTypeBlackjack GameType = "blackjack"
	GameTypePoker     GameType = "poker"
	GameTypeRoulette  GameType = "roulette"
	GameTypeSlots     GameType = "slots"
)

var (
	ErrUnknownGame     = errors.New("unknown game")
	ErrInvalidChoice   = errors.New("invalid choice")
	ErrInvalidAction   = errors.New("invalid action")
	ErrNotInteractive  = errors.New("game takes no actions")
	ErrNoRound         = errors.New("no round at this table")
	ErrBetRejected     = errors.New("bet rejected")
	ErrRoundConcluding = errors.New("round is already resolving")
	ErrKernelFault     = errors.New("game fault")
)

// Profile is a kernel's static presentation: how a round is announced and
// how long the cosmetic delays last before scaling.
type Profile struct {
	Title        string          `json:"title"`
	Choices      []string        `json:"choices,omitempty"`
	Actions      []string        `json:"actions,omitempty"`
	StartMessage string          `json:"-"`
	Flavor       feedback.Flavor `json:"flavor"`
	Suspense     time.Duration   `json:"-"`
	Release      time.Duration   `json:"-"`
}

// Interactive reports whether rounds wait for player actions.
func (p Profile) Interactive() bool { return len(p.Actions) > 0 }

// Kernel produces tickets for one game. A kernel instance belongs to a
// single session, so state such as the high-low card or the slots
// jackpot is per player.
type Kernel interface {
	Type() GameType
	Profile() Profile
	// Configure validates the choice. It never touches the session.
	Configure(choice string) (Ticket, error)
}

// Ticket is one round's private state.
type Ticket interface {
	// Start deals the round from a fresh source.
	Start(stake int64, src Source)
	// Ready reports whether the round can be resolved.
	Ready() bool
	// Resolve computes the outcome. It is called at most once.
	Resolve() wager.Outcome
	// View is what the player may see of the round so far.
	View() any
}

// Actor is implemented by tickets that take player actions.
type Actor interface {
	Act(action string) error
}

// Stateful is implemented by kernels that carry state between rounds.
type Stateful interface {
	State() any
}

// Teaser is implemented by kernels with decorative in-flight frames.
// Frames never feed the settlement.
type Teaser interface {
	Tease() any
}

type Constructor func() Kernel

// Registry maps game types to kernel constructors.
type Registry struct {
	mu    sync.RWMutex
	ctors map[GameType]Constructor
}

func NewRegistry() *Registry {
	return &Registry{ctors: make(map[GameType]Constructor)}
}

// DefaultRegistry has every built-in kernel registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(GameTypeCoin, func() Kernel { return NewCoinEngine() })
	r.Register(GameTypeDice, func() Kernel { return NewDiceEngine() })
	r.Register(GameTypeHighLow, func() Kernel { return NewHighLowEngine() })
	r.Register(GameTypeMemory, func() Kernel { return NewMemoryEngine() })
	r.Register(GameTypeHearts, func() Kernel { return NewHeartsEngine() })
	r.Register(GameTypeBlackjack, func() Kernel { return NewBlackjackEngine() })
	r.Register(GameTypePoker, func() Kernel { return NewPokerEngine() })
	r.Register(GameTypeRoulette, func() Kernel { return NewRouletteEngine() })
	r.Register(GameTypeSlots, func() Kernel { return NewSlotsEngine() })
	return r
}

func (r *Registry) Register(gameType GameType, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[gameType] = ctor
	log.Printf("[REGISTRY] Registered %s kernel", gameType)
}

// New builds a fresh kernel of the given type.
func (r *Registry) New(gameType GameType) (Kernel, bool) {
	r.mu.RLock()
	ctor, exists := r.ctors[gameType]
	r.mu.RUnlock()
	if !exists {
		return nil, false
	}
	return ctor(), true
}

// Types lists registered game types in name order.
func (r *Registry) Types() []GameType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]GameType, 0, len(r.ctors))
	for t := range r.ctors {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
