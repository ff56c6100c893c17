package feedback

import (
	"log"
	"sync/atomic"
	"time"
)

// Signal is a settlement-level feedback event.
type Signal string

const (
	SignalRoundStarted Signal = "round_started"
	SignalWin          Signal = "win"
	SignalLoss         Signal = "loss"
	SignalClick        Signal = "click"
)

// Flavor identifies the kernel-specific variant of the round-started cue.
type Flavor string

const (
	FlavorNone      Flavor = ""
	FlavorFlip      Flavor = "flip"
	FlavorDice      Flavor = "dice"
	FlavorCard      Flavor = "card"
	FlavorRomantic  Flavor = "romantic"
	FlavorMind      Flavor = "mind"
	FlavorBlackjack Flavor = "blackjack"
	FlavorPoker     Flavor = "poker"
	FlavorRoulette  Flavor = "roulette"
	FlavorSlots     Flavor = "slots"
)

// Cue names the cosmetic signal the client plays.
type Cue string

const (
	CueFlip  Cue = "flip"
	CueWin   Cue = "win"
	CueLose  Cue = "lose"
	CueClick Cue = "click"
	CueDice  Cue = "dice"
	CueCard  Cue = "card"
)

// Table games without a dedicated sound are intentionally absent: their
// round-started dispatch is silent.
var flavorCues = map[Flavor]Cue{
	FlavorFlip:     CueFlip,
	FlavorDice:     CueDice,
	FlavorCard:     CueCard,
	FlavorRomantic: CueCard,
	FlavorMind:     CueDice,
}

// CueFor resolves the cue for a signal, or false when nothing should play.
func CueFor(signal Signal, flavor Flavor) (Cue, bool) {
	switch signal {
	case SignalWin:
		return CueWin, true
	case SignalLoss:
		return CueLose, true
	case SignalClick:
		return CueClick, true
	case SignalRoundStarted:
		cue, ok := flavorCues[flavor]
		return cue, ok
	}
	return "", false
}

// Event is what a Sink receives.
type Event struct {
	PlayerID string    `json:"player_id"`
	Signal   Signal    `json:"signal"`
	Flavor   Flavor    `json:"flavor,omitempty"`
	Cue      Cue       `json:"cue"`
	At       time.Time `json:"at"`
}

// Sink renders events, e.g. by pushing them to the player's browser.
type Sink interface {
	Deliver(Event) error
}

var muted atomic.Bool

// Muted reports the process-wide mute state.
func Muted() bool { return muted.Load() }

// SetMuted sets the process-wide mute state.
func SetMuted(m bool) { muted.Store(m) }

// ToggleMuted flips the mute state and returns the new value.
func ToggleMuted() bool {
	for {
		old := muted.Load()
		if muted.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Dispatcher maps signals to cues and hands them to a Sink. A nil sink
// or a failing sink never affects the caller.
type Dispatcher struct {
	sink Sink
	now  func() time.Time
}

func NewDispatcher(sink Sink) *Dispatcher {
	return &Dispatcher{sink: sink, now: time.Now}
}

// Dispatch is a no-op when muted, when the signal has no cue, or when no
// sink is attached.
func (d *Dispatcher) Dispatch(playerID string, signal Signal, flavor Flavor) {
	if d == nil || d.sink == nil || Muted() {
		return
	}
	cue, ok := CueFor(signal, flavor)
	if !ok {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[FEEDBACK] Sink panicked for %s/%s: %v", signal, cue, r)
		}
	}()

	err := d.sink.Deliver(Event{
		PlayerID: playerID,
		Signal:   signal,
		Flavor:   flavor,
		Cue:      cue,
		At:       d.now(),
	})
	if err != nil {
		log.Printf("[FEEDBACK] Dropped %s cue for %s: %v", cue, playerID, err)
	}
}
