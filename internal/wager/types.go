package wager

import (
	"context"
	"fmt"
	"time"

	"gambweb/internal/feedback"
)

// Stats are the per-player accumulating counters. They only move inside
// Settle, Begin (TotalWagered) and Restart.
type Stats struct {
	Wins         int64 `json:"wins"`
	Losses       int64 `json:"losses"`
	TotalWagered int64 `json:"total_wagered"`
	NetGainLoss  int64 `json:"net_gain_loss"`
}

// State is the durable part of a session.
type State struct {
	Balance int64 `json:"balance"`
	Stats   Stats `json:"stats"`
}

// Reason is a structured explanation of an outcome.
type Reason string

const (
	ReasonMatch     Reason = "match"
	ReasonMiss      Reason = "miss"
	ReasonPush      Reason = "push"
	ReasonHouse     Reason = "house"
	ReasonBust      Reason = "bust"
	ReasonFold      Reason = "fold"
	ReasonJackpot   Reason = "jackpot"
	ReasonCompleted Reason = "completed"
)

// Detail carries game-specific facts about an outcome. Each kernel owns
// its concrete detail type; formatting happens in the display layer.
type Detail interface {
	DetailKind() string
}

// Outcome is reported by a kernel when a round resolves. Payout is the
// stake-inclusive amount returned to the player on a win; the stake itself
// was never debited, so the balance moves by Payout-Stake. A push is a win
// whose payout equals the stake.
type Outcome struct {
	Game   string `json:"game"`
	Won    bool   `json:"won"`
	Push   bool   `json:"push,omitempty"`
	Payout int64  `json:"payout"`
	Reason Reason `json:"reason"`
	Detail Detail `json:"detail,omitempty"`
}

// Credit is the signed balance change this outcome applies for stake.
func (o Outcome) Credit(stake int64) int64 {
	if o.Won {
		return o.Payout - stake
	}
	return -stake
}

func (o Outcome) validate(stake int64) error {
	switch {
	case o.Game == "":
		return fmt.Errorf("%w: missing game", ErrInvalidOutcome)
	case o.Payout < 0:
		return fmt.Errorf("%w: negative payout %d", ErrInvalidOutcome, o.Payout)
	case o.Push && !o.Won:
		return fmt.Errorf("%w: push must settle as a win", ErrInvalidOutcome)
	case o.Push && o.Payout != stake:
		return fmt.Errorf("%w: push must return the stake %d, got %d", ErrInvalidOutcome, stake, o.Payout)
	}
	return nil
}

// Round identifies one admitted wager from Begin to Release.
type Round struct {
	ID        string    `json:"id"`
	Game      string    `json:"game,omitempty"`
	Stake     int64     `json:"stake"`
	StartedAt time.Time `json:"started_at"`
}

// Snapshot is the read model the display surface renders.
type Snapshot struct {
	PlayerID   string   `json:"player_id"`
	Balance    int64    `json:"balance"`
	Bet        string   `json:"bet"`
	PendingBet *int64   `json:"pending_bet,omitempty"`
	InProgress bool     `json:"in_progress"`
	RoundID    string   `json:"round_id,omitempty"`
	GameOver   bool     `json:"game_over"`
	Message    string   `json:"message"`
	Outcome    *Outcome `json:"outcome,omitempty"`
	Stats      Stats    `json:"stats"`

	// PaymentPending is set while a purchase holds the session.
	PaymentPending bool `json:"payment_pending"`
}

// Settlement is the ledger entry written for every settled round.
type Settlement struct {
	RoundID      string
	PlayerID     string
	Game         string
	Stake        int64
	Payout       int64
	Credit       int64
	BalanceAfter int64
	Won          bool
	Push         bool
	Reason       Reason
	SettledAt    time.Time
}

// Saver persists session state after every mutation.
type Saver interface {
	Save(ctx context.Context, playerID string, state State) error
}

// Store is the session store the Manager loads from.
type Store interface {
	Saver
	Load(ctx context.Context, playerID string) (State, error)
	Clear(ctx context.Context, playerID string) error
}

// Notifier receives cosmetic feedback signals.
type Notifier interface {
	Dispatch(playerID string, signal feedback.Signal, flavor feedback.Flavor)
}

// Formatter renders the display message for a settled outcome.
type Formatter interface {
	Outcome(o Outcome, stake int64) string
}

// Recorder appends settled rounds to a history ledger.
type Recorder interface {
	RecordRound(ctx context.Context, s Settlement) error
}

// Observer is told about every visible state change.
type Observer interface {
	SessionChanged(Snapshot)
}
