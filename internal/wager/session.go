package wager

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gambweb/internal/feedback"
)

const (
	MessageIdle              = "Place your bet!"
	MessageInvalidBet        = "Please enter a valid bet amount."
	MessageBetExceedsBalance = "Your bet cannot exceed your balance."
	MessageRoundInProgress   = "Finish the current round first."
	MessageGameOver          = "Game Over! You've run out of credits."
	MessagePaymentPending    = "Please wait for your payment to finish."

	persistTimeout = 2 * time.Second
)

var (
	ErrSessionClosed   = errors.New("session closed")
	ErrNoActiveRound   = errors.New("no active round")
	ErrStaleRound      = errors.New("round is not the active round")
	ErrAlreadySettled  = errors.New("round already settled")
	ErrInvalidOutcome  = errors.New("invalid outcome")
	ErrRoundInProgress = errors.New("round in progress")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrStateNotFound   = errors.New("session state not found")
	ErrInvalidPlayer   = errors.New("invalid player id")
	ErrNoCreditHold    = errors.New("no credit reservation")
)

// Options wires a session to its collaborators. Every collaborator is
// optional.
type Options struct {
	StartingBalance int64
	DefaultBet      int64
	Store           Saver
	Notifier        Notifier
	Formatter       Formatter
	Recorder        Recorder
	Observer        Observer
}

type activeRound struct {
	Round
	settled   bool
	releasing bool
	timer     *time.Timer
}

// Session owns one player's balance, bet and statistics and arbitrates the
// begin/settle/release protocol. All methods are safe for concurrent use;
// at most one round is active at a time.
type Session struct {
	playerID string
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	balance  int64
	bet      string
	stats    Stats
	message  string
	outcome  *Outcome
	gameOver bool
	round    *activeRound
	holds    int
	closed   bool
}

// NewSession creates a session from previously loaded state.
func NewSession(playerID string, state State, opts Options) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		playerID: playerID,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		balance:  state.Balance,
		bet:      strconv.FormatInt(opts.DefaultBet, 10),
		stats:    state.Stats,
		message:  MessageIdle,
	}
	s.checkExhaustedLocked()
	return s
}

// PlayerID returns the owner of the session.
func (s *Session) PlayerID() string { return s.playerID }

// Done is closed when the session is torn down.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

type beginConfig struct {
	game   string
	flavor feedback.Flavor
}

// BeginOption tags a round with kernel metadata.
type BeginOption func(*beginConfig)

// ForGame records which kernel owns the round.
func ForGame(game string) BeginOption {
	return func(c *beginConfig) { c.game = game }
}

// WithFlavor selects the round-started feedback flavor.
func WithFlavor(f feedback.Flavor) BeginOption {
	return func(c *beginConfig) { c.flavor = f }
}

// Begin admits a wager. It is the only gate in front of outcome
// computation: rejected bets update the display message and leave balance
// and statistics untouched.
func (s *Session) Begin(betAmount, startMessage string, opts ...BeginOption) (Round, bool) {
	var cfg beginConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Round{}, false
	}
	if s.round != nil {
		s.rejectLocked(MessageRoundInProgress)
		return Round{}, false
	}
	if s.holds > 0 {
		s.rejectLocked(MessagePaymentPending)
		return Round{}, false
	}
	stake, ok := parseBet(betAmount)
	if !ok {
		s.rejectLocked(MessageInvalidBet)
		return Round{}, false
	}
	if stake > s.balance {
		s.rejectLocked(MessageBetExceedsBalance)
		return Round{}, false
	}

	r := Round{
		ID:        uuid.NewString(),
		Game:      cfg.game,
		Stake:     stake,
		StartedAt: time.Now(),
	}
	s.round = &activeRound{Round: r}
	s.outcome = nil
	s.message = startMessage
	s.stats.TotalWagered += stake
	s.persistLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.dispatch(feedback.SignalRoundStarted, cfg.flavor)
	s.publish(snap)
	return r, true
}

// rejectLocked reports a validation failure and unlocks.
func (s *Session) rejectLocked(message string) {
	s.message = message
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// Settle applies the outcome of round r. It must be called once, after
// Begin and before Release.
func (s *Session) Settle(r Round, o Outcome) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	ar := s.round
	switch {
	case ar == nil:
		s.mu.Unlock()
		return ErrNoActiveRound
	case ar.ID != r.ID:
		s.mu.Unlock()
		return ErrStaleRound
	case ar.settled:
		s.mu.Unlock()
		return ErrAlreadySettled
	}
	if err := o.validate(ar.Stake); err != nil {
		s.mu.Unlock()
		return err
	}

	credit := o.Credit(ar.Stake)
	signal := feedback.SignalLoss
	if o.Won {
		s.applyCreditLocked(credit)
		s.stats.Wins++
		signal = feedback.SignalWin
	} else {
		s.balance -= ar.Stake
		s.stats.Losses++
	}
	s.stats.NetGainLoss += credit

	ar.settled = true
	settled := o
	s.outcome = &settled
	s.message = s.format(o, ar.Stake)
	s.persistLocked()

	entry := Settlement{
		RoundID:      ar.ID,
		PlayerID:     s.playerID,
		Game:         o.Game,
		Stake:        ar.Stake,
		Payout:       o.Payout,
		Credit:       credit,
		BalanceAfter: s.balance,
		Won:          o.Won,
		Push:         o.Push,
		Reason:       o.Reason,
		SettledAt:    time.Now(),
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.record(entry)
	s.dispatch(signal, feedback.FlavorNone)
	s.publish(snap)
	return nil
}

// Release re-opens admission after the given delay. Only the first call
// for the active round has an effect; stale handles are ignored.
func (s *Session) Release(r Round, after time.Duration) {
	s.mu.Lock()
	ar := s.round
	if s.closed || ar == nil || ar.ID != r.ID || ar.releasing {
		s.mu.Unlock()
		return
	}
	ar.releasing = true
	if after > 0 {
		ar.timer = time.AfterFunc(after, func() { s.finish(ar) })
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.finish(ar)
}

func (s *Session) finish(ar *activeRound) {
	s.mu.Lock()
	if s.closed || s.round != ar {
		s.mu.Unlock()
		return
	}
	if !ar.settled {
		log.Printf("[WAGER] Round %s for %s released without settlement", ar.ID, s.playerID)
	}
	s.round = nil
	s.checkExhaustedLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// Restart resets the session to a fresh bankroll. Any active round is
// abandoned.
func (s *Session) Restart() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()
	s.round = nil
	s.balance = s.opts.StartingBalance
	s.stats = Stats{}
	s.bet = strconv.FormatInt(s.opts.DefaultBet, 10)
	s.outcome = nil
	s.message = MessageIdle
	s.gameOver = false
	s.persistLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.dispatch(feedback.SignalClick, feedback.FlavorNone)
	s.publish(snap)
}

// SetBet stores the raw bet input. It is validated when a round begins.
func (s *Session) SetBet(raw string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.round != nil {
		s.mu.Unlock()
		return ErrRoundInProgress
	}
	s.bet = strings.TrimSpace(raw)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
	return nil
}

// SetBetFraction sets the bet to floor(balance*fraction), fraction in (0, 1].
func (s *Session) SetBetFraction(fraction decimal.Decimal) error {
	if !fraction.IsPositive() || fraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: fraction %s", ErrInvalidAmount, fraction)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.round != nil {
		s.mu.Unlock()
		return ErrRoundInProgress
	}
	s.bet = decimal.NewFromInt(s.balance).Mul(fraction).Floor().String()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
	return nil
}

// Bet returns the current raw bet input.
func (s *Session) Bet() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bet
}

// Credit adds purchased credits through the same path a win uses. It is
// refused while a round is active so the balance only moves on settle.
func (s *Session) Credit(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if err := s.ReserveCredit(); err != nil {
		return err
	}
	return s.CommitCredit(amount)
}

// ReserveCredit holds admission for a pending payment: no round begins
// until the reservation is committed or cancelled.
func (s *Session) ReserveCredit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.round != nil {
		return ErrRoundInProgress
	}
	s.holds++
	return nil
}

// CancelCredit drops a reservation without crediting.
func (s *Session) CancelCredit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.holds > 0 {
		s.holds--
	}
}

// CommitCredit credits amount against a reservation and drops it.
func (s *Session) CommitCredit(amount int64) error {
	s.mu.Lock()
	if s.holds == 0 {
		s.mu.Unlock()
		return ErrNoCreditHold
	}
	if amount <= 0 {
		s.holds--
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	s.holds--
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.applyCreditLocked(amount)
	if s.gameOver && s.balance > 0 {
		s.gameOver = false
		s.message = MessageIdle
	}
	s.persistLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
	return nil
}

// Snapshot returns the current display view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// State returns the durable balance and statistics.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Balance: s.balance, Stats: s.stats}
}

// Close discards the session. Pending release timers are stopped and any
// later protocol call becomes a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopTimerLocked()
	s.mu.Unlock()
	s.cancel()
}

func (s *Session) applyCreditLocked(amount int64) {
	s.balance += amount
}

func (s *Session) stopTimerLocked() {
	if s.round != nil && s.round.timer != nil {
		s.round.timer.Stop()
	}
}

func (s *Session) checkExhaustedLocked() {
	if s.balance <= 0 && s.round == nil {
		s.gameOver = true
		s.message = MessageGameOver
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		PlayerID: s.playerID,
		Balance:  s.balance,
		Bet:      s.bet,
		GameOver: s.gameOver,
		Message:  s.message,
		Stats:    s.stats,

		PaymentPending: s.holds > 0,
	}
	if s.round != nil {
		stake := s.round.Stake
		snap.PendingBet = &stake
		snap.InProgress = true
		snap.RoundID = s.round.ID
	}
	if s.outcome != nil {
		o := *s.outcome
		snap.Outcome = &o
	}
	return snap
}

func (s *Session) persistLocked() {
	if s.opts.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, persistTimeout)
	defer cancel()
	state := State{Balance: s.balance, Stats: s.stats}
	if err := s.opts.Store.Save(ctx, s.playerID, state); err != nil {
		log.Printf("[WAGER] Failed to persist state for %s: %v", s.playerID, err)
	}
}

func (s *Session) record(entry Settlement) {
	if s.opts.Recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, persistTimeout)
	defer cancel()
	if err := s.opts.Recorder.RecordRound(ctx, entry); err != nil {
		log.Printf("[WAGER] Failed to record round %s: %v", entry.RoundID, err)
	}
}

func (s *Session) dispatch(signal feedback.Signal, flavor feedback.Flavor) {
	if s.opts.Notifier != nil {
		s.opts.Notifier.Dispatch(s.playerID, signal, flavor)
	}
}

func (s *Session) publish(snap Snapshot) {
	if s.opts.Observer != nil {
		s.opts.Observer.SessionChanged(snap)
	}
}

func (s *Session) format(o Outcome, stake int64) string {
	if s.opts.Formatter != nil {
		return s.opts.Formatter.Outcome(o, stake)
	}
	if o.Won {
		return fmt.Sprintf("You won %d credits!", o.Credit(stake))
	}
	return fmt.Sprintf("You lost %d credits.", stake)
}

// parseBet accepts a positive whole number of credits.
func parseBet(raw string) (int64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !d.IsPositive() || !d.IsInteger() {
		return 0, false
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, false
	}
	return d.IntPart(), true
}
