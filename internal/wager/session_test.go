package wager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gambweb/internal/feedback"
)

type memStore struct {
	mu     sync.Mutex
	states map[string]State
	saves  int
	err    error
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string]State)}
}

func (m *memStore) Save(_ context.Context, id string, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.err != nil {
		return m.err
	}
	m.states[id] = st
	return nil
}

func (m *memStore) Load(_ context.Context, id string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return State{}, m.err
	}
	st, ok := m.states[id]
	if !ok {
		return State{}, ErrStateNotFound
	}
	return st, nil
}

func (m *memStore) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	return nil
}

func (m *memStore) get(id string) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[id]
	return st, ok
}

type signalLog struct {
	mu      sync.Mutex
	signals []feedback.Signal
	flavors []feedback.Flavor
}

func (l *signalLog) Dispatch(_ string, signal feedback.Signal, flavor feedback.Flavor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.signals = append(l.signals, signal)
	l.flavors = append(l.flavors, flavor)
}

type ledger struct {
	mu      sync.Mutex
	entries []Settlement
}

func (l *ledger) RecordRound(_ context.Context, s Settlement) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, s)
	return nil
}

func newTestSession(t *testing.T, balance int64) (*Session, *memStore) {
	t.Helper()
	st := newMemStore()
	s := NewSession("alice", State{Balance: balance}, Options{
		StartingBalance: 1000,
		DefaultBet:      10,
		Store:           st,
	})
	t.Cleanup(s.Close)
	return s, st
}

func TestSession_CoinWin(t *testing.T) {
	s, st := newTestSession(t, 1000)

	r, ok := s.Begin("100", "Flipping...", ForGame("coin"))
	require.True(t, ok)
	assert.Equal(t, int64(100), r.Stake)
	assert.Equal(t, "coin", r.Game)

	snap := s.Snapshot()
	assert.True(t, snap.InProgress)
	require.NotNil(t, snap.PendingBet)
	assert.Equal(t, int64(100), *snap.PendingBet)
	assert.Equal(t, int64(1000), snap.Balance, "stake is not debited at begin")
	assert.Equal(t, "Flipping...", snap.Message)

	require.NoError(t, s.Settle(r, Outcome{Game: "coin", Won: true, Payout: 200, Reason: ReasonMatch}))
	s.Release(r, 0)

	state := s.State()
	assert.Equal(t, int64(1100), state.Balance)
	assert.Equal(t, Stats{Wins: 1, TotalWagered: 100, NetGainLoss: 100}, state.Stats)

	snap = s.Snapshot()
	assert.False(t, snap.InProgress)
	assert.Nil(t, snap.PendingBet)
	assert.Empty(t, snap.RoundID)

	saved, ok := st.get("alice")
	require.True(t, ok)
	assert.Equal(t, state, saved)
}

func TestSession_DiceExact(t *testing.T) {
	s, _ := newTestSession(t, 1000)

	r, ok := s.Begin("50", "Rolling...")
	require.True(t, ok)
	require.NoError(t, s.Settle(r, Outcome{Game: "dice", Won: true, Payout: 250, Reason: ReasonMatch}))
	s.Release(r, 0)

	state := s.State()
	assert.Equal(t, int64(1200), state.Balance)
	assert.Equal(t, int64(200), state.Stats.NetGainLoss)
	assert.Equal(t, int64(1), state.Stats.Wins)
}

func TestSession_Push(t *testing.T) {
	s, _ := newTestSession(t, 1000)

	r, ok := s.Begin("20", "Drawing...")
	require.True(t, ok)
	require.NoError(t, s.Settle(r, Outcome{Game: "highlow", Won: true, Push: true, Payout: 20, Reason: ReasonPush}))
	s.Release(r, 0)

	state := s.State()
	assert.Equal(t, int64(1000), state.Balance)
	assert.Equal(t, int64(1), state.Stats.Wins)
	assert.Equal(t, int64(0), state.Stats.NetGainLoss)
	assert.Equal(t, int64(20), state.Stats.TotalWagered)
}

func TestSession_LossToExhaustion(t *testing.T) {
	s, _ := newTestSession(t, 50)

	r, ok := s.Begin("50", "Spinning...")
	require.True(t, ok)
	require.NoError(t, s.Settle(r, Outcome{Game: "roulette", Reason: ReasonMiss}))

	snap := s.Snapshot()
	assert.Equal(t, int64(0), snap.Balance)
	assert.False(t, snap.GameOver, "game over waits for release")

	s.Release(r, 0)
	snap = s.Snapshot()
	assert.True(t, snap.GameOver)
	assert.Equal(t, MessageGameOver, snap.Message)
	assert.Equal(t, int64(1), snap.Stats.Losses)
	assert.Equal(t, int64(-50), snap.Stats.NetGainLoss)

	_, ok = s.Begin("1", "again")
	assert.False(t, ok)

	s.Restart()
	snap = s.Snapshot()
	assert.False(t, snap.GameOver)
	assert.Equal(t, int64(1000), snap.Balance)
	assert.Equal(t, Stats{}, snap.Stats)
	assert.Equal(t, "10", snap.Bet)
	assert.Equal(t, MessageIdle, snap.Message)
}

func TestSession_ExhaustedOnLoad(t *testing.T) {
	s, _ := newTestSession(t, 0)
	assert.True(t, s.Snapshot().GameOver)
}

func TestSession_BeginRejections(t *testing.T) {
	tests := []struct {
		name    string
		bet     string
		message string
	}{
		{"empty", "", MessageInvalidBet},
		{"text", "abc", MessageInvalidBet},
		{"zero", "0", MessageInvalidBet},
		{"negative", "-5", MessageInvalidBet},
		{"fractional", "10.5", MessageInvalidBet},
		{"overflow", "99999999999999999999999", MessageInvalidBet},
		{"above balance", "101", MessageBetExceedsBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, st := newTestSession(t, 100)
			before := s.State()

			_, ok := s.Begin(tt.bet, "go")
			assert.False(t, ok)

			snap := s.Snapshot()
			assert.Equal(t, tt.message, snap.Message)
			assert.False(t, snap.InProgress)
			assert.Equal(t, before, s.State())
			assert.Zero(t, st.saves)
		})
	}
}

func TestSession_BeginAcceptsWholeBalanceAndPadding(t *testing.T) {
	s, _ := newTestSession(t, 100)
	r, ok := s.Begin(" 100 ", "go")
	require.True(t, ok)
	assert.Equal(t, int64(100), r.Stake)
}

func TestSession_SingleActiveRound(t *testing.T) {
	s, _ := newTestSession(t, 1000)

	r, ok := s.Begin("10", "first")
	require.True(t, ok)

	_, ok = s.Begin("10", "second")
	assert.False(t, ok)
	assert.Equal(t, MessageRoundInProgress, s.Snapshot().Message)
	assert.Equal(t, int64(10), s.State().Stats.TotalWagered)

	require.NoError(t, s.Settle(r, Outcome{Game: "coin", Reason: ReasonMiss}))
	_, ok = s.Begin("10", "third")
	assert.False(t, ok, "settled but unreleased round still blocks")

	s.Release(r, 0)
	_, ok = s.Begin("10", "fourth")
	assert.True(t, ok)
}

func TestSession_ConcurrentBegin(t *testing.T) {
	s, _ := newTestSession(t, 1000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.Begin("10", "go"); ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	assert.Equal(t, int64(10), s.State().Stats.TotalWagered)
}

func TestSession_SettleErrors(t *testing.T) {
	s, _ := newTestSession(t, 1000)
	win := Outcome{Game: "coin", Won: true, Payout: 20}

	assert.ErrorIs(t, s.Settle(Round{ID: "nope"}, win), ErrNoActiveRound)

	r, ok := s.Begin("10", "go")
	require.True(t, ok)

	assert.ErrorIs(t, s.Settle(Round{ID: "other"}, win), ErrStaleRound)
	assert.ErrorIs(t, s.Settle(r, Outcome{Won: true, Payout: 20}), ErrInvalidOutcome)
	assert.ErrorIs(t, s.Settle(r, Outcome{Game: "coin", Won: true, Payout: -1}), ErrInvalidOutcome)
	assert.ErrorIs(t, s.Settle(r, Outcome{Game: "coin", Push: true, Payout: 10}), ErrInvalidOutcome)
	assert.ErrorIs(t, s.Settle(r, Outcome{Game: "coin", Won: true, Push: true, Payout: 30}), ErrInvalidOutcome)
	assert.Equal(t, int64(1000), s.State().Balance)

	require.NoError(t, s.Settle(r, win))
	assert.ErrorIs(t, s.Settle(r, win), ErrAlreadySettled)
	assert.Equal(t, int64(1010), s.State().Balance)
	assert.Equal(t, int64(1), s.State().Stats.Wins)
}

func TestSession_StaleRelease(t *testing.T) {
	s, _ := newTestSession(t, 1000)

	old, ok := s.Begin("10", "go")
	require.True(t, ok)
	require.NoError(t, s.Settle(old, Outcome{Game: "coin", Reason: ReasonMiss}))
	s.Release(old, 0)

	cur, ok := s.Begin("10", "go")
	require.True(t, ok)

	s.Release(old, 0)
	assert.True(t, s.Snapshot().InProgress, "stale release is ignored")
	assert.Equal(t, cur.ID, s.Snapshot().RoundID)
}

func TestSession_DelayedReleaseIdempotent(t *testing.T) {
	s, _ := newTestSession(t, 1000)

	r, ok := s.Begin("10", "go")
	require.True(t, ok)
	require.NoError(t, s.Settle(r, Outcome{Game: "coin", Reason: ReasonMiss}))

	s.Release(r, 30*time.Millisecond)
	s.Release(r, 0)
	assert.True(t, s.Snapshot().InProgress, "second release is a no-op")

	assert.Eventually(t, func() bool {
		return !s.Snapshot().InProgress
	}, time.Second, 5*time.Millisecond)
}

func TestSession_ReleaseWithoutSettle(t *testing.T) {
	s, _ := newTestSession(t, 1000)

	r, ok := s.Begin("10", "go")
	require.True(t, ok)
	s.Release(r, 0)

	state := s.State()
	assert.Equal(t, int64(1000), state.Balance)
	assert.False(t, s.Snapshot().InProgress)
	assert.ErrorIs(t, s.Settle(r, Outcome{Game: "coin"}), ErrNoActiveRound)
}

func TestSession_CloseStopsTimers(t *testing.T) {
	s, _ := newTestSession(t, 1000)

	r, ok := s.Begin("10", "go")
	require.True(t, ok)
	s.Release(r, 10*time.Millisecond)
	s.Close()

	select {
	case <-s.Done():
	default:
		t.Fatal("done channel not closed")
	}

	time.Sleep(30 * time.Millisecond)
	assert.True(t, s.Snapshot().InProgress, "closed session is frozen")
	assert.ErrorIs(t, s.Settle(r, Outcome{Game: "coin"}), ErrSessionClosed)

	_, ok = s.Begin("10", "go")
	assert.False(t, ok)
}

func TestSession_RestartAbandonsRound(t *testing.T) {
	s, _ := newTestSession(t, 500)

	r, ok := s.Begin("10", "go")
	require.True(t, ok)
	s.Restart()

	assert.False(t, s.Snapshot().InProgress)
	assert.ErrorIs(t, s.Settle(r, Outcome{Game: "coin"}), ErrNoActiveRound)
	assert.Equal(t, int64(1000), s.State().Balance)
}

func TestSession_SetBet(t *testing.T) {
	s, _ := newTestSession(t, 1000)

	require.NoError(t, s.SetBet(" 25 "))
	assert.Equal(t, "25", s.Bet())

	require.NoError(t, s.SetBet("junk"))
	assert.Equal(t, "junk", s.Bet(), "validation happens at begin")

	r, ok := s.Begin("10", "go")
	require.True(t, ok)
	assert.ErrorIs(t, s.SetBet("5"), ErrRoundInProgress)
	s.Release(r, 0)
}

func TestSession_SetBetFraction(t *testing.T) {
	tests := []struct {
		name     string
		balance  int64
		fraction string
		want     string
		err      error
	}{
		{"half", 1000, "0.5", "500", nil},
		{"quarter floors", 1001, "0.25", "250", nil},
		{"all in", 37, "1", "37", nil},
		{"zero", 1000, "0", "10", ErrInvalidAmount},
		{"over one", 1000, "1.5", "10", ErrInvalidAmount},
		{"negative", 1000, "-0.5", "10", ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSession(t, tt.balance)
			err := s.SetBetFraction(decimal.RequireFromString(tt.fraction))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, s.Bet())
		})
	}
}

func TestSession_Credit(t *testing.T) {
	s, _ := newTestSession(t, 0)
	require.True(t, s.Snapshot().GameOver)

	assert.ErrorIs(t, s.Credit(0), ErrInvalidAmount)
	require.NoError(t, s.Credit(66))

	snap := s.Snapshot()
	assert.Equal(t, int64(66), snap.Balance)
	assert.False(t, snap.GameOver)
	assert.Equal(t, MessageIdle, snap.Message)
	assert.Equal(t, Stats{}, snap.Stats, "purchases are not winnings")

	r, ok := s.Begin("10", "go")
	require.True(t, ok)
	assert.ErrorIs(t, s.Credit(10), ErrRoundInProgress)
	s.Release(r, 0)
}

func TestSession_CreditReservation(t *testing.T) {
	s, _ := newTestSession(t, 1000)

	assert.ErrorIs(t, s.CommitCredit(10), ErrNoCreditHold)

	require.NoError(t, s.ReserveCredit())
	assert.True(t, s.Snapshot().PaymentPending)

	_, ok := s.Begin("10", "go")
	assert.False(t, ok, "rounds wait for the payment")
	assert.Equal(t, MessagePaymentPending, s.Snapshot().Message)

	require.NoError(t, s.CommitCredit(20))
	snap := s.Snapshot()
	assert.Equal(t, int64(1020), snap.Balance)
	assert.False(t, snap.PaymentPending)

	require.NoError(t, s.ReserveCredit())
	s.CancelCredit()
	assert.Equal(t, int64(1020), s.Snapshot().Balance)

	r, ok := s.Begin("10", "go")
	require.True(t, ok)
	assert.ErrorIs(t, s.ReserveCredit(), ErrRoundInProgress)
	s.Release(r, 0)
}

func TestSession_Collaborators(t *testing.T) {
	signals := &signalLog{}
	book := &ledger{}
	var snaps []Snapshot
	var mu sync.Mutex

	s := NewSession("bob", State{Balance: 100}, Options{
		Notifier: signals,
		Recorder: book,
		Observer: observerFunc(func(snap Snapshot) {
			mu.Lock()
			snaps = append(snaps, snap)
			mu.Unlock()
		}),
		Formatter: formatterFunc(func(o Outcome, stake int64) string { return "formatted" }),
	})
	defer s.Close()

	r, ok := s.Begin("40", "go", WithFlavor(feedback.FlavorDice), ForGame("dice"))
	require.True(t, ok)
	require.NoError(t, s.Settle(r, Outcome{Game: "dice", Reason: ReasonMiss}))
	s.Release(r, 0)

	assert.Equal(t, []feedback.Signal{feedback.SignalRoundStarted, feedback.SignalLoss}, signals.signals)
	assert.Equal(t, feedback.FlavorDice, signals.flavors[0])

	require.Len(t, book.entries, 1)
	entry := book.entries[0]
	assert.Equal(t, r.ID, entry.RoundID)
	assert.Equal(t, "bob", entry.PlayerID)
	assert.Equal(t, int64(-40), entry.Credit)
	assert.Equal(t, int64(60), entry.BalanceAfter)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, snaps, 3)
	assert.True(t, snaps[0].InProgress)
	assert.Equal(t, "formatted", snaps[1].Message)
	require.NotNil(t, snaps[1].Outcome)
	assert.False(t, snaps[2].InProgress)
}

func TestSession_PersistFailureIsLogged(t *testing.T) {
	st := newMemStore()
	st.err = errors.New("redis down")
	s := NewSession("alice", State{Balance: 100}, Options{Store: st})
	defer s.Close()

	r, ok := s.Begin("10", "go")
	require.True(t, ok)
	require.NoError(t, s.Settle(r, Outcome{Game: "coin", Won: true, Payout: 20}))
	assert.Equal(t, int64(110), s.State().Balance)
}

func TestParseBet(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{"1", 1, true},
		{"100", 100, true},
		{"10.0", 10, true},
		{"1e2", 100, true},
		{"0", 0, false},
		{"0.5", 0, false},
		{"", 0, false},
		{"ten", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parseBet(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

type observerFunc func(Snapshot)

func (f observerFunc) SessionChanged(s Snapshot) { f(s) }

type formatterFunc func(Outcome, int64) string

func (f formatterFunc) Outcome(o Outcome, stake int64) string { return f(o, stake) }
