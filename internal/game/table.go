package game

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"gambweb/internal/wager"
)

const TICK_INTERVAL = 100 * time.Millisecond

// FrameSink receives decorative frames while a round is in suspense.
type FrameSink interface {
	SendFrame(playerID string, frame FrameMessage)
}

type TableOptions struct {
	// Scale adjusts every cosmetic delay. Nil leaves delays unchanged.
	Scale  func(time.Duration) time.Duration
	Frames FrameSink
}

func (o TableOptions) scale(d time.Duration) time.Duration {
	if o.Scale == nil {
		return d
	}
	return o.Scale(d)
}

// seat is the table's hold on one admitted round.
type seat struct {
	round      wager.Round
	ticket     Ticket
	concluding bool
	done       chan struct{}
}

// Table runs rounds of one kernel against one session: configure, begin,
// deal, optional actions, suspense, resolve, settle and release. Release
// always happens, even when the kernel panics.
type Table struct {
	kernel  Kernel
	session *wager.Session
	opts    TableOptions

	mu   sync.Mutex
	seat *seat
}

func NewTable(kernel Kernel, session *wager.Session, opts TableOptions) *Table {
	return &Table{kernel: kernel, session: session, opts: opts}
}

func (t *Table) Kernel() Kernel { return t.kernel }

// Play starts a round with the session's current bet. A rejected bet
// returns ErrBetRejected; the reason is in the session message.
func (t *Table) Play(choice string) (wager.Round, error) {
	choice = strings.ToLower(strings.TrimSpace(choice))
	ticket, err := t.kernel.Configure(choice)
	if err != nil {
		return wager.Round{}, err
	}

	profile := t.kernel.Profile()
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.session.Begin(t.session.Bet(), profile.StartMessage,
		wager.ForGame(string(t.kernel.Type())), wager.WithFlavor(profile.Flavor))
	if !ok {
		return wager.Round{}, ErrBetRejected
	}

	src, err := NewRoundSource()
	if err != nil {
		t.session.Release(r, 0)
		return wager.Round{}, fmt.Errorf("seed round: %w", err)
	}
	var ready bool
	if err := guard(func() {
		ticket.Start(r.Stake, src)
		ready = ticket.Ready()
	}); err != nil {
		log.Printf("[TABLE] %s round %s failed to deal: %v", t.kernel.Type(), r.ID, err)
		t.session.Release(r, 0)
		return wager.Round{}, err
	}
	log.Printf("[TABLE] %s round %s dealt for %s (stake %d, seed %s)",
		t.kernel.Type(), r.ID, t.session.PlayerID(), r.Stake, src.SeedHex())

	s := &seat{round: r, ticket: ticket, done: make(chan struct{})}
	t.seat = s
	if ready {
		t.concludeLocked(s, profile.Suspense)
	}
	return r, nil
}

// Act forwards a player action to the active round.
func (t *Table) Act(action string) error {
	action = strings.ToLower(strings.TrimSpace(action))

	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.seat
	if s == nil || t.session.Snapshot().RoundID != s.round.ID {
		return ErrNoRound
	}
	if s.concluding {
		return ErrRoundConcluding
	}
	actor, ok := s.ticket.(Actor)
	if !ok {
		return ErrNotInteractive
	}
	var actErr error
	var ready bool
	if err := guard(func() {
		if actErr = actor.Act(action); actErr == nil {
			ready = s.ticket.Ready()
		}
	}); err != nil {
		log.Printf("[TABLE] %s round %s failed on %q: %v", t.kernel.Type(), s.round.ID, action, err)
		t.seat = nil
		close(s.done)
		t.session.Release(s.round, 0)
		return err
	}
	if actErr != nil {
		return actErr
	}
	if ready {
		t.concludeLocked(s, t.kernel.Profile().Suspense)
	}
	return nil
}

// guard runs kernel code, turning a panic into ErrKernelFault.
func guard(fn func()) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrKernelFault, p)
		}
	}()
	fn()
	return nil
}

func (t *Table) concludeLocked(s *seat, suspense time.Duration) {
	s.concluding = true
	go t.conclude(s, t.opts.scale(suspense))
}

func (t *Table) conclude(s *seat, suspense time.Duration) {
	defer close(s.done)
	defer t.session.Release(s.round, t.opts.scale(t.kernel.Profile().Release))
	defer func() {
		if p := recover(); p != nil {
			log.Printf("[TABLE] %s round %s panicked: %v", t.kernel.Type(), s.round.ID, p)
		}
	}()

	if !t.suspend(s, suspense) {
		log.Printf("[TABLE] %s round %s abandoned, session closed", t.kernel.Type(), s.round.ID)
		return
	}

	outcome := s.ticket.Resolve()
	if err := t.session.Settle(s.round, outcome); err != nil {
		log.Printf("[TABLE] %s round %s not settled: %v", t.kernel.Type(), s.round.ID, err)
	}
}

// suspend waits out the cosmetic delay, sending decorative frames when the
// kernel has them. It reports false when the session is torn down first.
func (t *Table) suspend(s *seat, d time.Duration) bool {
	select {
	case <-t.session.Done():
		return false
	default:
	}
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	var tick <-chan time.Time
	teaser, teases := t.kernel.(Teaser)
	if teases && t.opts.Frames != nil {
		ticker := time.NewTicker(TICK_INTERVAL)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-t.session.Done():
			return false
		case <-timer.C:
			return true
		case <-tick:
			t.opts.Frames.SendFrame(t.session.PlayerID(), FrameMessage{
				Game:    t.kernel.Type(),
				RoundID: s.round.ID,
				Value:   teaser.Tease(),
			})
		}
	}
}

// Wait blocks until the current round has been settled and its release
// scheduled.
func (t *Table) Wait(ctx context.Context) error {
	t.mu.Lock()
	s := t.seat
	t.mu.Unlock()
	if s == nil {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View reports the table for the player.
func (t *Table) View() TableView {
	v := TableView{
		Game:    t.kernel.Type(),
		Profile: t.kernel.Profile(),
		Session: t.session.Snapshot(),
	}
	if st, ok := t.kernel.(Stateful); ok {
		v.Kernel = st.State()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s := t.seat; s != nil && v.Session.RoundID == s.round.ID {
		v.RoundID = s.round.ID
		v.Active = true
		v.Ready = s.concluding
		v.Round = s.ticket.View()
	}
	return v
}

// Lobby holds one session's tables, created on first use.
type Lobby struct {
	registry *Registry
	session  *wager.Session
	opts     TableOptions

	mu     sync.Mutex
	tables map[GameType]*Table
}

func NewLobby(registry *Registry, session *wager.Session, opts TableOptions) *Lobby {
	return &Lobby{
		registry: registry,
		session:  session,
		opts:     opts,
		tables:   make(map[GameType]*Table),
	}
}

func (l *Lobby) Session() *wager.Session { return l.session }

// Games lists the game types with an open table, in name order.
func (l *Lobby) Games() []GameType {
	l.mu.Lock()
	defer l.mu.Unlock()
	types := make([]GameType, 0, len(l.tables))
	for t := range l.tables {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

func (l *Lobby) Table(gameType GameType) (*Table, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tbl, ok := l.tables[gameType]; ok {
		return tbl, nil
	}
	kernel, ok := l.registry.New(gameType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, gameType)
	}
	tbl := NewTable(kernel, l.session, l.opts)
	l.tables[gameType] = tbl
	return tbl, nil
}
