package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"gambweb/internal/cache"
	"gambweb/internal/config"
	"gambweb/internal/database"
	"gambweb/internal/display"
	"gambweb/internal/feedback"
	"gambweb/internal/game"
	"gambweb/internal/payment"
	"gambweb/internal/store"
	"gambweb/internal/wager"
)

type FiberServer struct {
	*fiber.App

	cfg      config.Config
	db       database.Service
	cache    cache.Service
	hub      *game.Hub
	registry *game.Registry
	sessions *wager.Manager
	payments *payment.Intake
	tables   game.TableOptions
	stop     context.CancelFunc

	mu      sync.Mutex
	lobbies map[string]*game.Lobby
}

// New wires the casino. db and cache are optional: without Redis session
// state is kept in memory, without Postgres there is no identity table or
// round history.
func New(cfg config.Config, db database.Service, cacheService cache.Service) (*FiberServer, error) {
	hub := game.NewHub()

	var medium store.Medium = store.NewMemory()
	if cacheService != nil {
		medium = store.NewRedis(cacheService.GetClient())
	} else {
		log.Println("[SERVER] Redis unavailable, session state is kept in memory")
	}

	opts := wager.Options{
		StartingBalance: cfg.Engine.StartingBalance,
		DefaultBet:      cfg.Engine.DefaultBet,
		Notifier:        feedback.NewDispatcher(hub),
		Formatter:       display.New(),
		Observer:        hub,
	}
	if db != nil {
		opts.Recorder = db
	}

	payments, err := payment.New(cfg.Payment.CreditUnitPrice, cfg.Payment.ProcessingDelay)
	if err != nil {
		return nil, err
	}

	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader:  "gambweb",
			AppName:       "gambweb",
			ReadTimeout:   cfg.HTTP.ReadTimeout,
			WriteTimeout:  cfg.HTTP.WriteTimeout,
			IdleTimeout:   120 * time.Second,
			StrictRouting: false,
		}),

		cfg:      cfg,
		db:       db,
		cache:    cacheService,
		hub:      hub,
		registry: game.DefaultRegistry(),
		sessions: wager.NewManager(store.New(medium), opts),
		payments: payments,
		tables: game.TableOptions{
			Scale:  cfg.Engine.Scale,
			Frames: hub,
		},
		lobbies: make(map[string]*game.Lobby),
	}

	// Apply global middleware
	server.App.Use(recover.New())
	server.App.Use(limiter.New(limiter.Config{
		Max:        cfg.HTTP.RateLimit,
		Expiration: 1 * time.Minute,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	server.stop = cancel
	go hub.Run(ctx)

	log.Printf("[SERVER] %d games registered", len(server.registry.Types()))
	return server, nil
}

// lobby returns the player's tables, rebuilt whenever the player's
// session has been replaced by a new login.
func (s *FiberServer) lobby(sess *wager.Session) *game.Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := sess.PlayerID()
	if l, ok := s.lobbies[id]; ok && l.Session() == sess {
		return l
	}
	l := game.NewLobby(s.registry, sess, s.tables)
	s.lobbies[id] = l
	return l
}

func (s *FiberServer) dropLobby(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lobbies, playerID)
}

// Shutdown gracefully shuts down the server and game components
func (s *FiberServer) Shutdown() error {
	log.Println("[SERVER] Shutting down...")

	if err := s.App.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("[SERVER] HTTP shutdown: %v", err)
	}

	s.sessions.CloseAll()
	s.stop()

	// Close connections
	if s.cache != nil {
		s.cache.Close()
	}
	if s.db != nil {
		s.db.Close()
	}

	return nil
}
