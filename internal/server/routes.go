package server

import (
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/gofiber/contrib/websocket"
)

// PlayerHeader carries the logged-in username on every player request.
const PlayerHeader = "X-Player-ID"

func (s *FiberServer) RegisterFiberRoutes() {
	// Apply CORS middleware
	s.App.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Accept,Authorization,Content-Type," + PlayerHeader,
		AllowCredentials: false, // credentials require explicit origins
		MaxAge:           300,
	}))

	// Basic routes
	s.App.Get("/health", s.healthHandler)

	api := s.App.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/login", s.loginHandler)
	auth.Post("/logout", s.logoutHandler)

	api.Get("/games", s.listGamesHandler)
	api.Post("/sound/toggle", s.toggleSoundHandler)

	// Player routes need a live session.
	api.Get("/session", s.requireSession, s.getSessionHandler)
	api.Post("/session/bet", s.requireSession, s.setBetHandler)
	api.Post("/session/restart", s.requireSession, s.restartHandler)

	api.Get("/games/:game", s.requireSession, s.getTableHandler)
	api.Post("/games/:game/play", s.requireSession, s.playHandler)
	api.Post("/games/:game/action", s.requireSession, s.actionHandler)

	api.Post("/payments", s.requireSession, s.paymentHandler)
	api.Get("/history", s.requireSession, s.historyHandler)

	// WebSocket route
	s.App.Use("/ws", s.wsUpgrade)
	s.App.Get("/ws", websocket.New(s.gameWebSocketHandler))
}
