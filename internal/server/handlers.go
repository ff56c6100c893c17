package server

import (
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/shopspring/decimal"

	"gambweb/internal/feedback"
	"gambweb/internal/game"
	"gambweb/internal/payment"
	"gambweb/internal/wager"
)

const sessionKey = "session"

func playerID(c *fiber.Ctx) string {
	if id := strings.TrimSpace(c.Get(PlayerHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(c.Query("player"))
}

// requireSession resolves the caller's live session.
func (s *FiberServer) requireSession(c *fiber.Ctx) error {
	id := playerID(c)
	if id == "" {
		return c.Status(401).JSON(fiber.Map{
			"error": "Player ID is required",
		})
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		return c.Status(401).JSON(fiber.Map{
			"error": "Not logged in",
		})
	}
	c.Locals(sessionKey, sess)
	return c.Next()
}

func currentSession(c *fiber.Ctx) *wager.Session {
	return c.Locals(sessionKey).(*wager.Session)
}

// parseOptional decodes the body when there is one. Games without a
// choice may post nothing.
func parseOptional(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(out)
}

// Health handler
func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	disabled := map[string]string{"status": "disabled"}

	dbHealth := disabled
	if s.db != nil {
		dbHealth = s.db.Health()
	}
	cacheHealth := disabled
	if s.cache != nil {
		cacheHealth = s.cache.Health()
	}

	health := fiber.Map{
		"database": dbHealth,
		"cache":    cacheHealth,
		"game": fiber.Map{
			"status":            "running",
			"connected_clients": s.hub.GetClientCount(),
			"active_sessions":   s.sessions.Count(),
			"muted":             feedback.Muted(),
		},
	}
	return c.JSON(health)
}

// Identity handlers

func (s *FiberServer) loginHandler(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "Username is required",
		})
	}

	if s.db != nil {
		if _, err := s.db.TouchPlayer(c.UserContext(), username); err != nil {
			log.Printf("[SERVER] Identity lookup failed for %s: %v", username, err)
			return c.Status(503).JSON(fiber.Map{
				"error": "Login is unavailable, try again later",
			})
		}
	}

	sess, err := s.sessions.OnPlayerChange(c.UserContext(), username)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"player":  username,
		"session": sess.Snapshot(),
	})
}

func (s *FiberServer) logoutHandler(c *fiber.Ctx) error {
	id := playerID(c)
	if id == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "Player ID is required",
		})
	}

	clearState := c.QueryBool("clear", s.cfg.Engine.ClearOnLogout)
	s.dropLobby(id)
	if err := s.sessions.Logout(c.UserContext(), id, clearState); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to clear saved progress",
		})
	}

	return c.JSON(fiber.Map{
		"player":  id,
		"cleared": clearState,
		"message": "Logged out",
	})
}

// Session handlers

func (s *FiberServer) getSessionHandler(c *fiber.Ctx) error {
	return c.JSON(currentSession(c).Snapshot())
}

func (s *FiberServer) setBetHandler(c *fiber.Ctx) error {
	var req struct {
		Amount   string `json:"amount"`
		Fraction string `json:"fraction"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	sess := currentSession(c)
	var err error
	switch {
	case req.Fraction == "max":
		err = sess.SetBetFraction(decimal.NewFromInt(1))
	case req.Fraction != "":
		fraction, perr := decimal.NewFromString(req.Fraction)
		if perr != nil {
			return c.Status(400).JSON(fiber.Map{
				"error": "Fraction must be a number between 0 and 1",
			})
		}
		err = sess.SetBetFraction(fraction)
	default:
		err = sess.SetBet(req.Amount)
	}

	switch {
	case errors.Is(err, wager.ErrRoundInProgress):
		return c.Status(409).JSON(fiber.Map{
			"error": wager.MessageRoundInProgress,
		})
	case errors.Is(err, wager.ErrInvalidAmount):
		return c.Status(400).JSON(fiber.Map{
			"error": "Fraction must be a number between 0 and 1",
		})
	case err != nil:
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(sess.Snapshot())
}

func (s *FiberServer) restartHandler(c *fiber.Ctx) error {
	sess := currentSession(c)
	sess.Restart()
	return c.JSON(sess.Snapshot())
}

// Game handlers

func (s *FiberServer) listGamesHandler(c *fiber.Ctx) error {
	games := make([]fiber.Map, 0)
	for _, gameType := range s.registry.Types() {
		kernel, _ := s.registry.New(gameType)
		games = append(games, fiber.Map{
			"type":        gameType,
			"profile":     kernel.Profile(),
			"interactive": kernel.Profile().Interactive(),
		})
	}
	return c.JSON(fiber.Map{"games": games})
}

func (s *FiberServer) table(c *fiber.Ctx) (*game.Table, error) {
	// Params point into the request buffer; the name outlives the request
	// as a lobby key.
	name := strings.ToLower(utils.CopyString(c.Params("game")))
	return s.lobby(currentSession(c)).Table(game.GameType(name))
}

func (s *FiberServer) getTableHandler(c *fiber.Ctx) error {
	tbl, err := s.table(c)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(tbl.View())
}

func (s *FiberServer) playHandler(c *fiber.Ctx) error {
	tbl, err := s.table(c)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var req struct {
		Choice string `json:"choice"`
	}
	if err := parseOptional(c, &req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	round, err := tbl.Play(req.Choice)
	if err != nil {
		return s.roundError(c, err)
	}

	return c.Status(202).JSON(fiber.Map{
		"round": round,
		"table": tbl.View(),
	})
}

func (s *FiberServer) actionHandler(c *fiber.Ctx) error {
	tbl, err := s.table(c)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := tbl.Act(req.Action); err != nil {
		return s.roundError(c, err)
	}
	return c.JSON(tbl.View())
}

// roundError maps table errors to responses. A rejected bet reports the
// session's display message.
func (s *FiberServer) roundError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, game.ErrBetRejected):
		snap := currentSession(c).Snapshot()
		return c.Status(422).JSON(fiber.Map{
			"error":   snap.Message,
			"session": snap,
		})
	case errors.Is(err, game.ErrInvalidChoice), errors.Is(err, game.ErrInvalidAction),
		errors.Is(err, game.ErrNotInteractive):
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, game.ErrNoRound), errors.Is(err, game.ErrRoundConcluding):
		return c.Status(409).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	log.Printf("[SERVER] Round failed for %s: %v", currentSession(c).PlayerID(), err)
	return c.Status(500).JSON(fiber.Map{
		"error": "Round could not be started",
	})
}

// Payment and history handlers

func (s *FiberServer) paymentHandler(c *fiber.Ctx) error {
	var req struct {
		Amount string `json:"amount"`
		Method string `json:"method"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	paid, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Amount must be a number",
		})
	}
	method, err := payment.ParseMethod(req.Method)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	receipt, err := s.payments.Purchase(c.UserContext(), currentSession(c), method, paid)
	switch {
	case errors.Is(err, wager.ErrRoundInProgress):
		return c.Status(409).JSON(fiber.Map{
			"error": wager.MessageRoundInProgress,
		})
	case err != nil:
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"receipt": receipt,
		"session": currentSession(c).Snapshot(),
	})
}

func (s *FiberServer) historyHandler(c *fiber.Ctx) error {
	if s.db == nil {
		return c.Status(503).JSON(fiber.Map{
			"error": "Round history is unavailable",
		})
	}

	sess := currentSession(c)
	rounds, err := s.db.RecentRounds(c.UserContext(), sess.PlayerID(), c.QueryInt("limit", 20))
	if err != nil {
		log.Printf("[SERVER] History lookup failed for %s: %v", sess.PlayerID(), err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}
	return c.JSON(fiber.Map{"rounds": rounds})
}

func (s *FiberServer) toggleSoundHandler(c *fiber.Ctx) error {
	muted := feedback.ToggleMuted()
	s.hub.Broadcast(game.WSMessage{Type: game.MessageSound, Data: game.SoundMessage{Muted: muted}})
	return c.JSON(fiber.Map{"muted": muted})
}

// WebSocket handlers

func (s *FiberServer) wsUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

type clientMessage struct {
	Type   string `json:"type"`
	Game   string `json:"game"`
	Choice string `json:"choice"`
	Action string `json:"action"`
}

// gameWebSocketHandler pushes session snapshots, feedback cues and frames
// to the player, and accepts play and action requests.
func (s *FiberServer) gameWebSocketHandler(conn *websocket.Conn) {
	id := strings.TrimSpace(conn.Query("player", ""))
	if id == "" {
		id = "anonymous"
	}

	log.Printf("[WS] New connection from player: %s", id)

	client := s.hub.RegisterClient(conn, id)
	defer s.hub.UnregisterClient(client)

	if sess, ok := s.sessions.Get(id); ok {
		client.SendInitialState(sess.Snapshot())
	}

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[WS] Read error for player %s: %v", id, err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if reply := s.handleClientMessage(id, msg); reply != nil {
			client.Send(reply)
		}
	}
}

func (s *FiberServer) handleClientMessage(id string, msg clientMessage) interface{} {
	if msg.Type == "ping" {
		return game.WSMessage{Type: game.MessagePong}
	}
	if msg.Type != "play" && msg.Type != "action" {
		return nil
	}

	sess, ok := s.sessions.Get(id)
	if !ok {
		return game.WSMessage{Type: game.MessageError, Data: "Not logged in"}
	}
	tbl, err := s.lobby(sess).Table(game.GameType(strings.ToLower(msg.Game)))
	if err != nil {
		return game.WSMessage{Type: game.MessageError, Data: err.Error()}
	}

	if msg.Type == "play" {
		_, err = tbl.Play(msg.Choice)
	} else {
		err = tbl.Act(msg.Action)
	}
	switch {
	case errors.Is(err, game.ErrBetRejected):
		// The session snapshot already carries the reason.
		return nil
	case err != nil:
		return game.WSMessage{Type: game.MessageError, Data: err.Error()}
	}
	return nil
}
