package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"gambweb/internal/wager"
)

const maxHistory = 100

// Player is a known username. Usernames are the only identity.
type Player struct {
	Username    string    `json:"username"`
	CreatedAt   time.Time `json:"created_at"`
	LastLoginAt time.Time `json:"last_login_at"`
}

// RoundRecord is one settled round as stored in the ledger.
type RoundRecord struct {
	RoundID      string    `json:"round_id"`
	PlayerID     string    `json:"player_id"`
	Game         string    `json:"game"`
	Stake        int64     `json:"stake"`
	Payout       int64     `json:"payout"`
	Credit       int64     `json:"credit"`
	BalanceAfter int64     `json:"balance_after"`
	Won          bool      `json:"won"`
	Push         bool      `json:"push"`
	Reason       string    `json:"reason"`
	SettledAt    time.Time `json:"settled_at"`
}

// TouchPlayer registers the username on first login and bumps its last
// login time afterwards.
func (s *service) TouchPlayer(ctx context.Context, username string) (Player, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Player{}, wager.ErrInvalidPlayer
	}

	var p Player
	err := s.pool.QueryRow(ctx, `
		INSERT INTO players (username, created_at, last_login_at)
		VALUES ($1, now(), now())
		ON CONFLICT (username) DO UPDATE SET last_login_at = now()
		RETURNING username, created_at, last_login_at
	`, username).Scan(&p.Username, &p.CreatedAt, &p.LastLoginAt)
	if err != nil {
		return Player{}, fmt.Errorf("touch player %s: %w", username, err)
	}
	return p, nil
}

// RecordRound implements wager.Recorder. A round id is written once; a
// repeated settlement is ignored.
func (s *service) RecordRound(ctx context.Context, st wager.Settlement) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rounds (round_id, player_id, game, stake, payout, credit, balance_after, won, push, reason, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (round_id) DO NOTHING
	`, st.RoundID, st.PlayerID, st.Game, st.Stake, st.Payout, st.Credit,
		st.BalanceAfter, st.Won, st.Push, string(st.Reason), st.SettledAt)
	if err != nil {
		return fmt.Errorf("record round %s: %w", st.RoundID, err)
	}
	return nil
}

// RecentRounds returns the player's latest settled rounds, newest first.
func (s *service) RecentRounds(ctx context.Context, playerID string, limit int) ([]RoundRecord, error) {
	if limit <= 0 || limit > maxHistory {
		limit = maxHistory
	}

	rows, err := s.pool.Query(ctx, `
		SELECT round_id, player_id, game, stake, payout, credit, balance_after, won, push, reason, settled_at
		FROM rounds
		WHERE player_id = $1
		ORDER BY settled_at DESC
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query rounds for %s: %w", playerID, err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByPos[RoundRecord])
	if err != nil {
		return nil, fmt.Errorf("scan rounds for %s: %w", playerID, err)
	}
	return records, nil
}
