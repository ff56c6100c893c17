package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(1000), cfg.Engine.StartingBalance)
	assert.Equal(t, int64(10), cfg.Engine.DefaultBet)
	assert.Equal(t, 1.0, cfg.Engine.DelayScale)
	assert.Equal(t, "1.5", cfg.Payment.CreditUnitPrice.String())
	assert.Equal(t, 2*time.Second, cfg.Payment.ProcessingDelay)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STARTING_BALANCE", "500")
	t.Setenv("ROUND_DELAY_SCALE", "0")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CLEAR_ON_LOGOUT", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(500), cfg.Engine.StartingBalance)
	assert.Equal(t, 0.0, cfg.Engine.DelayScale)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.Engine.ClearOnLogout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric balance", "STARTING_BALANCE", "lots"},
		{"zero balance", "STARTING_BALANCE", "0"},
		{"negative delay scale", "ROUND_DELAY_SCALE", "-1"},
		{"free credits", "CREDIT_UNIT_PRICE", "0"},
		{"bad unit price", "CREDIT_UNIT_PRICE", "cheap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestEngine_Scale(t *testing.T) {
	e := Engine{DelayScale: 0.5}
	assert.Equal(t, time.Second, e.Scale(2*time.Second))

	e.DelayScale = 0
	assert.Equal(t, time.Duration(0), e.Scale(2*time.Second))
}

func TestPostgres_URL(t *testing.T) {
	p := Postgres{Host: "db", Port: "5433", Database: "casino", Username: "u", Password: "p", Schema: "public"}
	assert.Equal(t, "postgres://u:p@db:5433/casino?sslmode=disable&search_path=public", p.URL())
}
