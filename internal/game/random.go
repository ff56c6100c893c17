package game

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mrand "math/rand/v2"

	"github.com/shopspring/decimal"
)

// Source is the randomness a ticket draws from.
type Source interface {
	IntN(n int) int
	Float64() float64
}

// GenerateSeed creates a cryptographically secure random seed
func GenerateSeed() ([32]byte, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return seed, fmt.Errorf("read seed: %w", err)
	}
	return seed, nil
}

// RoundSource is a ChaCha8 stream keyed by a fresh seed. Every round gets
// its own, so no seed is shared across rounds.
type RoundSource struct {
	seed [32]byte
	rng  *mrand.Rand
}

func NewRoundSource() (*RoundSource, error) {
	seed, err := GenerateSeed()
	if err != nil {
		return nil, err
	}
	return &RoundSource{seed: seed, rng: mrand.New(mrand.NewChaCha8(seed))}, nil
}

func (s *RoundSource) IntN(n int) int { return s.rng.IntN(n) }
func (s *RoundSource) Float64() float64 { return s.rng.Float64() }
func (s *RoundSource) SeedHex() string { return hex.EncodeToString(s.seed[:]) }

// Shuffle permutes items in place with Fisher-Yates.
func Shuffle[T any](src Source, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// payout returns floor(stake * multiplier) in whole credits.
func payout(stake int64, multiplier decimal.Decimal) int64 {
	return decimal.NewFromInt(stake).Mul(multiplier).Floor().IntPart()
}

var (
	two     = decimal.NewFromInt(2)
	five    = decimal.NewFromInt(5)
	oneHalf = decimal.RequireFromString("1.5")
)
