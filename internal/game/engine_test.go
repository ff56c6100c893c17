package game

import (
	"testing"
)

func TestDefaultRegistry(t *testing.T) {
	registry := DefaultRegistry()

	all := []GameType{
		GameTypeBlackjack, GameTypeCoin, GameTypeDice, GameTypeHearts, GameTypeHighLow,
		GameTypeMemory, GameTypePoker, GameTypeRoulette, GameTypeSlots,
	}

	types := registry.Types()
	if len(types) != len(all) {
		t.Fatalf("Types() = %v, want %d games", types, len(all))
	}
	for i, gameType := range all {
		if types[i] != gameType {
			t.Errorf("Types()[%d] = %s, want %s", i, types[i], gameType)
		}

		kernel, exists := registry.New(gameType)
		if !exists {
			t.Errorf("%s kernel should be registered", gameType)
			continue
		}
		if kernel.Type() != gameType {
			t.Errorf("kernel type = %s, want %s", kernel.Type(), gameType)
		}
		if kernel.Profile().StartMessage == "" {
			t.Errorf("%s has no start message", gameType)
		}
	}

	t.Run("get non-existent kernel", func(t *testing.T) {
		if _, exists := registry.New("baccarat"); exists {
			t.Error("baccarat kernel should not exist")
		}
	})
}

func TestRegistry_FreshKernels(t *testing.T) {
	registry := DefaultRegistry()

	a, _ := registry.New(GameTypeSlots)
	b, _ := registry.New(GameTypeSlots)
	if a == b {
		t.Error("kernels with state must not be shared between sessions")
	}
}

func TestProfiles(t *testing.T) {
	interactive := map[GameType]bool{
		GameTypeMemory:    true,
		GameTypeBlackjack: true,
		GameTypePoker:     true,
	}

	registry := DefaultRegistry()
	for _, gameType := range registry.Types() {
		kernel, _ := registry.New(gameType)
		profile := kernel.Profile()
		if profile.Interactive() != interactive[gameType] {
			t.Errorf("%s Interactive() = %v", gameType, profile.Interactive())
		}
		if profile.Flavor == "" {
			t.Errorf("%s has no feedback flavor", gameType)
		}
	}
}
