package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"gambweb/internal/config"
)

func TestOptions(t *testing.T) {
	opts := options(config.Redis{Addr: "cache:6380", Password: "secret", DB: 2})

	if opts.Addr != "cache:6380" {
		t.Errorf("Addr = %v, want cache:6380", opts.Addr)
	}
	if opts.Password != "secret" {
		t.Errorf("Password = %v, want secret", opts.Password)
	}
	if opts.DB != 2 {
		t.Errorf("DB = %v, want 2", opts.DB)
	}
	if opts.MaxRetries != 3 {
		t.Errorf("MaxRetries = %v, want 3", opts.MaxRetries)
	}
}

func TestNew_NoRedis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Port 1 is never a Redis server.
	svc, err := New(ctx, config.Redis{Addr: "127.0.0.1:1"})
	if err == nil {
		svc.Close()
		t.Fatal("New() should fail without a reachable Redis")
	}
	if svc != nil {
		t.Error("New() returned a service alongside an error")
	}
}

func TestHealth_Down(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	s := &service{client: client, addr: "127.0.0.1:1"}
	defer s.Close()

	stats := s.Health()
	if stats["status"] != "down" {
		t.Errorf("status = %v, want down", stats["status"])
	}
	if stats["error"] == "" {
		t.Error("expected an error message")
	}
}

func TestService_Interface(t *testing.T) {
	var _ Service = (*service)(nil)
}
