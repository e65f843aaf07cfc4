package server

import (
	"context"
	"testing"
	"time"

	"itspace/internal/testsupport/redisstub"
)

func TestRedisStoreAllowEnforcesLimit(t *testing.T) {
	stub, err := redisstub.Start(redisstub.Options{})
	if err != nil {
		t.Fatalf("start redis stub: %v", err)
	}
	defer stub.Close()

	store := newRedisStore(stub.Addr(), "", time.Second)
	defer store.Close()

	ctx := context.Background()
	key := "itspace:login:203.0.113.7"

	for i := 0; i < 2; i++ {
		allowed, _, err := store.Allow(ctx, key, 2, time.Minute)
		if err != nil {
			t.Fatalf("Allow attempt %d returned error: %v", i+1, err)
		}
		if !allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	allowed, retryAfter, err := store.Allow(ctx, key, 2, time.Minute)
	if err != nil {
		t.Fatalf("Allow over limit returned error: %v", err)
	}
	if allowed {
		t.Fatal("third attempt should be throttled")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %v", retryAfter)
	}
	if got := stub.Counter(key); got != 3 {
		t.Fatalf("expected 3 recorded attempts, got %d", got)
	}
}

func TestRedisStoreAllowWithPassword(t *testing.T) {
	stub, err := redisstub.Start(redisstub.Options{Password: "sekrit"})
	if err != nil {
		t.Fatalf("start redis stub: %v", err)
	}
	defer stub.Close()

	store := newRedisStore(stub.Addr(), "sekrit", time.Second)
	defer store.Close()

	allowed, _, err := store.Allow(context.Background(), "itspace:login:test", 1, time.Minute)
	if err != nil {
		t.Fatalf("Allow returned error: %v", err)
	}
	if !allowed {
		t.Fatal("first attempt should be allowed")
	}
}

func TestRedisStorePing(t *testing.T) {
	stub, err := redisstub.Start(redisstub.Options{})
	if err != nil {
		t.Fatalf("start redis stub: %v", err)
	}
	defer stub.Close()

	store := newRedisStore(stub.Addr(), "", time.Second)
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
}

func TestRateLimiterUsesRedisLoginThrottle(t *testing.T) {
	stub, err := redisstub.Start(redisstub.Options{})
	if err != nil {
		t.Fatalf("start redis stub: %v", err)
	}
	defer stub.Close()

	rl := newRateLimiter(RateLimitConfig{
		LoginLimit:  1,
		LoginWindow: time.Minute,
		RedisAddr:   stub.Addr(),
	})
	defer rl.Close()

	allowed, _, err := rl.AllowLogin(context.Background(), "198.51.100.4")
	if err != nil {
		t.Fatalf("AllowLogin returned error: %v", err)
	}
	if !allowed {
		t.Fatal("first login should be allowed")
	}

	allowed, retryAfter, err := rl.AllowLogin(context.Background(), "198.51.100.4")
	if err != nil {
		t.Fatalf("AllowLogin returned error: %v", err)
	}
	if allowed {
		t.Fatal("second login should be throttled")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %v", retryAfter)
	}
	if got := stub.Counter("itspace:login:198.51.100.4"); got != 2 {
		t.Fatalf("expected throttle key in redis, got count %d", got)
	}
}
