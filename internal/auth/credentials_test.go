package auth

import (
	"context"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// Low cost in tests to keep them fast; the work-factor default is covered
// separately.
func testHasher() *Hasher {
	return NewHasher(bcrypt.MinCost, 4)
}

func TestHashAndVerify_RoundTrip(t *testing.T) {
	h := testHasher()
	ctx := context.Background()

	hash, err := h.Hash(ctx, "secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if strings.Contains(hash, "secret1") {
		t.Fatal("hash contains plaintext")
	}

	ok, err := h.Verify(ctx, "secret1", hash)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Error("verify(hash(p), p) = false, want true")
	}

	ok, err = h.Verify(ctx, "secret1x", hash)
	if err != nil {
		t.Fatalf("verify wrong: %v", err)
	}
	if ok {
		t.Error("verify(hash(p), p+\"x\") = true, want false")
	}
}

func TestHash_UniqueSaltPerCall(t *testing.T) {
	h := testHasher()
	ctx := context.Background()

	h1, err := h.Hash(ctx, "samepassword")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := h.Hash(ctx, "samepassword")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password are identical; salt is not per-call")
	}
}

func TestVerify_MalformedHash(t *testing.T) {
	h := testHasher()
	if _, err := h.Verify(context.Background(), "pw", "not-a-bcrypt-hash"); err == nil {
		t.Error("expected error for malformed hash")
	}
}

func TestHash_ContextCancelledWhileWaiting(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 1)

	// Occupy the single slot.
	h.slots <- struct{}{}
	defer func() { <-h.slots }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := h.Hash(ctx, "pw"); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestHash_ConcurrentBounded(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 2)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.Hash(ctx, "concurrent"); err != nil {
				t.Errorf("hash: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestDefaultCost(t *testing.T) {
	h := NewHasher(0, 1) // out of range falls back to the default
	if h.cost != DefaultCost {
		t.Errorf("cost = %d, want %d", h.cost, DefaultCost)
	}
}
