package security

import (
	"fmt"
	"testing"
	"time"
)

// NOTE: This test file intentionally uses mu.RLock() without defer for
// testing internal state inspection. All locks are immediately followed
// by unlock on the next line. This is safe for tests.

func TestRateLimiter_Allow_NormalLoad(t *testing.T) {
	rl := NewRateLimiter(100, 60*time.Second, 10000)

	sourceIP := "192.168.1.50"

	for i := 0; i < 50; i++ {
		allowed := rl.Allow(sourceIP)
		if !allowed {
			t.Errorf("Query %d was blocked but should be allowed (under 100 qps threshold)", i+1)
		}
	}

	rl.mu.RLock()
	entry, exists := rl.sources[sourceIP]
	rl.mu.RUnlock()

	if !exists {
		t.Fatal("Expected entry to exist for source IP")
	}
	if !entry.cooldownExpiry.IsZero() {
		t.Errorf("Expected no cooldown, but cooldownExpiry is set to %v", entry.cooldownExpiry)
	}
	if entry.queryCount > 100 {
		t.Errorf("Expected queryCount <= 100, got %d", entry.queryCount)
	}
}

func TestRateLimiter_Allow_ExceedsThreshold(t *testing.T) {
	rl := NewRateLimiter(100, 60*time.Second, 10000)

	sourceIP := "192.168.1.100"

	allowedCount := 0
	blockedCount := 0

	for i := 0; i < 150; i++ {
		if rl.Allow(sourceIP) {
			allowedCount++
		} else {
			blockedCount++
		}
	}

	if allowedCount > 100 {
		t.Errorf("Expected at most 100 queries allowed, got %d", allowedCount)
	}
	if blockedCount == 0 {
		t.Error("Expected some queries to be blocked, but all were allowed")
	}

	rl.mu.RLock()
	entry, exists := rl.sources[sourceIP]
	rl.mu.RUnlock()

	if !exists {
		t.Fatal("Expected entry to exist for source IP")
	}
	if entry.cooldownExpiry.IsZero() {
		t.Error("Expected cooldown to be triggered, but cooldownExpiry is zero")
	}
	if entry.cooldownExpiry.Before(time.Now()) {
		t.Error("Expected cooldown to be in the future")
	}
}

func TestRateLimiter_Cooldown(t *testing.T) {
	rl := NewRateLimiter(10, 500*time.Millisecond, 10000)

	sourceIP := "192.168.1.150"

	for i := 0; i < 20; i++ {
		rl.Allow(sourceIP)
	}

	for i := 0; i < 5; i++ {
		if rl.Allow(sourceIP) {
			t.Errorf("Query %d was allowed but should be blocked during cooldown", i+1)
		}
	}

	time.Sleep(600 * time.Millisecond)

	if !rl.Allow(sourceIP) {
		t.Error("Query was blocked after cooldown expired, but should be allowed")
	}

	rl.mu.RLock()
	entry, exists := rl.sources[sourceIP]
	rl.mu.RUnlock()

	if !exists {
		t.Fatal("Expected entry to exist for source IP")
	}
	if !entry.cooldownExpiry.IsZero() && entry.cooldownExpiry.After(time.Now()) {
		t.Errorf("Expected cooldown to be expired, but cooldownExpiry is %v", entry.cooldownExpiry)
	}
}

func TestRateLimiter_BoundedMap(t *testing.T) {
	rl := NewRateLimiter(100, 60*time.Second, 100)

	for i := 0; i < 150; i++ {
		sourceIP := fmt.Sprintf("192.168.1.%d", i)
		rl.Allow(sourceIP)
	}

	rl.mu.RLock()
	mapSize := len(rl.sources)
	evictionCount := rl.evictionCount
	rl.mu.RUnlock()

	if mapSize > 100 {
		t.Errorf("Expected map size <= 100, got %d", mapSize)
	}
	if evictionCount == 0 {
		t.Error("Expected evictionCount > 0 after exceeding maxEntries, but got 0")
	}

	newestIP := "10.0.0.1"
	rl.Allow(newestIP)

	rl.mu.RLock()
	_, exists := rl.sources[newestIP]
	rl.mu.RUnlock()

	if !exists {
		t.Error("Expected newest entry to exist after eviction")
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(100, 60*time.Second, 10000)

	staleIP1 := "192.168.1.1"
	staleIP2 := "192.168.1.2"
	activeIP := "192.168.1.3"

	rl.Allow(staleIP1)
	rl.Allow(staleIP2)

	rl.mu.Lock()
	if entry, exists := rl.sources[staleIP1]; exists {
		entry.lastSeen = time.Now().Add(-2 * time.Minute)
	}
	if entry, exists := rl.sources[staleIP2]; exists {
		entry.lastSeen = time.Now().Add(-2 * time.Minute)
	}
	rl.mu.Unlock()

	rl.Allow(activeIP)

	rl.mu.RLock()
	initialSize := len(rl.sources)
	rl.mu.RUnlock()

	if initialSize != 3 {
		t.Fatalf("Expected 3 entries before cleanup, got %d", initialSize)
	}

	rl.Cleanup()

	rl.mu.RLock()
	afterSize := len(rl.sources)
	_, staleExists1 := rl.sources[staleIP1]
	_, staleExists2 := rl.sources[staleIP2]
	_, activeExists := rl.sources[activeIP]
	rl.mu.RUnlock()

	if staleExists1 {
		t.Error("Expected stale entry 1 to be removed, but it still exists")
	}
	if staleExists2 {
		t.Error("Expected stale entry 2 to be removed, but it still exists")
	}
	if !activeExists {
		t.Error("Expected active entry to be retained, but it was removed")
	}
	if afterSize != 1 {
		t.Errorf("Expected map size=1 after cleanup, got %d", afterSize)
	}
}
