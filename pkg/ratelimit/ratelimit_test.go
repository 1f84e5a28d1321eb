package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestTokenBucket_Allow(t *testing.T) {
	bucket := NewTokenBucket(5, 1) // 5 capacity, 1 refill per second

	// Should allow first 5 requests
	for i := 0; i < 5; i++ {
		if !bucket.Allow() {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	// 6th request should be denied
	if bucket.Allow() {
		t.Error("6th request should be denied")
	}

	// Wait 1 second for refill
	time.Sleep(1100 * time.Millisecond)

	// Should allow 1 more request
	if !bucket.Allow() {
		t.Error("Request after refill should be allowed")
	}
}

func TestTokenBucket_AllowN(t *testing.T) {
	bucket := NewTokenBucket(10, 2) // 10 capacity, 2 refill per second

	if !bucket.AllowN(10) {
		t.Error("AllowN(10) should be allowed")
	}

	if bucket.AllowN(1) {
		t.Error("AllowN(1) should be denied after consuming all tokens")
	}

	time.Sleep(1100 * time.Millisecond)

	if !bucket.AllowN(2) {
		t.Error("AllowN(2) should be allowed after refill")
	}
}

func TestRateLimiter_KeyIsolation(t *testing.T) {
	limiter := NewRateLimiter(2, 1)

	// Exhaust key "a"
	if !limiter.Allow("a") || !limiter.Allow("a") {
		t.Error("First 2 requests for key a should be allowed")
	}
	if limiter.Allow("a") {
		t.Error("3rd request for key a should be denied")
	}

	// Key "b" has its own bucket
	if !limiter.Allow("b") {
		t.Error("Request for key b should be allowed")
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	limiter := NewRateLimiter(100, 1)

	var wg sync.WaitGroup
	allowed := make(chan bool, 200)

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- limiter.Allow("shared")
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}

	// Exactly the bucket capacity should pass
	if count != 100 {
		t.Errorf("Expected exactly 100 allowed requests, got %d", count)
	}
}
