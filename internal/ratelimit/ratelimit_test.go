package ratelimit

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAdmitBoundary(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	l := NewWithClock(3, 60*time.Second, clock.Now)

	key := Key("tok", "1.2.3.4")
	for i := 0; i < 3; i++ {
		if !l.Admit(key) {
			t.Fatalf("request %d rejected, want admitted", i+1)
		}
	}

	if l.Admit(key) {
		t.Error("4th request within window admitted, want rejected")
	}
}

func TestAdmitResumesAfterWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	l := NewWithClock(3, 60*time.Second, clock.Now)

	key := Key("tok", "1.2.3.4")
	for i := 0; i < 3; i++ {
		l.Admit(key)
	}
	if l.Admit(key) {
		t.Fatal("request over limit admitted")
	}

	clock.Advance(61 * time.Second)

	if !l.Admit(key) {
		t.Error("request after window elapsed rejected, want admitted")
	}
}

func TestAdmitSlidingWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	l := NewWithClock(2, 60*time.Second, clock.Now)

	key := Key("tok", "1.2.3.4")

	l.Admit(key) // t=0
	clock.Advance(40 * time.Second)
	l.Admit(key) // t=40

	clock.Advance(10 * time.Second) // t=50: both still in window
	if l.Admit(key) {
		t.Error("request at t=50 admitted, want rejected")
	}

	clock.Advance(15 * time.Second) // t=65: t=0 admission aged out
	if !l.Admit(key) {
		t.Error("request at t=65 rejected, want admitted")
	}
}

func TestAdmitIndependentKeys(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	l := NewWithClock(1, 60*time.Second, clock.Now)

	if !l.Admit(Key("tok", "1.2.3.4")) {
		t.Fatal("first key rejected")
	}
	if !l.Admit(Key("tok", "5.6.7.8")) {
		t.Error("different source rejected, keys should be independent")
	}
	if !l.Admit(Key("other", "1.2.3.4")) {
		t.Error("different token rejected, keys should be independent")
	}
}

func TestAdmitConcurrentNeverExceedsMax(t *testing.T) {
	const max = 10
	l := New(max, time.Minute)
	key := Key("tok", "1.2.3.4")

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Admit(key) {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != max {
		t.Errorf("admitted = %d, want exactly %d", admitted, max)
	}
}

func TestSweepDropsIdleKeys(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	l := NewWithClock(3, 60*time.Second, clock.Now)

	l.Admit(Key("a", "1.1.1.1"))
	l.Admit(Key("b", "2.2.2.2"))
	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}

	clock.Advance(2 * time.Minute)
	l.Admit(Key("b", "2.2.2.2"))
	l.Sweep()

	if l.Len() != 1 {
		t.Errorf("Len after sweep = %d, want 1", l.Len())
	}
}
