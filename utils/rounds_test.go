package utils

import (
	"errors"
	"sync"
	"testing"
)

func newTestManager() *RoundManager {
	return &RoundManager{
		registry: NewMemoryRegistry(),
		rounds:   make(map[string]*Round),
		byUser:   make(map[string]*Round),
		onExpire: make(map[string]ExpireFunc),
	}
}

func TestRoundExclusivityPerGame(t *testing.T) {
	rm := newTestManager()

	round, err := rm.Open(1, "mines", nil)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	if _, err := rm.Open(1, "mines", nil); !errors.Is(err, ErrGameInProgress) {
		t.Errorf("expected ErrGameInProgress for duplicate open, got %v", err)
	}

	// A different game family is a separate slot.
	if _, err := rm.Open(1, "pump", nil); err != nil {
		t.Errorf("open in another game family should succeed, got %v", err)
	}

	rm.Close(round)
	if _, err := rm.Open(1, "mines", nil); err != nil {
		t.Errorf("open after close should succeed, got %v", err)
	}
}

func TestTryResolveFirstWriterWins(t *testing.T) {
	rm := newTestManager()
	round, err := rm.Open(2, "mines", nil)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(expired bool) {
			defer wg.Done()
			to := RoundResolved
			if expired {
				to = RoundExpired
			}
			if round.TryResolve(to) {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i%2 == 0)
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("expected exactly one resolver, got %d", winners)
	}
	if round.Status() == RoundAwaitingAction {
		t.Error("round should have left the awaiting state")
	}
}

func TestGetReturnsActiveRound(t *testing.T) {
	rm := newTestManager()
	round, _ := rm.Open(3, "plinko", "state")

	got, ok := rm.Get(3, "plinko")
	if !ok || got.ID != round.ID {
		t.Fatal("expected to find the active round")
	}
	if got.State != "state" {
		t.Errorf("state not carried on the round")
	}

	rm.Close(round)
	if _, ok := rm.Get(3, "plinko"); ok {
		t.Error("closed round should not be retrievable")
	}
}

func TestMemoryRegistry(t *testing.T) {
	reg := NewMemoryRegistry()

	ok, err := reg.TryRegister(1, "mines")
	if err != nil || !ok {
		t.Fatalf("first register should succeed, got ok=%v err=%v", ok, err)
	}
	ok, _ = reg.TryRegister(1, "mines")
	if ok {
		t.Error("second register for the same key should fail")
	}

	if err := reg.Release(1, "mines"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	ok, _ = reg.TryRegister(1, "mines")
	if !ok {
		t.Error("register after release should succeed")
	}
}
