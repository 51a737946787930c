package utils

import "testing"

func TestFairSourceDeterministic(t *testing.T) {
	a := NewFairSource("server-seed", "client-seed")
	b := NewFairSource("server-seed", "client-seed")

	for i := 0; i < 100; i++ {
		va, vb := a.Float64(), b.Float64()
		if va != vb {
			t.Fatalf("draw %d diverged: %v vs %v", i, va, vb)
		}
		if va < 0 || va >= 1 {
			t.Fatalf("draw %d out of range: %v", i, va)
		}
	}
}

func TestFairSourceNonceAdvances(t *testing.T) {
	src := NewFairSource("server-seed", "client-seed")
	if src.Float64() == src.Float64() {
		t.Error("consecutive draws should differ")
	}
}

func TestFairSourceDependsOnSeeds(t *testing.T) {
	a := NewFairSource("server-a", "client").Float64()
	b := NewFairSource("server-b", "client").Float64()
	if a == b {
		t.Error("different server seeds should produce different streams")
	}
}

func TestFairSourceIntnBounds(t *testing.T) {
	src := NewFairSource("seed", "client")
	for i := 0; i < 1000; i++ {
		v := src.Intn(25)
		if v < 0 || v >= 25 {
			t.Fatalf("Intn(25) out of range: %d", v)
		}
	}
	if src.Intn(0) != 0 {
		t.Error("Intn with non-positive bound should return 0")
	}
}

func TestServerSeedHashIsStable(t *testing.T) {
	seed := GenerateServerSeed()
	if len(seed) != 64 {
		t.Fatalf("expected 32-byte hex seed, got %d chars", len(seed))
	}
	if ServerSeedHash(seed) != ServerSeedHash(seed) {
		t.Error("hash must be deterministic")
	}
	if ServerSeedHash(seed) == seed {
		t.Error("hash must not equal the seed")
	}
}
