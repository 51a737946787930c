package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	mrand "math/rand"
	"time"
)

// RandSource is the random source every game sampler draws from. Production
// code uses a time-seeded source; tests and provably-fair verification inject
// a deterministic one.
type RandSource interface {
	Float64() float64
	Intn(n int) int
}

// NewTimeSource returns a math/rand source seeded from the wall clock.
func NewTimeSource() RandSource {
	return mrand.New(mrand.NewSource(time.Now().UnixNano()))
}

// NewSeededSource returns a deterministic source for tests.
func NewSeededSource(seed int64) RandSource {
	return mrand.New(mrand.NewSource(seed))
}

// FairSource derives its stream from HMAC-SHA256(serverSeed, clientSeed|nonce),
// so a round's outcome can be re-derived by the player once the server seed is
// revealed. The nonce advances on every draw.
type FairSource struct {
	serverSeed string
	clientSeed string
	nonce      uint64
}

// NewFairSource builds a provably-fair source for one round.
func NewFairSource(serverSeed, clientSeed string) *FairSource {
	return &FairSource{serverSeed: serverSeed, clientSeed: clientSeed}
}

// Float64 returns the next value in [0, 1).
func (f *FairSource) Float64() float64 {
	mac := hmac.New(sha256.New, []byte(f.serverSeed))
	fmt.Fprintf(mac, "%s|%d", f.clientSeed, f.nonce)
	f.nonce++
	sum := mac.Sum(nil)
	// First 53 bits of the digest map uniformly onto the float64 mantissa range.
	v := binary.BigEndian.Uint64(sum[:8]) >> 11
	return float64(v) / float64(1<<53)
}

// Intn returns a value in [0, n).
func (f *FairSource) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(f.Float64() * float64(n))
}

// GenerateServerSeed creates a random 32-byte server seed (hex).
func GenerateServerSeed() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// ServerSeedHash is published before a round so the seed can be verified after.
func ServerSeedHash(seed string) string {
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:])
}
