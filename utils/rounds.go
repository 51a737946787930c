package utils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RoundStatus is the lifecycle state of an interactive round.
type RoundStatus string

const (
	RoundAwaitingAction RoundStatus = "awaiting_action"
	RoundResolved       RoundStatus = "resolved"
	RoundExpired        RoundStatus = "expired"
)

// Round is one interactive play from bet placement to settlement. Status
// transitions go through TryResolve so a racing player action and a timeout
// can never both settle the same round.
type Round struct {
	ID        string
	UserID    int64
	Game      string
	Stake     decimal.Decimal
	Receipt   *BetReceipt
	CreatedAt time.Time
	Deadline  time.Time

	// State holds the game-specific mutable state (revealed tiles, pump
	// count, accumulated winnings). Owned by the game package.
	State interface{}

	status RoundStatus
	mu     sync.Mutex
}

// Status returns the current lifecycle state.
func (r *Round) Status() RoundStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// TryResolve atomically transitions AwaitingAction to the given terminal
// state. First writer wins; the loser must not settle.
func (r *Round) TryResolve(to RoundStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != RoundAwaitingAction {
		return false
	}
	r.status = to
	return true
}

// IsExpired reports whether the deadline passed.
func (r *Round) IsExpired() bool {
	return time.Now().After(r.Deadline)
}

// ExpireFunc force-resolves a timed-out round. Game packages register one per
// game family: auto-cash-out when the round has accrued progress, loss
// otherwise.
type ExpireFunc func(r *Round)

// RoundRegistry guards the one-active-round-per-(user, game) invariant.
// The Redis implementation keeps the guard valid across process instances.
type RoundRegistry interface {
	TryRegister(userID int64, game string) (bool, error)
	Release(userID int64, game string) error
}

type memoryRegistry struct {
	mu   sync.Mutex
	keys map[string]bool
}

// NewMemoryRegistry returns a single-process registry.
func NewMemoryRegistry() RoundRegistry {
	return &memoryRegistry{keys: make(map[string]bool)}
}

func registryKey(userID int64, game string) string {
	return fmt.Sprintf("round:%s:%d", game, userID)
}

func (m *memoryRegistry) TryRegister(userID int64, game string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := registryKey(userID, game)
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryRegistry) Release(userID int64, game string) error {
	m.mu.Lock()
	delete(m.keys, registryKey(userID, game))
	m.mu.Unlock()
	return nil
}

type redisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRegistry returns a registry backed by SETNX, so round exclusivity
// holds even with multiple bot processes. The TTL is a safety net slightly
// beyond the round timeout in case a process dies without releasing.
func NewRedisRegistry(client *redis.Client) RoundRegistry {
	return &redisRegistry{client: client, ttl: (RoundTimeoutMinutes + 5) * time.Minute}
}

func (r *redisRegistry) TryRegister(userID int64, game string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	ok, err := r.client.SetNX(ctx, registryKey(userID, game), "1", r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to register round: %w", err)
	}
	return ok, nil
}

func (r *redisRegistry) Release(userID int64, game string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.client.Del(ctx, registryKey(userID, game)).Err(); err != nil {
		return fmt.Errorf("failed to release round: %w", err)
	}
	return nil
}

// RoundManager tracks active rounds and force-resolves the ones that time out.
type RoundManager struct {
	registry RoundRegistry

	mu       sync.RWMutex
	rounds   map[string]*Round // by round ID
	byUser   map[string]*Round // by registry key
	onExpire map[string]ExpireFunc

	sweepTicker *time.Ticker
	done        chan bool
}

// Rounds is the global round manager.
var Rounds *RoundManager

// InitializeRounds sets up round tracking with the given exclusivity registry.
func InitializeRounds(registry RoundRegistry) {
	Rounds = &RoundManager{
		registry: registry,
		rounds:   make(map[string]*Round),
		byUser:   make(map[string]*Round),
		onExpire: make(map[string]ExpireFunc),
		done:     make(chan bool),
	}

	Rounds.sweepTicker = time.NewTicker(30 * time.Second)
	go Rounds.sweepRoutine()
}

// CloseRounds stops the expiry sweeper.
func CloseRounds() {
	if Rounds != nil && Rounds.sweepTicker != nil {
		Rounds.sweepTicker.Stop()
		Rounds.done <- true
	}
}

// RegisterExpiryHandler installs the forced-resolution policy for a game
// family. Game packages call this at startup.
func (rm *RoundManager) RegisterExpiryHandler(game string, fn ExpireFunc) {
	rm.mu.Lock()
	rm.onExpire[game] = fn
	rm.mu.Unlock()
}

// Open registers a new round for the user. Returns ErrGameInProgress before
// any debit happens when the user already has an active round in this game
// family.
func (rm *RoundManager) Open(userID int64, game string, state interface{}) (*Round, error) {
	ok, err := rm.registry.TryRegister(userID, game)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrGameInProgress
	}

	now := time.Now()
	round := &Round{
		ID:        uuid.NewString(),
		UserID:    userID,
		Game:      game,
		CreatedAt: now,
		Deadline:  now.Add(RoundTimeoutMinutes * time.Minute),
		State:     state,
		status:    RoundAwaitingAction,
	}

	rm.mu.Lock()
	rm.rounds[round.ID] = round
	rm.byUser[registryKey(userID, game)] = round
	rm.mu.Unlock()

	MetricActiveRounds.Inc()
	return round, nil
}

// Get returns the user's active round for a game family.
func (rm *RoundManager) Get(userID int64, game string) (*Round, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	round, ok := rm.byUser[registryKey(userID, game)]
	return round, ok
}

// Close removes a settled or expired round from tracking and releases the
// exclusivity guard.
func (rm *RoundManager) Close(round *Round) {
	rm.mu.Lock()
	delete(rm.rounds, round.ID)
	delete(rm.byUser, registryKey(round.UserID, round.Game))
	rm.mu.Unlock()

	if err := rm.registry.Release(round.UserID, round.Game); err != nil {
		Log.Warn("failed to release round registry entry",
			zap.Int64("user_id", round.UserID), zap.String("game", round.Game), zap.Error(err))
	}
	MetricActiveRounds.Dec()
}

func (rm *RoundManager) sweepRoutine() {
	for {
		select {
		case <-rm.sweepTicker.C:
			rm.sweepExpired()
		case <-rm.done:
			return
		}
	}
}

// sweepExpired force-resolves rounds past their deadline. The TryResolve
// guard means a player action racing the sweep settles at most once.
func (rm *RoundManager) sweepExpired() {
	rm.mu.RLock()
	expired := make([]*Round, 0)
	for _, round := range rm.rounds {
		if round.IsExpired() {
			expired = append(expired, round)
		}
	}
	rm.mu.RUnlock()

	for _, round := range expired {
		if !round.TryResolve(RoundExpired) {
			continue
		}

		rm.mu.RLock()
		handler := rm.onExpire[round.Game]
		rm.mu.RUnlock()

		if handler != nil {
			handler(round)
		}
		rm.Close(round)

		Log.Info("round force-resolved on timeout",
			zap.String("round_id", round.ID),
			zap.Int64("user_id", round.UserID),
			zap.String("game", round.Game))
	}
}
