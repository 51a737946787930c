package utils

import (
	"sync"
	"time"
)

// CacheEntry represents a cached account entry
type CacheEntry struct {
	Account   *Account
	ExpiresAt time.Time
}

// AccountCache keeps recently read accounts in memory to avoid hitting the
// store on every command. Balances are always mutated through the store, so
// the cache is invalidated rather than updated on writes.
type AccountCache struct {
	data          map[int64]*CacheEntry
	mutex         sync.RWMutex
	ttl           time.Duration
	cleanupTicker *time.Ticker
	done          chan bool
}

// Global cache instance
var Cache *AccountCache

// InitializeCache sets up the account cache system
func InitializeCache(ttl time.Duration) {
	Cache = &AccountCache{
		data: make(map[int64]*CacheEntry),
		ttl:  ttl,
		done: make(chan bool),
	}

	Cache.cleanupTicker = time.NewTicker(5 * time.Minute)
	go Cache.cleanupRoutine()
}

// CloseCache stops the cache cleanup routine
func CloseCache() {
	if Cache != nil && Cache.cleanupTicker != nil {
		Cache.cleanupTicker.Stop()
		Cache.done <- true
	}
}

// Get retrieves an account from cache
func (ac *AccountCache) Get(userID int64) (*Account, bool) {
	ac.mutex.RLock()
	entry, exists := ac.data[userID]
	ac.mutex.RUnlock()

	if !exists {
		return nil, false
	}

	if time.Now().After(entry.ExpiresAt) {
		ac.mutex.Lock()
		delete(ac.data, userID)
		ac.mutex.Unlock()
		return nil, false
	}

	// Return a copy to prevent external modifications
	copy := *entry.Account
	return &copy, true
}

// Set stores an account in cache
func (ac *AccountCache) Set(userID int64, acct *Account) {
	copy := *acct
	entry := &CacheEntry{
		Account:   &copy,
		ExpiresAt: time.Now().Add(ac.ttl),
	}

	ac.mutex.Lock()
	ac.data[userID] = entry
	ac.mutex.Unlock()
}

// Delete removes an account from cache
func (ac *AccountCache) Delete(userID int64) {
	ac.mutex.Lock()
	delete(ac.data, userID)
	ac.mutex.Unlock()
}

// Size returns the number of entries in cache
func (ac *AccountCache) Size() int {
	ac.mutex.RLock()
	defer ac.mutex.RUnlock()
	return len(ac.data)
}

func (ac *AccountCache) cleanupRoutine() {
	for {
		select {
		case <-ac.cleanupTicker.C:
			ac.cleanup()
		case <-ac.done:
			return
		}
	}
}

func (ac *AccountCache) cleanup() {
	now := time.Now()
	expired := make([]int64, 0)

	ac.mutex.RLock()
	for userID, entry := range ac.data {
		if now.After(entry.ExpiresAt) {
			expired = append(expired, userID)
		}
	}
	ac.mutex.RUnlock()

	if len(expired) > 0 {
		ac.mutex.Lock()
		for _, userID := range expired {
			delete(ac.data, userID)
		}
		ac.mutex.Unlock()
	}
}

// GetCachedAccount retrieves account data from cache or the store.
func GetCachedAccount(userID int64) (*Account, error) {
	if Cache != nil {
		if acct, found := Cache.Get(userID); found {
			return acct, nil
		}
	}

	acct, err := GetAccount(userID)
	if err != nil {
		return nil, err
	}

	if Cache != nil {
		Cache.Set(userID, acct)
	}

	return acct, nil
}

// InvalidateAccountCache removes an account from cache after a balance write.
func InvalidateAccountCache(userID int64) {
	if Cache != nil {
		Cache.Delete(userID)
	}
}
