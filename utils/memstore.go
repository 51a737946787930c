package utils

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// memStore is the in-process fallback used when no DATABASE_URL is configured.
// All mutations happen under one lock, so the atomicity guarantees match the
// conditional-update semantics of the Postgres path.
type memStore struct {
	mu        sync.Mutex
	accounts  map[int64]*Account
	wallets   map[int64]map[string]*Wallet
	processed map[string]map[string]bool
	history   map[int64][]HistoryEntry
	indexes   map[string]int64
}

var mem = newMemStore()

func newMemStore() *memStore {
	return &memStore{
		accounts:  make(map[int64]*Account),
		wallets:   make(map[int64]map[string]*Wallet),
		processed: make(map[string]map[string]bool),
		history:   make(map[int64][]HistoryEntry),
		indexes:   make(map[string]int64),
	}
}

// ResetMemoryStore clears the in-memory store. Test helper.
func ResetMemoryStore() {
	mem = newMemStore()
}

func (m *memStore) getOrCreate(userID int64) *Account {
	acct, ok := m.accounts[userID]
	if !ok {
		acct = &Account{
			UserID:    userID,
			Points:    decimal.RequireFromString(StartingPoints),
			CreatedAt: time.Now(),
		}
		m.accounts[userID] = acct
	}
	return acct
}

func (m *memStore) getAccount(userID int64) *Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *m.getOrCreate(userID)
	return &copy
}

func (m *memStore) debit(userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct := m.getOrCreate(userID)
	if acct.Points.LessThan(amount) {
		return decimal.Zero, ErrInsufficientFunds
	}
	acct.Points = acct.Points.Sub(amount)
	return acct.Points, nil
}

func (m *memStore) credit(userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct := m.getOrCreate(userID)
	acct.Points = acct.Points.Add(amount)
	return acct.Points, nil
}

func (m *memStore) creditOnce(userID int64, currency, txid string, cryptoAmount, points decimal.Decimal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.processed[currency]
	if !ok {
		set = make(map[string]bool)
		m.processed[currency] = set
	}
	if set[txid] {
		return false, nil
	}
	set[txid] = true

	w := m.walletLocked(userID, currency)
	w.Balance = w.Balance.Add(cryptoAmount)
	m.getOrCreate(userID).Points = m.getOrCreate(userID).Points.Add(points)
	return true, nil
}

func (m *memStore) isProcessed(currency, txid string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed[currency][txid]
}

func (m *memStore) recordOutcome(userID int64, won bool, xp int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct := m.getOrCreate(userID)
	if won {
		acct.Wins++
	} else {
		acct.Losses++
	}
	acct.TotalXP += xp
	acct.CurrentXP += xp
}

func (m *memStore) appendHistory(userID int64, entry HistoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := append(m.history[userID], entry)
	if len(entries) > HistoryWindow {
		entries = entries[len(entries)-HistoryWindow:]
	}
	m.history[userID] = entries
}

func (m *memStore) recentHistory(userID int64, limit int) []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.history[userID]
	out := make([]HistoryEntry, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out
}

func (m *memStore) walletLocked(userID int64, currency string) *Wallet {
	byCur, ok := m.wallets[userID]
	if !ok {
		byCur = make(map[string]*Wallet)
		m.wallets[userID] = byCur
	}
	w, ok := byCur[currency]
	if !ok {
		w = &Wallet{UserID: userID, Currency: currency, Balance: decimal.Zero}
		byCur[currency] = w
	}
	return w
}

func (m *memStore) getWallet(userID int64, currency string) *Wallet {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *m.walletLocked(userID, currency)
	return &copy
}

func (m *memStore) assignAddress(userID int64, currency, address string, index int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.walletLocked(userID, currency)
	w.DepositAddress = address
	w.AddressIndex = index
}

func (m *memStore) nextAddressIndex(currency string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexes[currency]
	m.indexes[currency] = idx + 1
	return idx
}
