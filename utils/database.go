package utils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Account is the persisted per-user state: points balance plus progression
// counters. Wallet balances and processed deposit txids live in their own
// tables keyed by (user, currency).
type Account struct {
	UserID    int64
	Points    decimal.Decimal
	TotalXP   int64
	CurrentXP int64
	Wins      int
	Losses    int
	CreatedAt time.Time
}

// Wallet holds one user's balance for a single deposit currency.
type Wallet struct {
	UserID         int64
	Currency       string
	Balance        decimal.Decimal
	DepositAddress string
	AddressIndex   int64
}

// HistoryEntry is an immutable settlement record. Only the trailing
// HistoryWindow entries are retained per account.
type HistoryEntry struct {
	Type       string // "win", "loss", "push", "deposit"
	Game       string
	Amount     decimal.Decimal
	Multiplier decimal.Decimal
	Txid       string
	CreatedAt  time.Time
}

var (
	DB            *pgxpool.Pool
	dbInitialized = false
	dbMutex       sync.RWMutex
)

// SetupDatabase initializes the connection pool. With an empty URL the store
// runs purely in memory, which is what the tests use.
func SetupDatabase(databaseURL string) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	if dbInitialized || databaseURL == "" {
		return nil
	}

	ctx := context.Background()

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 30
	config.MinConns = 8
	config.MaxConnLifetime = 45 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second
	config.ConnConfig.RuntimeParams = map[string]string{
		"application_name":  "lcc-bot",
		"timezone":          "UTC",
		"statement_timeout": "30s",
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	conn.Release()

	DB = pool
	dbInitialized = true

	return createTables()
}

// CloseDatabase closes the connection pool.
func CloseDatabase() {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	if DB != nil {
		DB.Close()
		DB = nil
		dbInitialized = false
	}
}

func createTables() error {
	ctx := context.Background()
	query := `
	CREATE TABLE IF NOT EXISTS accounts (
		user_id BIGINT PRIMARY KEY,
		points NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (points >= 0),
		total_xp BIGINT NOT NULL DEFAULT 0,
		current_xp BIGINT NOT NULL DEFAULT 0,
		wins INTEGER NOT NULL DEFAULT 0,
		losses INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS wallets (
		user_id BIGINT NOT NULL,
		currency TEXT NOT NULL,
		balance NUMERIC(20,8) NOT NULL DEFAULT 0,
		deposit_address TEXT NOT NULL DEFAULT '',
		address_index BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, currency)
	);
	CREATE TABLE IF NOT EXISTS processed_deposits (
		currency TEXT NOT NULL,
		txid TEXT NOT NULL,
		user_id BIGINT NOT NULL,
		processed_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (currency, txid)
	);
	CREATE TABLE IF NOT EXISTS history (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		entry_type TEXT NOT NULL,
		game TEXT NOT NULL DEFAULT '',
		amount NUMERIC(20,2) NOT NULL DEFAULT 0,
		multiplier NUMERIC(10,2) NOT NULL DEFAULT 0,
		txid TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_history_user_id ON history(user_id, id DESC);
	CREATE TABLE IF NOT EXISTS address_indexes (
		currency TEXT PRIMARY KEY,
		next_index BIGINT NOT NULL DEFAULT 0
	);`

	if _, err := DB.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// GetAccount retrieves an account, creating it on first interaction.
func GetAccount(userID int64) (*Account, error) {
	if DB == nil {
		return mem.getAccount(userID), nil
	}

	ctx := context.Background()
	acct := &Account{}

	query := `
		SELECT user_id, points, total_xp, current_xp, wins, losses, created_at
		FROM accounts WHERE user_id = $1`

	err := DB.QueryRow(ctx, query, userID).Scan(
		&acct.UserID, &acct.Points, &acct.TotalXP, &acct.CurrentXP,
		&acct.Wins, &acct.Losses, &acct.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return createAccount(userID)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acct, nil
}

func createAccount(userID int64) (*Account, error) {
	ctx := context.Background()
	acct := &Account{
		UserID:    userID,
		Points:    decimal.RequireFromString(StartingPoints),
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO accounts (user_id, points, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING`

	if _, err := DB.Exec(ctx, query, acct.UserID, acct.Points, acct.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return acct, nil
}

// Debit atomically subtracts amount from the account's points balance. The
// compare-and-subtract happens in a single conditional UPDATE so concurrent
// rounds cannot overdraw. Returns ErrInsufficientFunds when the balance is
// short.
func Debit(userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	if DB == nil {
		return mem.debit(userID, amount)
	}

	// Ensure the row exists so ErrNoRows below means "insufficient", not "missing".
	if _, err := GetAccount(userID); err != nil {
		return decimal.Zero, err
	}

	ctx := context.Background()
	var balance decimal.Decimal
	query := `
		UPDATE accounts SET points = points - $2
		WHERE user_id = $1 AND points >= $2
		RETURNING points`

	err := DB.QueryRow(ctx, query, userID, amount).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return decimal.Zero, ErrInsufficientFunds
		}
		return decimal.Zero, fmt.Errorf("failed to debit account: %w", err)
	}

	InvalidateAccountCache(userID)
	return balance, nil
}

// Credit atomically adds amount to the account's points balance.
func Credit(userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}

	if DB == nil {
		return mem.credit(userID, amount)
	}

	if _, err := GetAccount(userID); err != nil {
		return decimal.Zero, err
	}

	ctx := context.Background()
	var balance decimal.Decimal
	query := `
		UPDATE accounts SET points = points + $2
		WHERE user_id = $1
		RETURNING points`

	err := DB.QueryRow(ctx, query, userID, amount).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to credit account: %w", err)
	}

	InvalidateAccountCache(userID)
	return balance, nil
}

// CreditOnce credits a deposit exactly once per (currency, txid). The
// membership insert and the balance increments commit in one transaction;
// a duplicate key turns the whole call into a no-op and returns applied=false.
// This is the sole defense against double-crediting from overlapping scans.
func CreditOnce(userID int64, currency, txid string, cryptoAmount, points decimal.Decimal) (bool, error) {
	if DB == nil {
		return mem.creditOnce(userID, currency, txid, cryptoAmount, points)
	}

	if _, err := GetAccount(userID); err != nil {
		return false, err
	}
	if _, err := GetWallet(userID, currency); err != nil {
		return false, err
	}

	ctx := context.Background()
	tx, err := DB.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO processed_deposits (currency, txid, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (currency, txid) DO NOTHING`,
		currency, txid, userID)
	if err != nil {
		return false, fmt.Errorf("failed to record txid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE wallets SET balance = balance + $3
		WHERE user_id = $1 AND currency = $2`,
		userID, currency, cryptoAmount); err != nil {
		return false, fmt.Errorf("failed to credit wallet: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE accounts SET points = points + $2
		WHERE user_id = $1`,
		userID, points); err != nil {
		return false, fmt.Errorf("failed to credit points: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit deposit credit: %w", err)
	}

	InvalidateAccountCache(userID)
	return true, nil
}

// IsProcessed reports whether a deposit txid has already been credited.
func IsProcessed(currency, txid string) (bool, error) {
	if DB == nil {
		return mem.isProcessed(currency, txid), nil
	}

	ctx := context.Background()
	var exists bool
	err := DB.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM processed_deposits WHERE currency = $1 AND txid = $2)`,
		currency, txid).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check txid: %w", err)
	}
	return exists, nil
}

// RecordOutcome bumps win/loss counters and XP after a settled round. It is a
// progression side effect and must never fail the settlement itself; callers
// log the error and move on.
func RecordOutcome(userID int64, won bool, xp int64) error {
	if DB == nil {
		mem.recordOutcome(userID, won, xp)
		return nil
	}

	winInc, lossInc := 0, 0
	if won {
		winInc = 1
	} else {
		lossInc = 1
	}

	ctx := context.Background()
	_, err := DB.Exec(ctx, `
		UPDATE accounts
		SET wins = wins + $2, losses = losses + $3,
		    total_xp = total_xp + $4, current_xp = current_xp + $4
		WHERE user_id = $1`,
		userID, winInc, lossInc, xp)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	InvalidateAccountCache(userID)
	return nil
}

// AppendHistory appends an immutable settlement record, trimming the
// account's history to the trailing HistoryWindow entries.
func AppendHistory(userID int64, entry HistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if DB == nil {
		mem.appendHistory(userID, entry)
		return nil
	}

	ctx := context.Background()
	_, err := DB.Exec(ctx, `
		INSERT INTO history (user_id, entry_type, game, amount, multiplier, txid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		userID, entry.Type, entry.Game, entry.Amount, entry.Multiplier, entry.Txid, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}

	_, err = DB.Exec(ctx, `
		DELETE FROM history WHERE id IN (
			SELECT id FROM history WHERE user_id = $1
			ORDER BY id DESC OFFSET $2)`,
		userID, HistoryWindow)
	if err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}

	return nil
}

// RecentHistory returns up to limit entries, newest first.
func RecentHistory(userID int64, limit int) ([]HistoryEntry, error) {
	if DB == nil {
		return mem.recentHistory(userID, limit), nil
	}

	ctx := context.Background()
	rows, err := DB.Query(ctx, `
		SELECT entry_type, game, amount, multiplier, txid, created_at
		FROM history WHERE user_id = $1
		ORDER BY id DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.Type, &e.Game, &e.Amount, &e.Multiplier, &e.Txid, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetWallet retrieves a user's wallet for a currency, creating it if missing.
func GetWallet(userID int64, currency string) (*Wallet, error) {
	if DB == nil {
		return mem.getWallet(userID, currency), nil
	}

	ctx := context.Background()
	w := &Wallet{}

	err := DB.QueryRow(ctx, `
		SELECT user_id, currency, balance, deposit_address, address_index
		FROM wallets WHERE user_id = $1 AND currency = $2`,
		userID, currency).Scan(&w.UserID, &w.Currency, &w.Balance, &w.DepositAddress, &w.AddressIndex)
	if err != nil {
		if err == pgx.ErrNoRows {
			w = &Wallet{UserID: userID, Currency: currency, Balance: decimal.Zero}
			if _, err := DB.Exec(ctx, `
				INSERT INTO wallets (user_id, currency)
				VALUES ($1, $2)
				ON CONFLICT (user_id, currency) DO NOTHING`,
				userID, currency); err != nil {
				return nil, fmt.Errorf("failed to create wallet: %w", err)
			}
			return w, nil
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return w, nil
}

// AssignDepositAddress stores the watched address and its derivation index.
func AssignDepositAddress(userID int64, currency, address string, index int64) error {
	if DB == nil {
		mem.assignAddress(userID, currency, address, index)
		return nil
	}

	if _, err := GetWallet(userID, currency); err != nil {
		return err
	}

	ctx := context.Background()
	_, err := DB.Exec(ctx, `
		UPDATE wallets SET deposit_address = $3, address_index = $4
		WHERE user_id = $1 AND currency = $2`,
		userID, currency, address, index)
	if err != nil {
		return fmt.Errorf("failed to assign deposit address: %w", err)
	}
	return nil
}

// NextAddressIndex returns the next unused derivation index for a currency.
// Monotonic and unique across all accounts; actual key derivation is an
// external collaborator.
func NextAddressIndex(currency string) (int64, error) {
	if DB == nil {
		return mem.nextAddressIndex(currency), nil
	}

	ctx := context.Background()
	var idx int64
	err := DB.QueryRow(ctx, `
		INSERT INTO address_indexes (currency, next_index)
		VALUES ($1, 0)
		ON CONFLICT (currency) DO UPDATE SET next_index = address_indexes.next_index + 1
		RETURNING next_index`,
		currency).Scan(&idx)
	if err != nil {
		return 0, fmt.Errorf("failed to advance address index: %w", err)
	}
	return idx, nil
}
