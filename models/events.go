// Package models defines the outbound event contracts published on the
// notification bus. Amounts travel as decimal strings so consumers never see
// binary floating point.
package models

import "time"

// BetPlacedEvent is emitted after a stake is debited.
type BetPlacedEvent struct {
	EventID  string    `json:"event_id"`
	UserID   int64     `json:"user_id"`
	Game     string    `json:"game"`
	Stake    string    `json:"stake"`
	PlacedAt time.Time `json:"placed_at"`
}

// DepositCreditedEvent is emitted once per credited on-chain deposit.
type DepositCreditedEvent struct {
	EventID    string    `json:"event_id"`
	UserID     int64     `json:"user_id"`
	Currency   string    `json:"currency"`
	Txid       string    `json:"txid"`
	Amount     string    `json:"amount"`
	Points     string    `json:"points"`
	CreditedAt time.Time `json:"credited_at"`
}

// CurseTriggeredEvent is emitted when a forced-loss flag is consumed.
type CurseTriggeredEvent struct {
	EventID     string    `json:"event_id"`
	UserID      int64     `json:"user_id"`
	Game        string    `json:"game"`
	TriggeredAt time.Time `json:"triggered_at"`
}
