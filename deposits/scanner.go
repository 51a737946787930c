package deposits

import (
	"context"
	"fmt"

	"lcc-go/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ScanStatus is the outcome of one scan pass over a watched address.
type ScanStatus string

const (
	// StatusCredited means exactly one new deposit was credited this pass.
	StatusCredited ScanStatus = "credited"
	// StatusPending means a new deposit exists but lacks confirmations.
	StatusPending ScanStatus = "pending"
	// StatusNoNew means nothing unprocessed was found.
	StatusNoNew ScanStatus = "no_new"
)

// ScanResult describes what a scan found. Txid and amounts are only set for
// credited and pending statuses.
type ScanResult struct {
	Status        ScanStatus
	Txid          string
	Amount        decimal.Decimal // whole coins
	Points        decimal.Decimal
	Confirmations int64
}

// PointsFor converts a crypto amount to points at the currency's fixed rate.
func PointsFor(currency string, amount decimal.Decimal) decimal.Decimal {
	cfg := utils.Currencies[currency]
	return amount.Div(cfg.PointRate).Round(2)
}

// Scan checks a watched address for new deposits and credits at most one per
// pass. Crediting goes through the txid-keyed exactly-once write, so a scan
// racing another process never double-credits. Unconfirmed deposits are
// reported as pending with the confirmation count of the closest one.
func Scan(ctx context.Context, client *Client, userID int64, currency, address string) (*ScanResult, error) {
	cfg, ok := utils.Currencies[currency]
	if !ok {
		return nil, fmt.Errorf("unsupported currency %q", currency)
	}

	txs, err := client.AddressTxs(ctx, address)
	if err != nil {
		utils.MetricDepositScanErrors.Inc()
		return nil, fmt.Errorf("failed to fetch address txs: %w", err)
	}
	tip, err := client.TipHeight(ctx)
	if err != nil {
		utils.MetricDepositScanErrors.Inc()
		return nil, fmt.Errorf("failed to fetch tip height: %w", err)
	}

	pending := &ScanResult{Status: StatusNoNew}
	for _, tx := range txs {
		var baseUnits int64
		for _, out := range tx.Vout {
			if out.ScriptpubkeyAddress == address {
				baseUnits += out.Value
			}
		}
		if baseUnits == 0 {
			continue
		}

		processed, err := utils.IsProcessed(currency, tx.Txid)
		if err != nil {
			return nil, err
		}
		if processed {
			continue
		}

		var confirmations int64
		if tx.Status.Confirmed {
			confirmations = tip - tx.Status.BlockHeight + 1
		}

		amount := decimal.NewFromInt(baseUnits).Div(cfg.BaseUnits)
		if confirmations < utils.RequiredConfirmations {
			if pending.Status == StatusNoNew || confirmations > pending.Confirmations {
				pending = &ScanResult{
					Status:        StatusPending,
					Txid:          tx.Txid,
					Amount:        amount,
					Confirmations: confirmations,
				}
			}
			continue
		}

		points := PointsFor(currency, amount)
		applied, err := utils.CreditOnce(userID, currency, tx.Txid, amount, points)
		if err != nil {
			return nil, fmt.Errorf("failed to credit deposit: %w", err)
		}
		if !applied {
			continue
		}

		if err := utils.AppendHistory(userID, utils.HistoryEntry{
			Type:   "deposit",
			Amount: points,
			Txid:   tx.Txid,
		}); err != nil {
			utils.Log.Warn("failed to append deposit history",
				zap.Int64("user_id", userID), zap.Error(err))
		}

		utils.MetricDepositsCredited.WithLabelValues(currency).Inc()
		utils.Events.DepositCredited(userID, currency, tx.Txid, amount, points)
		utils.Log.Info("deposit credited",
			zap.Int64("user_id", userID),
			zap.String("currency", currency),
			zap.String("txid", tx.Txid),
			zap.String("amount", amount.String()),
			zap.String("points", points.String()))

		return &ScanResult{
			Status:        StatusCredited,
			Txid:          tx.Txid,
			Amount:        amount,
			Points:        points,
			Confirmations: confirmations,
		}, nil
	}

	return pending, nil
}
