package deposits

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lcc-go/utils"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Poller sweeps every watched deposit address on a cron schedule. Watches are
// registered when a user asks for their deposit address and survive until the
// process exits; a restart simply re-registers on the next /deposit.
type Poller struct {
	cron    *cron.Cron
	clients map[string]*Client

	// Static fallback addresses per currency, used when no derivation
	// collaborator assigned one yet.
	staticAddrs map[string]string

	mu      sync.Mutex
	watches map[string]watchEntry
}

type watchEntry struct {
	userID   int64
	currency string
	address  string
}

// NewPoller builds a poller with one explorer client per supported currency.
func NewPoller(cfg utils.Config) *Poller {
	return &Poller{
		cron: cron.New(),
		clients: map[string]*Client{
			"BTC": NewClient(cfg.ExplorerBTC),
			"LTC": NewClient(cfg.ExplorerLTC),
		},
		staticAddrs: map[string]string{
			"BTC": cfg.DepositAddressBTC,
			"LTC": cfg.DepositAddressLTC,
		},
		watches: make(map[string]watchEntry),
	}
}

// Start schedules the background sweep. The spec is a cron expression such as
// "@every 2m".
func (p *Poller) Start(spec string) error {
	if _, err := p.cron.AddFunc(spec, p.sweep); err != nil {
		return fmt.Errorf("failed to schedule deposit sweep: %w", err)
	}
	p.cron.Start()
	return nil
}

// Stop halts the sweep and waits for a running pass to finish.
func (p *Poller) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
}

// Watch adds an address to the sweep set. Idempotent.
func (p *Poller) Watch(userID int64, currency, address string) {
	if address == "" {
		return
	}
	p.mu.Lock()
	p.watches[fmt.Sprintf("%s:%s:%d", currency, address, userID)] = watchEntry{
		userID: userID, currency: currency, address: address,
	}
	p.mu.Unlock()
}

// ResolveAddress returns the user's deposit address for a currency, assigning
// one on first use. Assignment burns a derivation index even with the static
// fallback so a future HD collaborator slots in without schema changes.
func (p *Poller) ResolveAddress(userID int64, currency string) (string, error) {
	wallet, err := utils.GetWallet(userID, currency)
	if err != nil {
		return "", err
	}
	if wallet.DepositAddress != "" {
		return wallet.DepositAddress, nil
	}

	address := p.staticAddrs[currency]
	if address == "" {
		return "", fmt.Errorf("%w: no deposit address configured for %s", utils.ErrExternalService, currency)
	}

	index, err := utils.NextAddressIndex(currency)
	if err != nil {
		return "", err
	}
	if err := utils.AssignDepositAddress(userID, currency, address, index); err != nil {
		return "", err
	}
	return address, nil
}

// ScanNow runs one immediate scan for a user's watched address.
func (p *Poller) ScanNow(ctx context.Context, userID int64, currency string) (*ScanResult, error) {
	client, ok := p.clients[currency]
	if !ok {
		return nil, fmt.Errorf("unsupported currency %q", currency)
	}
	address, err := p.ResolveAddress(userID, currency)
	if err != nil {
		return nil, err
	}
	p.Watch(userID, currency, address)
	return Scan(ctx, client, userID, currency, address)
}

func (p *Poller) sweep() {
	p.mu.Lock()
	entries := make([]watchEntry, 0, len(p.watches))
	for _, w := range p.watches {
		entries = append(entries, w)
	}
	p.mu.Unlock()

	for _, w := range entries {
		client, ok := p.clients[w.currency]
		if !ok {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		result, err := Scan(ctx, client, w.userID, w.currency, w.address)
		cancel()
		if err != nil {
			utils.Log.Warn("deposit sweep scan failed",
				zap.Int64("user_id", w.userID),
				zap.String("currency", w.currency),
				zap.Error(err))
			continue
		}

		if result.Status == StatusPending {
			utils.Log.Debug("deposit awaiting confirmations",
				zap.Int64("user_id", w.userID),
				zap.String("currency", w.currency),
				zap.String("txid", result.Txid),
				zap.Int64("confirmations", result.Confirmations))
		}
	}
}
