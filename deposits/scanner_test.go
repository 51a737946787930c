package deposits

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"lcc-go/utils"

	"github.com/shopspring/decimal"
)

const testAddr = "bc1qtestaddress"

type fakeExplorer struct {
	txsJSON   string
	tipHeight int64
	txsStatus int
}

func (f *fakeExplorer) serve() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/address/"+testAddr+"/txs", func(w http.ResponseWriter, _ *http.Request) {
		if f.txsStatus != 0 {
			w.WriteHeader(f.txsStatus)
			return
		}
		fmt.Fprint(w, f.txsJSON)
	})
	mux.HandleFunc("/blocks/tip/height", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "%d", f.tipHeight)
	})
	return httptest.NewServer(mux)
}

func confirmedTx(txid string, height, value int64) string {
	return fmt.Sprintf(`{"txid":%q,"status":{"confirmed":true,"block_height":%d},"vout":[{"scriptpubkey_address":%q,"value":%d}]}`,
		txid, height, testAddr, value)
}

func TestScanCreditsConfirmedDeposit(t *testing.T) {
	utils.ResetMemoryStore()

	// 0.01 BTC mined at height 100 with the tip at 101 has exactly the two
	// required confirmations.
	f := &fakeExplorer{
		txsJSON:   "[" + confirmedTx("tx-1", 100, 1_000_000) + "]",
		tipHeight: 101,
	}
	srv := f.serve()
	defer srv.Close()

	client := NewClient(srv.URL)
	result, err := Scan(context.Background(), client, 1, "BTC", testAddr)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if result.Status != StatusCredited {
		t.Fatalf("status = %s, want credited", result.Status)
	}
	if !result.Amount.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("amount = %s, want 0.01", result.Amount)
	}
	if !result.Points.Equal(decimal.RequireFromString("41666.67")) {
		t.Errorf("points = %s, want 41666.67", result.Points)
	}

	acct, _ := utils.GetAccount(1)
	want := decimal.RequireFromString(utils.StartingPoints).Add(decimal.RequireFromString("41666.67"))
	if !acct.Points.Equal(want) {
		t.Errorf("balance = %s, want %s", acct.Points, want)
	}

	wallet, _ := utils.GetWallet(1, "BTC")
	if !wallet.Balance.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("wallet balance = %s, want 0.01", wallet.Balance)
	}
}

func TestScanNeverCreditsTwice(t *testing.T) {
	utils.ResetMemoryStore()

	f := &fakeExplorer{
		txsJSON:   "[" + confirmedTx("tx-1", 100, 1_000_000) + "]",
		tipHeight: 101,
	}
	srv := f.serve()
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := Scan(context.Background(), client, 1, "BTC", testAddr); err != nil {
		t.Fatalf("first scan failed: %v", err)
	}

	result, err := Scan(context.Background(), client, 1, "BTC", testAddr)
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if result.Status != StatusNoNew {
		t.Errorf("second scan status = %s, want no_new", result.Status)
	}

	acct, _ := utils.GetAccount(1)
	want := decimal.RequireFromString(utils.StartingPoints).Add(decimal.RequireFromString("41666.67"))
	if !acct.Points.Equal(want) {
		t.Errorf("repeat scan changed the balance: %s, want %s", acct.Points, want)
	}
}

func TestScanReportsPendingBelowThreshold(t *testing.T) {
	utils.ResetMemoryStore()

	// Mined at the tip means one confirmation, one short of the threshold.
	f := &fakeExplorer{
		txsJSON:   "[" + confirmedTx("tx-2", 101, 500_000) + "]",
		tipHeight: 101,
	}
	srv := f.serve()
	defer srv.Close()

	result, err := Scan(context.Background(), NewClient(srv.URL), 1, "BTC", testAddr)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if result.Status != StatusPending {
		t.Fatalf("status = %s, want pending", result.Status)
	}
	if result.Confirmations != 1 {
		t.Errorf("confirmations = %d, want 1", result.Confirmations)
	}

	acct, _ := utils.GetAccount(1)
	if !acct.Points.Equal(decimal.RequireFromString(utils.StartingPoints)) {
		t.Error("pending deposit must not credit")
	}
}

func TestScanIgnoresUnconfirmedMempool(t *testing.T) {
	utils.ResetMemoryStore()

	f := &fakeExplorer{
		txsJSON: fmt.Sprintf(`[{"txid":"tx-3","status":{"confirmed":false,"block_height":0},"vout":[{"scriptpubkey_address":%q,"value":200000}]}]`,
			testAddr),
		tipHeight: 101,
	}
	srv := f.serve()
	defer srv.Close()

	result, err := Scan(context.Background(), NewClient(srv.URL), 1, "BTC", testAddr)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if result.Status != StatusPending || result.Confirmations != 0 {
		t.Errorf("mempool tx should report pending with 0 confirmations, got %+v", result)
	}
}

func TestScanCreditsAtMostOnePerPass(t *testing.T) {
	utils.ResetMemoryStore()

	f := &fakeExplorer{
		txsJSON: "[" +
			confirmedTx("tx-a", 90, 1_000_000) + "," +
			confirmedTx("tx-b", 91, 2_000_000) +
			"]",
		tipHeight: 101,
	}
	srv := f.serve()
	defer srv.Close()

	client := NewClient(srv.URL)
	first, err := Scan(context.Background(), client, 1, "BTC", testAddr)
	if err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	if first.Status != StatusCredited || first.Txid != "tx-a" {
		t.Fatalf("first pass should credit tx-a only, got %+v", first)
	}

	second, err := Scan(context.Background(), client, 1, "BTC", testAddr)
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if second.Status != StatusCredited || second.Txid != "tx-b" {
		t.Fatalf("second pass should credit tx-b, got %+v", second)
	}
}

func TestScanIgnoresOutputsToOtherAddresses(t *testing.T) {
	utils.ResetMemoryStore()

	f := &fakeExplorer{
		txsJSON: `[{"txid":"tx-4","status":{"confirmed":true,"block_height":90},"vout":[{"scriptpubkey_address":"bc1qsomeoneelse","value":1000000}]}]`,
		tipHeight: 101,
	}
	srv := f.serve()
	defer srv.Close()

	result, err := Scan(context.Background(), NewClient(srv.URL), 1, "BTC", testAddr)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if result.Status != StatusNoNew {
		t.Errorf("status = %s, want no_new", result.Status)
	}
}

func TestScanExplorerErrorSurfaces(t *testing.T) {
	utils.ResetMemoryStore()

	f := &fakeExplorer{txsStatus: http.StatusServiceUnavailable, tipHeight: 101}
	srv := f.serve()
	defer srv.Close()

	if _, err := Scan(context.Background(), NewClient(srv.URL), 1, "BTC", testAddr); err == nil {
		t.Fatal("expected an error from a failing explorer")
	}
}

func TestPointsFor(t *testing.T) {
	if got := PointsFor("BTC", decimal.RequireFromString("0.01")); !got.Equal(decimal.RequireFromString("41666.67")) {
		t.Errorf("BTC conversion = %s, want 41666.67", got)
	}
	if got := PointsFor("LTC", decimal.RequireFromString("0.5")); !got.Equal(decimal.RequireFromString("6250")) {
		t.Errorf("LTC conversion = %s, want 6250", got)
	}
}
