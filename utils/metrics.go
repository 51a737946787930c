package utils

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	MetricBetsPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casino_bets_placed_total",
		Help: "Bets accepted and debited, by game.",
	}, []string{"game"})

	MetricSettlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casino_settlements_total",
		Help: "Settled rounds, by game and classification.",
	}, []string{"game", "result"})

	MetricDepositsCredited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casino_deposits_credited_total",
		Help: "On-chain deposits credited, by currency.",
	}, []string{"currency"})

	MetricDepositScanErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "casino_deposit_scan_errors_total",
		Help: "Explorer scans that failed with a transport or parse error.",
	})

	MetricActiveRounds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "casino_active_rounds",
		Help: "Interactive rounds currently awaiting player action.",
	})
)

// StartMetricsServer serves /metrics and /healthz on a dedicated port.
func StartMetricsServer(port string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics server listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
}
