// FILE: main.go
// Package main – Program entrypoint: config load, store/port wiring,
// reconcile-at-startup, /healthz + /metrics HTTP server, and the
// StrategyRunner main loop — adapted from the teacher's main.go boot
// sequence and live.go's signal-driven shutdown.
//
// Flags:
//   -config <path>   Path to settings.yaml (default config/settings.yaml)
//   -port <n>        HTTP port for /healthz and /metrics (default 8080)
//
// Paper mode (trading.paper_trading: true in settings.yaml, the
// default) needs no exchange credentials or GATEWAY_URL. Live mode
// reads GATEWAY_URL for the execution gateway and {ID}_API_KEY/_SECRET/
// optional _PASSWORD per enabled exchange (spec §6).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kwonlabs/xge/internal/config"
	"github.com/kwonlabs/xge/internal/delta"
	"github.com/kwonlabs/xge/internal/entry"
	"github.com/kwonlabs/xge/internal/exchange"
	"github.com/kwonlabs/xge/internal/exit"
	"github.com/kwonlabs/xge/internal/marketdata"
	"github.com/kwonlabs/xge/internal/model"
	"github.com/kwonlabs/xge/internal/notify"
	"github.com/kwonlabs/xge/internal/position"
	"github.com/kwonlabs/xge/internal/reserve"
	"github.com/kwonlabs/xge/internal/store"
	"github.com/kwonlabs/xge/internal/strategy"
	"github.com/kwonlabs/xge/internal/telemetry"
	"github.com/kwonlabs/xge/internal/tier"
	"github.com/kwonlabs/xge/internal/validator"
)

// ReconcileMaxAge bounds how long a position may stay open before
// startup reconciliation force-closes it as stale (spec §4.4).
const ReconcileMaxAge = 7 * 24 * time.Hour

func main() {
	var configPath string
	var port int
	flag.StringVar(&configPath, "config", "config/settings.yaml", "Path to settings.yaml")
	flag.IntVar(&port, "port", 8080, "HTTP port for /healthz and /metrics")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := newBackingStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer s.Close()

	tiers := tier.NewRegistry(tier.DefaultTiers(), tier.DefaultBlacklist(), tier.DefaultFeeSchedules())
	view := marketdata.New(s)
	positions := position.New(s, cfg.Trading.MaxPositionsPerExchange, cfg.Trading.MaxTotalPositions)

	if cleaned, err := positions.Reconcile(ctx, time.Now(), ReconcileMaxAge, tiers); err != nil {
		log.Fatalf("reconcile: %v", err)
	} else if cleaned > 0 {
		log.Printf("reconcile: closed %d stale position(s) at startup", cleaned)
	}

	executor, marketPort := newExecutor(cfg, view, tiers)
	val := validator.New(marketPort, tiers)
	monitor := delta.New(s, view, tiers, cfg.Trading.PaperTrading)

	pollInterval := time.Duration(cfg.Funding.PollIntervalSec) * time.Second
	entries := entry.New(view, tiers, positions, val, executor, cfg.Trading.MinEntryAnnualizedPct, pollInterval, cfg.Capital.Operative, cfg.Trading.PaperTrading)
	exits := exit.New(view, positions, tiers, monitor, executor, pollInterval)
	guard := reserve.New(positions, exits, cfg.Capital.Total, cfg.Capital.Operative)

	notifier := newNotifier()
	tel := telemetry.New()

	runner := strategy.New(
		view, tiers, positions, entries, exits, guard, monitor, notifier, tel,
		cfg.Trading.Exchanges, cfg.Symbols,
		strategy.Capital{
			Total: cfg.Capital.Total, Operative: cfg.Capital.Operative,
			ReserveRebalance: cfg.Capital.ReserveRebalance, StableBuffer: cfg.Capital.StableBuffer,
		},
		time.Duration(cfg.Trading.CheckIntervalSec)*time.Second,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(tel.Registry(), promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		log.Printf("serving /healthz and /metrics on :%d", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	if !cfg.Trading.Enabled {
		log.Println("trading.enabled=false; serving health/metrics only until shutdown")
		<-ctx.Done()
	} else {
		log.Printf("xge starting: paper=%v exchanges=%v symbols=%v check_interval=%ds",
			cfg.Trading.PaperTrading, cfg.Trading.Exchanges, cfg.Symbols, cfg.Trading.CheckIntervalSec)
		runner.Run(ctx)
	}

	shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
	defer c()
	_ = srv.Shutdown(shutdownCtx)
}

// newBackingStore dials Redis when configured, falling back to an
// in-memory store for paper-only local runs with no redis.host set.
func newBackingStore(ctx context.Context, cfg config.Settings) (store.Store, error) {
	if cfg.Redis.Host == "" {
		log.Println("store: no redis host configured; using in-memory store")
		return store.NewMemoryStore(), nil
	}
	addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	s, err := store.NewRedisStore(ctx, addr, 0)
	if err != nil {
		return nil, fmt.Errorf("redis connect %s: %w", addr, err)
	}
	log.Printf("store: connected to redis at %s", addr)
	return s, nil
}

// newExecutor builds the OrderExecutionPort and the MarketDataPort the
// validator reads from. Paper mode prices fills and validates pairs
// against cached order books only (storeBackedMarket); live mode routes
// both ports through the same GatewayExecutor, the external exchange
// gateway collaborator of spec §1(a).
func newExecutor(cfg config.Settings, view *marketdata.View, tiers *tier.Registry) (exchange.OrderExecutionPort, exchange.MarketDataPort) {
	if cfg.Trading.PaperTrading {
		log.Println("executor: paper trading (simulated fills against cached order books)")
		market := storeBackedMarket{view}
		return exchange.NewPaperExecutor(market, tiers), market
	}
	g := exchange.NewGatewayExecutor(os.Getenv("GATEWAY_URL"))
	for _, ex := range cfg.EnabledExchanges() {
		creds := config.CredentialsFor(ex.ID)
		if creds.APIKey == "" {
			log.Printf("executor: warning: %s enabled but %s_API_KEY is unset", ex.ID, upperID(ex.ID))
		}
	}
	log.Println("executor: live gateway mode")
	return g, g
}

func upperID(id string) string {
	b := []byte(id)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

// newNotifier builds the trade-event notifier: a webhook poster when
// NOTIFY_WEBHOOK_URL is set, otherwise the structured-log default.
func newNotifier() notify.Notifier {
	if url := os.Getenv("NOTIFY_WEBHOOK_URL"); url != "" {
		log.Printf("notifier: webhook mode (%s)", url)
		return notify.NewWebhookNotifier(url)
	}
	return notify.LogNotifier{}
}

// storeBackedMarket adapts marketdata.View's cached reads to
// exchange.MarketDataPort so PaperExecutor can price fills against the
// same snapshots the entry/exit gates read, without a live exchange
// connection. PaperExecutor only ever calls GetOrderBook; the
// remaining four methods exist to satisfy the port and are delegated
// to the validator's own gateway-free paths (funding rate mirrors the
// cached funding entry, funding history/volume/OI are unavailable without a gateway and
// surface as a non-blocking validator note).
type storeBackedMarket struct {
	view *marketdata.View
}

func (m storeBackedMarket) GetOrderBook(ctx context.Context, exchangeID, symbol string) (model.OrderBookSnapshot, error) {
	snap, ok, err := m.view.LatestOrderBook(ctx, exchangeID, symbol)
	if err != nil {
		return model.OrderBookSnapshot{}, err
	}
	if !ok {
		return model.OrderBookSnapshot{}, fmt.Errorf("no cached order book for %s:%s", exchangeID, symbol)
	}
	return snap, nil
}

func (m storeBackedMarket) GetFundingRate(ctx context.Context, exchangeID, symbol string) (model.FundingEntry, error) {
	entry, ok, err := m.view.LatestFunding(ctx, exchangeID, symbol)
	if err != nil {
		return model.FundingEntry{}, err
	}
	if !ok {
		return model.FundingEntry{}, fmt.Errorf("no cached funding entry for %s:%s", exchangeID, symbol)
	}
	return entry, nil
}

func (m storeBackedMarket) GetFundingHistory(ctx context.Context, exchangeID, symbol string, periods int) ([]model.FundingEntry, error) {
	return nil, fmt.Errorf("funding history unavailable without a live exchange gateway")
}

func (m storeBackedMarket) GetVolume24h(ctx context.Context, exchangeID, symbol string) (float64, error) {
	return 0, fmt.Errorf("24h volume unavailable without a live exchange gateway")
}

func (m storeBackedMarket) GetOpenInterest(ctx context.Context, exchangeID, symbol string) (current, dayAgo float64, err error) {
	return 0, 0, fmt.Errorf("open interest unavailable without a live exchange gateway")
}
