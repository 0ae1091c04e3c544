// internal/bot/runner.go
package bot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/laurent357/Sniping-bot/internal/analyzer"
	"github.com/laurent357/Sniping-bot/internal/broadcast"
	"github.com/laurent357/Sniping-bot/internal/config"
	"github.com/laurent357/Sniping-bot/internal/dex"
	"github.com/laurent357/Sniping-bot/internal/events"
	"github.com/laurent357/Sniping-bot/internal/export"
	"github.com/laurent357/Sniping-bot/internal/gateway"
	"github.com/laurent357/Sniping-bot/internal/market"
	"github.com/laurent357/Sniping-bot/internal/sniping"
	"github.com/laurent357/Sniping-bot/internal/storage"
	"github.com/laurent357/Sniping-bot/internal/storage/postgres"
	"github.com/laurent357/Sniping-bot/internal/strategy"
)

// Runner wires the whole pipeline: venue monitors feed the analyzer,
// matches go through the rule engine to the execution gateway, and the
// event bus fans activity out to websocket clients and storage.
type Runner struct {
	cfg    *config.Config
	logger *zap.Logger

	bus      *events.Bus
	engine   *strategy.Engine
	gateway  *gateway.Client
	service  *sniping.Service
	jupiter  *dex.JupiterClient
	rpcPool  *dex.RPCPool
	monitors []*market.Monitor
	ws       *broadcast.Server
	recorder *storage.Recorder

	shutdownCh chan os.Signal
}

// rpcHealthInterval paces the RPC endpoint health checks.
const rpcHealthInterval = time.Minute

// NewRunner builds every component from the configuration.
func NewRunner(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	bus := events.NewBus(logger, 256)

	engine := strategy.NewEngine(logger)
	strategies, err := strategy.LoadFromFile(cfg.StrategiesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load strategies: %w", err)
	}
	for _, s := range strategies {
		if err := engine.AddStrategy(s); err != nil {
			return nil, err
		}
	}

	gatewayClient, err := gateway.NewClient(
		cfg.IPCSocketPath,
		time.Duration(cfg.IPCTimeout)*time.Millisecond,
		logger,
	)
	if err != nil {
		return nil, err
	}

	service, err := sniping.NewService(sniping.Config{
		Executor: gatewayClient,
		Engine:   engine,
		Bus:      bus,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	jupiter, pool, bundles, err := dex.BuildVenues(cfg, logger)
	if err != nil {
		return nil, err
	}

	runner := &Runner{
		cfg:        cfg,
		logger:     logger,
		bus:        bus,
		engine:     engine,
		gateway:    gatewayClient,
		service:    service,
		jupiter:    jupiter,
		rpcPool:    pool,
		shutdownCh: make(chan os.Signal, 1),
	}

	analyzerCfg := analyzer.Config{
		MinLiquidityUSD:    decimal.NewFromFloat(cfg.MinLiquidityUSD),
		MinVolume24hUSD:    decimal.NewFromFloat(cfg.MinVolume24hUSD),
		MaxPriceImpactPct:  decimal.NewFromFloat(cfg.MaxPriceImpact),
		MinProfitThreshold: decimal.NewFromFloat(cfg.MinProfitThreshold),
	}

	for _, bundle := range bundles {
		history := market.NewPriceHistory(24 * time.Hour)
		scorer, err := analyzer.New(analyzerCfg, jupiter, history, logger)
		if err != nil {
			return nil, err
		}
		monitor, err := market.NewMonitor(&market.MonitorConfig{
			Venue:          bundle.Venue,
			Decoder:        bundle.Decoder,
			Analyzer:       scorer,
			Limiter:        bundle.Limiter,
			History:        history,
			Logger:         logger,
			UpdateInterval: time.Duration(cfg.MonitorInterval) * time.Millisecond,
		})
		if err != nil {
			return nil, err
		}
		monitor.AddOpportunityCallback(runner.onOpportunity(bundle.Venue.Name()))
		runner.monitors = append(runner.monitors, monitor)
	}

	if cfg.PostgresURL != "" {
		store, err := postgres.NewStorage(cfg.PostgresURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		if err := store.RunMigrations(); err != nil {
			return nil, err
		}
		runner.recorder = storage.NewRecorder(store, logger)
	}

	if cfg.WebsocketAddr != "" {
		runner.ws = broadcast.NewServer(cfg.WebsocketAddr, bus, runner.statsSnapshot, logger)
	}

	return runner, nil
}

// Service exposes the sniping service for API surfaces.
func (r *Runner) Service() *sniping.Service {
	return r.service
}

// StatsSnapshot extends the service counters with the size of the
// Jupiter token universe for websocket stats frames.
type StatsSnapshot struct {
	sniping.Stats
	KnownTokens int `json:"known_tokens"`
}

func (r *Runner) statsSnapshot() any {
	snapshot := StatsSnapshot{Stats: r.service.Stats()}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tokens, err := r.jupiter.TokenList(ctx)
	if err != nil {
		r.logger.Debug("token list unavailable for stats", zap.Error(err))
		return snapshot
	}
	snapshot.KnownTokens = len(tokens)
	return snapshot
}

// onOpportunity bridges one venue's monitor into the pipeline.
func (r *Runner) onOpportunity(venue string) market.OpportunityCallback {
	return func(op *market.SnipingOpportunity) {
		if err := r.bus.Publish(events.OpportunityDetectedEvent{
			BaseEvent:       events.NewBase(events.OpportunityDetected),
			TokenAddress:    op.TokenAddress,
			PoolID:          op.PoolID,
			Venue:           venue,
			Price:           op.Price,
			Liquidity:       op.Liquidity,
			EstimatedProfit: op.EstimatedProfit,
			RiskLevel:       op.RiskLevel,
		}); err != nil {
			r.logger.Debug("opportunity event dropped", zap.Error(err))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		r.service.HandleOpportunity(ctx, op)
	}
}

// Run starts every component and blocks until a signal or a fatal
// startup error.
func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case sig := <-r.shutdownCh:
			r.logger.Info("📡 signal received: " + sig.String())
			cancel()
		case <-runCtx.Done():
		}
	}()

	if r.recorder != nil {
		r.recorder.Attach(r.bus)
	}
	if r.ws != nil {
		if err := r.ws.Start(); err != nil {
			return err
		}
	}

	go r.rpcHealthLoop(runCtx)

	group, groupCtx := errgroup.WithContext(runCtx)
	for _, monitor := range r.monitors {
		monitor := monitor
		group.Go(func() error {
			if err := monitor.Start(groupCtx); err != nil {
				return err
			}
			r.publishMonitoring(events.MonitoringStarted, monitor)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("failed to start monitors: %w", err)
	}
	r.logger.Info(fmt.Sprintf("🚀 monitoring %d venues", len(r.monitors)))

	<-runCtx.Done()
	return r.shutdown()
}

// rpcHealthLoop periodically evicts unhealthy RPC endpoints from the
// pool until the run context ends.
func (r *Runner) rpcHealthLoop(ctx context.Context) {
	ticker := time.NewTicker(rpcHealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.rpcPool.PerformHealthChecks(ctx)
		}
	}
}

func (r *Runner) publishMonitoring(eventType events.EventType, monitor *market.Monitor) {
	event := events.MonitoringStartedEvent{
		BaseEvent: events.NewBase(eventType),
		Venue:     monitor.Stats().Venue,
		Interval:  time.Duration(r.cfg.MonitorInterval) * time.Millisecond,
	}
	if err := r.bus.Publish(event); err != nil {
		r.logger.Debug("monitoring event dropped", zap.Error(err))
	}
}

// shutdown stops components in reverse dependency order.
func (r *Runner) shutdown() error {
	r.logger.Info("👋 shutting down")

	for _, monitor := range r.monitors {
		event := events.MonitoringStoppedEvent{
			BaseEvent: events.NewBase(events.MonitoringStopped),
			Venue:     monitor.Stats().Venue,
			Reason:    "shutdown",
		}
		if err := r.bus.PublishSync(context.Background(), event); err != nil {
			r.logger.Debug("monitoring stop event dropped", zap.Error(err))
		}
	}

	// Services close in reverse registration order, so event producers
	// (the monitors) are registered last and close first; the bus and
	// the ledger export run at the end once everything is quiet.
	handler := NewShutdownHandler(r.logger, 30*time.Second)
	if r.cfg.ExportDir != "" {
		handler.AddFunc("ledger_export", func() error {
			history := r.service.History("", 0)
			if len(history) == 0 {
				return nil
			}
			exporter := export.NewLedgerExporter(r.logger)
			_, err := exporter.Export(history, export.Options{
				Format:    export.FormatJSON,
				OutputDir: r.cfg.ExportDir,
			})
			return err
		})
	}
	handler.AddFunc("event_bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return r.bus.Shutdown(ctx)
	})
	if r.recorder != nil {
		handler.AddFunc("recorder", func() error {
			r.recorder.Detach()
			return nil
		})
	}
	handler.AddFunc("gateway", r.gateway.Close)
	if r.ws != nil {
		handler.AddFunc("websocket", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return r.ws.Stop(ctx)
		})
	}
	for _, monitor := range r.monitors {
		monitor := monitor
		handler.AddFunc("monitor_"+monitor.Stats().Venue, func() error {
			monitor.Stop()
			return nil
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	handler.Shutdown(ctx)
	return nil
}
