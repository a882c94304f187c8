// Command edgehunterd runs the Silent Observer kernel for a single futures
// instrument: one feed adapter, one engine cycle, one DataHub, and an
// optional trigger-card audit log, wired entirely from the environment per
// spec.md §6.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/edgehunter/kernel/internal/adapter"
	"github.com/edgehunter/kernel/internal/clock"
	"github.com/edgehunter/kernel/internal/config"
	"github.com/edgehunter/kernel/internal/datahub"
	"github.com/edgehunter/kernel/internal/engineloop"
	"github.com/edgehunter/kernel/internal/health"
	"github.com/edgehunter/kernel/internal/model"
	"github.com/edgehunter/kernel/internal/queue"
	"github.com/edgehunter/kernel/internal/telemetry/logging"
	"github.com/edgehunter/kernel/internal/telemetry/metrics"
	"github.com/edgehunter/kernel/internal/telemetry/tracing"
	"github.com/edgehunter/kernel/internal/triggercard"
)

func main() {
	log := logging.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feedType := config.ResolveFeedType(log)
	instrument, ibkrConn, ibkrContract := resolveInstrument(ctx, log, feedType)

	var positional *int
	if len(os.Args) > 1 {
		if v, err := strconv.Atoi(os.Args[1]); err == nil {
			positional = &v
		}
	}
	runtimeCfg := config.ResolveRuntimeConfig(positional)

	if tp, err := tracing.NewTracerProvider(tracing.Options{ServiceName: "edgehunterd"}); err != nil {
		log.WarnCtx(ctx, "tracer init failed, continuing without tracing", "error", err)
	} else {
		otel.SetTracerProvider(tp)
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	metricsProvider := metrics.NewPrometheusProvider(metrics.PrometheusProviderOptions{})

	runID := uuid.NewString()
	sysClock := clock.NewSystemClock(nil)

	inbound := queue.NewInbound(queue.DefaultInboundCapacity)
	commands := queue.NewCommand(queue.DefaultCommandCapacity)
	hub := datahub.New()

	tunablesWatcher, err := config.NewTunablesWatcher(ctx, os.Getenv("EDGEHUNTER_TUNABLES_PATH"), log)
	if err != nil {
		log.ErrorCtx(ctx, "failed to load tunables", "error", err)
		os.Exit(1)
	}
	defer func() { _ = tunablesWatcher.Close() }()

	var triggerLogger *triggercard.Logger
	if runtimeCfg.EnableTriggerCardLogger {
		triggerLogger, err = triggercard.NewLogger(runID, runtimeCfg.TriggerCardLogDir, runtimeCfg.TriggerCardCadenceHz, sysClock, log)
		if err != nil {
			log.ErrorCtx(ctx, "failed to start trigger-card logger", "error", err)
			os.Exit(1)
		}
		defer func() { _ = triggerLogger.Close() }()
	}

	loop := engineloop.New(engineloop.Options{
		Instrument:    instrument,
		RunID:         runID,
		Tunables:      tunablesWatcher.Current,
		Clock:         sysClock,
		Inbound:       inbound,
		Commands:      commands,
		Hub:           hub,
		TriggerLogger: triggerLogger,
		Metrics:       metricsProvider,
		Log:           log,
	})

	feedAdapter := buildAdapter(ctx, log, feedType, ibkrConn, ibkrContract, inbound, sysClock)

	healthEval := health.NewEvaluator(5 * time.Second)
	healthEval.Register(health.NewDataHubProbe(hub))
	healthEval.Register(health.NewQueueProbe("inbound", func() (int, int) { return inbound.Len(), queue.DefaultInboundCapacity }, 0.8))
	healthEval.Register(health.NewQueueProbe("commands", func() (int, int) { return commands.Len(), queue.DefaultCommandCapacity }, 0.8))
	go serveMetricsAndHealth(ctx, log, metricsProvider, healthEval)

	var fatalCode atomic.Int32
	onFatal := func(err *adapter.FatalError) {
		log.ErrorCtx(ctx, "adapter reported a fatal condition, shutting down", "code", err.Code, "message", err.Message)
		fatalCode.Store(int32(err.Code))
		cancel()
	}
	runnerHandle := adapter.NewRunner(feedAdapter, log, onFatal)

	loop.Start(ctx)
	if err := runnerHandle.Start(ctx); err != nil {
		log.ErrorCtx(ctx, "adapter failed to connect", "error", err)
		cancel()
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	runtimeTimer := time.NewTimer(runtimeCfg.MaxRuntime)
	defer runtimeTimer.Stop()

	select {
	case <-sigCh:
		log.InfoCtx(ctx, "signal received, shutting down")
		go func() {
			<-sigCh
			log.ErrorCtx(ctx, "second signal received, forcing exit")
			os.Exit(1)
		}()
	case <-runtimeTimer.C:
		log.InfoCtx(ctx, "max runtime elapsed, shutting down", "max_runtime", runtimeCfg.MaxRuntime)
	case <-ctx.Done():
		log.InfoCtx(ctx, "shutdown triggered by adapter fatal condition")
	}

	cancel()
	runnerHandle.Stop()
	loop.Stop()

	if snap := hub.GetLatest(); snap != nil {
		b, _ := json.MarshalIndent(snap, "", "  ")
		fmt.Fprintf(os.Stderr, "\n=== FINAL SNAPSHOT ===\n%s\n", string(b))
	}

	if code := fatalCode.Load(); code != 0 {
		if triggerLogger != nil {
			_ = triggerLogger.Close()
		}
		os.Exit(int(code))
	}
}

func resolveInstrument(ctx context.Context, log logging.Logger, feedType config.FeedType) (model.Instrument, config.IBKRConnection, config.IBKRContract) {
	if feedType != config.FeedIBKR {
		config.LogFeedConfig(log, feedType, nil, nil)
		return model.Instrument{Symbol: "MNQ", ContractKey: "MNQ.MOCK", TickSize: 0.25}, config.IBKRConnection{}, config.IBKRContract{}
	}
	conn := config.ResolveIBKRConnection(log)
	contract, err := config.ResolveIBKRContract(log)
	if err != nil {
		log.ErrorCtx(ctx, "invalid IBKR contract configuration", "error", err)
		os.Exit(1)
	}
	config.LogFeedConfig(log, feedType, &conn, &contract)
	return model.Instrument{Symbol: contract.Symbol, ContractKey: contract.ContractKey(), TickSize: 0.25}, conn, contract
}

func buildAdapter(ctx context.Context, log logging.Logger, feedType config.FeedType, conn config.IBKRConnection, contract config.IBKRContract, inbound *queue.Inbound, clk clock.Clock) adapter.Adapter {
	if feedType != config.FeedIBKR {
		return adapter.NewMock(inbound, adapter.DefaultMockOptions(), clk, log)
	}
	client := adapter.NewTCPClient(log)
	ibkr, err := adapter.NewIBKR(conn.Host, conn.Port, conn.ClientID, contract, client, inbound, clk, log)
	if err != nil {
		log.ErrorCtx(ctx, "failed to construct IBKR adapter", "error", err)
		os.Exit(1)
	}
	return ibkr
}

func serveMetricsAndHealth(ctx context.Context, log logging.Logger, mp *metrics.PrometheusProvider, healthEval *health.Evaluator) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", mp.MetricsHandler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		snap := healthEval.Evaluate(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if snap.Overall == health.StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(snap)
	})
	addr := os.Getenv("EDGEHUNTER_METRICS_ADDR")
	if addr == "" {
		addr = ":9100"
	}
	srv := &http.Server{Addr: addr, Handler: mux}
	if err := srv.ListenAndServe(); err != nil && ctx.Err() == nil {
		log.WarnCtx(ctx, "metrics server stopped", "error", err)
	}
}
