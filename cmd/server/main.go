package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"smarttracing/internal/events"
	"smarttracing/internal/graph"
	"smarttracing/internal/graph/gremlin"
	"smarttracing/internal/graph/memory"
	"smarttracing/internal/graph/postgres"
	"smarttracing/internal/organizations/service"
	"smarttracing/internal/organizations/store"
	"smarttracing/internal/organizations/store/orphans"
	"smarttracing/internal/platform/config"
	"smarttracing/internal/platform/httpserver"
	"smarttracing/internal/platform/logger"
	"smarttracing/internal/platform/metrics"
	"smarttracing/internal/platform/redis"
	httptransport "smarttracing/internal/transport/http"
)

// main wires the graph engine, the onboarding service and its background
// loops, and exposes health and metrics over HTTP.
func main() {
	configPath := flag.String("config", os.Getenv("SMARTTRACING_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	engine, err := openEngine(ctx, cfg.Graph)
	if err != nil {
		return err
	}
	client, err := graph.NewClient(engine,
		graph.WithLogger(log),
		graph.WithMetrics(m),
		graph.WithTracer(otel.Tracer("smarttracing")),
		graph.WithTimeout(cfg.Graph.Timeout),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	checks := []httptransport.Option{
		httptransport.WithCheck("graph", client.Ping),
		httptransport.WithCheckTimeout(cfg.Graph.Timeout),
	}

	var ledger orphans.Ledger = orphans.NewInMemory()
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		var ledgerOpts []orphans.RedisOption
		if cfg.Redis.LedgerKey != "" {
			ledgerOpts = append(ledgerOpts, orphans.WithKey(cfg.Redis.LedgerKey))
		}
		ledger = orphans.NewRedis(redisClient.Client, ledgerOpts...)
		checks = append(checks, httptransport.WithCheck("redis", redisClient.Health))
	}

	var sink events.Publisher = events.NewLogPublisher(log)
	if len(cfg.Events.Brokers) > 0 {
		kafka, err := events.DialKafka(ctx, cfg.Events.Brokers, cfg.Events.Topic, events.WithMetrics(m))
		if err != nil {
			return err
		}
		sink = kafka
	}
	worker := events.NewWorker(sink, cfg.Events.Buffer, events.WithWorkerLogger(log))
	defer worker.Close()

	policy, err := service.ParsePolicy(cfg.Onboarding.Policy)
	if err != nil {
		return err
	}
	onboarding := service.New(store.New(client, store.WithLogger(log)),
		service.WithPolicy(policy),
		service.WithLedger(ledger),
		service.WithPublisher(worker),
		service.WithLogger(log),
		service.WithMetrics(m),
	)

	router := httptransport.NewRouter(httptransport.NewHandler(log, reg, checks...))
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting smarttracing", "addr", cfg.Server.Addr, "graph_backend", cfg.Graph.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return onboarding.RunReconciler(gctx, cfg.Onboarding.ReconcileInterval)
	})
	return g.Wait()
}

func openEngine(ctx context.Context, cfg config.Graph) (graph.Engine, error) {
	switch cfg.Backend {
	case config.BackendGremlin:
		return gremlin.Open(cfg.GremlinURL(), cfg.TraversalSource)
	case config.BackendPostgres:
		return postgres.Open(ctx, cfg.PostgresDSN)
	default:
		return memory.New(), nil
	}
}
