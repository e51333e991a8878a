// The worker command executes queued sort runs.  It consumes sort requests
// from the event bus, claims each run through a distributed lock so exactly
// one worker executes it, and drives the same sorting pipeline the API
// server uses for synchronous requests.  A small HTTP endpoint serves
// orchestrator probes and the Prometheus exposition.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	compoundApp "github.com/turtacn/ChemStor-Intelligence/internal/application/compound"
	sortingApp "github.com/turtacn/ChemStor-Intelligence/internal/application/sorting"
	"github.com/turtacn/ChemStor-Intelligence/internal/config"
	domainCompound "github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
	domainSorting "github.com/turtacn/ChemStor-Intelligence/internal/domain/sorting"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/chemdata/pubchem"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/chemdata/resolvercache"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/chemistry"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/database/neo4j"
	neorepos "github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/database/postgres"
	pgrepos "github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/search/milvus"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/search/opensearch"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/storage/minio"
	"github.com/turtacn/ChemStor-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/ChemStor-Intelligence/pkg/types/common"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultHealthPort = 8081
	bootstrapTimeout  = 30 * time.Second

	// runLockTTL bounds how long a crashed worker keeps a run claimed; the
	// lock watchdog extends it while the holder is alive.
	runLockTTL = 5 * time.Minute

	// sortTimeout bounds one batch end to end, resolver lookups included.
	sortTimeout = 10 * time.Minute
)

// version is injected by the release build via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	healthPort := flag.Int("health-port", defaultHealthPort, "port for probe and metrics endpoints")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting chemstor worker",
		logging.String("version", version),
		logging.String("group", cfg.Kafka.GroupID),
		logging.Int("concurrency", cfg.Worker.Concurrency),
	)

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Metrics.Namespace,
		EnableProcessMetrics: cfg.Metrics.EnableProcessMetrics,
		EnableGoMetrics:      cfg.Metrics.EnableGoMetrics,
	}, logger)
	if err != nil {
		return fmt.Errorf("metrics collector: %w", err)
	}
	appMetrics := prometheus.NewAppMetrics(collector)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), bootstrapTimeout)
	defer cancelBoot()

	// Required backends.
	pg, err := postgres.NewConnection(bootCtx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pg.Close()

	rdb, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer func() { _ = rdb.Close() }()
	cache := redis.NewRedisCache(rdb, logger)
	locks := redis.NewLockFactory(rdb, logger)

	compoundRepo := pgrepos.NewCompoundRepository(pg.Pool(), logger)
	runRepo := pgrepos.NewSortRunRepository(pg.Pool(), logger)

	// Optional backends, same degradation policy as the API server.
	var graphRepo *neorepos.CompatGraphRepository
	graphDriver, err := neo4j.NewDriver(cfg.Neo4j, logger)
	if err != nil {
		logger.Warn("neo4j unavailable, compatibility graph disabled", logging.Err(err))
		graphDriver = nil
	} else {
		defer func() { _ = graphDriver.Close() }()
		graphRepo = neorepos.NewCompatGraphRepository(graphDriver, logger)
	}

	var indexer *opensearch.Indexer
	searchClient, err := opensearch.NewClient(cfg.OpenSearch, logger)
	if err != nil {
		logger.Warn("opensearch unavailable, statement indexing disabled", logging.Err(err))
		searchClient = nil
	} else {
		defer func() { _ = searchClient.Close() }()
		indexer = opensearch.NewIndexer(searchClient, cfg.OpenSearch, logger)
		if err := indexer.EnsureIndex(bootCtx); err != nil {
			logger.Warn("opensearch index bootstrap failed", logging.Err(err))
		}
	}

	var vectors *milvus.FingerprintStore
	vectorClient, err := milvus.NewClient(cfg.Milvus, logger)
	if err != nil {
		logger.Warn("milvus unavailable, fingerprint upserts disabled", logging.Err(err))
		vectorClient = nil
	} else {
		defer func() { _ = vectorClient.Close() }()
		collections := milvus.NewCollectionManager(vectorClient, logger)
		if err := collections.Ensure(bootCtx); err != nil {
			logger.Warn("milvus collection bootstrap failed", logging.Err(err))
		}
		vectors = milvus.NewFingerprintStore(vectorClient, collections, logger)
	}

	var reports *minio.ReportStore
	objectClient, err := minio.NewClient(cfg.MinIO, logger)
	if err != nil {
		logger.Warn("minio unavailable, run reports disabled", logging.Err(err))
		objectClient = nil
	} else {
		reports = minio.NewReportStore(objectClient, logger)
	}

	var producer *kafka.Producer
	if p, perr := kafka.NewProducer(cfg.Kafka, logger); perr != nil {
		logger.Warn("kafka producer unavailable, completion events disabled", logging.Err(perr))
	} else {
		producer = p
		defer func() { _ = producer.Close() }()
	}

	// The sorting pipeline, wired exactly as in the API server.
	pubchemClient := pubchem.NewClient(cfg.PubChem, logger, appMetrics)
	resolver := resolvercache.New(pubchemClient, pubchemClient, pubchemClient, cache, cfg.PubChem.CacheTTL, logger)
	classifier := domainCompound.NewClassifier(chemistry.NewPatternMatcher(logger), logger)

	var compoundEvents compoundApp.EventPublisher
	if producer != nil {
		compoundEvents = producer
	}
	compoundSvc, err := compoundApp.NewService(resolver, resolver, resolver, classifier, compoundEvents, appMetrics, logger)
	if err != nil {
		return fmt.Errorf("compound service: %w", err)
	}

	sortDeps := sortingApp.Deps{
		Resolver:  compoundSvc,
		Sorter:    domainSorting.NewSorter(logger),
		Runs:      runRepo,
		Compounds: compoundRepo,
		Metrics:   appMetrics,
		Logger:    logger,
	}
	if graphRepo != nil {
		sortDeps.Graph = graphRepo
	}
	if indexer != nil {
		sortDeps.Search = indexer
	}
	if vectors != nil {
		sortDeps.Vectors = vectors
	}
	if reports != nil {
		sortDeps.Reports = reports
	}
	if producer != nil {
		sortDeps.Events = producer
	}
	sortingSvc, err := sortingApp.NewService(sortDeps)
	if err != nil {
		return fmt.Errorf("sorting service: %w", err)
	}

	executor := &sortExecutor{
		sorting: sortingSvc,
		runs:    runRepo,
		locks:   locks,
		logger:  logger.Named("worker"),
	}

	// One consumer group member per concurrency unit, capped at the topic's
	// partition count: members beyond it would never receive an assignment.
	partitions := cfg.Kafka.NumPartitions
	if partitions <= 0 {
		partitions = 3
	}
	consumerCfg := kafka.ConsumerConfigFrom(cfg.Kafka, cfg.Worker, []string{kafka.TopicSortRequested})

	var members []*kafka.Consumer
	defer func() {
		for _, m := range members {
			_ = m.Close()
		}
	}()
	for i := 0; i < min(cfg.Worker.Concurrency, partitions); i++ {
		member, cerr := kafka.NewConsumer(consumerCfg, logger)
		if cerr != nil {
			return fmt.Errorf("kafka consumer: %w", cerr)
		}
		members = append(members, member)
		member.Subscribe(kafka.TopicSortRequested, executor.handleSortRequested)
		if serr := member.Start(context.Background()); serr != nil {
			return fmt.Errorf("kafka consumer start: %w", serr)
		}
	}

	healthSrv := startHealthServer(*healthPort, collector, cfg.Metrics.Path, logger,
		healthCheckers(pg, rdb, graphDriver, searchClient, vectorClient, objectClient)...)

	logger.Info("worker ready",
		logging.Int("members", len(members)),
		logging.String("topic", kafka.TopicSortRequested),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("termination signal received")

	// Close waits for the in-flight run before releasing the reader, so a
	// rolling restart never abandons a half-executed batch.
	for _, m := range members {
		if err := m.Close(); err != nil {
			logger.Error("consumer close failed", logging.Err(err))
		}
	}
	members = nil

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown failed", logging.Err(err))
	}

	logger.Info("worker stopped")
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Sort execution
// ─────────────────────────────────────────────────────────────────────────────

// sortExecutor runs queued batches at most once per run across all workers.
type sortExecutor struct {
	sorting sortingApp.Service
	runs    domainSorting.Repository
	locks   redis.LockFactory
	logger  logging.Logger
}

// handleSortRequested executes one queued batch.  Malformed messages are
// settled without retry; execution failures return the error so the consumer
// retries and eventually dead-letters the request.
func (e *sortExecutor) handleSortRequested(ctx context.Context, msg *kafka.Message) error {
	env, err := kafka.DecodeEnvelope(msg)
	if err != nil {
		e.logger.Error("discarding undecodable sort request", logging.Err(err))
		return nil
	}
	var req kafka.SortRequestedPayload
	if err := env.DecodePayload(&req); err != nil {
		e.logger.Error("discarding malformed sort request",
			logging.String("event_id", env.EventID),
			logging.Err(err))
		return nil
	}
	if req.RunID == "" || len(req.Names) == 0 {
		e.logger.Warn("discarding empty sort request", logging.String("event_id", env.EventID))
		return nil
	}

	// A redelivered request for a run that already completed is settled
	// without re-executing it.
	if existing, gerr := e.runs.GetByID(ctx, common.ID(req.RunID)); gerr == nil &&
		existing.Status == domainSorting.RunStatusCompleted {
		e.logger.Info("sort run already completed, skipping",
			logging.String("run_id", req.RunID))
		return nil
	}

	lock := e.locks.NewMutex("sort-run:"+req.RunID,
		redis.WithLockTTL(runLockTTL),
		redis.WithWatchdog(true),
	)
	acquired, err := lock.TryLock(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		e.logger.Info("sort run claimed elsewhere, skipping",
			logging.String("run_id", req.RunID))
		return nil
	}
	defer func() {
		if uerr := lock.Unlock(context.WithoutCancel(ctx)); uerr != nil {
			e.logger.Warn("run lock not released",
				logging.String("run_id", req.RunID),
				logging.Err(uerr))
		}
	}()

	// Detached from the consume context so a shutdown signal lets the
	// in-flight batch finish inside its own deadline.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sortTimeout)
	defer cancel()

	trigger := req.Trigger
	if trigger == "" {
		trigger = "worker"
	}
	result, err := e.sorting.SortBatch(runCtx, sortingApp.SortInput{
		Names:   req.Names,
		Trigger: trigger,
		RunID:   req.RunID,
	})
	if err != nil {
		return err
	}

	e.logger.Info("queued sort run executed",
		logging.String("run_id", result.RunID),
		logging.Int("placed", result.Placed),
		logging.Int("rejections", result.RejectionCount),
		logging.Int64("duration_ms", result.DurationMs))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Probes
// ─────────────────────────────────────────────────────────────────────────────

// startHealthServer serves the orchestrator probes and the Prometheus
// exposition on the worker's side port.
func startHealthServer(port int, collector prometheus.MetricsCollector, metricsPath string, logger logging.Logger, checkers ...handlers.HealthChecker) *http.Server {
	hh := handlers.NewHealthHandler(version, checkers...)

	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", hh.Liveness)
	mux.HandleFunc("/readyz", hh.Readiness)
	mux.HandleFunc("/healthz/detail", hh.Detailed)
	mux.Handle(metricsPath, collector.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("health server listening", logging.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", logging.Err(err))
		}
	}()
	return srv
}

// healthCheckers adapts the connected backends to the readiness probe;
// backends that failed to boot arrive nil and stay out of the checker set.
func healthCheckers(
	pg *postgres.Connection,
	rdb *redis.Client,
	graph *neo4j.Driver,
	search *opensearch.Client,
	vectors *milvus.Client,
	objects *minio.Client,
) []handlers.HealthChecker {
	var checks []handlers.HealthChecker
	if pg != nil {
		checks = append(checks, handlers.NewChecker("postgres", pg.HealthCheck))
	}
	if rdb != nil {
		checks = append(checks, handlers.NewChecker("redis", rdb.Ping))
	}
	if graph != nil {
		checks = append(checks, handlers.NewChecker("neo4j", graph.HealthCheck))
	}
	if search != nil {
		checks = append(checks, handlers.NewChecker("opensearch", search.Ping))
	}
	if vectors != nil {
		checks = append(checks, handlers.NewChecker("milvus", vectors.CheckHealth))
	}
	if objects != nil {
		checks = append(checks, handlers.NewChecker("minio", objects.HealthCheck))
	}
	return checks
}

// ─────────────────────────────────────────────────────────────────────────────
// Configuration
// ─────────────────────────────────────────────────────────────────────────────

// loadConfig reads the configuration file, falling back to environment-only
// configuration when the file does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

// newLogger builds the process logger.  The configuration file speaks "text"
// for human-readable output; the logging package calls that encoding
// "console".
func newLogger(cfg config.LogConfig) (logging.Logger, error) {
	format := cfg.Format
	if format == "text" {
		format = "console"
	}
	return logging.NewLogger(logging.LogConfig{Level: cfg.Level, Format: format})
}

//Personal.AI order the ending
