// The apiserver command boots the ChemStor-Intelligence API: it loads
// configuration, dials the backends, assembles the compound, sorting, and
// query services, and serves the REST and gRPC APIs until a termination
// signal arrives.
//
// PostgreSQL and Redis are required; every other backend degrades to a
// reduced API surface when unreachable, so a partial deployment still sorts
// and answers run history.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	compoundApp "github.com/turtacn/ChemStor-Intelligence/internal/application/compound"
	queryApp "github.com/turtacn/ChemStor-Intelligence/internal/application/query"
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
	grpcserver "github.com/turtacn/ChemStor-Intelligence/internal/interfaces/grpc"
	httpserver "github.com/turtacn/ChemStor-Intelligence/internal/interfaces/http"
	"github.com/turtacn/ChemStor-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/ChemStor-Intelligence/internal/interfaces/http/middleware"
)

const (
	defaultConfigPath = "configs/config.yaml"
	bootstrapTimeout  = 30 * time.Second
)

// version is injected by the release build via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
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

	logger.Info("starting chemstor api server",
		logging.String("version", version),
		logging.Int("http_port", cfg.Server.Port),
		logging.Int("grpc_port", cfg.Server.GRPCPort),
		logging.String("mode", cfg.Server.Mode),
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
	grpcMetrics := prometheus.NewGRPCMetrics(collector)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), bootstrapTimeout)
	defer cancelBoot()

	// Required backends.
	pg, err := postgres.NewConnection(bootCtx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Database.MigrationPath != "" {
		if err := pg.RunMigrations(cfg.Database.MigrationPath); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}

	rdb, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer func() { _ = rdb.Close() }()
	cache := redis.NewRedisCache(rdb, logger)

	compoundRepo := pgrepos.NewCompoundRepository(pg.Pool(), logger)
	runRepo := pgrepos.NewSortRunRepository(pg.Pool(), logger)

	// Optional backends.  A failed dial costs the features built on it, not
	// the whole process.
	var graphRepo *neorepos.CompatGraphRepository
	graphDriver, err := neo4j.NewDriver(cfg.Neo4j, logger)
	if err != nil {
		logger.Warn("neo4j unavailable, compatibility graph disabled", logging.Err(err))
		graphDriver = nil
	} else {
		defer func() { _ = graphDriver.Close() }()
		graphRepo = neorepos.NewCompatGraphRepository(graphDriver, logger)
	}

	var (
		indexer  *opensearch.Indexer
		searcher *opensearch.Searcher
	)
	searchClient, err := opensearch.NewClient(cfg.OpenSearch, logger)
	if err != nil {
		logger.Warn("opensearch unavailable, statement search disabled", logging.Err(err))
		searchClient = nil
	} else {
		defer func() { _ = searchClient.Close() }()
		indexer = opensearch.NewIndexer(searchClient, cfg.OpenSearch, logger)
		if err := indexer.EnsureIndex(bootCtx); err != nil {
			logger.Warn("opensearch index bootstrap failed", logging.Err(err))
		}
		searcher = opensearch.NewSearcher(searchClient, logger)
	}

	var vectors *milvus.FingerprintStore
	vectorClient, err := milvus.NewClient(cfg.Milvus, logger)
	if err != nil {
		logger.Warn("milvus unavailable, similarity search disabled", logging.Err(err))
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
		logger.Warn("kafka unavailable, event publishing disabled", logging.Err(perr))
	} else {
		producer = p
		defer func() { _ = producer.Close() }()
		ensureTopics(bootCtx, cfg.Kafka, logger)
	}

	// Compound pipeline: PubChem behind the Redis read-through cache.
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

	queryDeps := queryApp.Deps{
		Runs:    runRepo,
		Cache:   cache,
		Metrics: appMetrics,
		Logger:  logger,
	}
	if searcher != nil {
		queryDeps.Search = searcher
	}
	if vectors != nil {
		queryDeps.Similarity = vectors
	}
	if graphRepo != nil {
		queryDeps.Audit = graphRepo
	}
	if reports != nil {
		queryDeps.Reports = reports
	}
	querySvc, err := queryApp.NewService(queryDeps)
	if err != nil {
		return fmt.Errorf("query service: %w", err)
	}

	// HTTP and gRPC servers.
	limiter := middleware.NewKeyLimiter(10, 20, 5*time.Minute)
	defer limiter.Stop()

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Compounds:      handlers.NewCompoundHandler(compoundSvc, querySvc, logger),
		Sorting:        handlers.NewSortingHandler(sortingSvc, querySvc, logger),
		Health:         handlers.NewHealthHandler(version, healthCheckers(pg, rdb, graphDriver, searchClient, vectorClient, objectClient)...),
		RateLimiter:    limiter,
		MaxBodySize:    cfg.Server.MaxBodySize,
		MetricsHandler: collector.Handler(),
		MetricsPath:    cfg.Metrics.Path,
		Logger:         logger,
		Metrics:        appMetrics,
	})

	httpSrv := httpserver.NewServer(cfg.Server, router, logger)

	var grpcSrv *grpcserver.Server
	if cfg.Server.GRPCPort > 0 {
		grpcSrv, err = grpcserver.NewServer(cfg.Server,
			grpcserver.WithLogger(logger),
			grpcserver.WithMetrics(grpcMetrics),
		)
		if err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() { errCh <- httpSrv.Start() }()
	if grpcSrv != nil {
		go func() { errCh <- grpcSrv.Start() }()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("termination signal received")
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error("server failed", logging.Err(serveErr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if grpcSrv != nil {
		grpcSrv.SetServing(false)
		if err := grpcSrv.Stop(shutdownCtx); err != nil {
			logger.Error("grpc shutdown failed", logging.Err(err))
		}
	}
	if err := httpSrv.Stop(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", logging.Err(err))
	}

	logger.Info("api server stopped")
	return serveErr
}

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

// ensureTopics provisions the platform topics.  Brokers that refuse admin
// operations only cost a warning; the producer still works against
// pre-provisioned topics.
func ensureTopics(ctx context.Context, cfg config.KafkaConfig, logger logging.Logger) {
	tm, err := kafka.NewTopicManager(cfg.Brokers, logger)
	if err != nil {
		logger.Warn("kafka topic bootstrap skipped", logging.Err(err))
		return
	}
	defer func() { _ = tm.Close() }()
	if err := tm.EnsurePlatformTopics(ctx, cfg); err != nil {
		logger.Warn("kafka topic bootstrap failed", logging.Err(err))
	}
}

//Personal.AI order the ending
