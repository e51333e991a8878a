// Package milvus stores compound structure fingerprints as dense vectors and
// answers similar-compound lookups over them.  One collection holds a row per
// resolved compound, keyed by CID, with the Morgan fingerprint expanded to a
// 0/1 float vector.
package milvus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/turtacn/ChemStor-Intelligence/internal/config"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
)

var (
	ErrInvalidConfig    = errors.New(errors.ErrCodeValidation, "milvus address is required")
	ErrConnectionFailed = errors.New(errors.ErrCodeExternalService, "milvus connection failed")
	ErrUnhealthy        = errors.New(errors.ErrCodeServiceUnavailable, "milvus cluster unhealthy")
)

const (
	healthCheckInterval = 30 * time.Second
	connectTimeout      = 10 * time.Second

	// Consecutive failed health probes before the watch loop re-dials.
	reconnectThreshold = 3
)

// MilvusClientFactory matches client.NewClient and exists so tests can inject
// a scripted connection.
type MilvusClientFactory func(ctx context.Context, conf client.Config) (client.Client, error)

var milvusNewClient MilvusClientFactory = client.NewClient

// Client manages the Milvus connection, watches cluster health, and re-dials
// after repeated probe failures.
type Client struct {
	milvusClient client.Client
	cfg          config.MilvusConfig
	logger       logging.Logger
	healthy      atomic.Bool
	cancel       context.CancelFunc
	mu           sync.RWMutex
	once         sync.Once
}

// NewClient dials Milvus and verifies the cluster is serving before returning.
func NewClient(cfg config.MilvusConfig, log logging.Logger) (*Client, error) {
	if cfg.Addr == "" {
		return nil, ErrInvalidConfig
	}
	if cfg.DBName == "" {
		cfg.DBName = "default"
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("milvus")

	ctx, cancel := context.WithCancel(context.Background())
	mc, err := dial(ctx, cfg)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to dial milvus")
	}

	c := &Client{
		milvusClient: mc,
		cfg:          cfg,
		logger:       log,
		cancel:       cancel,
	}

	if err := c.CheckHealth(ctx); err != nil {
		c.Close()
		return nil, ErrConnectionFailed
	}

	go c.watchHealth(ctx)

	log.Info("Connected to Milvus",
		logging.String("addr", cfg.Addr),
		logging.String("db", cfg.DBName))
	return c, nil
}

func dial(ctx context.Context, cfg config.MilvusConfig) (client.Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                60 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: true,
		}),
	}

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	return milvusNewClient(dialCtx, client.Config{
		Address:     cfg.Addr,
		DBName:      cfg.DBName,
		DialOptions: dialOpts,
	})
}

// CheckHealth probes the cluster and records the observed state.
func (c *Client) CheckHealth(ctx context.Context) error {
	c.mu.RLock()
	mc := c.milvusClient
	c.mu.RUnlock()

	if mc == nil {
		return ErrConnectionFailed
	}

	state, err := mc.CheckHealth(ctx)
	if err != nil {
		c.healthy.Store(false)
		return errors.Wrap(err, errors.ErrCodeExternalService, "milvus health check failed")
	}
	if state != nil && !state.IsHealthy {
		c.healthy.Store(false)
		return ErrUnhealthy
	}

	c.healthy.Store(true)
	return nil
}

// IsHealthy reports the last observed cluster state.
func (c *Client) IsHealthy() bool {
	return c.healthy.Load()
}

// API exposes the SDK client for the collection manager and fingerprint store.
func (c *Client) API() client.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.milvusClient
}

// CollectionName prefixes a collection base name per configuration.  Milvus
// collection names permit only letters, digits, and underscores, so the
// separator is an underscore rather than the dash the index names use.
func (c *Client) CollectionName(base string) string {
	prefix := c.cfg.CollectionPrefix
	if prefix == "" {
		prefix = "chemstor"
	}
	return prefix + "_" + base
}

// Close stops the health watch and releases the connection.  Safe to call
// more than once.
func (c *Client) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.milvusClient != nil {
			_ = c.milvusClient.Close()
		}
		c.logger.Info("Milvus client closed")
	})
	return nil
}

func (c *Client) watchHealth(ctx context.Context) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	failures := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prev := c.healthy.Load()
			err := c.CheckHealth(ctx)
			curr := c.healthy.Load()

			switch {
			case prev && !curr:
				failures++
				c.logger.Error("Milvus became unhealthy", logging.Err(err))
			case !prev && curr:
				failures = 0
				c.logger.Info("Milvus recovered")
			case !curr:
				failures++
			default:
				failures = 0
			}

			if failures >= reconnectThreshold {
				c.logger.Warn("Milvus unreachable, re-dialing",
					logging.Int("failures", failures))
				if err := c.reconnect(ctx); err != nil {
					c.logger.Error("Milvus reconnect failed", logging.Err(err))
				} else {
					failures = 0
				}
			}
		}
	}
}

func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.milvusClient != nil {
		_ = c.milvusClient.Close()
	}

	mc, err := dial(ctx, c.cfg)
	if err != nil {
		c.milvusClient = nil
		return err
	}

	c.milvusClient = mc
	c.logger.Info("Milvus client reconnected")
	return nil
}

//Personal.AI order the ending
