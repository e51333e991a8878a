// Package opensearch maintains the hazard-statement index: every resolved
// compound is indexed with its GHS pictograms and statements so the query
// service can answer "which compounds carry this hazard phrase".
package opensearch

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync/atomic"
	"time"

	opensearchgo "github.com/opensearch-project/opensearch-go/v3"
	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/turtacn/ChemStor-Intelligence/internal/config"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
)

var ErrInvalidConfig = errors.New(errors.ErrCodeValidation, "opensearch addresses are required")

const healthCheckInterval = 30 * time.Second

// Client manages the OpenSearch connection and watches cluster health.
type Client struct {
	api     *opensearchapi.Client
	cfg     config.OpenSearchConfig
	logger  logging.Logger
	healthy atomic.Bool
	cancel  context.CancelFunc
}

// NewClient connects to the cluster and starts a background health watch.
func NewClient(cfg config.OpenSearchConfig, log logging.Logger) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, ErrInvalidConfig
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("opensearch")

	transport := &http.Transport{MaxIdleConnsPerHost: 10}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	api, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearchgo.Config{
			Addresses:     cfg.Addresses,
			Username:      cfg.User,
			Password:      cfg.Password,
			Transport:     transport,
			MaxRetries:    3,
			RetryOnStatus: []int{502, 503, 504, 429},
			RetryBackoff:  func(attempt int) time.Duration { return time.Duration(attempt) * 100 * time.Millisecond },
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to create opensearch client")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		api:    api,
		cfg:    cfg,
		logger: log,
		cancel: cancel,
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := c.Ping(pingCtx); err != nil {
		cancel()
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "opensearch connection failed")
	}

	go c.watchHealth(ctx)

	log.Info("Connected to OpenSearch", logging.Any("addresses", cfg.Addresses))
	return c, nil
}

// Ping checks cluster reachability and records the result.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.api.Ping(ctx, &opensearchapi.PingReq{})
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		c.healthy.Store(false)
		return errors.Wrap(err, errors.ErrCodeExternalService, "opensearch ping failed")
	}
	if resp.IsError() {
		c.healthy.Store(false)
		return errors.New(errors.ErrCodeExternalService, "opensearch ping returned error status").
			WithDetail(resp.Status())
	}
	c.healthy.Store(true)
	return nil
}

// IsHealthy reports the last observed cluster state.
func (c *Client) IsHealthy() bool {
	return c.healthy.Load()
}

// API exposes the typed OpenSearch client for the indexer and searcher.
func (c *Client) API() *opensearchapi.Client {
	return c.api
}

// IndexName prefixes an index base name per configuration.
func (c *Client) IndexName(base string) string {
	prefix := c.cfg.IndexPrefix
	if prefix == "" {
		prefix = "chemstor"
	}
	return prefix + "-" + base
}

// Close stops the health watch.  The underlying transport needs no shutdown.
func (c *Client) Close() error {
	c.cancel()
	c.logger.Info("OpenSearch client closed")
	return nil
}

func (c *Client) watchHealth(ctx context.Context) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prev := c.healthy.Load()
			err := c.Ping(ctx)
			curr := c.healthy.Load()

			if prev && !curr {
				c.logger.Error("OpenSearch cluster became unhealthy", logging.Err(err))
			} else if !prev && curr {
				c.logger.Info("OpenSearch cluster recovered")
			}
		}
	}
}

//Personal.AI order the ending
