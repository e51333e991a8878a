// Package minio archives sort-run reports as JSON objects in S3-compatible
// storage.  Each completed run is written once under a stable key so auditors
// can fetch the full placement record long after the database row is trimmed.
package minio

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/turtacn/ChemStor-Intelligence/internal/config"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
)

var ErrInvalidConfig = errors.New(errors.ErrCodeValidation, "minio endpoint is required")

const (
	connectTimeout = 10 * time.Second

	// Reports expire from the bucket after this many days.  The database
	// keeps the run rows; the bucket only holds the rendered JSON.
	reportRetentionDays = 180

	defaultPresignExpiry = 1 * time.Hour
)

// ObjectAPI is the slice of the MinIO SDK this package touches.  Downloads
// return an io.ReadCloser instead of *minio.Object so tests can script them.
type ObjectAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucket string, cfg *lifecycle.Configuration) error
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	FetchObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, minio.ObjectInfo, error)
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucket, key string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// sdkAPI adapts *minio.Client to ObjectAPI.  Everything except FetchObject is
// a direct pass-through via embedding.
type sdkAPI struct {
	*minio.Client
}

// FetchObject opens the object and stats it eagerly so a missing key fails
// here rather than on first read.
func (a sdkAPI) FetchObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, minio.ObjectInfo, error) {
	obj, err := a.Client.GetObject(ctx, bucket, key, opts)
	if err != nil {
		return nil, minio.ObjectInfo{}, err
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, minio.ObjectInfo{}, err
	}
	return obj, info, nil
}

// ObjectAPIFactory builds the SDK surface from config and exists so tests can
// inject a scripted backend.
type ObjectAPIFactory func(cfg config.MinIOConfig) (ObjectAPI, error)

var newObjectAPI ObjectAPIFactory = func(cfg config.MinIOConfig) (ObjectAPI, error) {
	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return sdkAPI{c}, nil
}

// Client wraps one bucket of S3-compatible storage for report archival.
type Client struct {
	api    ObjectAPI
	cfg    config.MinIOConfig
	logger logging.Logger
}

// NewClient connects to the object store, verifies it is reachable, and makes
// sure the report bucket exists.
func NewClient(cfg config.MinIOConfig, log logging.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, ErrInvalidConfig
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "chemstor-reports"
	}
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = defaultPresignExpiry
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("minio")

	api, err := newObjectAPI(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to construct minio client")
	}

	c := &Client{api: api, cfg: cfg, logger: log}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if _, err := api.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "minio is unreachable")
	}
	if err := c.ensureBucket(ctx); err != nil {
		return nil, err
	}

	log.Info("minio connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL),
	)
	return c, nil
}

// API exposes the raw SDK surface for adapters in this package.
func (c *Client) API() ObjectAPI { return c.api }

// Bucket returns the report bucket name.
func (c *Client) Bucket() string { return c.cfg.Bucket }

// PresignExpiry returns the default lifetime for presigned report URLs.
func (c *Client) PresignExpiry() time.Duration { return c.cfg.PresignExpiry }

// HealthCheck reports whether the store is reachable and the report bucket
// still exists.
func (c *Client) HealthCheck(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.cfg.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "minio health check failed")
	}
	if !exists {
		return errors.New(errors.ErrCodeServiceUnavailable, "report bucket missing").
			WithDetail("bucket=" + c.cfg.Bucket)
	}
	return nil
}

// ensureBucket creates the report bucket when absent and applies the retention
// rule.  Retention failures are non-fatal: filesystem-backed gateways do not
// support lifecycle configuration.
func (c *Client) ensureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.cfg.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to check report bucket")
	}
	if !exists {
		if err := c.api.MakeBucket(ctx, c.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return errors.Wrap(err, errors.ErrCodeExternalService, "failed to create report bucket")
		}
		c.logger.Info("report bucket created", logging.String("bucket", c.cfg.Bucket))
	}

	retention := lifecycle.NewConfiguration()
	retention.Rules = []lifecycle.Rule{
		{
			ID:         "expire-sort-reports",
			Status:     "Enabled",
			RuleFilter: lifecycle.Filter{Prefix: reportPrefix},
			Expiration: lifecycle.Expiration{Days: lifecycle.ExpirationDays(reportRetentionDays)},
		},
	}
	if err := c.api.SetBucketLifecycle(ctx, c.cfg.Bucket, retention); err != nil {
		c.logger.Warn("failed to set report retention", logging.Err(err))
	}
	return nil
}

//Personal.AI order the ending
