// Package config provides configuration loading, defaults, and validation for
// the ChemStor-Intelligence platform.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all platform settings.
const envPrefix = "CHEMSTOR"

// configKeys lists every settable configuration key.  Each key is explicitly
// bound to its environment variable so that Unmarshal sees env-only values;
// viper's AutomaticEnv alone does not register keys that appear in no config
// file, which would silently drop CHEMSTOR_* overrides in file-less
// deployments.
var configKeys = []string{
	"server.port", "server.grpc_port", "server.mode", "server.read_timeout",
	"server.write_timeout", "server.max_body_size", "server.shutdown_timeout",

	"database.host", "database.port", "database.user", "database.password",
	"database.db_name", "database.ssl_mode", "database.max_conns",
	"database.min_conns", "database.max_idle_conns", "database.conn_max_lifetime",
	"database.conn_max_idle_time", "database.migration_path",

	"neo4j.uri", "neo4j.user", "neo4j.password", "neo4j.max_connection_pool_size",
	"neo4j.connection_timeout", "neo4j.database",

	"redis.addr", "redis.password", "redis.db", "redis.pool_size",
	"redis.min_idle_conns", "redis.dial_timeout", "redis.read_timeout",
	"redis.write_timeout", "redis.default_ttl", "redis.key_prefix",

	"kafka.brokers", "kafka.group_id", "kafka.auto_offset_reset",
	"kafka.timeout_ms", "kafka.producer_retries", "kafka.batch_size",
	"kafka.auto_create_topics", "kafka.replication_factor", "kafka.num_partitions",

	"opensearch.addresses", "opensearch.user", "opensearch.password",
	"opensearch.insecure_skip_verify", "opensearch.bulk_batch_size",
	"opensearch.index_prefix",

	"milvus.addr", "milvus.db_name", "milvus.embedding_dim", "milvus.index_type",
	"milvus.hnsw_m", "milvus.hnsw_ef_construction", "milvus.default_top_k",
	"milvus.collection_prefix",

	"minio.endpoint", "minio.access_key", "minio.secret_key", "minio.bucket",
	"minio.use_ssl", "minio.presign_expiry",

	"pubchem.base_url", "pubchem.timeout", "pubchem.max_retries",
	"pubchem.retry_backoff", "pubchem.requests_per_second", "pubchem.burst",
	"pubchem.user_agent", "pubchem.cache_ttl",

	"worker.mode", "worker.concurrency", "worker.queue_depth",
	"worker.heartbeat_interval", "worker.max_retries", "worker.retry_backoff_ms",

	"log.level", "log.format", "log.output", "log.enable_caller",
	"log.enable_stacktrace", "log.sampling_rate",

	"metrics.namespace", "metrics.path", "metrics.enable_go_metrics",
	"metrics.enable_process_metrics",
}

// newViper builds a pre-configured Viper instance with the platform's standard
// settings: YAML file type, CHEMSTOR_ env prefix, automatic env binding, and a
// key replacer that maps "." → "_" so that nested keys like "database.host"
// resolve to "CHEMSTOR_DATABASE_HOST".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range configKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the YAML file at configPath, merges any CHEMSTOR_* environment
// variable overrides, applies platform defaults for unset fields, and
// validates the result.  It returns a fully-populated *Config or a
// descriptive error.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from CHEMSTOR_* environment variables,
// with no config file required.  This is the preferred loading strategy for
// containerised (12-factor) deployments.
//
// Environment variable naming convention:
//
//	CHEMSTOR_<SECTION>_<FIELD>   e.g.  CHEMSTOR_DATABASE_HOST, CHEMSTOR_PUBCHEM_BASE_URL
func LoadFromEnv() (*Config, error) {
	v := newViper()
	// No config file — rely solely on env vars and defaults.
	return unmarshalAndFinalize(v)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  It is intended for
// hot-reloading non-critical settings such as log level and resolver
// rate-limit thresholds; callers are responsible for applying only the safe
// subset of changes at runtime.
//
// Watch is non-blocking; it starts a background goroutine managed by viper.
// If the changed file fails to parse or validate, onChange is NOT called so
// the application never observes a broken configuration.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read — errors are ignored here; callers should call Load first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			// Config change produced an invalid config; skip the callback to
			// prevent the application from entering a broken state.
			return
		}
		onChange(cfg)
	})
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// It is intended for use in main() where a config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
