// Package resolvercache decorates the compound resolvers with a Redis-backed
// cache so repeated lookups of the same name or CID stay off the upstream
// service.  Unknown names are negative-cached; upstream failures are never
// cached.  When the cache itself is unavailable the decorator degrades to
// direct resolver calls.
package resolvercache

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/ChemStor-Intelligence/internal/domain/compound"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
)

const (
	safetyKeyPrefix  = "resolver:safety:"
	namesKeyPrefix   = "resolver:names:"
	thermalKeyPrefix = "resolver:thermal:"
)

// Resolver wraps the three upstream resolver contracts with caching.
type Resolver struct {
	safety  compound.SafetyDataResolver
	names   compound.NameResolver
	thermal compound.ThermalResolver
	cache   redis.Cache
	ttl     time.Duration
	logger  logging.Logger
}

var (
	_ compound.SafetyDataResolver = (*Resolver)(nil)
	_ compound.NameResolver       = (*Resolver)(nil)
	_ compound.ThermalResolver    = (*Resolver)(nil)
)

// New builds the caching decorator.  The inner resolvers are usually one
// PubChem client implementing all three interfaces.
func New(
	safety compound.SafetyDataResolver,
	names compound.NameResolver,
	thermal compound.ThermalResolver,
	cache redis.Cache,
	ttl time.Duration,
	logger logging.Logger,
) *Resolver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Resolver{
		safety:  safety,
		names:   names,
		thermal: thermal,
		cache:   cache,
		ttl:     ttl,
		logger:  logger.Named("resolvercache"),
	}
}

func cacheKeyName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Resolve serves the safety profile from cache when possible.  A cached null
// answers repeat lookups of unknown names with the not-found error directly.
func (r *Resolver) Resolve(ctx context.Context, name string) (*compound.SafetyProfile, error) {
	key := safetyKeyPrefix + cacheKeyName(name)

	var profile compound.SafetyProfile
	err := r.cache.GetOrSet(ctx, key, &profile, r.ttl, func(ctx context.Context) (interface{}, error) {
		p, resolveErr := r.safety.Resolve(ctx, name)
		if resolveErr != nil {
			if errors.IsCode(resolveErr, errors.ErrCodeResolverCompoundNotFound) {
				return nil, nil
			}
			return nil, resolveErr
		}
		return p, nil
	})
	switch {
	case err == nil:
		return &profile, nil
	case err == redis.ErrCacheMiss:
		return nil, errors.New(errors.ErrCodeResolverCompoundNotFound, "no compound matches the given name").
			WithDetail("name=" + name)
	case errors.IsCode(err, errors.ErrCodeCacheError):
		r.logger.Warn("Cache unavailable, resolving directly", logging.String("name", name), logging.Err(err))
		return r.safety.Resolve(ctx, name)
	default:
		return nil, err
	}
}

// LookupNames caches name lookups by CID.
func (r *Resolver) LookupNames(ctx context.Context, cid string) (*compound.CompoundNames, error) {
	key := namesKeyPrefix + strings.TrimSpace(cid)

	var names compound.CompoundNames
	err := r.cache.GetOrSet(ctx, key, &names, r.ttl, func(ctx context.Context) (interface{}, error) {
		return r.names.LookupNames(ctx, cid)
	})
	switch {
	case err == nil:
		return &names, nil
	case errors.IsCode(err, errors.ErrCodeCacheError):
		r.logger.Warn("Cache unavailable, resolving directly", logging.String("cid", cid), logging.Err(err))
		return r.names.LookupNames(ctx, cid)
	default:
		return nil, err
	}
}

// LookupThermalProperties caches thermal lookups by name.  A record with both
// bounds missing is still a real answer and is cached as such.
func (r *Resolver) LookupThermalProperties(ctx context.Context, name string) (*compound.ThermalProperties, error) {
	key := thermalKeyPrefix + cacheKeyName(name)

	var props compound.ThermalProperties
	err := r.cache.GetOrSet(ctx, key, &props, r.ttl, func(ctx context.Context) (interface{}, error) {
		return r.thermal.LookupThermalProperties(ctx, name)
	})
	switch {
	case err == nil:
		return &props, nil
	case errors.IsCode(err, errors.ErrCodeCacheError):
		r.logger.Warn("Cache unavailable, resolving directly", logging.String("name", name), logging.Err(err))
		return r.thermal.LookupThermalProperties(ctx, name)
	default:
		return nil, err
	}
}
//Personal.AI order the ending
