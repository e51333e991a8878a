package main

import (
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/database/neo4j"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/search/milvus"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/search/opensearch"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/storage/minio"
	"github.com/turtacn/ChemStor-Intelligence/internal/interfaces/http/handlers"
)

// healthCheckers adapts the connected backends to the readiness probe.
// Backends that failed to boot arrive nil and stay out of the checker set,
// so a degraded server still reports ready for the surface it actually has.
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

//Personal.AI order the ending
