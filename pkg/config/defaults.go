package config

import (
	"time"

	"contactfix/pkg/normalizer"
)

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "contactfix"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 120
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second // batch fixes can run long
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultNumberLocalPrefix = normalizer.LocalPrefix
	DefaultNumberIntlPrefix  = normalizer.IntlPrefix

	DefaultFixBatchConcurrency = 8
	DefaultFixBatchPageSize    = 200

	DefaultPaginationLimit = 100
	MaxFixBatchConcurrency = 64
)
