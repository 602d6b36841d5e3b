package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"contactfix/pkg/client"
	kafka_config "contactfix/pkg/kafka/config"
	"contactfix/pkg/logger"
	"contactfix/pkg/normalizer"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	NumberLocalPrefix string
	NumberIntlPrefix  string
	Scheme            normalizer.Scheme

	FixBatchConcurrency int
	FixBatchPageSize    int

	Kafka *kafka_config.Config

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the configuration of serviceName from the environment and exits
// the process when it is invalid.
func Load(serviceName string) *Config {
	log := logger.New(logger.Config{
		Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
		Format:    logger.JSON,
		AddSource: true,
		Service:   serviceName,
	})

	cfg, err := loadWithLogger(log)
	if err != nil {
		log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func loadWithLogger(log *logger.Logger) (*Config, error) {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		NumberLocalPrefix: getEnvStr(EnvNumberLocalPrefix, DefaultNumberLocalPrefix),
		NumberIntlPrefix:  getEnvStr(EnvNumberIntlPrefix, DefaultNumberIntlPrefix),

		FixBatchConcurrency: getEnvNum(EnvFixBatchConcurrency, DefaultFixBatchConcurrency),
		FixBatchPageSize:    getEnvNum(EnvFixBatchPageSize, DefaultFixBatchPageSize),

		Log:    log,
		Client: client.NewClient(),
	}

	kafkaCfg, kafkaErr := kafka_config.Load()
	cfg.Kafka = kafkaCfg

	if err := cfg.Validate(); err != nil {
		if kafkaErr != nil {
			return nil, fmt.Errorf("%w\n%v", err, kafkaErr)
		}
		return nil, err
	}
	if kafkaErr != nil {
		return nil, kafkaErr
	}
	return cfg, nil
}

// SetMongo connects the shared Mongo client or exits the process.
func (cfg *Config) SetMongo() {
	if err := cfg.Client.SetMongo(context.Background(), cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout); err != nil {
		cfg.Log.Fatal("Failed to connect to MongoDB", "error", err, "uri", redactMongoURI(cfg.MongoURI))
	}
}

// Validate also derives Scheme from the configured prefixes.
func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://.+`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	scheme, err := normalizer.NewScheme(cfg.NumberLocalPrefix, cfg.NumberIntlPrefix)
	if err != nil {
		errors = append(errors, fmt.Sprintf("Number prefixes are invalid: %v", err))
	} else {
		cfg.Scheme = scheme
	}

	if cfg.FixBatchConcurrency < 1 || cfg.FixBatchConcurrency > MaxFixBatchConcurrency {
		errors = append(errors, fmt.Sprintf("FixBatchConcurrency must be between 1 and %d, got: %d", MaxFixBatchConcurrency, cfg.FixBatchConcurrency))
	}
	if cfg.FixBatchPageSize < 1 || cfg.FixBatchPageSize > 1000 {
		errors = append(errors, fmt.Sprintf("FixBatchPageSize must be between 1 and 1000, got: %d", cfg.FixBatchPageSize))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"number_local_prefix", cfg.Scheme.LocalPrefix,
		"number_intl_prefix", cfg.Scheme.IntlPrefix,
		"fix_batch_concurrency", cfg.FixBatchConcurrency,
		"fix_batch_page_size", cfg.FixBatchPageSize,
	)
	if cfg.Kafka != nil {
		cfg.Kafka.LogConfiguration(cfg.Log.Info)
	}
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:@/]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// GracefulShutdown releases the shared clients within ShutdownTimeout.
func (cfg *Config) GracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := cfg.Client.GracefulShutdown(ctx); err != nil {
		cfg.Log.Error("Failed to release clients", "error", err)
		return
	}
	cfg.Log.Info("Clients released")
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
