package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvPrefix is prepended to every variable Load reads.
const EnvPrefix = "DISPATCH_"

type Config struct {
	DatabaseURL string // DISPATCH_DATABASE_URL (required unless InMemory)
	InMemory    bool   // set by the InMemory option; selects the memory store
	GRPCAddr    string // DISPATCH_GRPC_ADDR (default ":9090")
	HTTPAddr    string // DISPATCH_HTTP_ADDR (default ":8080")
	NATSURL     string // DISPATCH_NATS_URL (optional, empty = no events)
	AuthToken   string // DISPATCH_AUTH_TOKEN (optional, empty = auth disabled)

	MaxBatchSize    int           // DISPATCH_MAX_BATCH_SIZE (default 500)
	ShutdownTimeout time.Duration // DISPATCH_SHUTDOWN_TIMEOUT (default 10s)

	// Sync settings
	SyncInterval   time.Duration // DISPATCH_SYNC_INTERVAL (default 3m; 0 = disabled)
	SyncS3Bucket   string        // DISPATCH_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // DISPATCH_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // DISPATCH_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // DISPATCH_SYNC_S3_KEY (default "dispatch/backup.jsonl")
	SyncGitRepo    string        // DISPATCH_SYNC_GIT_REPO (enables git when set; path to clone)
	SyncGitFile    string        // DISPATCH_SYNC_GIT_FILE (default "dispatch.jsonl")
	SyncGitBranch  string        // DISPATCH_SYNC_GIT_BRANCH (default "main")

	// Hook commands, run through sh -c when the matching event fires.
	HookJourneyResumed         string        // DISPATCH_HOOK_JOURNEY_RESUMED
	HookBroadcastStatusChanged string        // DISPATCH_HOOK_BROADCAST_STATUS_CHANGED
	HookTimeout                time.Duration // DISPATCH_HOOK_TIMEOUT (default 30s)
}

// Option adjusts a Config before it is validated.
type Option func(*Config)

// InMemory makes the server use the in-memory store, so no database URL is
// needed.
func InMemory() Option {
	return func(c *Config) { c.InMemory = true }
}

func Load(opts ...Option) (*Config, error) {
	c := &Config{
		DatabaseURL:    env("DATABASE_URL"),
		GRPCAddr:       envOrDefault("GRPC_ADDR", ":9090"),
		HTTPAddr:       envOrDefault("HTTP_ADDR", ":8080"),
		NATSURL:        env("NATS_URL"),
		AuthToken:      env("AUTH_TOKEN"),
		SyncS3Bucket:   env("SYNC_S3_BUCKET"),
		SyncS3Endpoint: env("SYNC_S3_ENDPOINT"),
		SyncS3Region:   envOrDefault("SYNC_S3_REGION", "us-east-1"),
		SyncS3Key:      envOrDefault("SYNC_S3_KEY", "dispatch/backup.jsonl"),
		SyncGitRepo:    env("SYNC_GIT_REPO"),
		SyncGitFile:    envOrDefault("SYNC_GIT_FILE", "dispatch.jsonl"),
		SyncGitBranch:  envOrDefault("SYNC_GIT_BRANCH", "main"),

		HookJourneyResumed:         env("HOOK_JOURNEY_RESUMED"),
		HookBroadcastStatusChanged: env("HOOK_BROADCAST_STATUS_CHANGED"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.DatabaseURL == "" && !c.InMemory {
		return nil, fmt.Errorf("%sDATABASE_URL is required", EnvPrefix)
	}

	var err error
	if c.SyncInterval, err = durationEnv("SYNC_INTERVAL", "3m"); err != nil {
		return nil, err
	}
	if c.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if c.HookTimeout, err = durationEnv("HOOK_TIMEOUT", "30s"); err != nil {
		return nil, err
	}

	batch := envOrDefault("MAX_BATCH_SIZE", "500")
	n, err := strconv.Atoi(batch)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("%sMAX_BATCH_SIZE: must be a positive integer, got %q", EnvPrefix, batch)
	}
	c.MaxBatchSize = n

	return c, nil
}

func env(name string) string {
	return os.Getenv(EnvPrefix + name)
}

func envOrDefault(name, fallback string) string {
	if v := env(name); v != "" {
		return v
	}
	return fallback
}

func durationEnv(name, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(name, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	return d, nil
}
