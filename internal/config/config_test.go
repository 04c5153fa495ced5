package config

import (
	"testing"
	"time"
)

// allEnvVars lists every variable Load reads, without the prefix.
var allEnvVars = []string{
	"DATABASE_URL", "GRPC_ADDR", "HTTP_ADDR", "NATS_URL", "AUTH_TOKEN",
	"MAX_BATCH_SIZE", "SHUTDOWN_TIMEOUT",
	"SYNC_INTERVAL", "SYNC_S3_BUCKET", "SYNC_S3_ENDPOINT",
	"SYNC_S3_REGION", "SYNC_S3_KEY", "SYNC_GIT_REPO",
	"SYNC_GIT_FILE", "SYNC_GIT_BRANCH",
	"HOOK_JOURNEY_RESUMED", "HOOK_BROADCAST_STATUS_CHANGED", "HOOK_TIMEOUT",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(EnvPrefix+key, "")
	}
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name         string
		env          map[string]string
		wantErr      bool
		wantGRPCAddr string
		wantHTTPAddr string
		wantNATSURL  string
	}{
		{
			name:    "MissingDatabaseURL",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name:         "DefaultAddresses",
			env:          map[string]string{"DISPATCH_DATABASE_URL": "postgres://localhost/dispatch"},
			wantGRPCAddr: ":9090",
			wantHTTPAddr: ":8080",
		},
		{
			name: "CustomAddresses",
			env: map[string]string{
				"DISPATCH_DATABASE_URL": "postgres://db:5432/dispatch",
				"DISPATCH_GRPC_ADDR":    ":5050",
				"DISPATCH_HTTP_ADDR":    ":3000",
				"DISPATCH_NATS_URL":     "nats://localhost:4222",
			},
			wantGRPCAddr: ":5050",
			wantHTTPAddr: ":3000",
			wantNATSURL:  "nats://localhost:4222",
		},
		{
			name: "BadBatchSize",
			env: map[string]string{
				"DISPATCH_DATABASE_URL":   "postgres://localhost/dispatch",
				"DISPATCH_MAX_BATCH_SIZE": "-4",
			},
			wantErr: true,
		},
		{
			name: "BadShutdownTimeout",
			env: map[string]string{
				"DISPATCH_DATABASE_URL":     "postgres://localhost/dispatch",
				"DISPATCH_SHUTDOWN_TIMEOUT": "soon",
			},
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.DatabaseURL != tc.env["DISPATCH_DATABASE_URL"] {
				t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, tc.env["DISPATCH_DATABASE_URL"])
			}
			if cfg.GRPCAddr != tc.wantGRPCAddr {
				t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, tc.wantGRPCAddr)
			}
			if cfg.HTTPAddr != tc.wantHTTPAddr {
				t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, tc.wantHTTPAddr)
			}
			if cfg.NATSURL != tc.wantNATSURL {
				t.Errorf("NATSURL = %q, want %q", cfg.NATSURL, tc.wantNATSURL)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("DISPATCH_DATABASE_URL", "postgres://localhost/dispatch")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxBatchSize != 500 {
		t.Errorf("MaxBatchSize = %d, want 500", cfg.MaxBatchSize)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
	if cfg.SyncInterval != 3*time.Minute {
		t.Errorf("SyncInterval = %v, want 3m", cfg.SyncInterval)
	}
	if cfg.SyncS3Region != "us-east-1" {
		t.Errorf("SyncS3Region = %q, want %q", cfg.SyncS3Region, "us-east-1")
	}
	if cfg.SyncS3Key != "dispatch/backup.jsonl" {
		t.Errorf("SyncS3Key = %q, want %q", cfg.SyncS3Key, "dispatch/backup.jsonl")
	}
	if cfg.SyncGitFile != "dispatch.jsonl" {
		t.Errorf("SyncGitFile = %q, want %q", cfg.SyncGitFile, "dispatch.jsonl")
	}
	if cfg.SyncGitBranch != "main" {
		t.Errorf("SyncGitBranch = %q, want %q", cfg.SyncGitBranch, "main")
	}
}

func TestLoadSyncCustom(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("DISPATCH_DATABASE_URL", "postgres://localhost/dispatch")
	t.Setenv("DISPATCH_SYNC_INTERVAL", "10m")
	t.Setenv("DISPATCH_SYNC_S3_BUCKET", "my-bucket")
	t.Setenv("DISPATCH_SYNC_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("DISPATCH_SYNC_S3_REGION", "eu-west-1")
	t.Setenv("DISPATCH_SYNC_S3_KEY", "custom/key.jsonl")
	t.Setenv("DISPATCH_SYNC_GIT_REPO", "/tmp/repo")
	t.Setenv("DISPATCH_SYNC_GIT_FILE", "custom.jsonl")
	t.Setenv("DISPATCH_SYNC_GIT_BRANCH", "backup")
	t.Setenv("DISPATCH_MAX_BATCH_SIZE", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SyncInterval != 10*time.Minute {
		t.Errorf("SyncInterval = %v, want 10m", cfg.SyncInterval)
	}
	if cfg.SyncS3Bucket != "my-bucket" || cfg.SyncS3Endpoint != "http://minio:9000" {
		t.Errorf("S3 bucket/endpoint = %q/%q", cfg.SyncS3Bucket, cfg.SyncS3Endpoint)
	}
	if cfg.SyncS3Region != "eu-west-1" || cfg.SyncS3Key != "custom/key.jsonl" {
		t.Errorf("S3 region/key = %q/%q", cfg.SyncS3Region, cfg.SyncS3Key)
	}
	if cfg.SyncGitRepo != "/tmp/repo" || cfg.SyncGitFile != "custom.jsonl" || cfg.SyncGitBranch != "backup" {
		t.Errorf("git = %q %q %q", cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch)
	}
	if cfg.MaxBatchSize != 50 {
		t.Errorf("MaxBatchSize = %d, want 50", cfg.MaxBatchSize)
	}
}

func TestLoadSyncInvalidInterval(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("DISPATCH_DATABASE_URL", "postgres://localhost/dispatch")
	t.Setenv("DISPATCH_SYNC_INTERVAL", "not-a-duration")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid DISPATCH_SYNC_INTERVAL")
	}
}

func TestLoadSyncDisabled(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("DISPATCH_DATABASE_URL", "postgres://localhost/dispatch")
	t.Setenv("DISPATCH_SYNC_INTERVAL", "0s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SyncInterval != 0 {
		t.Errorf("SyncInterval = %v, want 0 (disabled)", cfg.SyncInterval)
	}
}

func TestLoadInMemory(t *testing.T) {
	clearAllEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected error without DISPATCH_DATABASE_URL")
	}
	cfg, err := Load(InMemory())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.InMemory {
		t.Error("InMemory = false, want true")
	}
}

func TestLoadHooks(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("DISPATCH_DATABASE_URL", "postgres://localhost/dispatch")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HookTimeout != 30*time.Second {
		t.Errorf("HookTimeout = %v, want 30s", cfg.HookTimeout)
	}

	t.Setenv("DISPATCH_HOOK_JOURNEY_RESUMED", "./notify.sh")
	t.Setenv("DISPATCH_HOOK_TIMEOUT", "5s")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HookJourneyResumed != "./notify.sh" || cfg.HookTimeout != 5*time.Second {
		t.Errorf("hooks = %q %v", cfg.HookJourneyResumed, cfg.HookTimeout)
	}

	t.Setenv("DISPATCH_HOOK_TIMEOUT", "later")
	if _, err := Load(); err == nil {
		t.Error("expected error for invalid DISPATCH_HOOK_TIMEOUT")
	}
}

func TestEnvOrDefault(t *testing.T) {
	for _, tc := range []struct {
		name     string
		key      string
		envVal   string
		fallback string
		want     string
	}{
		{"EmptyUsesDefault", "TEST_ENVDEFAULT_EMPTY", "", "default-val", "default-val"},
		{"SetUsesEnv", "TEST_ENVDEFAULT_SET", "custom", "default-val", "custom"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvPrefix+tc.key, tc.envVal)
			got := envOrDefault(tc.key, tc.fallback)
			if got != tc.want {
				t.Errorf("envOrDefault(%q, %q) = %q, want %q", tc.key, tc.fallback, got, tc.want)
			}
		})
	}
}
