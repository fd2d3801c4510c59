package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/lockstep-fin/lockstep/internal/config"
	"github.com/lockstep-fin/lockstep/internal/embed"
	"github.com/lockstep-fin/lockstep/internal/service"
	"github.com/lockstep-fin/lockstep/internal/storage"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/lockstep/lockstep.db"
	}

	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initEmbeddingProvider builds the configured embedding provider wrapped in
// the content-hash cache.
func initEmbeddingProvider() (service.EmbeddingProvider, error) {
	provider, err := embed.NewOpenAIProvider(embed.Config{
		APIKey:  viper.GetString("embeddings.api_key"),
		Model:   viper.GetString("embeddings.model"),
		BaseURL: viper.GetString("embeddings.base_url"),
		Timeout: viper.GetDuration("embeddings.timeout"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	return embed.NewCachingProvider(provider), nil
}

// requireTenant returns the configured tenant ID or an error.
func requireTenant() (string, error) {
	tenant := viper.GetString("tenant")
	if tenant == "" {
		return "", fmt.Errorf("tenant is required: pass --tenant or set LOCKSTEP_TENANT")
	}
	return tenant, nil
}

// embedRetryOptions is the CLI's retry policy around provider calls. The
// core never retries; the caller decides.
func embedRetryOptions() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}
