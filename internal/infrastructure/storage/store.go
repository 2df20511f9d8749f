package storage

import (
	"context"
	"fmt"

	"github.com/foodaudit/backend/internal/domain/audit"
	infraconfig "github.com/foodaudit/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ObjectStore is an evidence object store that can also be written and health-checked
type ObjectStore interface {
	audit.ObjectReader
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	Ping(ctx context.Context) error
}

// NewObjectStore creates the store selected by cfg.Driver
func NewObjectStore(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (ObjectStore, error) {
	switch cfg.Driver {
	case "", "memory":
		logger.Warn("Using in-memory evidence store; evidence is not persisted")
		return NewMemoryObjectStore(), nil
	case "s3":
		return NewS3ObjectStore(ctx, cfg, WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
