// Package storage opens the chat.Store selected by configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/Ronak501/Research-Agent/backend/internal/config"
	"github.com/Ronak501/Research-Agent/backend/internal/model/chat"
	"github.com/Ronak501/Research-Agent/backend/internal/storage/mongo"
	"github.com/Ronak501/Research-Agent/backend/internal/storage/sqlite"
)

// Open returns the configured store. Callers own the result and must Close it.
func Open(ctx context.Context, cfg config.DatabaseConfig) (chat.Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		return mongo.Open(ctx, cfg.MongoURL, cfg.Name)
	case config.DriverSQLite:
		return sqlite.Open(cfg.SQLitePath)
	case config.DriverMemory:
		return chat.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
