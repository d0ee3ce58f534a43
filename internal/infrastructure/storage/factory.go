package storage

import (
	"context"
	"fmt"

	"pantry-assistant/internal/core/pantry"
	"pantry-assistant/internal/infrastructure/config"
	"pantry-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// New 依設定的 driver 創建儲存
func New(ctx context.Context, cfg config.StorageConfig) (pantry.Store, error) {
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	var store pantry.Store
	switch cfg.Driver {
	case "", "memory":
		store = NewMemoryStore()
	case "postgres":
		pg, err := OpenPostgres(ctx, cfg.PostgresDSN, cfg.MaxOpenConns, cfg.MaxIdleConns)
		if err != nil {
			return nil, err
		}
		if cfg.MigrateOnStart {
			if err := pg.Migrate(ctx); err != nil {
				pg.Close()
				return nil, err
			}
		}
		store = pg
	case "mongo":
		m, err := OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		store = m
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}

	common.LogInfo("儲存初始化完成", zap.String("driver", cfg.Driver))

	if cfg.SeedDemoRecipes {
		if err := SeedRecipes(ctx, store); err != nil {
			store.Close()
			return nil, err
		}
	}
	return store, nil
}
