package cache

import (
	"context"
	"log/slog"
)

// SafeHashSetDefaults seeds hash fields, logging instead of failing
func SafeHashSetDefaults(ctx context.Context, helper *CacheHelper, key string, fields map[string]string, config CacheConfig) {
	if len(fields) == 0 {
		return
	}
	if err := helper.HashSetDefaults(ctx, key, fields, config.TTL); err != nil {
		slog.ErrorContext(ctx, "Failed to seed cache hash",
			"error", err,
			"key", key)
	}
}
