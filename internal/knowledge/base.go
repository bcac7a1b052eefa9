// Package knowledge owns the shared knowledge base artifact: loading it from
// layered sources, deciding when validated outcomes justify a new version,
// and persisting that version without ever corrupting the canonical copy.
package knowledge

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/triaged/internal/objectstore"
)

// Placeholder is the last-resort knowledge base content when neither shared
// storage nor configuration provides one.
const Placeholder = "## Knowledge Base\n\nNo curated knowledge is available yet."

// Base is an explicit, versioned knowledge base value. The authoritative
// copy lives in shared storage; this value is threaded through the
// controller and discarded at process end.
type Base struct {
	Content string

	// Version is a logical tag regenerated on every load and successful
	// write. It only distinguishes values within a process; it is not
	// persisted.
	Version string
}

// Source attempts to provide knowledge base content. ok is false when the
// source has nothing to offer.
type Source func(ctx context.Context) (content string, ok bool)

// StoreSource reads the canonical knowledge base from shared storage.
func StoreSource(store objectstore.Store, bucket, key string, logger *zap.Logger) Source {
	return func(ctx context.Context) (string, bool) {
		data, err := store.Get(ctx, bucket, key)
		if err != nil {
			if err != objectstore.ErrNotFound {
				logger.Warn("knowledge base unavailable in shared storage",
					zap.String("bucket", bucket),
					zap.String("key", key),
					zap.Error(err))
			}
			return "", false
		}
		return string(data), true
	}
}

// StaticSource provides fixed content, typically injected via configuration.
// Empty content means the source has nothing to offer.
func StaticSource(content string) Source {
	return func(ctx context.Context) (string, bool) {
		return content, content != ""
	}
}

// Load tries sources in order and returns a Base from the first that
// provides content, falling back to the static placeholder.
func Load(ctx context.Context, sources ...Source) Base {
	for _, source := range sources {
		if content, ok := source(ctx); ok {
			return Base{Content: content, Version: uuid.New().String()}
		}
	}
	return Base{Content: Placeholder, Version: uuid.New().String()}
}
