package latentfactor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/common/metrics"
	"job-recommender/internal/recommender/modelstore"
)

// BundleLoader reads persisted bundles. Version 0 means the latest.
type BundleLoader interface {
	Load(ctx context.Context, version int) (modelstore.Metadata, []byte, error)
}

// latestLister is implemented by stores that can report their newest version
// without reading the bundle.
type latestLister interface {
	Latest() (version int, ok bool, err error)
}

// Handle owns the process-wide current model. Readers call Current without
// locking; replacement happens through Swap, Load, Reload or Watch only.
type Handle struct {
	current atomic.Pointer[Model]
	store   BundleLoader
	logger  logger.Logger
}

// NewHandle creates an empty handle backed by store.
func NewHandle(store BundleLoader, log logger.Logger) *Handle {
	return &Handle{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "model-handle"}),
	}
}

// Current returns the live model, or nil when none is loaded.
func (h *Handle) Current() *Model {
	return h.current.Load()
}

// Swap installs m and returns the model it replaced.
func (h *Handle) Swap(m *Model) *Model {
	prev := h.current.Swap(m)
	if m != nil {
		metrics.ModelVersion.Set(float64(m.Version))
		h.logger.Info("model swapped in", map[string]interface{}{
			"version": m.Version,
			"users":   m.NumUsers(),
			"jobs":    m.NumItems(),
		})
	}
	return prev
}

// Load reads the latest bundle if no model is loaded yet.
func (h *Handle) Load(ctx context.Context) error {
	if h.Current() != nil {
		return nil
	}
	return h.Reload(ctx)
}

// Reload reads the latest bundle and swaps it in. On failure the current model
// stays in place.
func (h *Handle) Reload(ctx context.Context) error {
	meta, payload, err := h.store.Load(ctx, 0)
	if err != nil {
		return err
	}
	m, err := Decode(payload)
	if err != nil {
		return apperrors.NewModelCorruptedError(fmt.Sprintf("%s_v%d", meta.Name, meta.Version), err)
	}
	m.Version = meta.Version
	h.Swap(m)
	return nil
}

// Watch picks up bundles published by other replicas. Every interval it
// reloads when the store holds a newer version than the live model. It
// returns when ctx is done; interval <= 0 disables it.
func (h *Handle) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.refresh(ctx); err != nil {
				h.logger.Warn("model reload failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

func (h *Handle) refresh(ctx context.Context) error {
	lister, ok := h.store.(latestLister)
	if !ok {
		return h.Reload(ctx)
	}
	latest, found, err := lister.Latest()
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if cur := h.Current(); cur != nil && cur.Version >= latest {
		return nil
	}
	return h.Reload(ctx)
}
