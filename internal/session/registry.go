package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionGauge receives the number of live containers.
type SessionGauge interface {
	SetActiveSessions(n int)
}

// Registry maps device ids to their Container.
type Registry struct {
	mu          sync.Mutex
	containers  map[string]*Container
	provider    StorageProvider
	restoreMode string
	logger      *zap.Logger
	gauge       SessionGauge
	now         func() time.Time
}

// NewRegistry constructs a Registry. Containers restore their identity with
// restoreMode when first created.
func NewRegistry(provider StorageProvider, restoreMode string, logger *zap.Logger, gauge SessionGauge) *Registry {
	if provider == nil {
		provider = NewMemoryProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if restoreMode == "" {
		restoreMode = RestoreIdentity
	}
	return &Registry{
		containers:  make(map[string]*Container),
		provider:    provider,
		restoreMode: restoreMode,
		logger:      logger,
		gauge:       gauge,
		now:         time.Now,
	}
}

// Get returns the container of deviceID, creating and restoring it on first
// access. Concurrent first accesses wait for the single restore.
func (r *Registry) Get(ctx context.Context, deviceID string) *Container {
	r.mu.Lock()
	c, ok := r.containers[deviceID]
	if !ok {
		c = NewContainer(deviceID, r.provider.For(deviceID), r.logger)
		r.containers[deviceID] = c
	}
	n := len(r.containers)
	r.mu.Unlock()

	if !ok {
		r.publish(n)
	}

	c.restoreOnce.Do(func() {
		if err := c.Restore(ctx, r.restoreMode); err != nil {
			r.logger.Warn("restore session failed", zap.String("device_id", deviceID), zap.Error(err))
		}
	})
	c.touch(r.now())
	return c
}

// Len returns the number of live containers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.containers)
}

// Sweep drops containers idle for longer than ttl and returns how many were
// removed. Persisted identities are left in storage.
func (r *Registry) Sweep(ttl time.Duration) int {
	now := r.now()
	r.mu.Lock()
	removed := 0
	for id, c := range r.containers {
		if c.idle(now, ttl) {
			delete(r.containers, id)
			removed++
		}
	}
	n := len(r.containers)
	r.mu.Unlock()

	if removed > 0 {
		r.logger.Debug("swept idle sessions", zap.Int("removed", removed), zap.Int("remaining", n))
	}
	r.publish(n)
	return removed
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, ttl time.Duration) {
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
			r.Sweep(ttl)
		}
	}
}

func (r *Registry) publish(n int) {
	if r.gauge != nil {
		r.gauge.SetActiveSessions(n)
	}
}
