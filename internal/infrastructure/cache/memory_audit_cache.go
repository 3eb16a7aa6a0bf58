package cache

import (
	"context"
	"sync"
	"time"

	"github.com/farmtrack/backend/internal/domain/placement"
)

type memoryEntry struct {
	report    placement.AuditReport
	expiresAt time.Time
}

// MemoryAuditCache keeps audit reports in process memory. It suits single-instance
// deployments and tests; reports are not shared across instances.
type MemoryAuditCache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	entries   map[string]memoryEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemoryAuditCache creates the cache and starts its expiry sweeper.
// A zero ttl disables caching: every Get is a miss.
func NewMemoryAuditCache(ttl time.Duration) *MemoryAuditCache {
	c := &MemoryAuditCache{
		ttl:      ttl,
		entries:  make(map[string]memoryEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	if ttl > 0 {
		c.wg.Add(1)
		go c.sweepLoop(ttl)
	}
	return c
}

func (c *MemoryAuditCache) Get(_ context.Context, activeOnly bool) (*placement.AuditReport, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[scopeKey(activeOnly)]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	report := e.report
	return &report, true, nil
}

func (c *MemoryAuditCache) Set(_ context.Context, activeOnly bool, report *placement.AuditReport) error {
	if c.ttl <= 0 || report == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[scopeKey(activeOnly)] = memoryEntry{report: *report, expiresAt: c.now().Add(c.ttl)}
	return nil
}

// Invalidate drops both scopes.
func (c *MemoryAuditCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	return nil
}

// Close stops the sweeper. It is safe to call more than once.
func (c *MemoryAuditCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *MemoryAuditCache) sweepLoop(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopChan:
			return
		}
	}
}

func (c *MemoryAuditCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
