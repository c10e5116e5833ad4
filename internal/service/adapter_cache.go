package service

import (
	"sync"

	"spamguard/internal/classifier"
	"spamguard/internal/models"
)

// AdapterCache keeps one loaded adapter per model version id. Versions are
// immutable, so a cached adapter never goes stale; the cache is read-mostly
// and safe for concurrent prediction traffic.
type AdapterCache struct {
	mu       sync.RWMutex
	adapters map[string]classifier.Adapter
	load     func(artifactPath string) (classifier.Adapter, error)
}

// NewAdapterCache creates an adapter cache backed by classifier.LoadAdapter.
func NewAdapterCache() *AdapterCache {
	return &AdapterCache{
		adapters: make(map[string]classifier.Adapter),
		load:     classifier.LoadAdapter,
	}
}

// Get returns the adapter for a resolved model version, loading the artifact
// on first use. A load failure is fatal for that version only.
func (c *AdapterCache) Get(mv *models.ModelVersion) (classifier.Adapter, error) {
	c.mu.RLock()
	adapter, ok := c.adapters[mv.ID]
	c.mu.RUnlock()
	if ok {
		return adapter, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if adapter, ok := c.adapters[mv.ID]; ok {
		return adapter, nil
	}
	adapter, err := c.load(mv.ArtifactRef)
	if err != nil {
		return nil, err
	}
	c.adapters[mv.ID] = adapter
	return adapter, nil
}
