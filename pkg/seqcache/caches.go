package seqcache

import "sync"

// Caches holds one Cache for each embedding model.
//
// Caches are created on first use and live as long as Caches.
type Caches struct {
	fetcher      Fetcher
	defaultModel string
	options      []Option

	mu     sync.Mutex
	caches map[string]*Cache
}

func NewCaches(fetcher Fetcher, defaultModel string, options ...Option) *Caches {
	return &Caches{
		fetcher:      fetcher,
		defaultModel: defaultModel,
		options:      options,
		caches:       map[string]*Cache{},
	}
}

// For returns the Cache of the model. Empty model means the default model.
func (c *Caches) For(model string) *Cache {
	if model == "" {
		model = c.defaultModel
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cache, ok := c.caches[model]; ok {
		return cache
	}
	cache := New(c.fetcher, model, c.options...)
	c.caches[model] = cache
	return cache
}

// Default returns the Cache of the default model.
func (c *Caches) Default() *Cache {
	return c.For("")
}
