package quotes

import (
	"sync"

	"stockdesk/internal/models"
)

// DefaultCacheSize is the number of snapshots kept per symbol.
const DefaultCacheSize = 50

// Cache keeps a capped history of recent snapshots and the last chart
// series per symbol. It is owned by the session that created it and is
// never persisted.
type Cache struct {
	mu      sync.RWMutex
	size    int
	history map[string][]models.QuoteSnapshot
	bars    map[string][]models.OHLCBar
}

// NewCache creates a cache keeping up to size snapshots per symbol.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache{
		size:    size,
		history: make(map[string][]models.QuoteSnapshot),
		bars:    make(map[string][]models.OHLCBar),
	}
}

// Put records a snapshot, dropping the oldest when the cap is reached.
func (c *Cache) Put(q models.QuoteSnapshot) {
	symbol := NormalizeSymbol(q.Symbol)
	c.mu.Lock()
	defer c.mu.Unlock()

	h := append(c.history[symbol], q)
	if len(h) > c.size {
		h = h[len(h)-c.size:]
	}
	c.history[symbol] = h
}

// Latest returns the most recent snapshot for symbol.
func (c *Cache) Latest(symbol string) (models.QuoteSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h := c.history[NormalizeSymbol(symbol)]
	if len(h) == 0 {
		return models.QuoteSnapshot{}, false
	}
	return h[len(h)-1], true
}

// History returns a copy of the snapshots for symbol, oldest first.
func (c *Cache) History(symbol string) []models.QuoteSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h := c.history[NormalizeSymbol(symbol)]
	out := make([]models.QuoteSnapshot, len(h))
	copy(out, h)
	return out
}

// PutBars stores the latest chart series for symbol.
func (c *Cache) PutBars(symbol string, bars []models.OHLCBar) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]models.OHLCBar, len(bars))
	copy(stored, bars)
	c.bars[NormalizeSymbol(symbol)] = stored
}

// Bars returns the stored chart series for symbol.
func (c *Cache) Bars(symbol string) ([]models.OHLCBar, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.bars[NormalizeSymbol(symbol)]
	if !ok {
		return nil, false
	}
	out := make([]models.OHLCBar, len(b))
	copy(out, b)
	return out, true
}

// Reset clears the cache.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = make(map[string][]models.QuoteSnapshot)
	c.bars = make(map[string][]models.OHLCBar)
}
