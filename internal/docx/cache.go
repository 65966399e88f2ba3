package docx

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// cachedFile is the raw content of a template together with the file
// attributes it was read with
type cachedFile struct {
	data    []byte
	modTime time.Time
	size    int64
}

// CacheStats represents template cache statistics
type CacheStats struct {
	Hits      int64     `json:"hits"`
	Misses    int64     `json:"misses"`
	Reloads   int64     `json:"reloads"`
	Entries   int       `json:"entries"`
	LastReset time.Time `json:"last_reset"`
}

// Cache keeps template files in memory. Every Open parses a new Document,
// so callers always receive an unmodified copy of the template.
type Cache struct {
	files  *lru.Cache[string, cachedFile]
	logger *logrus.Logger

	statsMu sync.Mutex
	stats   CacheStats
}

// NewCache creates a template cache holding at most size files
func NewCache(size int, logger *logrus.Logger) (*Cache, error) {
	files, err := lru.New[string, cachedFile](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create template cache: %w", err)
	}
	return &Cache{
		files:  files,
		logger: logger,
		stats:  CacheStats{LastReset: time.Now()},
	}, nil
}

// Open returns a fresh Document for the template at filename. The file is
// re-read when its size or modification time changed since it was cached.
func (c *Cache) Open(filename string) (*Document, error) {
	key, err := filepath.Abs(filename)
	if err != nil {
		key = filename
	}

	info, err := os.Stat(key)
	if err != nil {
		return nil, fmt.Errorf("failed to stat template: %w", err)
	}

	if cached, ok := c.files.Get(key); ok {
		if cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
			c.record(func(s *CacheStats) { s.Hits++ })
			return Read(cached.data)
		}
		c.record(func(s *CacheStats) { s.Reloads++ })
		c.logger.WithField("template", key).Debug("Template changed on disk, reloading")
	} else {
		c.record(func(s *CacheStats) { s.Misses++ })
	}

	data, err := os.ReadFile(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	doc, err := Read(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	c.files.Add(key, cachedFile{data: data, modTime: info.ModTime(), size: info.Size()})
	c.logger.WithFields(logrus.Fields{
		"template": key,
		"bytes":    len(data),
	}).Debug("Template cached")
	return doc, nil
}

// Invalidate drops a template from the cache
func (c *Cache) Invalidate(filename string) {
	if key, err := filepath.Abs(filename); err == nil {
		c.files.Remove(key)
	}
	c.files.Remove(filename)
}

// Stats returns a snapshot of the cache statistics
func (c *Cache) Stats() CacheStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	stats := c.stats
	stats.Entries = c.files.Len()
	return stats
}

func (c *Cache) record(update func(*CacheStats)) {
	c.statsMu.Lock()
	update(&c.stats)
	c.statsMu.Unlock()
}
