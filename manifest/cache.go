package manifest

import (
	"os"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/tliron/commonlog"
)

var cacheLog = commonlog.GetLogger("dlfmt.manifest")

// Cache is the mtime-keyed incremental cache backing .dlfmt_cache.json: a
// flat mapping from file path (exactly as passed to Record and NeedsUpdate,
// so relative when the discovery root was relative) to the file's last
// observed modification time, in seconds since epoch.
type Cache struct {
	path string

	mu      sync.Mutex
	entries map[string]int64
	dirty   bool
}

// LoadCache reads the cache file at path. A missing or unreadable cache is
// treated as empty, matching spec.md's cache-read tolerance -- it is never
// an error to run without a prior cache.
func LoadCache(path string) *Cache {
	c := &Cache{path: path, entries: make(map[string]int64)}
	raw, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	if err := json.Unmarshal(raw, &c.entries); err != nil {
		cacheLog.Warningf("ignoring unreadable cache %s: %s", path, err)
		c.entries = make(map[string]int64)
	}
	return c
}

// NeedsUpdate reports whether path is unseen or its cached mtime differs
// from mtime, meaning it must be (re)processed.
func (c *Cache) NeedsUpdate(path string, mtime int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[path] != mtime
}

// Record stores path's new mtime after it has been successfully processed.
func (c *Cache) Record(path string, mtime int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = mtime
	c.dirty = true
}

// Save atomically rewrites the cache file, if anything changed since it was
// loaded. Writing to a temp file and renaming over the target avoids ever
// leaving a truncated cache behind on a crash mid-write.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	raw, err := json.Marshal(c.entries)
	if err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
