package toolkit

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/model"
)

// excludedFromCache lists tool names never cached, mirroring the Python
// source's controller-level exclusion of extract_zip (each call may unpack a
// differently-named sibling directory, so a cached result would go stale).
var excludedFromCache = map[string]bool{
	"extract_zip": true,
}

// CacheKey returns the canonical cache key for a tool call, or ("", false)
// if the tool is excluded from caching by name.
func CacheKey(call model.ToolCall) (string, bool) {
	if excludedFromCache[call.Name] {
		return "", false
	}
	canonical, err := call.CanonicalKey()
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%s:%x", call.Name, xxhash.Sum64String(canonical)), true
}

// Cache is a simple in-memory result cache keyed by CacheKey, scoped to one
// controller run (testable property 2: identical calls within a run return
// identical results without re-invoking the tool).
type Cache struct {
	entries map[string]*model.ToolResult
}

func NewCache() *Cache {
	return &Cache{entries: map[string]*model.ToolResult{}}
}

func (c *Cache) Get(call model.ToolCall) (*model.ToolResult, bool) {
	key, cacheable := CacheKey(call)
	if !cacheable {
		return nil, false
	}
	r, ok := c.entries[key]
	return r, ok
}

func (c *Cache) Put(call model.ToolCall, result *model.ToolResult) {
	key, cacheable := CacheKey(call)
	if !cacheable {
		return
	}
	c.entries[key] = result
}
