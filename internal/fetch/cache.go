package fetch

import (
	"sync"

	"github.com/alertdigest/alertdigest/internal/article"
)

// Namespace partitions the cache by content format so a markdown entry is
// never handed to a caller expecting raw HTML for the same URL.
type Namespace string

// Cache namespaces, one per content format.
const (
	NamespaceHTML     Namespace = "html"
	NamespaceMarkdown Namespace = "markdown"
)

// NamespaceFor maps a content format to the namespace its entries live in.
func NamespaceFor(f article.Format) Namespace {
	if f == article.FormatMarkdown {
		return NamespaceMarkdown
	}
	return NamespaceHTML
}

// FormatFor is the inverse of NamespaceFor.
func FormatFor(ns Namespace) article.Format {
	if ns == NamespaceMarkdown {
		return article.FormatMarkdown
	}
	return article.FormatHTML
}

// Cache holds fetched article content keyed by URL for the lifetime of a
// run, split into one partition per namespace. All methods are safe for
// concurrent use.
type Cache struct {
	partitions map[Namespace]*partition
}

type partition struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewCache creates an empty cache with both namespaces initialized.
func NewCache() *Cache {
	return &Cache{
		partitions: map[Namespace]*partition{
			NamespaceHTML:     {entries: make(map[string]string)},
			NamespaceMarkdown: {entries: make(map[string]string)},
		},
	}
}

// Get returns the cached content for the URL in the given namespace.
func (c *Cache) Get(ns Namespace, rawURL string) (string, bool) {
	p, ok := c.partitions[ns]
	if !ok {
		return "", false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	content, ok := p.entries[rawURL]
	return content, ok
}

// Put stores content for the URL in the given namespace, replacing any
// earlier entry.
func (c *Cache) Put(ns Namespace, rawURL, content string) {
	p, ok := c.partitions[ns]
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[rawURL] = content
}

// Clear drops every entry in the given namespace. Other namespaces keep
// their entries.
func (c *Cache) Clear(ns Namespace) {
	p, ok := c.partitions[ns]
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = make(map[string]string)
}

// Len reports the number of entries in the given namespace.
func (c *Cache) Len(ns Namespace) int {
	p, ok := c.partitions[ns]
	if !ok {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}
