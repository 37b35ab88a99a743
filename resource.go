package xsd

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/agentflare-ai/go-xmldom"
	"github.com/golang/groupcache/lru"
)

// OpenResource resolves location (an absolute URI, a filesystem path, or a
// path relative to baseURI) to an open byte source and its canonical URI
// (§4.1). The caller is responsible for closing the returned stream; every
// caller in this package closes it before returning the parsed tree, so no
// long-lived file handle escapes the resource loader (§5).
func OpenResource(location, baseURI string, httpClient *http.Client) (io.ReadCloser, string, error) {
	canonical := resolveResourceLocation(location, baseURI)

	if strings.HasPrefix(canonical, "http://") || strings.HasPrefix(canonical, "https://") {
		client := httpClient
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Get(canonical)
		if err != nil {
			return nil, canonical, wrapURL(canonical, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, canonical, wrapURL(canonical, &httpStatusError{resp.StatusCode})
		}
		return resp.Body, canonical, nil
	}

	f, err := os.Open(canonical)
	if err != nil {
		return nil, canonical, wrapURL(canonical, err)
	}
	return f, canonical, nil
}

type httpStatusError struct{ code int }

func (e *httpStatusError) Error() string {
	return "unexpected HTTP status " + http.StatusText(e.code)
}

// LoadXMLResource opens, fully reads, parses, and closes the resource at
// location (§4.1). A ParseError is returned when the bytes do not parse as
// XML.
func LoadXMLResource(location, baseURI string, httpClient *http.Client) (xmldom.Document, string, error) {
	reader, canonical, err := OpenResource(location, baseURI, httpClient)
	if err != nil {
		return nil, canonical, err
	}
	defer reader.Close()

	doc, err := xmldom.Decode(reader)
	if err != nil {
		return nil, canonical, wrapParse(canonical, "failed to parse XML", err)
	}
	return doc, canonical, nil
}

// resolveResourceLocation applies §4.1's resolution order: absolute URI as-is,
// else resolved against baseURI, else a local path.
func resolveResourceLocation(location, baseURI string) string {
	if filepath.IsAbs(location) {
		return location
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return location
	}
	if baseURI == "" {
		abs, err := filepath.Abs(location)
		if err != nil {
			return location
		}
		return abs
	}
	if strings.HasPrefix(baseURI, "http://") || strings.HasPrefix(baseURI, "https://") {
		base, err := url.Parse(baseURI)
		if err == nil {
			if rel, err := base.Parse(location); err == nil {
				return rel.String()
			}
		}
		return location
	}
	joined := filepath.Join(filepath.Dir(baseURI), location)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return joined
	}
	return abs
}

// ResourceCache stores parsed documents by canonical URI in a bounded LRU
// (github.com/golang/groupcache/lru). It holds only what callers Put into
// it: OpenResource and LoadXMLResource do not consult it. groupcache's
// Cache is not itself concurrency-safe, so every access takes the mutex.
// Concurrent loads of the same URI are not deduplicated; unlike cache.go's
// SchemaCache there is no per-entry sync.Once.
type ResourceCache struct {
	mu      sync.RWMutex
	lru     *lru.Cache
	BaseURI string
}

// NewResourceCache creates a cache bounded to capacity entries (0 means
// unbounded, per groupcache/lru.New's own convention).
func NewResourceCache(capacity int) *ResourceCache {
	return &ResourceCache{lru: lru.New(capacity)}
}

// Get returns a cached document for uri, or ok=false.
func (c *ResourceCache) Get(uri string) (xmldom.Document, bool) {
	// lru.Get moves the entry to the front of the list, so it needs the
	// exclusive lock.
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(uri)
	if !ok {
		return nil, false
	}
	return v.(xmldom.Document), true
}

// Put stores doc under uri, evicting the least-recently-used entry if the
// cache is at capacity.
func (c *ResourceCache) Put(uri string, doc xmldom.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(uri, doc)
}
