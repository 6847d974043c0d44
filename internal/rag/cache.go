package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/coinwatch/newsrag/internal/embeddings"
	"github.com/coinwatch/newsrag/internal/newsstore"
)

const (
	cacheCollection = "answers"
	// cacheSimilarity is deliberately strict: only near-identical queries
	// may share an answer.
	cacheSimilarity = 0.97
	// DefaultCacheTTL bounds how long a cached answer stays fresh.
	DefaultCacheTTL = 15 * time.Minute
)

// CachedAnswer is one stored query/answer pair.
type CachedAnswer struct {
	Query   string                   `json:"query"`
	Answer  string                   `json:"answer"`
	Sources []newsstore.SearchResult `json:"sources"`
}

// Cache is a semantic answer cache over chromem. A lookup hits when a
// previous query embeds within cacheSimilarity of the new one and has not
// expired.
type Cache struct {
	mu         sync.Mutex
	collection *chromem.Collection
	ttl        time.Duration
	seq        int
	hits       int
	misses     int
	now        func() time.Time
}

// NewCache builds an in-memory cache keyed by query embedding. ttl <= 0
// uses DefaultCacheTTL.
func NewCache(embedder embeddings.Embedder, ttl time.Duration) (*Cache, error) {
	col, err := chromem.NewDB().GetOrCreateCollection(cacheCollection, nil, embeddings.ToChromemFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("creating cache collection: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{collection: col, ttl: ttl, now: time.Now}, nil
}

// Get returns the cached answer for a semantically equivalent query, if
// any. Expired entries count as misses.
func (c *Cache) Get(ctx context.Context, query string) (*CachedAnswer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.collection.Count() == 0 {
		c.misses++
		return nil, false
	}
	results, err := c.collection.Query(ctx, query, 1, nil, nil)
	if err != nil || len(results) == 0 {
		c.misses++
		return nil, false
	}
	hit := results[0]
	if float64(hit.Similarity) < cacheSimilarity {
		c.misses++
		return nil, false
	}
	expires, err := strconv.ParseInt(hit.Metadata["expires"], 10, 64)
	if err != nil || c.now().Unix() > expires {
		c.misses++
		return nil, false
	}
	var entry CachedAnswer
	if err := json.Unmarshal([]byte(hit.Metadata["entry"]), &entry); err != nil {
		c.misses++
		return nil, false
	}
	c.hits++
	return &entry, true
}

// Set stores an answer keyed by the query's embedding. Failures are
// logged and ignored: the cache is best-effort.
func (c *Cache) Set(ctx context.Context, query string, entry CachedAnswer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := json.Marshal(entry)
	if err != nil {
		log.Printf("marshaling cache entry: %v", err)
		return
	}
	c.seq++
	doc := chromem.Document{
		ID:      strconv.Itoa(c.seq),
		Content: query,
		Metadata: map[string]string{
			"entry":   string(raw),
			"expires": strconv.FormatInt(c.now().Add(c.ttl).Unix(), 10),
		},
	}
	if err := c.collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		log.Printf("storing cache entry: %v", err)
	}
}

// CacheStats reports hit/miss counters and entry count.
type CacheStats struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

// Stats returns current cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Entries: c.collection.Count(), Hits: c.hits, Misses: c.misses}
}
