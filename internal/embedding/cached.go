package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds memory use for the query embedding cache.
const DefaultCacheSize = 1000

// CachedClient wraps a Client with an LRU cache keyed on text content,
// so repeated queries skip the embedding round trip entirely.
type CachedClient struct {
	inner Client
	cache *lru.Cache[string, []float32]
}

// NewCachedClient wraps inner with an LRU cache of the given size.
// Non-positive size falls back to DefaultCacheSize.
func NewCachedClient(inner Client, size int) *CachedClient {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float32](size)
	return &CachedClient{inner: inner, cache: cache}
}

func (c *CachedClient) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// EmbedOne returns the cached vector if present, otherwise computes and
// caches it.
func (c *CachedClient) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := c.inner.EmbedOne(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// EmbedBatch checks the cache per-text, then embeds only the misses in
// a single batch call to the inner client.
func (c *CachedClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		key := c.cacheKey(text)
		if vec, ok := c.cache.Get(key); ok {
			results[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	computed, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, idx := range missIdx {
		results[idx] = computed[j]
		c.cache.Add(c.cacheKey(texts[idx]), computed[j])
	}
	return results, nil
}

// Dimensions passes through to the inner client.
func (c *CachedClient) Dimensions() int {
	return c.inner.Dimensions()
}
