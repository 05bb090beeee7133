package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedProvider wraps any EmbeddingProvider with a redis lookaside cache.
// Providers are deterministic, so a cached vector is as good as a fresh one.
// Cache failures degrade to a direct provider call, never to an error.
type CachedProvider struct {
	inner EmbeddingProvider
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCachedProvider(inner EmbeddingProvider, rdb *redis.Client, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
	}
}

func (p *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var misses []int

	for i, text := range texts {
		if vec, ok := p.lookup(ctx, TaskRetrievalDocument, text); ok {
			vectors[i] = vec
			continue
		}
		misses = append(misses, i)
	}

	if len(misses) == 0 {
		return vectors, nil
	}

	missTexts := make([]string, len(misses))
	for j, i := range misses {
		missTexts[j] = texts[i]
	}

	fresh, err := p.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, i := range misses {
		vectors[i] = fresh[j]
		p.store(ctx, TaskRetrievalDocument, texts[i], fresh[j])
	}
	return vectors, nil
}

func (p *CachedProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := p.lookup(ctx, TaskRetrievalQuery, text); ok {
		return vec, nil
	}
	vec, err := p.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	p.store(ctx, TaskRetrievalQuery, text, vec)
	return vec, nil
}

func (p *CachedProvider) Dimension() int {
	return p.inner.Dimension()
}

func (p *CachedProvider) ModelID() string {
	return p.inner.ModelID()
}

func (p *CachedProvider) key(taskType, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("emb:%s:%s:%x", p.inner.ModelID(), taskType, sum)
}

func (p *CachedProvider) lookup(ctx context.Context, taskType, text string) ([]float32, bool) {
	raw, err := p.rdb.Get(ctx, p.key(taskType, text)).Bytes()
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (p *CachedProvider) store(ctx context.Context, taskType, text string, vec []float32) {
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	// Write errors are ignored, the cache is best effort
	p.rdb.Set(ctx, p.key(taskType, text), raw, p.ttl)
}
