package bridge

import (
	"context"

	"unified-thinking/internal/embeddings"
)

// cachedEmbedder fronts a real provider with the disk-persisted LRU cache
// so repeat insight text across cycles doesn't re-hit a paid API.
type cachedEmbedder struct {
	real  embeddings.Embedder
	cache *embeddings.LRUEmbeddingCache
}

func (c *cachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.real.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, v)
	return v, nil
}

func (c *cachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var miss []string
	var missIdx []int
	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = v
			continue
		}
		miss = append(miss, t)
		missIdx = append(missIdx, i)
	}
	if len(miss) == 0 {
		return out, nil
	}
	fetched, err := c.real.EmbedBatch(ctx, miss)
	if err != nil {
		return nil, err
	}
	for j, v := range fetched {
		out[missIdx[j]] = v
		c.cache.Set(miss[j], v)
	}
	return out, nil
}

func (c *cachedEmbedder) Dimension() int   { return c.real.Dimension() }
func (c *cachedEmbedder) Model() string    { return c.real.Model() }
func (c *cachedEmbedder) Provider() string { return c.real.Provider() }
