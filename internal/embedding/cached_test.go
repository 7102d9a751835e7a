package embedding

import (
	"context"
	"testing"
)

type countingClient struct {
	calls int
	dims  int
}

func (f *countingClient) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return []float32{float32(len(text))}, nil
}

func (f *countingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (f *countingClient) Dimensions() int { return f.dims }

func TestCachedClientEmbedOneHitsCacheOnRepeat(t *testing.T) {
	inner := &countingClient{dims: 1}
	c := NewCachedClient(inner, 10)

	if _, err := c.EmbedOne(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.EmbedOne(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call for repeated text, got %d", inner.calls)
	}
}

func TestCachedClientEmbedBatchPartialHit(t *testing.T) {
	inner := &countingClient{dims: 1}
	c := NewCachedClient(inner, 10)

	if _, err := c.EmbedOne(context.Background(), "cached"); err != nil {
		t.Fatal(err)
	}
	inner.calls = 0

	results, err := c.EmbedBatch(context.Background(), []string{"cached", "fresh"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if inner.calls != 1 {
		t.Errorf("expected exactly 1 batch call for the single miss, got %d", inner.calls)
	}
}

func TestCachedClientEmbedBatchEmpty(t *testing.T) {
	inner := &countingClient{dims: 1}
	c := NewCachedClient(inner, 10)
	results, err := c.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if results != nil {
		t.Errorf("expected nil for empty input, got %v", results)
	}
}

func TestCachedClientDimensionsPassthrough(t *testing.T) {
	inner := &countingClient{dims: 768}
	c := NewCachedClient(inner, 10)
	if c.Dimensions() != 768 {
		t.Errorf("expected passthrough dimensions 768, got %d", c.Dimensions())
	}
}

func TestCachedClientDefaultsSizeWhenNonPositive(t *testing.T) {
	inner := &countingClient{dims: 1}
	c := NewCachedClient(inner, 0)
	if c.cache.Len() != 0 {
		t.Errorf("expected empty cache initially, got %d", c.cache.Len())
	}
}

var _ Client = (*CachedClient)(nil)
