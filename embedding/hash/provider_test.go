package hash

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbedDimension(t *testing.T) {
	assert := assert.New(t)

	provider := NewProvider(64)

	vec, err := provider.Embed(context.Background(), "Astro is a web framework.")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Len(vec, 64)
	assert.Equal(64, provider.Dimension())
}

func TestEmbedNormalized(t *testing.T) {
	assert := assert.New(t)

	provider := NewProvider(64)

	vec, err := provider.Embed(context.Background(), "Astro is a web framework for content-driven websites.")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}

	assert.InDelta(1.0, math.Sqrt(sum), 1e-5)
}

func TestEmbedDeterministic(t *testing.T) {
	assert := assert.New(t)

	provider := NewProvider(64)
	ctx := context.Background()

	first, err := provider.Embed(ctx, "What is Astro?")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	second, err := provider.Embed(ctx, "What is Astro?")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(first, second)
}

func TestEmbedSimilarity(t *testing.T) {
	assert := assert.New(t)

	provider := NewProvider(256)
	ctx := context.Background()

	query, _ := provider.Embed(ctx, "What is the Astro web framework?")
	near, _ := provider.Embed(ctx, "Astro is a web framework for building websites.")
	far, _ := provider.Embed(ctx, "Continuous deployment republishes the site on new commits.")

	assert.Greater(dot(query, near), dot(query, far))
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}

	return sum
}
