// Package hash provides a deterministic, offline embedding provider based on
// feature hashing. Tokens are folded into a fixed number of buckets with FNV,
// and the bucket counts are L2-normalized. Texts sharing vocabulary land near
// each other under cosine similarity, which makes the provider usable both as
// a no-network fallback and as a test double for the real model.
package hash

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/wrenlab/knowledge/embedding"
)

func NewProvider(dimension int) *Provider {
	if dimension <= 0 {
		dimension = embedding.DefaultDimension
	}

	return &Provider{dimension: dimension}
}

type Provider struct {
	dimension int
}

func (p *Provider) Dimension() int {
	return p.dimension
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, p.dimension)

	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[int(h.Sum32())%p.dimension]++
	}

	return embedding.Normalize(vec), nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
