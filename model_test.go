package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestSplitChunks(t *testing.T) {
	assert := assert.New(t)

	text := `Astro is a web framework for building content-driven websites like blogs and docs.

short

Astro renders components on the server ahead of time, shipping zero JavaScript by default.`

	chunks := SplitChunks(text, 50)

	assert.Len(chunks, 2)
	assert.Contains(chunks[0], "Astro is a web framework")
	assert.Contains(chunks[1], "renders components on the server")
}

func TestSplitChunksDeterministic(t *testing.T) {
	assert := assert.New(t)

	text := "First paragraph with enough characters to pass the default size floor easily.\n\nSecond paragraph, also comfortably longer than fifty characters in total."

	first := SplitChunks(text, 50)
	second := SplitChunks(text, 50)

	assert.Equal(first, second)
}

func TestSplitChunksWhitespaceOnly(t *testing.T) {
	assert := assert.New(t)

	assert.Empty(SplitChunks("", 50))
	assert.Empty(SplitChunks("   \n\n\t\n\n   ", 50))
}

func TestSplitChunksSizeFloor(t *testing.T) {
	assert := assert.New(t)

	text := "aaaa\n\nbbbb\n\ncccc"

	assert.Len(SplitChunks(text, 3), 3)

	// Segments must exceed the floor, not merely reach it.
	assert.Empty(SplitChunks(text, 4))
}

func TestSplitChunksCRLF(t *testing.T) {
	assert := assert.New(t)

	text := "Windows line endings should still separate paragraphs correctly here.\r\n\r\nAnd this second paragraph must survive the split with its content intact."

	chunks := SplitChunks(text, 50)

	assert.Len(chunks, 2)
}

func TestChunkID(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("docs/astro/intro.md#0", ChunkID("docs/astro/intro.md", 0))
	assert.Equal("docs/astro/intro.md#12", ChunkID("docs/astro/intro.md", 12))

	// Stable across calls so re-ingestion is idempotent at the id level.
	assert.Equal(ChunkID("a.md", 1), ChunkID("a.md", 1))
}

func TestTitleOrFallback(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("Astro", TitleOrFallback("Astro", "docs/astro/intro.md"))
	assert.Equal("intro.md", TitleOrFallback("", "docs/astro/intro.md"))
}

func TestFormatContext(t *testing.T) {
	assert := assert.New(t)

	results := []SearchResult{
		{
			Chunk:      Chunk{Title: "Astro", Content: "Astro is a web framework."},
			Similarity: 0.9,
		},
		{
			Chunk:      Chunk{Title: "Islands", Content: "Islands are interactive components."},
			Similarity: 0.7,
		},
	}

	text := FormatContext(results)

	assert.Contains(text, "## Source: Astro\nAstro is a web framework.")
	assert.Contains(text, "## Source: Islands\nIslands are interactive components.")
	assert.Contains(text, "\n\n---\n\n")

	// Nearest-first order is preserved.
	assert.Less(
		strings.Index(text, "## Source: Astro"),
		strings.Index(text, "## Source: Islands"),
	)
}

func TestConfigYAMLUnmarshal(t *testing.T) {
	assert := assert.New(t)

	input := `docs:
  path: ./docs
  minChunkLength: 80
embedding:
  provider: ollama
  model: all-minilm
  dimension: 384
vector:
  persistent: true
  path: ./vectors
  collection: docs
search:
  topK: 3`

	var cfg Config
	if err := yaml.Unmarshal([]byte(input), &cfg); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("./docs", cfg.Docs.Path)
	assert.Equal(80, cfg.Docs.MinChunkLength)
	assert.Equal("all-minilm", cfg.Embedding.Model)
	assert.Equal(384, cfg.Embedding.Dimension)
	assert.True(cfg.Vector.Persistent)
	assert.Equal(3, cfg.Search.TopK)
}

func TestConfigDefaults(t *testing.T) {
	assert := assert.New(t)

	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(DefaultMinChunkLength, cfg.Docs.MinChunkLength)
	assert.Equal(DefaultTopK, cfg.Search.TopK)
	assert.Equal(DefaultCollection, cfg.Vector.Collection)
	assert.Equal(384, cfg.Embedding.Dimension)
	assert.Equal("ollama", cfg.Embedding.Provider)
}
