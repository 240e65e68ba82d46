package knowledge

import (
	"errors"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/wrenlab/knowledge/embedding"
	"github.com/wrenlab/knowledge/vector"
)

var (
	ErrEmptyCorpus   = errors.New("no qualifying chunks found in corpus")
	ErrEmptyQuestion = errors.New("question is empty")
)

const (
	DefaultMinChunkLength = 50
	DefaultTopK           = 5
	DefaultCollection     = "docs"
)

type Config struct {
	Docs      DocsConfig       `yaml:"docs"`
	Embedding embedding.Config `yaml:"embedding"`
	Vector    vector.Config    `yaml:"vector"`
	Search    SearchConfig     `yaml:"search"`
}

type DocsConfig struct {
	Path           string `yaml:"path"`
	MinChunkLength int    `yaml:"minChunkLength"`
}

type SearchConfig struct {
	TopK int `yaml:"topK"`
}

func (cfg *Config) ApplyDefaults() {
	if cfg.Docs.Path == "" {
		cfg.Docs.Path = "docs"
	}

	if cfg.Docs.MinChunkLength <= 0 {
		cfg.Docs.MinChunkLength = DefaultMinChunkLength
	}

	if cfg.Search.TopK <= 0 {
		cfg.Search.TopK = DefaultTopK
	}

	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = DefaultCollection
	}

	cfg.Embedding.ApplyDefaults()
}

// Chunk is the unit of retrieval and storage. One chunk holds one paragraph
// of a source document together with its embedding vector.
type Chunk struct {
	ID      string    `json:"id"`
	Content string    `json:"content"`
	Title   string    `json:"title"`
	Path    string    `json:"path"`
	Vector  []float32 `json:"vector,omitempty"`
}

// ChunkID derives the stable chunk identifier from the source path and the
// chunk's ordinal position within the document. Re-ingesting an unchanged
// document yields the same identifiers.
func ChunkID(path string, ordinal int) string {
	return path + "#" + strconv.Itoa(ordinal)
}

// TitleOrFallback returns the document title, falling back to the file base
// name when the document carries no title metadata.
func TitleOrFallback(title, path string) string {
	if title != "" {
		return title
	}

	return filepath.Base(path)
}

var paragraphSplitter = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)

// SplitChunks splits document text on blank-line boundaries and discards
// segments whose trimmed length does not exceed minLength. Order follows the
// original document, since ordinal position feeds the chunk ID.
func SplitChunks(text string, minLength int) []string {
	segments := paragraphSplitter.Split(text, -1)

	chunks := make([]string, 0, len(segments))
	for _, segment := range segments {
		trimmed := strings.TrimSpace(segment)
		if len(trimmed) <= minLength {
			continue
		}

		chunks = append(chunks, trimmed)
	}

	return chunks
}

// SearchResult pairs a retrieved chunk with its cosine similarity to the
// query. Higher similarity means nearer.
type SearchResult struct {
	Chunk      Chunk   `json:"chunk"`
	Similarity float32 `json:"similarity"`
}

const contextSeparator = "\n\n---\n\n"

// FormatContext assembles retrieved chunks into a single context block,
// preserving nearest-first order.
func FormatContext(results []SearchResult) string {
	blocks := make([]string, len(results))
	for i, result := range results {
		blocks[i] = "## Source: " + result.Chunk.Title + "\n" + result.Chunk.Content
	}

	return strings.Join(blocks, contextSeparator)
}

func ChunkToRecord(chunk Chunk) vector.Record {
	return vector.Record{
		ID:      chunk.ID,
		Content: chunk.Content,
		Title:   chunk.Title,
		Path:    chunk.Path,
		Vector:  chunk.Vector,
	}
}

func RecordToChunk(record vector.Record) Chunk {
	return Chunk{
		ID:      record.ID,
		Content: record.Content,
		Title:   record.Title,
		Path:    record.Path,
		Vector:  record.Vector,
	}
}
