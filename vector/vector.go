package vector

import (
	"context"
	"errors"
)

var (
	ErrIndexNotFound      = errors.New("index not found")
	ErrDimensionMismatch  = errors.New("vector dimension mismatch")
	ErrInvalidResultCount = errors.New("result count must be a positive integer")
)

type Config struct {
	Persistent bool   `yaml:"persistent"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// Record is one stored chunk. The typed fields are the closed schema the core
// relies on; Extra carries engine-specific metadata only.
type Record struct {
	ID      string            `json:"id"`
	Content string            `json:"content"`
	Title   string            `json:"title"`
	Path    string            `json:"path"`
	Vector  []float32         `json:"vector,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// Result is a search hit. Similarity is cosine similarity against the query
// vector; higher means nearer.
type Result struct {
	Record     Record  `json:"record"`
	Similarity float32 `json:"similarity"`
}

// Index is a durable store of named record collections.
type Index interface {
	// Open returns a read handle to an existing collection, or
	// ErrIndexNotFound when ingestion has never run for that name.
	Open(name string) (Collection, error)

	// CreateOrReplace atomically replaces all contents of the named
	// collection with the given records. Readers of the old contents see
	// either the fully-old or fully-new state.
	CreateOrReplace(ctx context.Context, name string, records []Record) (Collection, error)
}

type Collection interface {
	// Search returns up to k records nearest the query vector, ordered by
	// non-increasing similarity. Ties are broken by record ID so results
	// are deterministic for identical inputs.
	Search(ctx context.Context, query []float32, k int) ([]Result, error)

	Get(ctx context.Context, id string) (Record, error)

	Count() int
}
