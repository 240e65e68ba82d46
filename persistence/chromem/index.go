package chromem

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/wrenlab/knowledge/vector"
)

const (
	metaTitle = "title"
	metaPath  = "path"
)

func NewChromemIndex(cfg vector.Config) (vector.Index, error) {
	var db *chromem.DB
	if !cfg.Persistent {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, err
		}

		db = d
	}

	return &chromemIndex{db: db}, nil
}

type chromemIndex struct {
	db *chromem.DB

	// mu serializes the swap in CreateOrReplace against Open, so a reader
	// never opens a half-loaded generation.
	mu sync.Mutex
}

func (idx *chromemIndex) Open(name string) (vector.Collection, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	c := idx.db.GetCollection(name, nil)
	if c == nil {
		return nil, fmt.Errorf("%w: collection %q", vector.ErrIndexNotFound, name)
	}

	return &collection{collection: c}, nil
}

func (idx *chromemIndex) CreateOrReplace(ctx context.Context, name string, records []vector.Record) (vector.Collection, error) {
	dim := 0
	docs := make([]chromem.Document, len(records))

	for i, record := range records {
		if record.ID == "" {
			return nil, fmt.Errorf("replace collection %q: record %d has an empty id", name, i)
		}

		if dim == 0 {
			dim = len(record.Vector)
		}

		if len(record.Vector) != dim {
			return nil, fmt.Errorf("%w: record %s has %d dimensions, expected %d",
				vector.ErrDimensionMismatch, record.ID, len(record.Vector), dim)
		}

		docs[i] = toDocument(record)
	}

	// Load the new generation into a staging collection first. A failed run
	// tears down only the staging copy; the live collection stays intact,
	// and readers see either the fully-old or the fully-new contents.
	staging := name + ".staging"

	if err := idx.db.DeleteCollection(staging); err != nil {
		return nil, fmt.Errorf("replace collection %q: %w", name, err)
	}

	sc, err := idx.db.CreateCollection(staging, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("replace collection %q: %w", name, err)
	}

	if len(docs) > 0 {
		if err := sc.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			idx.db.DeleteCollection(staging)
			return nil, fmt.Errorf("load collection %q: %w", name, err)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.db.DeleteCollection(name); err != nil {
		return nil, fmt.Errorf("replace collection %q: %w", name, err)
	}

	c, err := idx.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection %q: %w", name, err)
	}

	if len(docs) > 0 {
		if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return nil, fmt.Errorf("load collection %q: %w", name, err)
		}
	}

	idx.db.DeleteCollection(staging)

	return &collection{collection: c, dim: dim}, nil
}

type collection struct {
	collection *chromem.Collection

	// dim is known after a same-process CreateOrReplace; 0 means unknown
	// (collection reopened from disk).
	dim int
}

func (c *collection) Count() int {
	return c.collection.Count()
}

func (c *collection) Get(ctx context.Context, id string) (vector.Record, error) {
	doc, err := c.collection.GetByID(ctx, id)
	if err != nil {
		return vector.Record{}, err
	}

	return toRecord(doc.ID, doc.Metadata, doc.Content, doc.Embedding), nil
}

func (c *collection) Search(ctx context.Context, query []float32, k int) ([]vector.Result, error) {
	if k <= 0 {
		return nil, vector.ErrInvalidResultCount
	}

	if c.dim != 0 && len(query) != c.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index holds %d",
			vector.ErrDimensionMismatch, len(query), c.dim)
	}

	// An index with fewer than k records returns all of them.
	if count := c.collection.Count(); k > count {
		k = count
	}

	if k == 0 {
		return nil, nil
	}

	hits, err := c.collection.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		if strings.Contains(err.Error(), "same length") {
			return nil, fmt.Errorf("%w: query has %d dimensions", vector.ErrDimensionMismatch, len(query))
		}

		return nil, err
	}

	results := make([]vector.Result, len(hits))
	for i, hit := range hits {
		results[i] = vector.Result{
			Record:     toRecord(hit.ID, hit.Metadata, hit.Content, hit.Embedding),
			Similarity: hit.Similarity,
		}
	}

	// The engine orders by similarity but leaves equidistant hits in an
	// unspecified order; a secondary sort by ID keeps results deterministic.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}

		return results[i].Record.ID < results[j].Record.ID
	})

	return results, nil
}

func toDocument(record vector.Record) chromem.Document {
	metadata := make(map[string]string, len(record.Extra)+2)
	for k, v := range record.Extra {
		metadata[k] = v
	}

	metadata[metaTitle] = record.Title
	metadata[metaPath] = record.Path

	return chromem.Document{
		ID:        record.ID,
		Metadata:  metadata,
		Embedding: record.Vector,
		Content:   record.Content,
	}
}

func toRecord(id string, metadata map[string]string, content string, vec []float32) vector.Record {
	record := vector.Record{
		ID:      id,
		Content: content,
		Title:   metadata[metaTitle],
		Path:    metadata[metaPath],
		Vector:  vec,
	}

	for k, v := range metadata {
		if k == metaTitle || k == metaPath {
			continue
		}

		if record.Extra == nil {
			record.Extra = make(map[string]string)
		}

		record.Extra[k] = v
	}

	return record
}
