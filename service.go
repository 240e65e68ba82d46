package knowledge

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wrenlab/knowledge/document"
	"github.com/wrenlab/knowledge/embedding"
	"github.com/wrenlab/knowledge/vector"
)

// Service is the core ingestion-and-retrieval pipeline.
type Service interface {

	// Close releases the service's handle on the index.
	Close() error

	// Ingest rebuilds the whole index from the configured document set and
	// returns the number of ingested chunks. A run that finds zero
	// qualifying chunks leaves the index untouched and returns 0.
	Ingest(ctx context.Context) (int, error)

	// Retrieve embeds the question and returns the k nearest chunks,
	// nearest first. k defaults to the configured topK.
	Retrieve(ctx context.Context, question string, k ...int) ([]SearchResult, error)
}

type ServiceMiddleware func(Service) Service

func NewService(cfg Config, loader document.Loader, provider embedding.Provider, index vector.Index) Service {
	log := zap.L().With(
		zap.String("service", "knowledge"),
	)

	return &service{
		cfg:      cfg,
		loader:   loader,
		provider: provider,
		index:    index,
		log:      log,
	}
}

type service struct {
	cfg      Config
	loader   document.Loader
	provider embedding.Provider
	index    vector.Index
	log      *zap.Logger

	// collection is the reusable read handle; ingestion replaces it.
	collection vector.Collection
	mu         sync.RWMutex
}

func (svc *service) Close() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.collection = nil
	return nil
}

func (svc *service) Ingest(ctx context.Context) (int, error) {
	log := svc.log.With(
		zap.String("action", "ingest"),
		zap.String("docs", svc.cfg.Docs.Path),
	)

	docs, err := svc.loader.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("enumerate documents: %w", err)
	}

	var records []vector.Record

	for _, doc := range docs {
		log := log.With(
			zap.String("path", doc.Path),
		)

		chunks := SplitChunks(doc.Body, svc.cfg.Docs.MinChunkLength)
		if len(chunks) == 0 {
			log.Info("zero chunks found")
			continue
		}

		title := TitleOrFallback(doc.Title, doc.Path)

		for i, content := range chunks {
			// One failed embedding aborts the whole run; a partially
			// embedded corpus is worse than a clearly failed one.
			vec, err := svc.provider.Embed(ctx, content)
			if err != nil {
				return 0, fmt.Errorf("embed chunk %s: %w", ChunkID(doc.Path, i), err)
			}

			records = append(records, ChunkToRecord(Chunk{
				ID:      ChunkID(doc.Path, i),
				Content: content,
				Title:   title,
				Path:    doc.Path,
				Vector:  vec,
			}))
		}

		log.Info("document chunked", zap.Int("chunks", len(chunks)))
	}

	if len(records) == 0 {
		log.Warn(ErrEmptyCorpus.Error())
		return 0, nil
	}

	collection, err := svc.index.CreateOrReplace(ctx, svc.cfg.Vector.Collection, records)
	if err != nil {
		return 0, fmt.Errorf("replace collection %q: %w", svc.cfg.Vector.Collection, err)
	}

	svc.mu.Lock()
	svc.collection = collection
	svc.mu.Unlock()

	log.Info("corpus ingested", zap.Int("chunks", len(records)))

	return len(records), nil
}

func (svc *service) Retrieve(ctx context.Context, question string, k ...int) ([]SearchResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	n := svc.cfg.Search.TopK
	if len(k) > 0 && k[0] > 0 {
		n = k[0]
	}

	query, err := svc.provider.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	collection, err := svc.openCollection()
	if err != nil {
		return nil, err
	}

	hits, err := collection.Search(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("search collection %q: %w", svc.cfg.Vector.Collection, err)
	}

	results := make([]SearchResult, len(hits))
	for i, hit := range hits {
		results[i] = SearchResult{
			Chunk:      RecordToChunk(hit.Record),
			Similarity: hit.Similarity,
		}
	}

	return results, nil
}

func (svc *service) openCollection() (vector.Collection, error) {
	svc.mu.RLock()
	collection := svc.collection
	svc.mu.RUnlock()

	if collection != nil {
		return collection, nil
	}

	collection, err := svc.index.Open(svc.cfg.Vector.Collection)
	if err != nil {
		return nil, err
	}

	svc.mu.Lock()
	svc.collection = collection
	svc.mu.Unlock()

	return collection, nil
}
