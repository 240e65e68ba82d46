package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubService struct {
	results  []SearchResult
	ingested int

	question string
	k        int
}

func (s *stubService) Close() error {
	return nil
}

func (s *stubService) Ingest(ctx context.Context) (int, error) {
	return s.ingested, nil
}

func (s *stubService) Retrieve(ctx context.Context, question string, k ...int) ([]SearchResult, error) {
	s.question = question
	if len(k) > 0 {
		s.k = k[0]
	}

	return s.results, nil
}

func TestRetrieveEndpoint(t *testing.T) {
	assert := assert.New(t)

	svc := &stubService{
		results: []SearchResult{
			{Chunk: Chunk{ID: "astro.md#0", Title: "Astro"}, Similarity: 0.9},
		},
	}

	endpoint := RetrieveEndpoint(svc)

	resp, err := endpoint(context.Background(), RetrieveRequest{Question: "What is Astro?", K: 3})
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	results, ok := resp.([]SearchResult)
	if !ok {
		t.Fatalf("expected []SearchResult, got %T", resp)
	}

	assert.Len(results, 1)
	assert.Equal("What is Astro?", svc.question)
	assert.Equal(3, svc.k)

	_, err = endpoint(context.Background(), "not a request")
	assert.Error(err)
}

func TestIngestEndpoint(t *testing.T) {
	assert := assert.New(t)

	endpoint := IngestEndpoint(&stubService{ingested: 7})

	resp, err := endpoint(context.Background(), nil)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	result, ok := resp.(IngestResponse)
	if !ok {
		t.Fatalf("expected IngestResponse, got %T", resp)
	}

	assert.Equal(7, result.Chunks)
}

func TestProxyMiddleware(t *testing.T) {
	assert := assert.New(t)

	svc := &stubService{
		ingested: 5,
		results: []SearchResult{
			{Chunk: Chunk{ID: "astro.md#0", Title: "Astro"}, Similarity: 0.9},
		},
	}

	endpoints := &EndpointSet{
		Retrieve: RetrieveEndpoint(svc),
		Ingest:   IngestEndpoint(svc),
	}

	var proxied Service
	proxied = ProxyMiddleware(endpoints)(proxied)

	count, err := proxied.Ingest(context.Background())
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(5, count)

	results, err := proxied.Retrieve(context.Background(), "What is Astro?", 2)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Len(results, 1)
	assert.Equal(2, svc.k)
}
