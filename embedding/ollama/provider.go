// Package ollama embeds text through a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/wrenlab/knowledge/embedding"
)

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

func NewProvider(cfg embedding.Config) *Provider {
	log := zap.L().With(
		zap.String("provider", "ollama"),
		zap.String("model", cfg.Model),
	)

	return &Provider{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout.Duration(),
		},
		log: log,
	}
}

// Provider calls the Ollama embeddings API. The first Embed call probes the
// model once; all concurrent first callers await the same probe, and a failed
// probe makes every later call fail with embedding.ErrUnavailable.
type Provider struct {
	cfg    embedding.Config
	client *http.Client
	log    *zap.Logger

	once    sync.Once
	dim     int
	loadErr error
}

func (p *Provider) Dimension() int {
	return p.cfg.Dimension
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.once.Do(func() {
		p.log.Info("loading embedding model")

		// The probe must not inherit the first caller's cancellation; only
		// a genuine load failure may poison the provider.
		probeCtx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout.Duration())
		defer cancel()

		vec, err := p.embed(probeCtx, "warmup")
		if err != nil {
			p.loadErr = err
			return
		}

		p.dim = len(vec)
		if p.dim != p.cfg.Dimension {
			p.loadErr = fmt.Errorf("model emits %d dimensions, configured for %d", p.dim, p.cfg.Dimension)
			return
		}

		p.log.Info("embedding model loaded", zap.Int("dimension", p.dim))
	})

	if p.loadErr != nil {
		return nil, fmt.Errorf("%w: %v", embedding.ErrUnavailable, p.loadErr)
	}

	vec, err := p.embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", embedding.ErrUnavailable, err)
	}

	if len(vec) != p.dim {
		return nil, fmt.Errorf("%w: model emitted %d dimensions, expected %d",
			embedding.ErrUnavailable, len(vec), p.dim)
	}

	return embedding.Normalize(vec), nil
}

func (p *Provider) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(&embeddingRequest{
		Model:  p.cfg.Model,
		Prompt: text,
	})

	if err != nil {
		return nil, err
	}

	url := p.cfg.BaseURL + "/api/embeddings"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, msg)
	}

	var result embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("ollama: empty embedding for model %s", p.cfg.Model)
	}

	return result.Embedding, nil
}
