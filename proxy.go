package knowledge

import (
	"context"
	"errors"
)

// ProxyMiddleware turns a set of remote endpoints into a Service, so a thin
// client process can drive a running knowledged instance.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return nil
}

func (mw *proxyMiddleware) Ingest(ctx context.Context) (int, error) {
	resp, err := mw.endpoints.Ingest(ctx, nil)
	if err != nil {
		return 0, err
	}

	result, ok := resp.(IngestResponse)
	if !ok {
		return 0, errors.New("invalid response type")
	}

	return result.Chunks, nil
}

func (mw *proxyMiddleware) Retrieve(ctx context.Context, question string, k ...int) ([]SearchResult, error) {
	req := RetrieveRequest{
		Question: question,
	}

	if len(k) > 0 {
		req.K = k[0]
	}

	resp, err := mw.endpoints.Retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	results, ok := resp.([]SearchResult)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return results, nil
}
