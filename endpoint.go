package knowledge

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
)

type EndpointSet struct {
	Retrieve endpoint.Endpoint
	Ingest   endpoint.Endpoint
}

type RetrieveRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

func RetrieveEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(RetrieveRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Retrieve(ctx, req.Question, req.K)
	}
}

type IngestResponse struct {
	Chunks int `json:"chunks"`
}

func IngestEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		count, err := svc.Ingest(ctx)
		if err != nil {
			return nil, err
		}

		return IngestResponse{Chunks: count}, nil
	}
}
