package nats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/wrenlab/knowledge"
)

// Ingestion runs seconds to minutes; the request timeout must cover a full
// corpus rebuild, not a single message round trip.
const ingestTimeout = 10 * time.Minute

func MakeEndpoints(nc *nats.Conn, prefix string) *knowledge.EndpointSet {
	return &knowledge.EndpointSet{
		Retrieve: RetrieveEndpoint(nc, prefix+".retrieve"),
		Ingest:   IngestEndpoint(nc, prefix+".ingest"),
	}
}

func RetrieveEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(knowledge.RetrieveRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := nc.Request(topic, data, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var results []knowledge.SearchResult
		if err := json.Unmarshal(resp.Data, &results); err != nil {
			return nil, err
		}

		return results, nil
	}
}

func IngestEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		resp, err := nc.Request(topic, nil, ingestTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var result knowledge.IngestResponse
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return nil, err
		}

		return result, nil
	}
}

func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	return errors.New(code + ":" + description)
}
