package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/wrenlab/knowledge"
)

func AddEndpoints(group micro.Group, endpoints knowledge.EndpointSet) {
	group.AddEndpoint("retrieve", RetrieveHandler(endpoints.Retrieve))
	group.AddEndpoint("ingest", IngestHandler(endpoints.Ingest))
}
