package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wrenlab/knowledge"

	mcpE "github.com/wrenlab/knowledge/mcp"
)

func AddRouters(r *gin.Engine, endpoints knowledge.EndpointSet) {
	// RESTful API routes
	api := r.Group("/api")
	{
		api.POST("/retrieve", RetrieveHandler(endpoints.Retrieve))
		api.POST("/ingest", IngestHandler(endpoints.Ingest))
	}
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}
