package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wrenlab/knowledge"
	"github.com/wrenlab/knowledge/vector"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func errorResponse(id any, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(id),
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

const (
	ToolAskDocs    = "ask_docs"
	ToolIngestDocs = "ingest_docs"
)

const MCPSERVER_INSTRUCTIONS string = `The knowledge server answers technical questions from an indexed
documentation corpus using semantic vector search.

Available operations:
- tools/call ask_docs: Retrieve the documentation chunks most relevant to a question
- tools/call ingest_docs: Rebuild the knowledge index from the configured document set

Answers are returned as formatted context blocks, nearest match first.`

func Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolAskDocs,
			mcp.WithDescription("Answer a technical question with the most relevant documentation chunks."),
			mcp.WithString("question",
				mcp.Required(),
				mcp.Description("The user's technical question about the indexed documentation."),
			),
			mcp.WithNumber("k",
				mcp.Description("Number of chunks to retrieve (default 5)."),
			),
		),
		mcp.NewTool(ToolIngestDocs,
			mcp.WithDescription("Rebuild the knowledge index from the configured document set."),
		),
	}
}

func InitializeEndpoint(svc knowledge.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    "knowledged",
				Version: "1.0.0",
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func PingEndpoint(svc knowledge.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{}, // empty response
		}
	}
}

func ListToolsEndpoint(svc knowledge.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: Tools(),
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

// CallToolEndpoint is the service boundary required to convert any internal
// failure into a user-facing tool result instead of crashing the host.
func CallToolEndpoint(svc knowledge.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		var result *mcp.CallToolResult

		switch params.Name {
		case ToolAskDocs:
			result = askDocs(ctx, svc, params)

		case ToolIngestDocs:
			result = ingestDocs(ctx, svc)

		default:
			return errorResponse(req.ID, mcp.INVALID_PARAMS, "unknown tool: "+params.Name)
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func askDocs(ctx context.Context, svc knowledge.Service, params mcp.CallToolParams) *mcp.CallToolResult {
	args, _ := params.Arguments.(map[string]any)

	question, _ := args["question"].(string)
	if question == "" {
		return mcp.NewToolResultError("A question is required.")
	}

	k := 0
	if n, ok := args["k"].(float64); ok {
		k = int(n)
	}

	results, err := svc.Retrieve(ctx, question, k)
	if err != nil {
		if errors.Is(err, vector.ErrIndexNotFound) {
			return mcp.NewToolResultError("The knowledge base is not initialized. Run ingestion first.")
		}

		return mcp.NewToolResultError("I encountered an error searching the documentation: " + err.Error())
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No relevant documentation found.")
	}

	text := "Here is the relevant documentation I found:\n\n" + knowledge.FormatContext(results)

	return mcp.NewToolResultText(text)
}

func ingestDocs(ctx context.Context, svc knowledge.Service) *mcp.CallToolResult {
	count, err := svc.Ingest(ctx)
	if err != nil {
		return mcp.NewToolResultError("Ingestion failed: " + err.Error())
	}

	if count == 0 {
		return mcp.NewToolResultText("Warning: no qualifying chunks found; the index was left unchanged.")
	}

	return mcp.NewToolResultText("Successfully ingested " + strconv.Itoa(count) + " chunks.")
}
