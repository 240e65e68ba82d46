package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wrenlab/knowledge"
	"github.com/wrenlab/knowledge/document"
	"github.com/wrenlab/knowledge/embedding"
	"github.com/wrenlab/knowledge/embedding/hash"
	"github.com/wrenlab/knowledge/embedding/ollama"
	"github.com/wrenlab/knowledge/persistence/chromem"

	mcpE "github.com/wrenlab/knowledge/mcp"
	httpT "github.com/wrenlab/knowledge/transport/http"
	natsT "github.com/wrenlab/knowledge/transport/nats"
)

type StdioMCPServer interface {
	AddEndpoint(method mcp.MCPMethod, endpoint mcpE.MCPEndpoint) error
	Listen(ctx context.Context) error
}

func NewStdioMCPServer() StdioMCPServer {
	return &stdioMCPServer{
		endpoints: make(map[mcp.MCPMethod]mcpE.MCPEndpoint),
	}
}

type stdioMCPServer struct {
	endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint
}

func (s *stdioMCPServer) Listen(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)

	lines := make(chan string)
	errs := make(chan error, 1)

	go func(ctx context.Context, lines chan<- string, errs chan<- error) {
		defer close(lines)

		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			errs <- err
		}
	}(ctx, lines, errs)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-errs:
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err

		case line, ok := <-lines:
			if !ok {
				return nil
			}

			if line == "" {
				continue
			}

			var req mcpE.JSONRPCRequest
			if err := json.Unmarshal([]byte(line), &req); err != nil {
				continue
			}

			if req.ID.IsNil() {
				continue
			}

			var resp mcp.JSONRPCMessage

			endpoint, ok := s.endpoints[req.Method]
			if ok {
				resp = endpoint(ctx, req)
			} else {
				resp = mcp.JSONRPCError{
					JSONRPC: mcp.JSONRPC_VERSION,
					ID:      req.ID,
					Error: struct {
						Code    int    `json:"code"`
						Message string `json:"message"`
						Data    any    `json:"data,omitempty"`
					}{
						Code:    mcp.METHOD_NOT_FOUND,
						Message: "method not found",
					},
				}
			}

			bs, err := json.Marshal(resp)
			if err != nil {
				continue
			}

			fmt.Fprintf(os.Stdout, "%s\n", bs)
		}
	}
}

func (s *stdioMCPServer) AddEndpoint(method mcp.MCPMethod, endpoint mcpE.MCPEndpoint) error {
	_, ok := s.endpoints[method]
	if ok {
		return errors.New("endpoint already exists")
	}

	s.endpoints[method] = endpoint
	return nil
}

func main() {
	godotenv.Load()

	cmd := &cli.Command{
		Name:  "knowledged",
		Usage: "Documentation knowledge service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Path to the knowledge service data directory",
			},
			&cli.StringFlag{
				Name:    "docs",
				Usage:   "Source documents directory",
				Sources: cli.EnvVars("KNOWLEDGE_DOCS"),
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:    "nats-creds",
				Usage:   "NATS user credentials file",
				Sources: cli.EnvVars("NATS_CREDS"),
			},
			&cli.BoolFlag{
				Name:  "http",
				Usage: "Enable HTTP transport",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "HTTP server address",
				Value: ":8080",
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	path := cmd.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = filepath.Join(homeDir, ".wrenlab", "knowledge")
	}

	// MCP clients own stdout; logs go to stderr.
	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	cfg, err := loadConfig(filepath.Join(path, "config.yaml"))
	if err != nil {
		return err
	}

	if docs := cmd.String("docs"); docs != "" {
		cfg.Docs.Path = docs
	}

	if cfg.Vector.Path == "" {
		cfg.Vector.Path = filepath.Join(path, "vectors")
		cfg.Vector.Persistent = true
	}

	provider, err := newProvider(cfg.Embedding)
	if err != nil {
		return err
	}

	index, err := chromem.NewChromemIndex(cfg.Vector)
	if err != nil {
		return err
	}

	loader := document.NewDirLoader(cfg.Docs.Path)

	svc := knowledge.NewService(*cfg, loader, provider, index)
	defer svc.Close()

	svc = knowledge.LoggingMiddleware(log)(svc)

	endpoints := knowledge.EndpointSet{
		Retrieve: knowledge.RetrieveEndpoint(svc),
		Ingest:   knowledge.IngestEndpoint(svc),
	}

	mcpEndpoints := make(map[mcp.MCPMethod]mcpE.MCPEndpoint)
	mcpEndpoints[mcp.MethodInitialize] = mcpE.InitializeEndpoint(svc)
	mcpEndpoints[mcp.MethodPing] = mcpE.PingEndpoint(svc)
	mcpEndpoints[mcp.MethodToolsList] = mcpE.ListToolsEndpoint(svc)
	mcpEndpoints[mcp.MethodToolsCall] = mcpE.CallToolEndpoint(svc)

	s := NewStdioMCPServer()
	s.AddEndpoint(mcp.MethodInitialize, mcpEndpoints[mcp.MethodInitialize])
	s.AddEndpoint(mcp.MethodPing, mcpEndpoints[mcp.MethodPing])
	s.AddEndpoint(mcp.MethodToolsList, mcpEndpoints[mcp.MethodToolsList])
	s.AddEndpoint(mcp.MethodToolsCall, mcpEndpoints[mcp.MethodToolsCall])

	go s.Listen(ctx)

	// Add NATS Transport
	if natsURL := cmd.String("nats"); natsURL != "" {
		opts := []nats.Option{
			nats.Name("Knowledge Service"),
		}

		if creds := cmd.String("nats-creds"); creds != "" {
			opts = append(opts, nats.UserCredentials(creds))
		}

		nc, err := nats.Connect(natsURL, opts...)
		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "knowledge",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		root := srv.AddGroup("knowledge")
		natsT.AddEndpoints(root, endpoints)
	}

	httpEnabled := cmd.Bool("http")
	if httpEnabled {
		r := gin.Default()
		httpT.AddRouters(r, endpoints)
		httpT.AddStreamableRouters(r, mcpEndpoints)

		httpAddr := cmd.String("http-addr")
		go r.Run(httpAddr)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}

func loadConfig(path string) (*knowledge.Config, error) {
	var cfg knowledge.Config

	f, err := os.Open(path)
	if err == nil {
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg.ApplyDefaults()

	return &cfg, nil
}

func newProvider(cfg embedding.Config) (embedding.Provider, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewProvider(cfg), nil

	case "hash":
		return hash.NewProvider(cfg.Dimension), nil

	default:
		return nil, errors.New("unsupported embedding provider: " + cfg.Provider)
	}
}
